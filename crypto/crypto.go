// Package crypto provides the Ed25519 signing primitives, hashing, and
// encodings that every other fides package builds on.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"github.com/mr-tron/base58"
)

// PublicKeySize and SignatureSize mirror crypto/ed25519's sizes;
// PrivateKeySize is the 32-byte seed size (ed25519.SeedSize), since a
// fides key pair stores the seed rather than the 64-byte expanded key.
// Kept as named constants since the rest of the codebase speaks in terms
// of "the fides keypair" rather than ed25519 internals.
const (
	PublicKeySize  = ed25519.PublicKeySize
	PrivateKeySize = ed25519.SeedSize
	SignatureSize  = ed25519.SignatureSize
)

// ErrInvalidKeyLength is returned whenever a public or private key does
// not have the expected byte length.
var ErrInvalidKeyLength = errors.New("crypto: invalid key length")

// KeyPair is an exclusively-owned Ed25519 key pair. Seed is the 32-byte
// private seed; it must never be logged, serialized unencrypted, or
// copied beyond what a single signing operation needs.
type KeyPair struct {
	Seed      [32]byte
	PublicKey [32]byte
}

// GenerateKeyPair mints a fresh Ed25519 key pair using a CSPRNG.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	var kp KeyPair
	copy(kp.PublicKey[:], pub)
	copy(kp.Seed[:], priv.Seed())
	return kp, nil
}

// KeyPairFromSeed reconstructs a KeyPair from a 32-byte seed, e.g. after
// loading it from a keystore.
func KeyPairFromSeed(seed []byte) (KeyPair, error) {
	if len(seed) != PrivateKeySize {
		return KeyPair{}, ErrInvalidKeyLength
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	var kp KeyPair
	copy(kp.Seed[:], seed)
	copy(kp.PublicKey[:], pub)
	return kp, nil
}

// PrivateKey returns the full 64-byte ed25519.PrivateKey derived from the
// seed, suitable for signing.
func (kp KeyPair) PrivateKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(kp.Seed[:])
}

// Sign signs msg with the key pair's private key.
func Sign(msg []byte, kp KeyPair) []byte {
	return ed25519.Sign(kp.PrivateKey(), msg)
}

// SignWithSeed signs msg using a raw 32-byte seed, for callers that only
// hold the seed rather than a full KeyPair.
func SignWithSeed(msg []byte, seed []byte) ([]byte, error) {
	if len(seed) != PrivateKeySize {
		return nil, ErrInvalidKeyLength
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return ed25519.Sign(priv, msg), nil
}

// Verify checks an Ed25519 signature over msg under pk. Malformed inputs
// (wrong-length key or signature) return false rather than panicking.
func Verify(msg, sig, pk []byte) bool {
	if len(pk) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(pk, msg, sig)
}

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// SHA512 returns the SHA-512 digest of data.
func SHA512(data []byte) [64]byte {
	return sha512.Sum512(data)
}

// Base58Encode encodes data using the Bitcoin base58 alphabet.
func Base58Encode(data []byte) string {
	return base58.Encode(data)
}

// Base58Decode decodes a base58 string back into bytes.
func Base58Decode(s string) ([]byte, error) {
	return base58.Decode(s)
}

// Base64Encode is standard (non-URL) base64 encoding, used for
// Content-Digest and signature header values per RFC 9421.
func Base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Base64Decode reverses Base64Encode.
func Base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// HexEncode encodes data as lowercase hex, used for signature and
// public-key wire representations.
func HexEncode(data []byte) string {
	return hex.EncodeToString(data)
}

// HexDecode reverses HexEncode.
func HexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// ConstantTimeEqual compares two byte slices in time independent of
// their contents, for use on secrets, signatures, and identifiers.
// Slices of differing length report inequality immediately, so only the
// lengths, not the contents, affect timing.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// ConstantTimeEqualString is the string convenience wrapper used widely
// across the attestation and signature-verification paths.
func ConstantTimeEqualString(a, b string) bool {
	return ConstantTimeEqual([]byte(a), []byte(b))
}
