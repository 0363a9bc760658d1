// Package identity implements self-certifying agent identifiers and the
// local keystores that hold the key pairs behind them.
package identity

import (
	"fmt"

	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/errs"
)

// Prefix is the literal scheme prefix for every fides identifier.
const Prefix = "did:fides:"

// Derive builds a self-certifying identifier from a 32-byte Ed25519
// public key: did:fides:<base58(pk)>.
func Derive(pk []byte) (string, error) {
	if len(pk) != crypto.PublicKeySize {
		return "", errs.Key(fmt.Errorf("public key must be %d bytes, got %d", crypto.PublicKeySize, len(pk)))
	}
	return Prefix + crypto.Base58Encode(pk), nil
}

// Parse recovers the 32-byte public key encoded in id. It fails when the
// prefix is absent, the base58 suffix fails to decode, or the decoded
// length is not exactly 32 bytes.
func Parse(id string) ([]byte, error) {
	if len(id) <= len(Prefix) || id[:len(Prefix)] != Prefix {
		return nil, errs.Key(fmt.Errorf("identifier missing %q prefix", Prefix))
	}
	suffix := id[len(Prefix):]
	pk, err := crypto.Base58Decode(suffix)
	if err != nil {
		return nil, errs.Key(fmt.Errorf("invalid base58 identifier suffix: %w", err))
	}
	if len(pk) != crypto.PublicKeySize {
		return nil, errs.Key(fmt.Errorf("decoded identifier is %d bytes, want %d", len(pk), crypto.PublicKeySize))
	}
	return pk, nil
}

// IsValid reports whether id parses successfully, without returning the
// decode error to the caller.
func IsValid(id string) bool {
	_, err := Parse(id)
	return err == nil
}
