package identity

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/errs"
)

// PBKDF2Iterations is the mandatory iteration count for deriving the
// AES-256-GCM key from a keystore passphrase.
const PBKDF2Iterations = 600_000

const saltSize = 32
const nonceSize = 12

// DiskKeystore persists one JSON file per identifier under Dir. When
// Passphrase is non-empty, secret keys are stored inside an
// AES-256-GCM envelope; otherwise they are stored base64-encoded in
// the clear.
type DiskKeystore struct {
	Dir        string
	Passphrase string
}

// NewDiskKeystore creates a keystore rooted at dir, creating the
// directory (mode 0700) if it does not already exist.
func NewDiskKeystore(dir, passphrase string) (*DiskKeystore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errs.Key(fmt.Errorf("creating keystore directory: %w", err))
	}
	return &DiskKeystore{Dir: dir, Passphrase: passphrase}, nil
}

// filename derives a deterministic file name for id by replacing colons
// with hyphens, e.g. "did:fides:abc" -> "did-fides-abc.json".
func filename(id string) string {
	return strings.ReplaceAll(id, ":", "-") + ".json"
}

func (d *DiskKeystore) path(id string) string {
	return filepath.Join(d.Dir, filename(id))
}

// Save writes kp to disk under id, encrypting the seed when a
// passphrase is configured.
func (d *DiskKeystore) Save(id string, kp crypto.KeyPair) error {
	rec := keyRecord{
		DID:       id,
		PublicKey: crypto.Base64Encode(kp.PublicKey[:]),
		CreatedAt: time.Now().UTC(),
	}

	if d.Passphrase == "" {
		rec.Encrypted = false
		rec.Data = keyRecordData{PrivateKey: crypto.Base64Encode(kp.Seed[:])}
	} else {
		salt := make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return errs.Key(fmt.Errorf("generating salt: %w", err))
		}
		key := pbkdf2.Key([]byte(d.Passphrase), salt, PBKDF2Iterations, 32, sha256.New)

		block, err := aes.NewCipher(key)
		if err != nil {
			return errs.Key(fmt.Errorf("initializing cipher: %w", err))
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return errs.Key(fmt.Errorf("initializing GCM: %w", err))
		}
		nonce := make([]byte, nonceSize)
		if _, err := rand.Read(nonce); err != nil {
			return errs.Key(fmt.Errorf("generating nonce: %w", err))
		}

		// Seal appends its own authentication tag; split it back out so
		// the on-disk record exposes ciphertext and authTag separately,
		// matching the documented wire format.
		sealed := gcm.Seal(nil, nonce, kp.Seed[:], nil)
		tagStart := len(sealed) - gcm.Overhead()
		ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

		rec.Encrypted = true
		rec.Data = keyRecordData{
			IV:         crypto.Base64Encode(nonce),
			Salt:       crypto.Base64Encode(salt),
			AuthTag:    crypto.Base64Encode(tag),
			Ciphertext: crypto.Base64Encode(ciphertext),
		}
	}

	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errs.Key(fmt.Errorf("encoding key record: %w", err))
	}

	path := d.path(id)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return errs.Key(fmt.Errorf("writing key record: %w", err))
	}
	// os.WriteFile applies the mode only when it creates the file; if the
	// file already existed with looser permissions, enforce it explicitly.
	if err := os.Chmod(path, 0o600); err != nil {
		return errs.Key(fmt.Errorf("setting key record permissions: %w", err))
	}
	return nil
}

// Load reads and, if necessary, decrypts the key pair stored for id. It
// refuses to return a record whose stored identifier does not match id.
func (d *DiskKeystore) Load(id string) (crypto.KeyPair, error) {
	raw, err := os.ReadFile(d.path(id))
	if err != nil {
		return crypto.KeyPair{}, errs.Key(fmt.Errorf("reading key record: %w", err))
	}

	var rec keyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return crypto.KeyPair{}, errs.Key(fmt.Errorf("decoding key record: %w", err))
	}
	if rec.DID != id {
		return crypto.KeyPair{}, errs.Key(fmt.Errorf("key record identifier %q does not match requested %q", rec.DID, id))
	}

	pub, err := crypto.Base64Decode(rec.PublicKey)
	if err != nil {
		return crypto.KeyPair{}, errs.Key(fmt.Errorf("decoding public key: %w", err))
	}

	var seed []byte
	if !rec.Encrypted {
		seed, err = crypto.Base64Decode(rec.Data.PrivateKey)
		if err != nil {
			return crypto.KeyPair{}, errs.Key(fmt.Errorf("decoding private key: %w", err))
		}
	} else {
		if d.Passphrase == "" {
			return crypto.KeyPair{}, errs.Key(fmt.Errorf("key record for %s is encrypted but no passphrase is configured", id))
		}
		salt, err := crypto.Base64Decode(rec.Data.Salt)
		if err != nil {
			return crypto.KeyPair{}, errs.Key(fmt.Errorf("decoding salt: %w", err))
		}
		nonce, err := crypto.Base64Decode(rec.Data.IV)
		if err != nil {
			return crypto.KeyPair{}, errs.Key(fmt.Errorf("decoding iv: %w", err))
		}
		tag, err := crypto.Base64Decode(rec.Data.AuthTag)
		if err != nil {
			return crypto.KeyPair{}, errs.Key(fmt.Errorf("decoding auth tag: %w", err))
		}
		ciphertext, err := crypto.Base64Decode(rec.Data.Ciphertext)
		if err != nil {
			return crypto.KeyPair{}, errs.Key(fmt.Errorf("decoding ciphertext: %w", err))
		}

		key := pbkdf2.Key([]byte(d.Passphrase), salt, PBKDF2Iterations, 32, sha256.New)
		block, err := aes.NewCipher(key)
		if err != nil {
			return crypto.KeyPair{}, errs.Key(fmt.Errorf("initializing cipher: %w", err))
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return crypto.KeyPair{}, errs.Key(fmt.Errorf("initializing GCM: %w", err))
		}

		sealed := append(append([]byte{}, ciphertext...), tag...)
		seed, err = gcm.Open(nil, nonce, sealed, nil)
		if err != nil {
			return crypto.KeyPair{}, errs.Key(fmt.Errorf("decrypting key record (wrong passphrase or tampered data): %w", err))
		}
	}

	kp, err := crypto.KeyPairFromSeed(seed)
	if err != nil {
		return crypto.KeyPair{}, err
	}
	if !crypto.ConstantTimeEqual(kp.PublicKey[:], pub) {
		return crypto.KeyPair{}, errs.Key(fmt.Errorf("key record public key does not match derived public key"))
	}
	return kp, nil
}
