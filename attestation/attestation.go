// Package attestation implements signed trust statements: creation,
// and verification that enforces strict equivalence between the signed
// payload bytes and the envelope fields presented alongside them.
package attestation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/errs"
	"github.com/fides-protocol/fides/identity"
)

// MinTrustLevel and MaxTrustLevel bound the trust level an attestation
// may carry, inclusive.
const (
	MinTrustLevel = 0
	MaxTrustLevel = 100
)

// payload is the exact JSON shape that gets signed; field order here
// controls encoding/json's output order, which is what makes the
// payload string reproducible and therefore re-verifiable byte for
// byte.
type payload struct {
	ID         string `json:"id"`
	IssuerDID  string `json:"issuerDid"`
	SubjectDID string `json:"subjectDid"`
	TrustLevel int    `json:"trustLevel"`
	IssuedAt   string `json:"issuedAt"`
}

// Attestation is a trust statement from Issuer to Subject at TrustLevel,
// carrying the exact payload bytes that Signature was computed over.
type Attestation struct {
	ID         string
	IssuerDID  string
	SubjectDID string
	TrustLevel int
	IssuedAt   time.Time
	ExpiresAt  *time.Time
	Signature  string // hex-encoded 64-byte Ed25519 signature
	Payload    string // exact JSON bytes that were signed
}

// Create builds and signs a new attestation from issuerID to subjectID
// at level, using the issuer's key pair. issuerID must match the
// identifier derivable from kp's public key's caller-provided binding —
// Create trusts the caller to pass the matching key pair for issuerID;
// callers resolving both from a keystore get this for free.
func Create(issuerID, subjectID string, level int, kp crypto.KeyPair) (Attestation, error) {
	if !identity.IsValid(issuerID) {
		return Attestation{}, errs.Trust(fmt.Errorf("invalid issuer identifier: %s", issuerID))
	}
	if !identity.IsValid(subjectID) {
		return Attestation{}, errs.Trust(fmt.Errorf("invalid subject identifier: %s", subjectID))
	}
	if level < MinTrustLevel || level > MaxTrustLevel {
		return Attestation{}, errs.Trust(fmt.Errorf("trust level %d out of range [%d,%d]", level, MinTrustLevel, MaxTrustLevel))
	}

	issuedAt := time.Now().UTC()
	p := payload{
		ID:         uuid.NewString(),
		IssuerDID:  issuerID,
		SubjectDID: subjectID,
		TrustLevel: level,
		IssuedAt:   issuedAt.Format(time.RFC3339),
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return Attestation{}, errs.Trust(fmt.Errorf("encoding attestation payload: %w", err))
	}

	sig := crypto.Sign(raw, kp)

	return Attestation{
		ID:         p.ID,
		IssuerDID:  issuerID,
		SubjectDID: subjectID,
		TrustLevel: level,
		IssuedAt:   issuedAt,
		Signature:  crypto.HexEncode(sig),
		Payload:    string(raw),
	}, nil
}

// Verify checks att under the issuer's public key pk. It enforces two
// independent things: the signature must verify over the exact payload
// bytes, and every envelope field must equal its payload counterpart,
// compared in constant time for strings. Any failure, cryptographic or
// structural, returns false, never an error or panic.
func Verify(att Attestation, pk []byte) bool {
	if !crypto.Verify([]byte(att.Payload), mustHexDecode(att.Signature), pk) {
		return false
	}

	var p payload
	if err := json.Unmarshal([]byte(att.Payload), &p); err != nil {
		return false
	}

	if !crypto.ConstantTimeEqualString(p.ID, att.ID) {
		return false
	}
	if !crypto.ConstantTimeEqualString(p.IssuerDID, att.IssuerDID) {
		return false
	}
	if !crypto.ConstantTimeEqualString(p.SubjectDID, att.SubjectDID) {
		return false
	}
	if p.TrustLevel != att.TrustLevel {
		return false
	}
	if !crypto.ConstantTimeEqualString(p.IssuedAt, att.IssuedAt.Format(time.RFC3339)) {
		return false
	}

	return true
}

// mustHexDecode returns nil on a malformed signature instead of
// panicking, so Verify's caller sees a clean false rather than a crash.
func mustHexDecode(s string) []byte {
	b, err := crypto.HexDecode(s)
	if err != nil {
		return nil
	}
	return b
}
