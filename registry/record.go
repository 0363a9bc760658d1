// Package registry implements the identity discovery registry: the
// identifier -> public key mapping, its Postgres-backed store, and the
// client-side resolver with its circuit breaker, used by the trust
// graph service to look up identities it does not yet know about.
package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/errs"
	"github.com/fides-protocol/fides/identity"
)

// Record is the persisted view of an identity.
type Record struct {
	DID       string
	PublicKey []byte
	Domain    string
	Metadata  json.RawMessage
	FirstSeen time.Time
	LastSeen  time.Time
}

// Store is the Postgres-backed identity registry.
type Store struct {
	DB *sql.DB
}

// NewStore wraps db as an identity Store.
func NewStore(db *sql.DB) *Store { return &Store{DB: db} }

// ErrDuplicate is returned by Register when the identifier already
// exists.
var ErrDuplicate = fmt.Errorf("identity already registered")

// ErrMismatch is returned by Register when the supplied public key does
// not match the bytes encoded in the DID itself — an attempted identity
// hijack.
var ErrMismatch = fmt.Errorf("public key does not match identifier")

// ErrNotFound is returned by Get when no record exists for a did.
var ErrNotFound = fmt.Errorf("identity not found")

// Register validates that did is self-certifying over pk and persists a
// new record. It rejects a did whose decoded public key does not equal
// pk (identity hijacking defense) and a duplicate registration of an
// existing did.
func (s *Store) Register(did string, pk []byte, domain string, metadata json.RawMessage) (Record, error) {
	decoded, err := identity.Parse(did)
	if err != nil {
		return Record{}, errs.Trust(fmt.Errorf("invalid identifier: %w", err))
	}
	if len(pk) != crypto.PublicKeySize {
		return Record{}, errs.Key(fmt.Errorf("publicKey must be %d bytes", crypto.PublicKeySize))
	}
	if !crypto.ConstantTimeEqual(decoded, pk) {
		return Record{}, errs.Trust(ErrMismatch)
	}

	var exists bool
	if err := s.DB.QueryRow(`SELECT EXISTS(SELECT 1 FROM identities WHERE did = $1)`, did).Scan(&exists); err != nil {
		return Record{}, errs.Trust(fmt.Errorf("checking existing identity: %w", err))
	}
	if exists {
		return Record{}, errs.Trust(ErrDuplicate)
	}

	if metadata == nil {
		metadata = json.RawMessage("{}")
	}
	now := time.Now().UTC()
	_, err = s.DB.Exec(
		`INSERT INTO identities (did, public_key, domain, metadata, first_seen, last_seen) VALUES ($1, $2, $3, $4, $5, $5)`,
		did, crypto.HexEncode(pk), domain, []byte(metadata), now,
	)
	if err != nil {
		return Record{}, errs.Trust(fmt.Errorf("persisting identity: %w", err))
	}

	return Record{DID: did, PublicKey: pk, Domain: domain, Metadata: metadata, FirstSeen: now, LastSeen: now}, nil
}

// Get returns the stored record for did, or ErrNotFound.
func (s *Store) Get(did string) (Record, error) {
	var rec Record
	var pkHex string
	var metadata []byte
	var domain sql.NullString
	err := s.DB.QueryRow(
		`SELECT did, public_key, domain, metadata, first_seen, last_seen FROM identities WHERE did = $1`, did,
	).Scan(&rec.DID, &pkHex, &domain, &metadata, &rec.FirstSeen, &rec.LastSeen)
	if err == sql.ErrNoRows {
		return Record{}, errs.Trust(ErrNotFound)
	}
	if err != nil {
		return Record{}, errs.Trust(fmt.Errorf("loading identity: %w", err))
	}
	rec.Domain = domain.String
	rec.Metadata = metadata
	pk, err := crypto.HexDecode(pkHex)
	if err != nil {
		return Record{}, errs.Trust(fmt.Errorf("decoding stored public key: %w", err))
	}
	rec.PublicKey = pk
	return rec, nil
}

// ListByDomain returns every record registered under domain.
func (s *Store) ListByDomain(domain string) ([]Record, error) {
	rows, err := s.DB.Query(
		`SELECT did, public_key, domain, metadata, first_seen, last_seen FROM identities WHERE domain = $1 ORDER BY first_seen`, domain,
	)
	if err != nil {
		return nil, errs.Trust(fmt.Errorf("listing identities: %w", err))
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var pkHex string
		var metadata []byte
		var d sql.NullString
		if err := rows.Scan(&rec.DID, &pkHex, &d, &metadata, &rec.FirstSeen, &rec.LastSeen); err != nil {
			return nil, errs.Trust(fmt.Errorf("scanning identity row: %w", err))
		}
		pk, err := crypto.HexDecode(pkHex)
		if err != nil {
			return nil, errs.Trust(fmt.Errorf("decoding stored public key: %w", err))
		}
		rec.PublicKey = pk
		rec.Domain = d.String
		rec.Metadata = metadata
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Touch updates last_seen for did, used whenever a trust operation
// references an identifier already on file.
func (s *Store) Touch(did string) error {
	_, err := s.DB.Exec(`UPDATE identities SET last_seen = $2 WHERE did = $1`, did, time.Now().UTC())
	if err != nil {
		return errs.Trust(fmt.Errorf("touching identity: %w", err))
	}
	return nil
}
