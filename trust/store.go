package trust

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fides-protocol/fides/errs"
)

// Store is the Postgres-backed persistence layer for trust edges and
// their cached reputation scores.
type Store struct {
	DB *sql.DB
}

// NewStore wraps db as a trust Store.
func NewStore(db *sql.DB) *Store { return &Store{DB: db} }

// epoch is the sentinel "never computed" timestamp reputation_scores
// rows are seeded with, matching the table's DEFAULT to_timestamp(0).
var epoch = time.Unix(0, 0).UTC()

// UpsertEdge inserts a new trust edge, or replaces the existing one
// between the same source and target, per the UNIQUE(source, target)
// constraint — a later CreateTrust call between the same pair
// supersedes the earlier edge rather than accumulating duplicates.
// Upserting also invalidates the target's cached reputation score.
func (s *Store) UpsertEdge(e Edge) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return errs.Trust(fmt.Errorf("beginning trust edge upsert: %w", err))
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO trust_edges (source, target, trust_level, attestation, signature, created_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
		ON CONFLICT (source, target) DO UPDATE SET
			trust_level = EXCLUDED.trust_level,
			attestation = EXCLUDED.attestation,
			signature = EXCLUDED.signature,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at,
			revoked_at = NULL
	`, e.Source, e.Target, e.TrustLevel, e.Attestation, e.Signature, e.CreatedAt, nullTime(e.ExpiresAt))
	if err != nil {
		return errs.Trust(fmt.Errorf("upserting trust edge: %w", err))
	}

	if err := invalidateLocked(tx, e.Target); err != nil {
		return err
	}

	return tx.Commit()
}

// RevokeEdge marks the edge from source to target revoked as of now and
// invalidates the target's cached reputation score.
func (s *Store) RevokeEdge(source, target string) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return errs.Trust(fmt.Errorf("beginning trust edge revocation: %w", err))
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE trust_edges SET revoked_at = $3 WHERE source = $1 AND target = $2 AND revoked_at IS NULL`,
		source, target, time.Now().UTC())
	if err != nil {
		return errs.Trust(fmt.Errorf("revoking trust edge: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.Trust(fmt.Errorf("no active trust edge from %s to %s", source, target))
	}

	if err := invalidateLocked(tx, target); err != nil {
		return err
	}
	return tx.Commit()
}

func invalidateLocked(tx *sql.Tx, did string) error {
	_, err := tx.Exec(`
		INSERT INTO reputation_scores (did, score, direct_trusters, transitive_trusters, last_computed)
		VALUES ($1, 0, 0, 0, $2)
		ON CONFLICT (did) DO UPDATE SET last_computed = $2
	`, did, epoch)
	if err != nil {
		return errs.Trust(fmt.Errorf("invalidating reputation cache for %s: %w", did, err))
	}
	return nil
}

// AllEdges loads every trust edge in the graph, active and inactive
// alike — callers filter with ValidEdges at the time they need.
func (s *Store) AllEdges() ([]Edge, error) {
	rows, err := s.DB.Query(`SELECT source, target, trust_level, attestation, signature, created_at, expires_at, revoked_at FROM trust_edges`)
	if err != nil {
		return nil, errs.Trust(fmt.Errorf("loading trust edges: %w", err))
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		var expiresAt, revokedAt sql.NullTime
		if err := rows.Scan(&e.Source, &e.Target, &e.TrustLevel, &e.Attestation, &e.Signature, &e.CreatedAt, &expiresAt, &revokedAt); err != nil {
			return nil, errs.Trust(fmt.Errorf("scanning trust edge: %w", err))
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			e.ExpiresAt = &t
		}
		if revokedAt.Valid {
			t := revokedAt.Time
			e.RevokedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CachedScore is a previously-computed reputation row, per §4.9.4's
// 1-hour cache-validity window.
type CachedScore struct {
	Reputation
	LastComputed time.Time
}

// DefaultCacheValidity is how long a computed reputation score may be
// served from cache before it must be recomputed.
const DefaultCacheValidity = time.Hour

// GetScore returns the cached score for did if it was computed within
// DefaultCacheValidity, and reports whether it was fresh enough to use.
func (s *Store) GetScore(did string) (CachedScore, bool, error) {
	var cs CachedScore
	err := s.DB.QueryRow(
		`SELECT score, direct_trusters, transitive_trusters, last_computed FROM reputation_scores WHERE did = $1`, did,
	).Scan(&cs.Score, &cs.DirectTrusters, &cs.TransitiveTrusters, &cs.LastComputed)
	if err == sql.ErrNoRows {
		return CachedScore{}, false, nil
	}
	if err != nil {
		return CachedScore{}, false, errs.Trust(fmt.Errorf("loading cached reputation for %s: %w", did, err))
	}
	fresh := time.Since(cs.LastComputed) < DefaultCacheValidity
	return cs, fresh, nil
}

// PutScore stores a freshly computed reputation score for did, stamped
// with the current time.
func (s *Store) PutScore(did string, rep Reputation) error {
	_, err := s.DB.Exec(`
		INSERT INTO reputation_scores (did, score, direct_trusters, transitive_trusters, last_computed)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (did) DO UPDATE SET
			score = EXCLUDED.score,
			direct_trusters = EXCLUDED.direct_trusters,
			transitive_trusters = EXCLUDED.transitive_trusters,
			last_computed = EXCLUDED.last_computed
	`, did, rep.Score, rep.DirectTrusters, rep.TransitiveTrusters, time.Now().UTC())
	if err != nil {
		return errs.Trust(fmt.Errorf("storing reputation score for %s: %w", did, err))
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
