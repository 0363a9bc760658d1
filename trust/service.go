package trust

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fides-protocol/fides/attestation"
	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/errs"
	"github.com/fides-protocol/fides/identity"
	"github.com/fides-protocol/fides/registry"
)

// DefaultKnownCacheTTL is how long an identifier that resolved
// successfully is remembered as "known" before its registry record is
// re-fetched, per §4.9.1.
const DefaultKnownCacheTTL = 30 * time.Minute

// knownEntry is one memoized identity lookup.
type knownEntry struct {
	record    registry.Record
	expiresAt time.Time
}

// Service orchestrates the create-trust protocol: identity
// materialization against the local registry store (falling back to
// the remote resolver behind a circuit breaker), cryptographic and
// semantic verification of the attestation, and edge persistence.
type Service struct {
	Registry *registry.Store
	Trust    *Store
	Resolver *registry.Resolver
	Breaker  *registry.CircuitBreaker
	Decay    float64
	MaxDepth int

	mu    sync.Mutex
	known map[string]knownEntry
}

// NewService wires a Service from its collaborators. resolver and
// breaker may be nil for deployments that never need to reach out to a
// remote registry (e.g. tests against a fully local identity set).
func NewService(reg *registry.Store, trustStore *Store, resolver *registry.Resolver, breaker *registry.CircuitBreaker) *Service {
	return &Service{
		Registry: reg,
		Trust:    trustStore,
		Resolver: resolver,
		Breaker:  breaker,
		Decay:    DefaultDecay,
		MaxDepth: DefaultMaxPathDepth,
		known:    make(map[string]knownEntry),
	}
}

// CreateTrustRequest is the wire shape of a POST /v1/trust body.
type CreateTrustRequest struct {
	IssuerDID  string
	SubjectDID string
	TrustLevel int
	Signature  string // hex
	Payload    string // exact signed JSON bytes
	ExpiresAt  *time.Time
}

// CreateTrust runs the full create-trust protocol of §4.9.1 and returns
// the edge as written. The returned edge's ID is not populated: the
// store does not read the row's id back after the upsert.
func (s *Service) CreateTrust(ctx context.Context, req CreateTrustRequest) (Edge, error) {
	if err := validateCreateTrust(req); err != nil {
		return Edge{}, err
	}

	issuer, _, err := s.materializeEndpoints(ctx, req.IssuerDID, req.SubjectDID)
	if err != nil {
		return Edge{}, err
	}

	sig, err := crypto.HexDecode(req.Signature)
	if err != nil {
		return Edge{}, errs.Trust(fmt.Errorf("decoding signature: %w", err))
	}
	if !crypto.Verify([]byte(req.Payload), sig, issuer.PublicKey) {
		return Edge{}, errs.Trust(fmt.Errorf("signature does not verify against issuer's public key"))
	}

	// The request carries no id or issuedAt of its own; take them from the
	// signed payload so attestation.Verify binds only the request's
	// issuer, subject and trust level to the payload.
	var signed struct {
		ID       string `json:"id"`
		IssuedAt string `json:"issuedAt"`
	}
	if err := json.Unmarshal([]byte(req.Payload), &signed); err != nil {
		return Edge{}, errs.Trust(fmt.Errorf("decoding attestation payload: %w", err))
	}
	issuedAt, err := time.Parse(time.RFC3339, signed.IssuedAt)
	if err != nil {
		return Edge{}, errs.Trust(fmt.Errorf("decoding attestation issuedAt: %w", err))
	}

	att := attestation.Attestation{
		ID:         signed.ID,
		IssuerDID:  req.IssuerDID,
		SubjectDID: req.SubjectDID,
		TrustLevel: req.TrustLevel,
		IssuedAt:   issuedAt,
		Signature:  req.Signature,
		Payload:    req.Payload,
	}
	if !attestation.Verify(att, issuer.PublicKey) {
		return Edge{}, errs.Trust(fmt.Errorf("attestation payload does not match request fields"))
	}

	edge := Edge{
		Source:      req.IssuerDID,
		Target:      req.SubjectDID,
		TrustLevel:  req.TrustLevel,
		Attestation: req.Payload,
		Signature:   req.Signature,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   req.ExpiresAt,
	}
	if err := s.Trust.UpsertEdge(edge); err != nil {
		return Edge{}, err
	}
	return edge, nil
}

func validateCreateTrust(req CreateTrustRequest) error {
	if !identity.IsValid(req.IssuerDID) {
		return errs.Trust(fmt.Errorf("invalid issuer identifier"))
	}
	if !identity.IsValid(req.SubjectDID) {
		return errs.Trust(fmt.Errorf("invalid subject identifier"))
	}
	if req.TrustLevel < attestation.MinTrustLevel || req.TrustLevel > attestation.MaxTrustLevel {
		return errs.Trust(fmt.Errorf("trust level %d out of range [%d,%d]", req.TrustLevel, attestation.MinTrustLevel, attestation.MaxTrustLevel))
	}
	if _, err := crypto.HexDecode(req.Signature); err != nil || len(req.Signature) != crypto.SignatureSize*2 {
		return errs.Trust(fmt.Errorf("signature must be a 64-byte hex string"))
	}
	if req.Payload == "" {
		return errs.Trust(fmt.Errorf("payload is required"))
	}
	return nil
}

// materializeEndpoints resolves issuerDID and subjectDID concurrently,
// consulting the local registry first and falling back to the remote
// resolver behind the circuit breaker. Both lookups must succeed.
func (s *Service) materializeEndpoints(ctx context.Context, issuerDID, subjectDID string) (registry.Record, registry.Record, error) {
	type result struct {
		rec registry.Record
		err error
	}
	issuerCh := make(chan result, 1)
	subjectCh := make(chan result, 1)

	go func() {
		rec, err := s.materialize(ctx, issuerDID)
		issuerCh <- result{rec, err}
	}()
	go func() {
		rec, err := s.materialize(ctx, subjectDID)
		subjectCh <- result{rec, err}
	}()

	issuerRes := <-issuerCh
	subjectRes := <-subjectCh

	if issuerRes.err != nil {
		return registry.Record{}, registry.Record{}, issuerRes.err
	}
	if subjectRes.err != nil {
		return registry.Record{}, registry.Record{}, subjectRes.err
	}
	return issuerRes.rec, subjectRes.rec, nil
}

// materialize resolves a single identifier: local registry first, then
// (if configured) the remote resolver behind the circuit breaker. A
// successful resolution is memoized as "known" for DefaultKnownCacheTTL.
func (s *Service) materialize(ctx context.Context, did string) (registry.Record, error) {
	if rec, ok := s.cachedKnown(did); ok {
		return rec, nil
	}

	if s.Registry != nil {
		rec, err := s.Registry.Get(did)
		if err == nil {
			s.markKnown(did, rec)
			return rec, nil
		}
	}

	if s.Resolver == nil || s.Breaker == nil {
		return registry.Record{}, errs.Trust(fmt.Errorf("identity not found — register first: %s", did))
	}

	if err := s.Breaker.Allow(); err != nil {
		return registry.Record{}, errs.Trust(fmt.Errorf("circuit breaker open"))
	}

	rctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rec, err := s.Resolver.Resolve(rctx, did)
	if err != nil {
		s.Breaker.RecordFailure()
		return registry.Record{}, errs.Trust(fmt.Errorf("identity not found — register first: %s", did))
	}
	s.Breaker.RecordSuccess()
	s.markKnown(did, rec)
	return rec, nil
}

func (s *Service) cachedKnown(did string) (registry.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.known[did]
	if !ok || time.Now().After(entry.expiresAt) {
		return registry.Record{}, false
	}
	return entry.record, true
}

func (s *Service) markKnown(did string, rec registry.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.known[did] = knownEntry{record: rec, expiresAt: time.Now().Add(DefaultKnownCacheTTL)}
}

// GetScore returns subject's reputation, serving the cached row when it
// is fresher than DefaultCacheValidity and recomputing otherwise, per
// §4.9.5.
func (s *Service) GetScore(subject string) (Reputation, error) {
	if cached, fresh, err := s.Trust.GetScore(subject); err != nil {
		return Reputation{}, err
	} else if fresh {
		return cached.Reputation, nil
	}

	edges, err := s.Trust.AllEdges()
	if err != nil {
		return Reputation{}, err
	}
	rep := ComputeReputation(edges, subject, s.decay(), DefaultMaxReputationDepth)
	if err := s.Trust.PutScore(subject, rep); err != nil {
		return Reputation{}, err
	}
	return rep, nil
}

// FindPath returns the trust path from "from" to "to" over the
// currently persisted edge set.
func (s *Service) FindPath(from, to string) (PathResult, error) {
	edges, err := s.Trust.AllEdges()
	if err != nil {
		return PathResult{}, err
	}
	return FindPath(edges, from, to, s.maxDepth(), s.decay()), nil
}

func (s *Service) decay() float64 {
	if s.Decay <= 0 {
		return DefaultDecay
	}
	return s.Decay
}

func (s *Service) maxDepth() int {
	if s.MaxDepth <= 0 {
		return DefaultMaxPathDepth
	}
	return s.MaxDepth
}
