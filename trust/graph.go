// Package trust implements the trust graph engine: edge lifecycle and
// adjacency indexing, bounded BFS path-finding with exponential decay,
// and reputation scoring — the algorithmic core of the protocol.
package trust

import "time"

// DefaultDecay, DefaultMaxPathDepth, and DefaultMaxReputationDepth are
// the trust graph's default tuning constants.
const (
	DefaultDecay              = 0.85
	DefaultMaxPathDepth       = 6
	DefaultMaxReputationDepth = 3
)

// Edge is a directed, weighted trust relationship persisted by the
// service. Uniqueness is enforced on (Source, Target) by the store.
type Edge struct {
	ID          int64
	Source      string
	Target      string
	TrustLevel  int
	Attestation string
	Signature   string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	RevokedAt   *time.Time
}

// IsActive reports whether e currently participates in traversal and
// scoring: neither revoked nor expired as of now.
func (e Edge) IsActive(now time.Time) bool {
	if e.RevokedAt != nil {
		return false
	}
	if e.ExpiresAt != nil && e.ExpiresAt.Before(now) {
		return false
	}
	return true
}

// ValidEdges filters edges down to those currently active, per §4.9.2.
func ValidEdges(edges []Edge, now time.Time) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.IsActive(now) {
			out = append(out, e)
		}
	}
	return out
}

// adjacency is one endpoint of a directed edge as seen from an index:
// who the edge connects to, and at what trust level.
type adjacency struct {
	node       string
	trustLevel int
}

// indexes holds the forward (source -> targets) and reverse
// (target -> sources) adjacency maps built from a single valid-edge
// set in one O(N) pass, per §4.9.2.
type indexes struct {
	forward map[string][]adjacency
	reverse map[string][]adjacency
}

// buildIndexes constructs both adjacency indexes from validEdges in a
// single pass over the edge slice.
func buildIndexes(validEdges []Edge) indexes {
	idx := indexes{
		forward: make(map[string][]adjacency, len(validEdges)),
		reverse: make(map[string][]adjacency, len(validEdges)),
	}
	for _, e := range validEdges {
		idx.forward[e.Source] = append(idx.forward[e.Source], adjacency{node: e.Target, trustLevel: e.TrustLevel})
		idx.reverse[e.Target] = append(idx.reverse[e.Target], adjacency{node: e.Source, trustLevel: e.TrustLevel})
	}
	return idx
}

// decayTable precomputes decay^d for d in [0, maxDepth], avoiding a
// repeated math.Pow per traversal step.
func decayTable(decay float64, maxDepth int) []float64 {
	table := make([]float64, maxDepth+1)
	table[0] = 1.0
	for d := 1; d <= maxDepth; d++ {
		table[d] = table[d-1] * decay
	}
	return table
}
