package trust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeReputationNoTrusters(t *testing.T) {
	rep := ComputeReputation(nil, "a", DefaultDecay, DefaultMaxReputationDepth)
	assert.Equal(t, 0.0, rep.Score)
	assert.Equal(t, 0, rep.DirectTrusters)
	assert.Equal(t, 0, rep.TransitiveTrusters)
}

func TestComputeReputationDirectOnly(t *testing.T) {
	edges := []Edge{
		{Source: "x", Target: "subject", TrustLevel: 100},
		{Source: "y", Target: "subject", TrustLevel: 50},
	}

	rep := ComputeReputation(edges, "subject", DefaultDecay, DefaultMaxReputationDepth)

	assert.Equal(t, 2, rep.DirectTrusters)
	assert.InDelta(t, 0.7*0.75, rep.Score, 1e-9)
}

func TestComputeReputationIncludesTransitiveTrusters(t *testing.T) {
	edges := []Edge{
		{Source: "truster", Target: "subject", TrustLevel: 100},
		{Source: "booster", Target: "truster", TrustLevel: 100},
	}

	rep := ComputeReputation(edges, "subject", DefaultDecay, DefaultMaxReputationDepth)

	assert.Equal(t, 1, rep.DirectTrusters)
	assert.Equal(t, 1, rep.TransitiveTrusters)
	assert.Greater(t, rep.Score, 0.7)
}

func TestComputeReputationScoreNeverExceedsOne(t *testing.T) {
	edges := make([]Edge, 0, 20)
	for i := 0; i < 20; i++ {
		edges = append(edges, Edge{Source: string(rune('a' + i)), Target: "subject", TrustLevel: 100})
	}

	rep := ComputeReputation(edges, "subject", DefaultDecay, DefaultMaxReputationDepth)
	assert.LessOrEqual(t, rep.Score, 1.0)
}

func TestComputeReputationIgnoresRevokedEdges(t *testing.T) {
	edges := []Edge{
		{Source: "x", Target: "subject", TrustLevel: 100, RevokedAt: timePtr()},
	}

	rep := ComputeReputation(edges, "subject", DefaultDecay, DefaultMaxReputationDepth)
	assert.Equal(t, 0, rep.DirectTrusters)
	assert.Equal(t, 0.0, rep.Score)
}

func timePtr() *time.Time {
	t := time.Now().Add(-time.Minute)
	return &t
}
