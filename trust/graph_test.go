package trust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEdgeIsActive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, Edge{}.IsActive(now))
	assert.False(t, Edge{RevokedAt: &past}.IsActive(now))
	assert.False(t, Edge{ExpiresAt: &past}.IsActive(now))
	assert.True(t, Edge{ExpiresAt: &future}.IsActive(now))
}

func TestValidEdgesFiltersRevokedAndExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)

	edges := []Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "c", RevokedAt: &past},
		{Source: "c", Target: "d", ExpiresAt: &past},
	}

	active := ValidEdges(edges, now)
	assert.Len(t, active, 1)
	assert.Equal(t, "a", active[0].Source)
}

func TestDecayTable(t *testing.T) {
	table := decayTable(0.5, 3)
	assert.Equal(t, []float64{1, 0.5, 0.25, 0.125}, table)
}

func TestBuildIndexes(t *testing.T) {
	edges := []Edge{
		{Source: "a", Target: "b", TrustLevel: 90},
		{Source: "a", Target: "c", TrustLevel: 50},
	}
	idx := buildIndexes(edges)

	assert.Len(t, idx.forward["a"], 2)
	assert.Len(t, idx.reverse["b"], 1)
	assert.Equal(t, "a", idx.reverse["b"][0].node)
}
