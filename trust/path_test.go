package trust

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPathDirectEdge(t *testing.T) {
	edges := []Edge{{Source: "a", Target: "b", TrustLevel: 90}}

	result := FindPath(edges, "a", "b", DefaultMaxPathDepth, DefaultDecay)

	require.True(t, result.Found)
	assert.Equal(t, 1, result.Hops)
	assert.InDelta(t, 0.9, result.CumulativeTrust, 1e-9)
}

func TestFindPathMultiHop(t *testing.T) {
	edges := []Edge{
		{Source: "a", Target: "b", TrustLevel: 100},
		{Source: "b", Target: "c", TrustLevel: 100},
	}

	result := FindPath(edges, "a", "c", DefaultMaxPathDepth, DefaultDecay)

	require.True(t, result.Found)
	assert.Equal(t, 2, result.Hops)
	assert.InDelta(t, DefaultDecay, result.CumulativeTrust, 1e-9)

	want := []PathHop{{DID: "a"}, {DID: "b", TrustLevel: 100}, {DID: "c", TrustLevel: 100}}
	if diff := cmp.Diff(want, result.Path); diff != "" {
		t.Errorf("reconstructed path hops differ (-want +got):\n%s", diff)
	}
}

func TestFindPathNoPath(t *testing.T) {
	edges := []Edge{
		{Source: "a", Target: "b", TrustLevel: 90},
		{Source: "x", Target: "y", TrustLevel: 90},
	}

	result := FindPath(edges, "a", "y", DefaultMaxPathDepth, DefaultDecay)

	assert.False(t, result.Found)
	assert.Equal(t, 0, result.Hops)
	assert.Empty(t, result.Path)
}

func TestFindPathSameSourceAndTarget(t *testing.T) {
	edges := []Edge{{Source: "a", Target: "b", TrustLevel: 90}}
	result := FindPath(edges, "a", "a", DefaultMaxPathDepth, DefaultDecay)
	assert.False(t, result.Found)
}

func TestFindPathRespectsMaxDepth(t *testing.T) {
	edges := []Edge{
		{Source: "a", Target: "b", TrustLevel: 100},
		{Source: "b", Target: "c", TrustLevel: 100},
		{Source: "c", Target: "d", TrustLevel: 100},
	}

	result := FindPath(edges, "a", "d", 2, DefaultDecay)
	assert.False(t, result.Found)

	result = FindPath(edges, "a", "d", 3, DefaultDecay)
	assert.True(t, result.Found)
	assert.Equal(t, 3, result.Hops)
}

func TestFindPathIgnoresCycles(t *testing.T) {
	edges := []Edge{
		{Source: "a", Target: "b", TrustLevel: 100},
		{Source: "b", Target: "a", TrustLevel: 100},
		{Source: "b", Target: "c", TrustLevel: 100},
	}

	result := FindPath(edges, "a", "c", DefaultMaxPathDepth, DefaultDecay)
	require.True(t, result.Found)
	assert.Equal(t, 2, result.Hops)
}

func TestFindPathPrefersShortestHops(t *testing.T) {
	edges := []Edge{
		{Source: "a", Target: "b", TrustLevel: 10},
		{Source: "b", Target: "d", TrustLevel: 10},
		{Source: "a", Target: "c", TrustLevel: 10},
		{Source: "c", Target: "e", TrustLevel: 10},
		{Source: "e", Target: "d", TrustLevel: 10},
	}

	result := FindPath(edges, "a", "d", DefaultMaxPathDepth, DefaultDecay)
	require.True(t, result.Found)
	assert.Equal(t, 2, result.Hops)
}
