package trust

import "time"

// Reputation is the computed score for a subject, per §4.9.4.
type Reputation struct {
	Score              float64
	DirectTrusters     int
	TransitiveTrusters int
}

// reputationBFSNode is a queued vertex in the backwards reputation walk.
type reputationBFSNode struct {
	did       string
	depth     int
	pathTrust float64
}

// ComputeReputation computes the reputation of subject over edges as of
// now, per §4.9.4: a direct component (mean of direct trusters' trust
// levels) and a transitive component (a depth-bounded backwards BFS
// along the reverse index, seeded at the direct trusters).
func ComputeReputation(edges []Edge, subject string, decay float64, maxDepth int) Reputation {
	return computeReputationAt(edges, subject, decay, maxDepth, time.Now())
}

func computeReputationAt(edges []Edge, subject string, decay float64, maxDepth int, now time.Time) Reputation {
	if decay <= 0 {
		decay = DefaultDecay
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxReputationDepth
	}

	idx := buildIndexes(ValidEdges(edges, now))
	decays := decayTable(decay, maxDepth)

	direct := idx.reverse[subject]
	directTrusters := make(map[string]bool, len(direct))
	var directSum int
	for _, d := range direct {
		directSum += d.trustLevel
		directTrusters[d.node] = true
	}
	var directScore float64
	if len(direct) > 0 {
		directScore = float64(directSum) / float64(len(direct)) / 100.0
	}

	// Backwards BFS seeded by the direct trusters at depth 1 with
	// pathTrust=1.0; only hops 2 and 3 contribute transitively, since
	// depth 1 is already counted as "direct".
	transitiveTrusters := make(map[string]bool)
	var transitiveScore float64

	queue := make([]reputationBFSNode, 0, len(direct))
	visited := map[string]bool{subject: true}
	for _, d := range direct {
		visited[d.node] = true
		queue = append(queue, reputationBFSNode{did: d.node, depth: 1, pathTrust: 1.0})
	}

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if cur.depth >= maxDepth {
			continue
		}
		for _, in := range idx.reverse[cur.did] {
			if visited[in.node] {
				continue
			}
			pathTrust := cur.pathTrust * (float64(in.trustLevel) / 100.0) * decays[cur.depth]
			transitiveScore += pathTrust
			transitiveTrusters[in.node] = true
			visited[in.node] = true
			queue = append(queue, reputationBFSNode{did: in.node, depth: cur.depth + 1, pathTrust: pathTrust})
		}
	}

	score := 0.7*directScore + 0.3*min1(transitiveScore)
	if score > 1 {
		score = 1
	}

	return Reputation{
		Score:              score,
		DirectTrusters:     len(directTrusters),
		TransitiveTrusters: len(transitiveTrusters),
	}
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
