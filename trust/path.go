package trust

import "time"

// PathHop is one vertex along a discovered trust path.
type PathHop struct {
	DID        string
	TrustLevel int
}

// PathResult is the outcome of FindPath, per §4.9.3. When no path exists
// within maxDepth, Found is false, Path is empty, CumulativeTrust and
// Hops are zero, and From and To still echo the query.
type PathResult struct {
	From            string
	To              string
	Found           bool
	Path            []PathHop
	CumulativeTrust float64
	Hops            int
}

// bfsNode tracks a queued vertex by index rather than by copying partial
// path slices; the parent index lets us reconstruct the path only once
// the target is actually reached.
type bfsNode struct {
	did        string
	depth      int
	parent     int // index into the nodes slice, -1 for the root
	viaLevel   int // trust level of the edge that reached this node
	cumulative float64
}

// FindPath runs a breadth-first search over edges' forward adjacency
// from "from" to "to", bounded by maxDepth hops, applying exponential
// decay to each hop's contribution. BFS visits nodes in insertion
// (edge-enumeration) order and a visited set prevents revisiting a node,
// so cycles in edges can never cause an infinite loop.
func FindPath(edges []Edge, from, to string, maxDepth int, decay float64) PathResult {
	return findPathAt(edges, from, to, maxDepth, decay, time.Now())
}

func findPathAt(edges []Edge, from, to string, maxDepth int, decay float64, now time.Time) PathResult {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxPathDepth
	}
	if decay <= 0 {
		decay = DefaultDecay
	}

	notFound := PathResult{From: from, To: to, Found: false, Path: []PathHop{}, CumulativeTrust: 0, Hops: 0}
	if from == to {
		return notFound
	}

	idx := buildIndexes(ValidEdges(edges, now))
	decays := decayTable(decay, maxDepth)

	visited := map[string]bool{from: true}
	nodes := []bfsNode{{did: from, depth: 0, parent: -1, cumulative: 1.0}}
	queue := []int{0} // index-based dequeue; no slice-shift of node values

	for head := 0; head < len(queue); head++ {
		curIdx := queue[head]
		cur := nodes[curIdx]
		if cur.depth >= maxDepth {
			continue
		}

		for _, next := range idx.forward[cur.did] {
			if visited[next.node] {
				continue
			}
			contribution := (float64(next.trustLevel) / 100.0) * decays[cur.depth]
			newNode := bfsNode{
				did:        next.node,
				depth:      cur.depth + 1,
				parent:     curIdx,
				viaLevel:   next.trustLevel,
				cumulative: cur.cumulative * contribution,
			}
			nodes = append(nodes, newNode)
			newIdx := len(nodes) - 1

			if next.node == to {
				return reconstructPath(from, to, nodes, newIdx)
			}

			visited[next.node] = true
			queue = append(queue, newIdx)
		}
	}

	return notFound
}

// reconstructPath walks parent pointers from the target node back to the
// root, then reverses the result into From->To order.
func reconstructPath(from, to string, nodes []bfsNode, targetIdx int) PathResult {
	target := nodes[targetIdx]

	var hops []PathHop
	for i := targetIdx; i != -1; {
		n := nodes[i]
		hop := PathHop{DID: n.did}
		if n.parent != -1 {
			hop.TrustLevel = n.viaLevel
		}
		hops = append(hops, hop)
		i = n.parent
	}
	for i, j := 0, len(hops)-1; i < j; i, j = i+1, j-1 {
		hops[i], hops[j] = hops[j], hops[i]
	}

	return PathResult{
		From:            from,
		To:              to,
		Found:           true,
		Path:            hops,
		CumulativeTrust: target.cumulative,
		Hops:            target.depth,
	}
}
