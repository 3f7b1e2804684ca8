package ch

import (
	"container/heap"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// adjEntry represents an edge in the mutable adjacency list.
type adjEntry struct {
	to     uint32
	weight uint32
	middle int32 // -1 for original edges, else the contracted node ID
}

// Build contracts the graph given as parallel tail/head/weight arrays.
// Self-loops are dropped and parallel arcs collapse to the lightest one.
func Build(nodeCount uint32, tail, head, weight []uint32, log *zap.Logger) (*Index, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(tail) != len(head) || len(tail) != len(weight) {
		return nil, fmt.Errorf("%w: tail/head/weight lengths %d/%d/%d differ",
			ErrInvalidIndex, len(tail), len(head), len(weight))
	}
	for a := range tail {
		if tail[a] >= nodeCount || head[a] >= nodeCount {
			return nil, fmt.Errorf("%w: arc %d references node outside [0, %d)", ErrInvalidIndex, a, nodeCount)
		}
	}

	n := nodeCount
	if n == 0 {
		return &Index{
			Fwd: Overlay{FirstOut: []uint32{0}},
			Bwd: Overlay{FirstOut: []uint32{0}},
		}, nil
	}

	outAdj := make([][]adjEntry, n)
	inAdj := make([][]adjEntry, n)
	for a := range tail {
		u, v, w := tail[a], head[a], weight[a]
		if u == v {
			continue
		}
		outAdj[u] = append(outAdj[u], adjEntry{to: v, weight: w, middle: -1})
		inAdj[v] = append(inAdj[v], adjEntry{to: u, weight: w, middle: -1})
	}
	for u := range outAdj {
		outAdj[u] = dedupe(outAdj[u])
		inAdj[u] = dedupe(inAdj[u])
	}

	contracted := make([]bool, n)
	rank := make([]uint32, n)
	contractedNeighbors := make([]int, n)
	level := make([]int, n)

	pq := make(priorityQueue, n)
	for i := uint32(0); i < n; i++ {
		pq[i] = &pqEntry{
			node:     i,
			priority: computePriority(outAdj, inAdj, i, contracted, contractedNeighbors[i], level[i]),
			index:    int(i),
		}
	}
	heap.Init(&pq)

	ws := newWitnessSearch(outAdj, contracted)

	log.Info("contracting", zap.Uint32("nodes", n), zap.Int("arcs", len(tail)))

	var totalShortcuts int
	order := uint32(0)
	logInterval := uint32(50000)

	for pq.Len() > 0 {
		entry := heap.Pop(&pq).(*pqEntry)
		node := entry.node
		if contracted[node] {
			continue
		}

		// Lazy update: recompute priority and re-insert if it got worse than
		// the next candidate.
		newPriority := computePriority(outAdj, inAdj, node, contracted, contractedNeighbors[node], level[node])
		if newPriority > entry.priority && pq.Len() > 0 && newPriority > pq[0].priority {
			entry.priority = newPriority
			heap.Push(&pq, entry)
			continue
		}

		shortcuts := findShortcuts(ws, inAdj, node)

		contracted[node] = true
		rank[node] = order
		order++

		for _, sc := range shortcuts {
			if addOrImprove(outAdj, inAdj, sc, int32(node)) {
				totalShortcuts++
			}
		}

		for _, adj := range [][]adjEntry{outAdj[node], inAdj[node]} {
			for _, e := range adj {
				if contracted[e.to] {
					continue
				}
				contractedNeighbors[e.to]++
				if level[node]+1 > level[e.to] {
					level[e.to] = level[node] + 1
				}
			}
		}

		remaining := n - order
		switch {
		case remaining < 1000:
			logInterval = 100
		case remaining < 10000:
			logInterval = 1000
		case remaining < 100000:
			logInterval = 10000
		default:
			logInterval = 50000
		}
		if order%logInterval == 0 {
			log.Debug("contraction progress",
				zap.Uint32("contracted", order),
				zap.Uint32("nodes", n),
				zap.Int("shortcuts", totalShortcuts))
		}
	}

	idx := buildOverlay(n, outAdj, inAdj, rank)
	log.Info("contraction complete",
		zap.Int("shortcuts", totalShortcuts),
		zap.Int("forward_arcs", idx.Fwd.numArcs()),
		zap.Int("backward_arcs", idx.Bwd.numArcs()))
	return idx, nil
}

// dedupe sorts adj by target and keeps the lightest entry per target.
func dedupe(adj []adjEntry) []adjEntry {
	if len(adj) < 2 {
		return adj
	}
	sort.Slice(adj, func(i, j int) bool {
		if adj[i].to != adj[j].to {
			return adj[i].to < adj[j].to
		}
		return adj[i].weight < adj[j].weight
	})
	out := adj[:1]
	for _, e := range adj[1:] {
		if e.to != out[len(out)-1].to {
			out = append(out, e)
		}
	}
	return out
}

// shortcut represents a shortcut edge to be added.
type shortcut struct {
	from, to uint32
	weight   uint32
}

// addOrImprove inserts sc into both adjacency lists, or lowers the weight of
// an existing from -> to entry. Each ordered pair stays unique, which keeps
// shortcut unpacking unambiguous.
func addOrImprove(outAdj, inAdj [][]adjEntry, sc shortcut, middle int32) bool {
	for i := range outAdj[sc.from] {
		e := &outAdj[sc.from][i]
		if e.to != sc.to {
			continue
		}
		if sc.weight >= e.weight {
			return false
		}
		e.weight, e.middle = sc.weight, middle
		for j := range inAdj[sc.to] {
			if r := &inAdj[sc.to][j]; r.to == sc.from {
				r.weight, r.middle = sc.weight, middle
				break
			}
		}
		return true
	}
	outAdj[sc.from] = append(outAdj[sc.from], adjEntry{to: sc.to, weight: sc.weight, middle: middle})
	inAdj[sc.to] = append(inAdj[sc.to], adjEntry{to: sc.from, weight: sc.weight, middle: middle})
	return true
}

// findShortcuts returns the shortcuts needed to contract node: one per
// (in, out) neighbour pair that has no witness path of equal or lower
// weight avoiding node.
func findShortcuts(ws *witnessSearch, inAdj [][]adjEntry, node uint32) []shortcut {
	var incoming, outgoing []adjEntry
	for _, e := range inAdj[node] {
		if !ws.contracted[e.to] {
			incoming = append(incoming, e)
		}
	}
	for _, e := range ws.out[node] {
		if !ws.contracted[e.to] {
			outgoing = append(outgoing, e)
		}
	}
	if len(incoming) == 0 || len(outgoing) == 0 {
		return nil
	}

	pending := ws.markTargets(outgoing)
	defer ws.unmarkTargets(outgoing)

	var shortcuts []shortcut
	for _, in := range incoming {
		var maxOut uint32
		found := false
		for _, out := range outgoing {
			if out.to != in.to {
				found = true
				maxOut = max(maxOut, out.weight)
			}
		}
		if !found {
			continue // every outgoing arc leads back to in.to
		}

		ws.run(in.to, node, satAdd(in.weight, maxOut), pending)
		for _, out := range outgoing {
			if out.to == in.to {
				continue
			}
			if w := satAdd(in.weight, out.weight); !ws.witnessed(out.to, w) {
				shortcuts = append(shortcuts, shortcut{from: in.to, to: out.to, weight: w})
			}
		}
	}
	return shortcuts
}

// computePriority returns the priority for a node (lower = contract first).
func computePriority(outAdj, inAdj [][]adjEntry, node uint32, contracted []bool, contractedNeighbors, level int) int {
	activeIn := 0
	for _, e := range inAdj[node] {
		if !contracted[e.to] {
			activeIn++
		}
	}
	activeOut := 0
	for _, e := range outAdj[node] {
		if !contracted[e.to] {
			activeOut++
		}
	}

	// Worst-case edge difference; a witness-accurate count costs more than
	// it saves in ordering quality.
	edgeDifference := activeIn*activeOut - (activeIn + activeOut)
	return edgeDifference + 2*contractedNeighbors + level
}

// buildOverlay splits the final adjacency lists into the forward and
// backward upward CSR graphs.
func buildOverlay(n uint32, outAdj, inAdj [][]adjEntry, rank []uint32) *Index {
	type csrEdge struct {
		from, to uint32
		weight   uint32
		middle   int32
	}

	var fwdEdges, bwdEdges []csrEdge
	for u := uint32(0); u < n; u++ {
		for _, e := range outAdj[u] {
			if rank[u] < rank[e.to] {
				fwdEdges = append(fwdEdges, csrEdge{from: u, to: e.to, weight: e.weight, middle: e.middle})
			}
		}
		// Arcs e.to -> u climbing away from u are stored at u for the
		// backward search.
		for _, e := range inAdj[u] {
			if rank[u] < rank[e.to] {
				bwdEdges = append(bwdEdges, csrEdge{from: u, to: e.to, weight: e.weight, middle: e.middle})
			}
		}
	}

	buildCSR := func(edges []csrEdge) Overlay {
		o := Overlay{
			FirstOut: make([]uint32, n+1),
			Head:     make([]uint32, len(edges)),
			Weight:   make([]uint32, len(edges)),
			Middle:   make([]int32, len(edges)),
		}
		for _, e := range edges {
			o.FirstOut[e.from+1]++
		}
		for i := uint32(1); i <= n; i++ {
			o.FirstOut[i] += o.FirstOut[i-1]
		}
		pos := make([]uint32, n)
		copy(pos, o.FirstOut[:n])
		for _, e := range edges {
			idx := pos[e.from]
			o.Head[idx] = e.to
			o.Weight[idx] = e.weight
			o.Middle[idx] = e.middle
			pos[e.from]++
		}
		return o
	}

	return &Index{
		NumNodes: n,
		Rank:     rank,
		Fwd:      buildCSR(fwdEdges),
		Bwd:      buildCSR(bwdEdges),
	}
}

// Priority queue implementation for contraction ordering.

type pqEntry struct {
	node     uint32
	priority int
	index    int
}

type priorityQueue []*pqEntry

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].node < pq[j].node
}
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	entry := x.(*pqEntry)
	entry.index = len(*pq)
	*pq = append(*pq, entry)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*pq = old[:n-1]
	return entry
}
