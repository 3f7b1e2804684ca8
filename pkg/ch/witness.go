package ch

// Witness search bounds. Running out of budget only costs a redundant
// shortcut, never a wrong distance.
const (
	witnessSettleLimit = 500
	witnessHopLimit    = 5
)

// witnessSearch is a bounded Dijkstra over the not yet contracted part of
// the graph. One search runs per incoming neighbour of the node being
// contracted and answers for all of its outgoing neighbours at once.
type witnessSearch struct {
	out        [][]adjEntry
	contracted []bool

	dist    []uint32
	target  []bool
	touched []uint32
	pq      minHeap
}

func newWitnessSearch(out [][]adjEntry, contracted []bool) *witnessSearch {
	ws := &witnessSearch{
		out:        out,
		contracted: contracted,
		dist:       make([]uint32, len(out)),
		target:     make([]bool, len(out)),
		pq:         minHeap{items: make([]heapItem, 0, 256)},
	}
	for i := range ws.dist {
		ws.dist[i] = InfWeight
	}
	return ws
}

// markTargets flags the heads of arcs as nodes the following runs must
// settle and returns how many distinct nodes were flagged.
func (ws *witnessSearch) markTargets(arcs []adjEntry) int {
	n := 0
	for _, e := range arcs {
		if !ws.target[e.to] {
			ws.target[e.to] = true
			n++
		}
	}
	return n
}

func (ws *witnessSearch) unmarkTargets(arcs []adjEntry) {
	for _, e := range arcs {
		ws.target[e.to] = false
	}
}

func (ws *witnessSearch) clear() {
	for _, v := range ws.touched {
		ws.dist[v] = InfWeight
	}
	ws.touched = ws.touched[:0]
	ws.pq.Reset()
}

// run searches from source without passing through via. It stops when all
// pending targets are settled, when the frontier exceeds limit, or when a
// budget runs out.
func (ws *witnessSearch) run(source, via, limit uint32, pending int) {
	ws.clear()
	ws.dist[source] = 0
	ws.touched = append(ws.touched, source)
	ws.pq.Push(source, 0, 0)

	settled := 0
	for ws.pq.Len() > 0 && pending > 0 {
		cur := ws.pq.Pop()
		if cur.dist > ws.dist[cur.node] {
			continue
		}
		if ws.target[cur.node] {
			pending--
		}
		if settled++; settled >= witnessSettleLimit {
			return
		}
		if cur.hops >= witnessHopLimit {
			continue
		}
		for _, e := range ws.out[cur.node] {
			if e.to == via || ws.contracted[e.to] {
				continue
			}
			d := satAdd(cur.dist, e.weight)
			if d > limit || d >= ws.dist[e.to] {
				continue
			}
			if ws.dist[e.to] == InfWeight {
				ws.touched = append(ws.touched, e.to)
			}
			ws.dist[e.to] = d
			ws.pq.Push(e.to, d, cur.hops+1)
		}
	}
}

// witnessed reports whether the last run found a path to v no heavier
// than weight.
func (ws *witnessSearch) witnessed(v, weight uint32) bool {
	return ws.dist[v] <= weight
}
