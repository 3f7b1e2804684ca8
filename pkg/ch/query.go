package ch

// search is the state of one search direction.
type search struct {
	dist []uint32
	pred []uint32
	pq   minHeap
}

func newSearch(n uint32) search {
	s := search{
		dist: make([]uint32, n),
		pred: make([]uint32, n),
		pq:   minHeap{items: make([]heapItem, 0, 256)},
	}
	for i := range s.dist {
		s.dist[i] = InfWeight
		s.pred[i] = noNode
	}
	return s
}

type bucketEntry struct {
	target int
	dist   uint32
}

// Query is the per-worker mutable state for searches on a shared Index.
// A Query must not be used by two goroutines at once. Methods return the
// receiver so calls can be chained.
type Query struct {
	idx *Index

	fwd, bwd search
	touched  []uint32 // nodes with a finite fwd or bwd distance

	sources, targets []uint32

	dist uint32
	meet uint32
	ran  bool

	// one-to-many state
	pinned     []uint32
	buckets    map[uint32][]bucketEntry
	pinnedDist []uint32
}

// NewQuery allocates search state sized for idx.
func NewQuery(idx *Index) *Query {
	return &Query{
		idx:     idx,
		fwd:     newSearch(idx.NumNodes),
		bwd:     newSearch(idx.NumNodes),
		touched: make([]uint32, 0, 1024),
		dist:    InfWeight,
		meet:    noNode,
	}
}

// Index returns the hierarchy the query runs on.
func (q *Query) Index() *Index { return q.idx }

// Reset clears sources, targets, results and pinned targets.
func (q *Query) Reset() *Query {
	q.clearSearch()
	q.sources = q.sources[:0]
	q.targets = q.targets[:0]
	q.pinned = q.pinned[:0]
	q.buckets = nil
	q.pinnedDist = q.pinnedDist[:0]
	return q
}

// ResetSource clears the sources and the one-to-many results but keeps the
// pinned targets.
func (q *Query) ResetSource() *Query {
	q.clearSearch()
	q.sources = q.sources[:0]
	for i := range q.pinnedDist {
		q.pinnedDist[i] = InfWeight
	}
	return q
}

// AddSource seeds the forward search at node.
func (q *Query) AddSource(node uint32) *Query {
	q.sources = append(q.sources, node)
	return q
}

// AddTarget seeds the backward search at node.
func (q *Query) AddTarget(node uint32) *Query {
	q.targets = append(q.targets, node)
	return q
}

func (q *Query) clearSearch() {
	for _, v := range q.touched {
		q.fwd.dist[v] = InfWeight
		q.bwd.dist[v] = InfWeight
		q.fwd.pred[v] = noNode
		q.bwd.pred[v] = noNode
	}
	q.touched = q.touched[:0]
	q.fwd.pq.Reset()
	q.bwd.pq.Reset()
	q.dist = InfWeight
	q.meet = noNode
	q.ran = false
}

func (q *Query) touch(v uint32) {
	if q.fwd.dist[v] == InfWeight && q.bwd.dist[v] == InfWeight {
		q.touched = append(q.touched, v)
	}
}

func (q *Query) seed(s *search, v uint32) {
	q.touch(v)
	s.dist[v] = 0
	s.pred[v] = noNode
	s.pq.Push(v, 0, 0)
}

// Run computes the shortest distance from any source to any target with a
// bidirectional upward search.
func (q *Query) Run() *Query {
	q.clearSearch()
	for _, s := range q.sources {
		q.seed(&q.fwd, s)
	}
	for _, t := range q.targets {
		q.seed(&q.bwd, t)
	}

	mu := uint32(InfWeight)
	meet := noNode
	for q.fwd.pq.Len() > 0 || q.bwd.pq.Len() > 0 {
		if q.fwd.pq.PeekDist() < mu {
			if v, d, ok := q.settle(&q.fwd, &q.idx.Fwd); ok {
				if other := q.bwd.dist[v]; other != InfWeight {
					if c := satAdd(d, other); c < mu {
						mu, meet = c, v
					}
				}
			}
		}
		if q.bwd.pq.PeekDist() < mu {
			if v, d, ok := q.settle(&q.bwd, &q.idx.Bwd); ok {
				if other := q.fwd.dist[v]; other != InfWeight {
					if c := satAdd(other, d); c < mu {
						mu, meet = c, v
					}
				}
			}
		}
		if q.fwd.pq.PeekDist() >= mu && q.bwd.pq.PeekDist() >= mu {
			break
		}
	}

	q.dist, q.meet, q.ran = mu, meet, true
	return q
}

// settle pops one node from s and relaxes its upward arcs. ok is false for
// stale heap entries.
func (q *Query) settle(s *search, o *Overlay) (v, d uint32, ok bool) {
	item := s.pq.Pop()
	v, d = item.node, item.dist
	if d > s.dist[v] {
		return v, d, false
	}
	for a := o.FirstOut[v]; a < o.FirstOut[v+1]; a++ {
		w := o.Head[a]
		nd := satAdd(d, o.Weight[a])
		if nd < s.dist[w] {
			q.touch(w)
			s.dist[w] = nd
			s.pred[w] = v
			s.pq.Push(w, nd, 0)
		}
	}
	return v, d, true
}

// Distance returns the result of the last Run, InfWeight if unreachable.
func (q *Query) Distance() uint32 {
	if !q.ran {
		return InfWeight
	}
	return q.dist
}

// NodePath returns the unpacked node sequence of the last Run, from a
// source to a target. It is empty when no path was found.
func (q *Query) NodePath() []uint32 {
	if !q.ran || q.meet == noNode {
		return nil
	}

	var overlay []uint32
	for v := q.meet; v != noNode; v = q.fwd.pred[v] {
		overlay = append(overlay, v)
	}
	for i, j := 0, len(overlay)-1; i < j; i, j = i+1, j-1 {
		overlay[i], overlay[j] = overlay[j], overlay[i]
	}
	for v := q.bwd.pred[q.meet]; v != noNode; v = q.bwd.pred[v] {
		overlay = append(overlay, v)
	}
	return q.idx.unpackPath(overlay)
}

// PinTargets computes the backward search spaces of targets so that
// repeated RunToPinnedTargets calls reuse them.
func (q *Query) PinTargets(targets []uint32) *Query {
	q.clearSearch()
	q.pinned = append(q.pinned[:0], targets...)
	q.buckets = make(map[uint32][]bucketEntry)

	for j, t := range q.pinned {
		q.clearSearch()
		q.seed(&q.bwd, t)
		for q.bwd.pq.Len() > 0 {
			if v, d, ok := q.settle(&q.bwd, &q.idx.Bwd); ok {
				q.buckets[v] = append(q.buckets[v], bucketEntry{target: j, dist: d})
			}
		}
	}
	q.clearSearch()

	q.pinnedDist = q.pinnedDist[:0]
	for range q.pinned {
		q.pinnedDist = append(q.pinnedDist, InfWeight)
	}
	return q
}

// RunToPinnedTargets runs an exhaustive upward search from the sources and
// records the distance to every pinned target.
func (q *Query) RunToPinnedTargets() *Query {
	q.clearSearch()
	for i := range q.pinnedDist {
		q.pinnedDist[i] = InfWeight
	}
	for _, s := range q.sources {
		q.seed(&q.fwd, s)
	}
	for q.fwd.pq.Len() > 0 {
		v, d, ok := q.settle(&q.fwd, &q.idx.Fwd)
		if !ok {
			continue
		}
		for _, b := range q.buckets[v] {
			if c := satAdd(d, b.dist); c < q.pinnedDist[b.target] {
				q.pinnedDist[b.target] = c
			}
		}
	}
	q.ran = true
	return q
}

// DistancesToTargets returns one distance per pinned target, in pin order.
// The slice is owned by the caller.
func (q *Query) DistancesToTargets() []uint32 {
	out := make([]uint32, len(q.pinnedDist))
	copy(out, q.pinnedDist)
	return out
}
