package graph

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte // ranks stay below ~30
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	// Union by rank.
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// ComponentStats summarizes the weakly connected components of a graph.
// Queries between different components are always unreachable.
type ComponentStats struct {
	Count   int
	Largest uint32
}

// Components treats arcs as undirected edges and counts the components.
func Components(g *Graph) ComponentStats {
	if g.NumNodes == 0 {
		return ComponentStats{}
	}

	uf := NewUnionFind(g.NumNodes)
	for u := uint32(0); u < g.NumNodes; u++ {
		start, end := g.ArcsFrom(u)
		for a := start; a < end; a++ {
			uf.Union(u, g.Head[a])
		}
	}

	var stats ComponentStats
	for i := uint32(0); i < g.NumNodes; i++ {
		if uf.Find(i) != i {
			continue
		}
		stats.Count++
		if uf.size[i] > stats.Largest {
			stats.Largest = uf.size[i]
		}
	}
	return stats
}
