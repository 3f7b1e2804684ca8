package graph

import "testing"

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	// Initially all separate.
	for i := range uint32(5) {
		if uf.Find(i) != i {
			t.Errorf("Find(%d) = %d, want %d", i, uf.Find(i), i)
		}
	}

	// Union 0 and 1.
	uf.Union(0, 1)
	if uf.Find(0) != uf.Find(1) {
		t.Error("0 and 1 should be in same set")
	}

	// Union 2 and 3.
	uf.Union(2, 3)
	if uf.Find(2) != uf.Find(3) {
		t.Error("2 and 3 should be in same set")
	}

	// 0 and 2 should be different.
	if uf.Find(0) == uf.Find(2) {
		t.Error("0 and 2 should be in different sets")
	}

	// Union the two groups.
	uf.Union(1, 3)
	if uf.Find(0) != uf.Find(3) {
		t.Error("0 and 3 should now be in same set")
	}
}

func TestComponents(t *testing.T) {
	// 0 <-> 1 <-> 2 and 3 -> 4, with 5 isolated.
	g := &Graph{
		NumNodes: 6,
		NumArcs:  5,
		FirstOut: []uint32{0, 1, 3, 4, 5, 5, 5},
		Head:     []uint32{1, 0, 2, 1, 4},
	}
	got := Components(g)
	want := ComponentStats{Count: 3, Largest: 3}
	if got != want {
		t.Errorf("Components = %+v, want %+v", got, want)
	}
}

func TestComponentsEmptyGraph(t *testing.T) {
	if got := Components(&Graph{}); got != (ComponentStats{}) {
		t.Errorf("expected zero stats for empty graph, got %+v", got)
	}
}
