// Package graph holds the routing graph in forward-star form: the arcs of
// node u are FirstOut[u]..FirstOut[u+1]-1.
package graph

import (
	"fmt"
	"sort"

	"distance_router/pkg/profile"
)

// Graph is immutable after Build.
type Graph struct {
	NumNodes uint32
	NumArcs  uint32

	FirstOut []uint32 // len NumNodes+1
	Head     []uint32 // len NumArcs

	GeoDistance []uint32 // meters
	TravelTime  []uint32 // milliseconds
	ArcWay      []uint32 // routing way id of each arc

	Latitude  []float64 // len NumNodes
	Longitude []float64

	// Forbidden turns as (from arc, to arc) pairs sorted by from, then to.
	ForbiddenTurnFromArc []uint32
	ForbiddenTurnToArc   []uint32

	NumWays int

	// Profile is the profile the graph was built with. For presets with a
	// tag filter its AllowedWayIDs holds the ways the filter accepted.
	Profile profile.Profile
}

// ArcsFrom returns the range of arc indices leaving node u.
func (g *Graph) ArcsFrom(u uint32) (start, end uint32) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// Weights returns the travel time or geo distance array.
func (g *Graph) Weights(travelTime bool) []uint32 {
	if travelTime {
		return g.TravelTime
	}
	return g.GeoDistance
}

// Tail returns the source node of every arc.
func (g *Graph) Tail() []uint32 {
	return InvertFirstOut(g.FirstOut)
}

// InvertFirstOut expands a first-out array into one tail entry per arc.
func InvertFirstOut(firstOut []uint32) []uint32 {
	if len(firstOut) == 0 {
		return nil
	}
	tail := make([]uint32, firstOut[len(firstOut)-1])
	for u := 0; u+1 < len(firstOut); u++ {
		for a := firstOut[u]; a < firstOut[u+1]; a++ {
			tail[a] = uint32(u)
		}
	}
	return tail
}

// IsTurnForbidden reports whether moving from arc `from` onto arc `to` is
// forbidden.
func (g *Graph) IsTurnForbidden(from, to uint32) bool {
	n := len(g.ForbiddenTurnFromArc)
	i := sort.Search(n, func(i int) bool {
		f := g.ForbiddenTurnFromArc[i]
		return f > from || f == from && g.ForbiddenTurnToArc[i] >= to
	})
	return i < n && g.ForbiddenTurnFromArc[i] == from && g.ForbiddenTurnToArc[i] == to
}

// Validate checks the array lengths and the forward-star invariants.
func (g *Graph) Validate() error {
	if err := ValidateCSR(g.FirstOut, g.Head, g.NumNodes); err != nil {
		return err
	}
	n, m := int(g.NumNodes), int(g.NumArcs)
	switch {
	case len(g.Head) != m:
		return fmt.Errorf("Head length %d != NumArcs %d", len(g.Head), m)
	case len(g.GeoDistance) != m, len(g.TravelTime) != m, len(g.ArcWay) != m:
		return fmt.Errorf("arc attribute length mismatch, want %d", m)
	case len(g.Latitude) != n, len(g.Longitude) != n:
		return fmt.Errorf("coordinate length mismatch, want %d", n)
	case len(g.ForbiddenTurnFromArc) != len(g.ForbiddenTurnToArc):
		return fmt.Errorf("forbidden turn arrays differ in length")
	}
	for i := range g.ForbiddenTurnFromArc {
		if g.ForbiddenTurnFromArc[i] >= g.NumArcs || g.ForbiddenTurnToArc[i] >= g.NumArcs {
			return fmt.Errorf("forbidden turn %d references unknown arc", i)
		}
		if i > 0 && !pairLess(g.ForbiddenTurnFromArc[i-1], g.ForbiddenTurnToArc[i-1],
			g.ForbiddenTurnFromArc[i], g.ForbiddenTurnToArc[i]) {
			return fmt.Errorf("forbidden turns not sorted at %d", i)
		}
	}
	return nil
}

func pairLess(f1, t1, f2, t2 uint32) bool {
	return f1 < f2 || f1 == f2 && t1 < t2
}

// ValidateCSR checks CSR invariants.
func ValidateCSR(firstOut, head []uint32, numNodes uint32) error {
	if uint32(len(firstOut)) != numNodes+1 {
		return fmt.Errorf("FirstOut length %d != NumNodes+1 %d", len(firstOut), numNodes+1)
	}
	if firstOut[0] != 0 {
		return fmt.Errorf("FirstOut[0] = %d, want 0", firstOut[0])
	}
	numEdges := firstOut[numNodes]
	if uint32(len(head)) != numEdges {
		return fmt.Errorf("Head length %d != FirstOut[NumNodes] %d", len(head), numEdges)
	}
	for i := uint32(1); i <= numNodes; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	for i, h := range head {
		if h >= numNodes {
			return fmt.Errorf("Head[%d]=%d >= NumNodes=%d", i, h, numNodes)
		}
	}
	return nil
}
