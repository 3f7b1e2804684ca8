// Package ch builds contraction hierarchies over a plain
// (tail, head, weight) arc list and answers point-to-point and
// one-to-many shortest path queries on them.
package ch

import (
	"errors"
	"math"
)

// InfWeight is the distance reported for unreachable pairs.
const InfWeight uint32 = math.MaxUint32

const noNode = ^uint32(0)

// ErrInvalidIndex is returned when an index file or arc list is malformed.
var ErrInvalidIndex = errors.New("invalid contraction hierarchy")

// Overlay is one direction of the upward search graph in CSR form.
// Middle is -1 for original arcs, else the node a shortcut bypasses.
type Overlay struct {
	FirstOut []uint32
	Head     []uint32
	Weight   []uint32
	Middle   []int32
}

func (o *Overlay) numArcs() int { return len(o.Head) }

// find returns the overlay arc source -> target, or noNode.
func (o *Overlay) find(source, target uint32) uint32 {
	for a := o.FirstOut[source]; a < o.FirstOut[source+1]; a++ {
		if o.Head[a] == target {
			return a
		}
	}
	return noNode
}

// Index is a contraction hierarchy. Fwd holds arcs u -> v with
// rank[u] < rank[v]; Bwd holds, at v, the reversed arcs u -> v with
// rank[v] < rank[u]. An Index is read-only and shared by all queries.
type Index struct {
	NumNodes uint32
	Rank     []uint32
	Fwd      Overlay
	Bwd      Overlay
}

// NumShortcuts counts overlay arcs that are shortcuts.
func (idx *Index) NumShortcuts() int {
	var n int
	for _, m := range idx.Fwd.Middle {
		if m >= 0 {
			n++
		}
	}
	for _, m := range idx.Bwd.Middle {
		if m >= 0 {
			n++
		}
	}
	return n
}

// NumArcs is the total number of overlay arcs.
func (idx *Index) NumArcs() int { return idx.Fwd.numArcs() + idx.Bwd.numArcs() }

// satAdd adds without wrapping past InfWeight.
func satAdd(a, b uint32) uint32 {
	s := uint64(a) + uint64(b)
	if s >= uint64(InfWeight) {
		return InfWeight
	}
	return uint32(s)
}
