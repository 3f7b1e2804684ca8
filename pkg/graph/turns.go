package graph

import (
	"sort"

	"go.uber.org/zap"

	"distance_router/pkg/osm"
	"distance_router/pkg/profile"
)

type turn struct{ from, to uint32 }

// buildTurnTables resolves turn restrictions (and u-turns when the profile
// prevents them) into forbidden (from arc, to arc) pairs.
func (b *builder) buildTurnTables(g *Graph, ex *osm.Extract) {
	if len(b.restrictions) == 0 && !b.p.PreventUTurns {
		return
	}

	tail := g.Tail()
	inFirst, inArc := incomingArcs(g)

	var turns []turn
	var unusable int
	for _, r := range b.restrictions {
		pairs, ok := b.resolve(g, ex, inFirst, inArc, r)
		if !ok {
			unusable++
			continue
		}
		turns = append(turns, pairs...)
	}
	if unusable > 0 {
		b.log.Debug("turn restrictions not matching the graph", zap.Int("restrictions", unusable))
	}

	if b.p.PreventUTurns {
		for v := uint32(0); v < g.NumNodes; v++ {
			for i := inFirst[v]; i < inFirst[v+1]; i++ {
				in := inArc[i]
				start, end := g.ArcsFrom(v)
				for out := start; out < end; out++ {
					if g.Head[out] == tail[in] {
						turns = append(turns, turn{in, out})
					}
				}
			}
		}
	}

	sort.Slice(turns, func(i, j int) bool {
		return pairLess(turns[i].from, turns[i].to, turns[j].from, turns[j].to)
	})
	g.ForbiddenTurnFromArc = make([]uint32, 0, len(turns))
	g.ForbiddenTurnToArc = make([]uint32, 0, len(turns))
	for i, t := range turns {
		if i > 0 && t == turns[i-1] {
			continue
		}
		g.ForbiddenTurnFromArc = append(g.ForbiddenTurnFromArc, t.from)
		g.ForbiddenTurnToArc = append(g.ForbiddenTurnToArc, t.to)
	}
}

// incomingArcs groups arc ids by head node, in CSR form.
func incomingArcs(g *Graph) (first, arcs []uint32) {
	first = make([]uint32, g.NumNodes+1)
	for _, h := range g.Head {
		first[h+1]++
	}
	for i := uint32(1); i <= g.NumNodes; i++ {
		first[i] += first[i-1]
	}
	arcs = make([]uint32, g.NumArcs)
	pos := make([]uint32, g.NumNodes)
	copy(pos, first[:g.NumNodes])
	for a := uint32(0); a < g.NumArcs; a++ {
		h := g.Head[a]
		arcs[pos[h]] = a
		pos[h]++
	}
	return first, arcs
}

func (b *builder) resolve(g *Graph, ex *osm.Extract, inFirst, inArc []uint32, r profile.TurnRestriction) ([]turn, bool) {
	fromWay, ok := b.wayIndex[r.FromWay]
	if !ok {
		return nil, false
	}
	toWay, ok := b.wayIndex[r.ToWay]
	if !ok {
		return nil, false
	}
	viaID := r.ViaNode
	if viaID == 0 {
		viaID, ok = sharedEndpoint(ex.Ways[fromWay].Nodes, ex.Ways[toWay].Nodes)
		if !ok {
			return nil, false
		}
	}
	via, ok := b.nodeIndex[viaID]
	if !ok {
		return nil, false
	}

	var in []uint32
	for i := inFirst[via]; i < inFirst[via+1]; i++ {
		if g.ArcWay[inArc[i]] == fromWay {
			in = append(in, inArc[i])
		}
	}
	start, end := g.ArcsFrom(via)
	var onTo, offTo []uint32
	for out := start; out < end; out++ {
		if g.ArcWay[out] == toWay {
			onTo = append(onTo, out)
		} else {
			offTo = append(offTo, out)
		}
	}
	if len(in) == 0 || len(onTo) == 0 {
		return nil, false
	}

	forbidden := onTo
	if r.Category == profile.Mandatory {
		forbidden = offTo
	}
	pairs := make([]turn, 0, len(in)*len(forbidden))
	for _, a := range in {
		for _, o := range forbidden {
			pairs = append(pairs, turn{a, o})
		}
	}
	return pairs, true
}

// sharedEndpoint returns a node that is an endpoint of both ways.
func sharedEndpoint(a, b []osm.NodeID) (osm.NodeID, bool) {
	for _, x := range []osm.NodeID{a[0], a[len(a)-1]} {
		if x == b[0] || x == b[len(b)-1] {
			return x, true
		}
	}
	return 0, false
}
