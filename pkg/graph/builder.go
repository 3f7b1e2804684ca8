package graph

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"go.uber.org/zap"

	"distance_router/pkg/osm"
	"distance_router/pkg/profile"
)

// BuildFromFile reads an OSM file and builds the routing graph for p.
func BuildFromFile(ctx context.Context, path string, p profile.Profile, opts osm.Options) (*Graph, error) {
	b := newBuilder(p, opts.Logger)
	ex, err := osm.ReadFile(ctx, path, opts, b.callbacks())
	if err != nil {
		return nil, err
	}
	return b.materialize(ex), nil
}

// Build is BuildFromFile for an already opened reader.
func Build(ctx context.Context, rs io.ReadSeeker, p profile.Profile, opts osm.Options) (*Graph, error) {
	b := newBuilder(p, opts.Logger)
	ex, err := osm.Read(ctx, rs, opts, b.callbacks())
	if err != nil {
		return nil, err
	}
	return b.materialize(ex), nil
}

type builder struct {
	p   profile.Profile
	log *zap.Logger

	// per routing way
	dirs   []profile.Direction
	speeds []int

	accepted     map[int64]bool
	restrictions []profile.TurnRestriction

	// OSM id to dense id; released once the graph is materialized
	wayIndex  map[osm.WayID]uint32
	nodeIndex map[osm.NodeID]uint32
}

func newBuilder(p profile.Profile, log *zap.Logger) *builder {
	if log == nil {
		log = zap.NewNop()
	}
	b := &builder{
		p:        p,
		log:      log,
		wayIndex: make(map[osm.WayID]uint32),
	}
	if p.Filter != nil && !p.Legacy() {
		b.accepted = make(map[int64]bool)
	}
	return b
}

func (b *builder) callbacks() osm.Callbacks {
	return osm.Callbacks{
		Accept: func(id osm.WayID, tags map[string]string) bool {
			if !b.p.Routable(int64(id), tags) {
				return false
			}
			return b.p.Direction(tags) != profile.Closed
		},
		Way: func(index int, id osm.WayID, tags map[string]string) {
			b.wayIndex[id] = uint32(index)
			b.dirs = append(b.dirs, b.p.Direction(tags))
			b.speeds = append(b.speeds, b.p.Speed(int64(id), tags))
			if b.accepted != nil {
				b.accepted[int64(id)] = true
			}
		},
		Relation: func(r *osm.Relation) {
			b.restrictions = append(b.restrictions, b.p.DecodeTurnRestrictions(r, b.log)...)
		},
	}
}

type arc struct {
	tail, head uint32
	way        uint32
	dist       uint32
}

func (b *builder) materialize(ex *osm.Extract) *Graph {
	b.nodeIndex = make(map[osm.NodeID]uint32)
	var lat, lon []float64
	nodeOf := func(id osm.NodeID, la, lo float64) uint32 {
		if idx, ok := b.nodeIndex[id]; ok {
			return idx
		}
		idx := uint32(len(lat))
		b.nodeIndex[id] = idx
		lat = append(lat, la)
		lon = append(lon, lo)
		return idx
	}

	var arcs []arc
	var missing int
	for wi, w := range ex.Ways {
		dir := b.dirs[wi]
		for i := 0; i+1 < len(w.Nodes); i++ {
			fromID, toID := w.Nodes[i], w.Nodes[i+1]
			if fromID == toID {
				continue
			}
			fromLat, fromLon, okFrom := ex.Coord(fromID)
			toLat, toLon, okTo := ex.Coord(toID)
			if !okFrom || !okTo {
				missing++
				continue
			}
			u := nodeOf(fromID, fromLat, fromLon)
			v := nodeOf(toID, toLat, toLon)
			d := geoDistance(fromLat, fromLon, toLat, toLon)
			if dir.AllowsForward() {
				arcs = append(arcs, arc{tail: u, head: v, way: uint32(wi), dist: d})
			}
			if dir.AllowsBackward() {
				arcs = append(arcs, arc{tail: v, head: u, way: uint32(wi), dist: d})
			}
		}
	}
	if missing > 0 {
		b.log.Warn("skipped segments with missing node coordinates", zap.Int("segments", missing))
	}

	// Stable, so arcs of a node keep way order.
	sort.SliceStable(arcs, func(i, j int) bool { return arcs[i].tail < arcs[j].tail })

	numNodes := uint32(len(lat))
	numArcs := uint32(len(arcs))
	g := &Graph{
		NumNodes:    numNodes,
		NumArcs:     numArcs,
		FirstOut:    make([]uint32, numNodes+1),
		Head:        make([]uint32, numArcs),
		GeoDistance: make([]uint32, numArcs),
		TravelTime:  make([]uint32, numArcs),
		ArcWay:      make([]uint32, numArcs),
		Latitude:    lat,
		Longitude:   lon,
		NumWays:     len(ex.Ways),
		Profile:     b.p,
	}
	if g.Latitude == nil {
		g.Latitude, g.Longitude = []float64{}, []float64{}
	}
	for i, a := range arcs {
		g.FirstOut[a.tail+1]++
		g.Head[i] = a.head
		g.GeoDistance[i] = a.dist
		g.TravelTime[i] = TravelTime(a.dist, b.speeds[a.way])
		g.ArcWay[i] = a.way
	}
	for i := uint32(1); i <= numNodes; i++ {
		g.FirstOut[i] += g.FirstOut[i-1]
	}

	if b.accepted != nil {
		g.Profile = b.p.WithAllowedWayIDs(b.accepted)
	}

	b.buildTurnTables(g, ex)
	b.release()

	b.log.Info("routing graph built",
		zap.String("profile", b.p.Name),
		zap.Uint32("nodes", g.NumNodes),
		zap.Uint32("arcs", g.NumArcs),
		zap.Int("ways", g.NumWays),
		zap.Int("forbidden_turns", len(g.ForbiddenTurnFromArc)))
	return g
}

func (b *builder) release() {
	b.wayIndex = nil
	b.nodeIndex = nil
	b.dirs = nil
	b.speeds = nil
	b.restrictions = nil
}

// geoDistance is the haversine distance in whole meters, at least 1.
func geoDistance(lat1, lon1, lat2, lon2 float64) uint32 {
	d := math.Round(geo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2}))
	if d < 1 {
		return 1
	}
	if d >= math.MaxUint32 {
		return math.MaxUint32 - 1
	}
	return uint32(d)
}

// TravelTime converts a distance in meters at speed km/h to milliseconds.
func TravelTime(meters uint32, speedKmh int) uint32 {
	if speedKmh < 1 {
		speedKmh = 1
	}
	ms := uint64(meters) * 18000 / uint64(speedKmh) / 5
	if ms >= math.MaxUint32 {
		return math.MaxUint32 - 1
	}
	return uint32(ms)
}

func (g *Graph) String() string {
	return fmt.Sprintf("graph{nodes=%d arcs=%d forbidden_turns=%d}",
		g.NumNodes, g.NumArcs, len(g.ForbiddenTurnFromArc))
}
