// Package routing answers nearest-node, point-to-point and one-to-many
// distance queries over a graph and its contraction hierarchy.
package routing

import (
	"go.uber.org/zap"

	"distance_router/pkg/ch"
	"distance_router/pkg/graph"
	"distance_router/pkg/logger"
	"distance_router/pkg/snap"
)

// Unreachable is the distance reported when an endpoint cannot be snapped
// or no path exists. The two cases are indistinguishable by value.
const Unreachable = ch.InfWeight

// Point is a WGS84 coordinate.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// QueryResponse is the result of a point-to-point query. Distance is in the
// unit of the index weight: meters, or milliseconds for travel time.
type QueryResponse struct {
	Distance  uint32  `json:"distance"`
	Waypoints []Point `json:"waypoints"`
}

// Snapped is a graph node found by Nearest.
type Snapped struct {
	Node     uint32
	Point    Point
	Distance float64 // meters from the query coordinate
}

// Service owns a graph, its index, a snap index and the query slots. The
// graph, index and snap index are read-only and shared by all slots.
type Service struct {
	graph *graph.Graph
	index *ch.Index
	snap  *snap.Index
	pool  *Pool
	log   *zap.Logger
}

// NewService wires g and idx together with concurrency query slots.
func NewService(g *graph.Graph, idx *ch.Index, concurrency int, log *zap.Logger) (*Service, error) {
	log = logger.OrNop(log)
	pool, err := NewPool(idx, concurrency)
	if err != nil {
		return nil, err
	}
	return &Service{
		graph: g,
		index: idx,
		snap:  snap.New(g.Latitude, g.Longitude),
		pool:  pool,
		log:   log,
	}, nil
}

// Graph returns the routing graph.
func (s *Service) Graph() *graph.Graph { return s.graph }

// Index returns the contraction hierarchy.
func (s *Service) Index() *ch.Index { return s.index }

// Concurrency returns the number of query slots.
func (s *Service) Concurrency() int { return s.pool.Len() }

// Nearest returns the graph node closest to (lon, lat) within radius meters.
func (s *Service) Nearest(i int, radius, lon, lat float64) (Snapped, bool, error) {
	if _, err := s.pool.Slot(i); err != nil {
		return Snapped{}, false, err
	}
	sn, ok := s.nearest(radius, Point{Lon: lon, Lat: lat})
	return sn, ok, nil
}

func (s *Service) nearest(radius float64, p Point) (Snapped, bool) {
	n, d, ok := s.snap.Nearest(p.Lat, p.Lon, radius)
	if !ok {
		return Snapped{}, false
	}
	return Snapped{Node: n, Point: s.point(n), Distance: d}, true
}

func (s *Service) point(n uint32) Point {
	return Point{Lon: s.graph.Longitude[n], Lat: s.graph.Latitude[n]}
}

// Query computes the shortest path between from and to on slot i. Both
// ends are snapped within radius; a failed snap yields Unreachable. With
// waypoints set the node path is returned source to target inclusive.
func (s *Service) Query(i int, radius float64, from, to Point, waypoints bool) (QueryResponse, error) {
	q, err := s.pool.Slot(i)
	if err != nil {
		return QueryResponse{}, err
	}

	src, ok := s.nearest(radius, from)
	if !ok {
		return QueryResponse{Distance: Unreachable}, nil
	}
	dst, ok := s.nearest(radius, to)
	if !ok {
		return QueryResponse{Distance: Unreachable}, nil
	}

	q.Reset().AddSource(src.Node).AddTarget(dst.Node).Run()
	resp := QueryResponse{Distance: q.Distance()}
	if waypoints && resp.Distance != Unreachable {
		path := q.NodePath()
		resp.Waypoints = make([]Point, len(path))
		for k, n := range path {
			resp.Waypoints[k] = s.point(n)
		}
	}
	return resp, nil
}

// Distances returns the distance from source to every target in input
// order, using one search on slot i. Targets that fail to snap are
// Unreachable and are not sent to the index.
func (s *Service) Distances(i int, radius float64, source Point, targets []Point) ([]uint32, error) {
	q, err := s.pool.Slot(i)
	if err != nil {
		return nil, err
	}

	out := make([]uint32, len(targets))
	for k := range out {
		out[k] = Unreachable
	}

	src, ok := s.nearest(radius, source)
	if !ok {
		return out, nil
	}

	nodes := make([]uint32, 0, len(targets))
	positions := make([]int, 0, len(targets))
	for k, t := range targets {
		if sn, ok := s.nearest(radius, t); ok {
			nodes = append(nodes, sn.Node)
			positions = append(positions, k)
		}
	}
	if len(nodes) == 0 {
		return out, nil
	}

	dist := q.Reset().
		PinTargets(nodes).
		ResetSource().
		AddSource(src.Node).
		RunToPinnedTargets().
		DistancesToTargets()
	for j, k := range positions {
		out[k] = dist[j]
	}
	return out, nil
}

// Table returns the row-major |sources| x |targets| matrix of distances,
// one independent point-to-point query per pair.
func (s *Service) Table(i int, radius float64, sources, targets []Point) ([]uint32, error) {
	out := make([]uint32, 0, len(sources)*len(targets))
	for _, src := range sources {
		for _, dst := range targets {
			resp, err := s.Query(i, radius, src, dst, false)
			if err != nil {
				return nil, err
			}
			out = append(out, resp.Distance)
		}
	}
	return out, nil
}
