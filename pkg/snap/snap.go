// Package snap maps coordinates to the nearest routing graph node.
package snap

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/tidwall/rtree"
)

// Index is a read-only spatial index over node coordinates. It is safe for
// concurrent use.
type Index struct {
	tree rtree.RTreeG[uint32]
	lat  []float64
	lon  []float64
}

// New indexes every node. lat and lon are indexed by node id and are
// retained, not copied.
func New(lat, lon []float64) *Index {
	ix := &Index{lat: lat, lon: lon}
	for i := range lat {
		p := [2]float64{lon[i], lat[i]}
		ix.tree.Insert(p, p, uint32(i))
	}
	return ix
}

// Len returns the number of indexed nodes.
func (ix *Index) Len() int { return ix.tree.Len() }

// Nearest returns the node closest to (lat, lon) within radius meters.
// Ties go to the lower node id.
func (ix *Index) Nearest(lat, lon, radius float64) (node uint32, dist float64, ok bool) {
	if radius < 0 || ix.tree.Len() == 0 {
		return 0, 0, false
	}
	center := orb.Point{lon, lat}
	bound := geo.NewBoundAroundPoint(center, radius)

	best := radius
	visit := func(_, _ [2]float64, n uint32) bool {
		d := geo.DistanceHaversine(center, orb.Point{ix.lon[n], ix.lat[n]})
		if d > radius {
			return true
		}
		if !ok || d < best || d == best && n < node {
			node, best, ok = n, d, true
		}
		return true
	}
	for _, b := range splitAntimeridian(bound) {
		ix.tree.Search([2]float64(b.Min), [2]float64(b.Max), visit)
	}
	return node, best, ok
}

// splitAntimeridian returns b as one or two boxes with Min.X <= Max.X. A
// bound crossing 180 degrees comes back wrapped, with Min.X > Max.X.
func splitAntimeridian(b orb.Bound) []orb.Bound {
	if b.Min.X() <= b.Max.X() {
		return []orb.Bound{b}
	}
	return []orb.Bound{
		{Min: b.Min, Max: orb.Point{180, b.Max.Y()}},
		{Min: orb.Point{-180, b.Min.Y()}, Max: b.Max},
	}
}

// Coord returns the coordinates of node n.
func (ix *Index) Coord(n uint32) (lat, lon float64) {
	return ix.lat[n], ix.lon[n]
}
