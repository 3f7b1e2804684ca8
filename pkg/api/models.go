package api

import "distance_router/pkg/routing"

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Start LatLngJSON `json:"start"`
	End   LatLngJSON `json:"end"`

	// Waypoints omitted means true.
	Waypoints *bool `json:"waypoints,omitempty"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (ll LatLngJSON) point() routing.Point {
	return routing.Point{Lon: ll.Lng, Lat: ll.Lat}
}

func fromPoint(p routing.Point) LatLngJSON {
	return LatLngJSON{Lat: p.Lat, Lng: p.Lon}
}

// RouteResponse is the JSON response for a successful route query.
// Distance is in meters, or milliseconds for a travel time index.
type RouteResponse struct {
	Distance  uint32       `json:"distance"`
	Measure   string       `json:"measure"`
	Waypoints []LatLngJSON `json:"waypoints"`
}

// DistancesRequest is the JSON body for POST /api/v1/distances.
type DistancesRequest struct {
	Source  LatLngJSON   `json:"source"`
	Targets []LatLngJSON `json:"targets"`
}

// DistancesResponse lists one distance per target. Unreachable targets
// carry the value of Unreachable.
type DistancesResponse struct {
	Distances   []uint32 `json:"distances"`
	Measure     string   `json:"measure"`
	Unreachable uint32   `json:"unreachable"`
}

// MatrixRequest is the JSON body for POST /api/v1/matrix.
type MatrixRequest struct {
	Sources []LatLngJSON `json:"sources"`
	Targets []LatLngJSON `json:"targets"`
}

// MatrixResponse holds one row per source.
type MatrixResponse struct {
	Matrix      [][]uint32 `json:"matrix"`
	Measure     string     `json:"measure"`
	Unreachable uint32     `json:"unreachable"`
}

// NearestResponse is the JSON response for GET /api/v1/nearest.
type NearestResponse struct {
	Point LatLngJSON `json:"point"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	Profile      string  `json:"profile"`
	Measure      string  `json:"measure"`
	NumNodes     uint32  `json:"num_nodes"`
	NumArcs      uint32  `json:"num_arcs"`
	NumShortcuts int     `json:"num_shortcuts"`
	Concurrency  int     `json:"concurrency"`
	SnapRadius   float64 `json:"snap_radius_meters"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
