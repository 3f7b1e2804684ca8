package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"distance_router/pkg/logger"
	"distance_router/pkg/routing"
)

const unreachable = routing.Unreachable

const (
	maxRouteBody  = 1 << 10
	maxBatchBody  = 1 << 20
	maxBatchPoint = 1000
)

// Router is the query surface the handlers need. *routing.Client
// implements it.
type Router interface {
	Route(ctx context.Context, from, to routing.Point) (uint32, []routing.Point, error)
	Distance(ctx context.Context, from, to routing.Point) (uint32, error)
	Distances(ctx context.Context, source routing.Point, targets []routing.Point) ([]uint32, error)
	Matrix(ctx context.Context, sources, targets []routing.Point) ([][]uint32, error)
	Nearest(ctx context.Context, p routing.Point) (routing.Point, bool, error)
	SnapRadius() float64
}

type routeKey struct {
	start, end LatLngJSON
	radius     float64
	waypoints  bool
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router Router
	stats  StatsResponse
	log    *zap.Logger
	cache  *lru.Cache[routeKey, RouteResponse]
}

// NewHandlers creates handlers with the given router. cacheSize bounds the
// number of memoized route responses; 0 disables the cache.
func NewHandlers(router Router, stats StatsResponse, cacheSize int, log *zap.Logger) *Handlers {
	log = logger.OrNop(log)
	h := &Handlers{router: router, stats: stats, log: log}
	if cacheSize > 0 {
		h.cache, _ = lru.New[routeKey, RouteResponse](cacheSize)
	}
	return h
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeJSON(w, r, maxRouteBody, &req) {
		return
	}
	if err := validateCoord(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "start")
		return
	}
	if err := validateCoord(req.End); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "end")
		return
	}

	key := routeKey{
		start:     req.Start,
		end:       req.End,
		radius:    h.router.SnapRadius(),
		waypoints: req.Waypoints == nil || *req.Waypoints,
	}
	if h.cache != nil {
		if resp, ok := h.cache.Get(key); ok {
			routeCacheHits.Inc()
			writeJSON(w, resp)
			return
		}
		routeCacheMisses.Inc()
	}

	resp := RouteResponse{Measure: h.stats.Measure, Waypoints: []LatLngJSON{}}
	var err error
	if key.waypoints {
		var wp []routing.Point
		resp.Distance, wp, err = h.router.Route(r.Context(), req.Start.point(), req.End.point())
		for _, p := range wp {
			resp.Waypoints = append(resp.Waypoints, fromPoint(p))
		}
	} else {
		resp.Distance, err = h.router.Distance(r.Context(), req.Start.point(), req.End.point())
	}
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	if resp.Distance == unreachable {
		countUnreachable("route", resp.Distance)
		writeError(w, http.StatusNotFound, "no_route_found", "")
		return
	}

	if h.cache != nil {
		h.cache.Add(key, resp)
	}
	writeJSON(w, resp)
}

// HandleDistances handles POST /api/v1/distances.
func (h *Handlers) HandleDistances(w http.ResponseWriter, r *http.Request) {
	var req DistancesRequest
	if !decodeJSON(w, r, maxBatchBody, &req) {
		return
	}
	if err := validateCoord(req.Source); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "source")
		return
	}
	targets, ok := points(w, req.Targets, "targets")
	if !ok {
		return
	}

	d, err := h.router.Distances(r.Context(), req.Source.point(), targets)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	countUnreachable("distances", d...)
	writeJSON(w, DistancesResponse{Distances: d, Measure: h.stats.Measure, Unreachable: unreachable})
}

// HandleMatrix handles POST /api/v1/matrix.
func (h *Handlers) HandleMatrix(w http.ResponseWriter, r *http.Request) {
	var req MatrixRequest
	if !decodeJSON(w, r, maxBatchBody, &req) {
		return
	}
	sources, ok := points(w, req.Sources, "sources")
	if !ok {
		return
	}
	targets, ok := points(w, req.Targets, "targets")
	if !ok {
		return
	}

	m, err := h.router.Matrix(r.Context(), sources, targets)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	for _, row := range m {
		countUnreachable("matrix", row...)
	}
	writeJSON(w, MatrixResponse{Matrix: m, Measure: h.stats.Measure, Unreachable: unreachable})
}

// HandleNearest handles GET /api/v1/nearest?lat=..&lng=..
func (h *Handlers) HandleNearest(w http.ResponseWriter, r *http.Request) {
	var ll LatLngJSON
	var err error
	q := r.URL.Query()
	if ll.Lat, err = strconv.ParseFloat(q.Get("lat"), 64); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "lat")
		return
	}
	if ll.Lng, err = strconv.ParseFloat(q.Get("lng"), 64); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "lng")
		return
	}
	if err := validateCoord(ll); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "")
		return
	}

	p, found, err := h.router.Nearest(r.Context(), ll.point())
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	if !found {
		unreachableTotal.WithLabelValues("nearest").Inc()
		writeError(w, http.StatusNotFound, "point_too_far_from_road", "")
		return
	}
	writeJSON(w, NearestResponse{Point: fromPoint(p)})
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.stats)
}

func (h *Handlers) writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
		return
	}
	h.log.Error("query failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

func points(w http.ResponseWriter, lls []LatLngJSON, field string) ([]routing.Point, bool) {
	if len(lls) == 0 || len(lls) > maxBatchPoint {
		writeError(w, http.StatusBadRequest, "invalid_request", field)
		return nil, false
	}
	out := make([]routing.Point, len(lls))
	for i, ll := range lls {
		if err := validateCoord(ll); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", field+"["+strconv.Itoa(i)+"]")
			return nil, false
		}
		out[i] = ll.point()
	}
	return out, true
}

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
