package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "distance_router_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "distance_router_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"route"})

	unreachableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "distance_router_unreachable_total",
		Help: "Results that were unreachable or failed to snap",
	}, []string{"route"})

	routeCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "distance_router_route_cache_hits_total",
		Help: "Route responses served from the cache",
	})

	routeCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "distance_router_route_cache_misses_total",
		Help: "Route requests computed on a query slot",
	})
)

func countUnreachable(route string, distances ...uint32) {
	n := 0
	for _, d := range distances {
		if d == unreachable {
			n++
		}
	}
	if n > 0 {
		unreachableTotal.WithLabelValues(route).Add(float64(n))
	}
}
