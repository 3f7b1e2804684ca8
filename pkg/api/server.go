package api

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"distance_router/pkg/logger"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxConcurrent  int
	CORSOrigin     string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(addr string) ServerConfig {
	return ServerConfig{
		Addr:           addr,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		RequestTimeout: 5 * time.Second,
		MaxConcurrent:  runtime.NumCPU() * 2,
	}
}

// NewServer creates an HTTP server with all routes and middleware.
func NewServer(cfg ServerConfig, handlers *Handlers, log *zap.Logger) *http.Server {
	log = logger.OrNop(log)
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = runtime.NumCPU() * 2
	}
	mux := http.NewServeMux()

	// Concurrency limiter.
	sem := make(chan struct{}, cfg.MaxConcurrent)
	wrap := func(route string, h http.HandlerFunc) http.HandlerFunc {
		return withMiddleware(route, h, sem, cfg, log)
	}

	mux.HandleFunc("POST /api/v1/route", wrap("route", handlers.HandleRoute))
	mux.HandleFunc("POST /api/v1/distances", wrap("distances", handlers.HandleDistances))
	mux.HandleFunc("POST /api/v1/matrix", wrap("matrix", handlers.HandleMatrix))
	mux.HandleFunc("GET /api/v1/nearest", wrap("nearest", handlers.HandleNearest))
	mux.HandleFunc("GET /api/v1/health", wrap("health", handlers.HandleHealth))
	mux.HandleFunc("GET /api/v1/stats", wrap("stats", handlers.HandleStats))
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ListenAndServe starts the server and blocks until shutdown signal.
func ListenAndServe(srv *http.Server, log *zap.Logger) error {
	log = logger.OrNop(log)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", zap.Stringer("signal", sig))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// withMiddleware wraps a handler with logging, metrics, recovery, security
// headers, and concurrency limiting.
func withMiddleware(route string, handler http.HandlerFunc, sem chan struct{}, cfg ServerConfig, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			took := time.Since(start)
			requestTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			requestDuration.WithLabelValues(route).Observe(took.Seconds())
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("took", took))
		}()

		rec.Header().Set("X-Content-Type-Options", "nosniff")
		rec.Header().Set("X-Frame-Options", "DENY")
		rec.Header().Set("Cache-Control", "no-store")
		if cfg.CORSOrigin != "" {
			rec.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
		}

		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		default:
			rec.Header().Set("Retry-After", "1")
			writeError(rec, http.StatusServiceUnavailable, "service_unavailable", "")
			return
		}

		defer func() {
			if v := recover(); v != nil {
				log.Error("panic in handler", zap.Any("panic", v), zap.Stack("stack"))
				writeError(rec, http.StatusInternalServerError, "internal_error", "")
			}
		}()

		ctx := r.Context()
		if cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()
		}
		handler(rec, r.WithContext(ctx))
	}
}
