// Package health exposes the worker's health, readiness, and Prometheus
// metrics endpoints, grounded on the teacher's api/main.go chi router
// (healthz/readyz handlers, CORS, Sentry middleware) but trimmed to the
// three probes a background worker needs rather than a full API surface.
package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checker reports whether the worker is presently able to make progress
// (e.g. its RPC endpoints are reachable), used by the readiness probe.
type Checker interface {
	Ready(ctx context.Context) error
}

// Server is the worker's health/metrics HTTP surface.
type Server struct {
	router       chi.Router
	shuttingDown atomic.Bool
}

// NewServer builds the health server's router. sentryDSN, when non-empty,
// enables Sentry's HTTP middleware on every route.
func NewServer(checker Checker, sentryDSN string) *Server {
	s := &Server{}

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	if sentryDSN != "" {
		sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})
		r.Use(sentryHandler.Handle)
	}

	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("shutting down"))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if checker != nil {
			if err := checker.Ready(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready: " + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// MarkShuttingDown causes subsequent readiness checks to fail immediately,
// so load balancers stop routing traffic during graceful shutdown.
func (s *Server) MarkShuttingDown() {
	s.shuttingDown.Store(true)
}

// InitSentry initializes the global Sentry client. Call once at process
// startup before constructing a Server with a non-empty DSN.
func InitSentry(dsn, environment string) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
}
