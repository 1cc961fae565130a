// Package api is the dblog REST API: record creation, record and chain
// lookups, record queries, health, stats and Prometheus metrics.
//
// Every route under /api/v1 except /health requires the X-API-Key header
// when an API key is configured.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	metricsInterval = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Router builds the HTTP handler with all routes configured
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", apiKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (unprotected for probes)
		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Group(func(r chi.Router) {
			r.Use(s.metrics.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

			// Records
			r.Post("/records", s.metrics.InstrumentHandler("POST", "/api/v1/records", s.handleCreateRecord))
			r.Get("/records", s.metrics.InstrumentHandler("GET", "/api/v1/records", s.handleQueryRecords))
			r.Get("/records/{address}", s.metrics.InstrumentHandler("GET", "/api/v1/records/{address}", s.handleGetRecord))
			r.Get("/records/{address}/chain", s.metrics.InstrumentHandler("GET", "/api/v1/records/{address}/chain", s.handleGetRecordChain))

			// Chains
			r.Get("/chains/{chainID}", s.metrics.InstrumentHandler("GET", "/api/v1/chains/{chainID}", s.handleGetChain))
			r.Get("/owners/{owner}/records", s.metrics.InstrumentHandler("GET", "/api/v1/owners/{owner}/records", s.handleGetOwnerRecords))

			// Diagnostics
			r.Get("/stats", s.metrics.InstrumentHandler("GET", "/api/v1/stats", s.handleStats))
		})
	})

	return r
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Bind, fmt.Sprint(s.config.Port))
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.Addr())
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.startMetricsUpdater(ctx, metricsInterval)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("dblog API listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	s.log.Info().Msg("dblog API stopped")
	return nil
}
