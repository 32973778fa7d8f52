package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/builder"
	"github.com/elskow/erlbuild/internal/config"
)

// HTTPServer exposes metrics and health endpoints next to the gRPC server.
type HTTPServer struct {
	srv *http.Server
	log *zap.Logger
}

// NewRegistry returns the registry every collector of the process registers with.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewHTTPServer(cfg *config.AppConfig, reg *prometheus.Registry, metrics *builder.MetricsCollector, log *zap.Logger) *HTTPServer {
	return &HTTPServer{
		srv: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           NewRouter(reg, metrics),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

func NewRouter(reg *prometheus.Registry, metrics *builder.MetricsCollector) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/passes/last", func(w http.ResponseWriter, _ *http.Request) {
		id, last, ok := metrics.Last()
		if !ok {
			http.Error(w, "no pass has run yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pass_id":       id,
			"project":       last.Project,
			"kind":          last.Kind,
			"status":        last.Status,
			"started_at":    last.StartTime,
			"duration_ms":   last.Duration.Milliseconds(),
			"jobs":          last.JobCount,
			"failed_jobs":   last.FailedJobs,
			"error_count":   last.ErrorCount,
			"warning_count": last.WarningCount,
		})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return r
}

func (s *HTTPServer) Start() error {
	s.log.Info("Starting HTTP server", zap.String("address", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.srv.Shutdown(ctx)
}
