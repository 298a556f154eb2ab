package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ghbridge/internal/app/middleware"
	"ghbridge/internal/config"
	"ghbridge/internal/lib/metrics"
)

// Registrar mounts routes on a router.
type Registrar interface {
	Register(r chi.Router)
}

type App struct {
	log    *slog.Logger
	server *http.Server
	port   int
}

// New creates the HTTP server app. /metrics is served from gatherer.
func New(
	log *slog.Logger,
	cfg config.HTTPConfig,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	handlers ...Registrar,
) *App {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(log, m))
	r.Use(chimiddleware.Recoverer)

	for _, h := range handlers {
		h.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &App{
		log: log,
		server: &http.Server{
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		port: cfg.Port,
	}
}

// Handler exposes the router, mostly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// MustRun runs HTTP server and panics if any error occurs
func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

// Run listens on the configured port and serves until Stop.
func (a *App) Run() error {
	const op = "httpapp.Run"

	log := a.log.With(slog.String("op", op), slog.Int("port", a.port))

	l, err := net.Listen("tcp", fmt.Sprintf(":%d", a.port))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("starting HTTP server", slog.String("addr", l.Addr().String()))

	if err := a.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Stop waits for in-flight requests until ctx is done.
func (a *App) Stop(ctx context.Context) error {
	const op = "httpapp.Stop"

	a.log.With(slog.String("op", op)).Info("stopping HTTP server")
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
