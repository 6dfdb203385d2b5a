// Package httpserver assembles the echo instance serving the JSON API and
// the metrics endpoint, and owns its lifecycle.
package httpserver

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	api "github.com/gearmap/gearmap-go/internal/api/v2"
	"github.com/gearmap/gearmap-go/internal/conf"
	"github.com/gearmap/gearmap-go/internal/convert"
	"github.com/gearmap/gearmap-go/internal/filestore"
	"github.com/gearmap/gearmap-go/internal/iconstore"
	"github.com/gearmap/gearmap-go/internal/logging"
	"github.com/gearmap/gearmap-go/internal/mapping"
	"github.com/gearmap/gearmap-go/internal/observability"
	"github.com/gearmap/gearmap-go/internal/render"
)

// Server encapsulates the echo instance and its collaborators.
type Server struct {
	Echo     *echo.Echo
	Settings *conf.Settings
	API      *api.Controller

	metrics *observability.Metrics
	log     *slog.Logger
}

// New builds the HTTP server: v2 API under /api/v2 and prometheus metrics
// under /metrics.
func New(settings *conf.Settings, store iconstore.Interface, files *filestore.Store,
	engine *convert.Engine, renderer *render.Renderer, table *mapping.Table,
	metrics *observability.Metrics) (*Server, error) {

	logger := logging.ForService("httpserver")
	if logger == nil {
		logger = slog.Default().With("service", "httpserver")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	controller, err := api.New(e, store, files, engine, table, settings,
		log.Default(), api.WithMetrics(metrics), api.WithRenderer(renderer))
	if err != nil {
		return nil, err
	}

	s := &Server{
		Echo:     e,
		Settings: settings,
		API:      controller,
		metrics:  metrics,
		log:      logger,
	}

	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	return s, nil
}

// Start begins serving. It blocks until the listener fails or the server is
// shut down.
func (s *Server) Start() error {
	addr := ":" + s.Settings.WebServer.Port
	s.log.Info("http server starting", "addr", addr)
	if err := s.Echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests with a deadline and releases the API
// controller's resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	err := s.Echo.Shutdown(ctx)
	s.API.Shutdown()
	return err
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(s.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
