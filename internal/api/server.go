// Package api assembles the HTTP surface: the Echo engine, its
// middleware, and the route groups of every feature package.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/sabueso/sabueso/internal/config"
	"github.com/sabueso/sabueso/internal/database"
	"github.com/sabueso/sabueso/internal/history"
	"github.com/sabueso/sabueso/internal/indexer/registry"
	"github.com/sabueso/sabueso/internal/indexer/search"
	"github.com/sabueso/sabueso/internal/indexer/status"
	"github.com/sabueso/sabueso/internal/metrics"
	"github.com/sabueso/sabueso/internal/scheduler"
	"github.com/sabueso/sabueso/internal/websocket"
)

// Server handles HTTP requests for the Sabueso API.
type Server struct {
	echo      *echo.Echo
	hub       *websocket.Hub
	scheduler *scheduler.Scheduler
	cfg       *config.Config
	logger    zerolog.Logger

	metrics      *metrics.Metrics
	store        *database.Store
	statusSvc    *status.Service
	registrySvc  *registry.Service
	searchSvc    *search.Service
	historySvc   *history.Service
	logsProvider LogsProvider
}

// NewServer creates the API server and wires every service together.
func NewServer(db *database.DB, hub *websocket.Hub, sched *scheduler.Scheduler, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		hub:       hub,
		scheduler: sched,
		cfg:       cfg,
		logger:    logger,
	}

	s.metrics = metrics.New()
	s.store = database.NewStore(db)

	s.statusSvc = status.NewService(s.store, logger)

	registrySvc, err := registry.NewService(cfg, s.store, s.statusSvc, logger)
	if err != nil {
		return nil, err
	}
	s.registrySvc = registrySvc
	s.registrySvc.SetMetrics(s.metrics)

	s.searchSvc = search.NewService(s.registrySvc, cfg.Search.MaxConcurrent, logger)
	s.searchSvc.SetStore(s.store)
	s.searchSvc.SetMetrics(s.metrics)

	s.historySvc = history.NewService(s.store, logger)

	if hub != nil {
		hub.SetPeersGauge(s.metrics.WebsocketPeers)
		s.statusSvc.SetHub(hub)
		s.registrySvc.SetHub(hub)
		s.searchSvc.SetHub(hub)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// SetLogsProvider wires the source of the log endpoints.
func (s *Server) SetLogsProvider(provider LogsProvider) {
	s.logsProvider = provider
}

// Registry returns the indexer registry service.
func (s *Server) Registry() *registry.Service {
	return s.registrySvc
}

// History returns the history service.
func (s *Server) History() *history.Service {
	return s.historySvc
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Compression breaks the websocket upgrade.
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/", s.root)
	s.echo.GET("/healthz", s.healthz)
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	api := s.echo.Group("/api/v1")

	if s.hub != nil {
		api.GET("/ws", s.hub.HandleWebSocket)
	}

	registryHandlers := registry.NewHandlers(s.registrySvc, s.statusSvc, s.cfg.Search.DefaultLimit)
	registryHandlers.RegisterRoutes(api)

	searchHandlers := search.NewHandlers(s.searchSvc)
	searchHandlers.RegisterRoutes(api)

	historyHandlers := history.NewHandlers(s.historySvc)
	historyHandlers.RegisterRoutes(api.Group("/history"))

	if s.scheduler != nil {
		schedulerHandlers := NewSchedulerHandlers(s.scheduler)
		schedulerHandlers.RegisterRoutes(api.Group("/scheduler"))
	}

	logs := api.Group("/logs")
	logs.GET("", s.getRecentLogs)
	logs.GET("/download", s.downloadLogFile)
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// root answers with service information and the main endpoints.
// GET /
func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"name":             "Sabueso",
		"version":          config.Version,
		"description":      "Jackett-compatible API for multiple indexers",
		"indexers_enabled": s.registrySvc.EnabledIDs(),
		"endpoints": map[string]string{
			"search_all":     "/api/v1/search?q=query",
			"search_indexer": "/api/v1/indexers/<indexer>/results?q=query",
			"tvsearch":       "/api/v1/indexers/<indexer>/tvsearch?q=series&season=1&ep=1",
			"torznab":        "/api/v1/indexers/<indexer>/api?t=search&q=query",
			"download":       "/api/v1/indexers/<indexer>/download?url=<path>",
			"indexers":       "/api/v1/indexers",
			"test":           "/api/v1/test",
		},
	})
}

// healthz is the liveness probe.
// GET /healthz
func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
