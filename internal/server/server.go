// Package server wires the HTTP API, provider adapters and background
// services together.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/wigg/wigg/internal/config"
	"github.com/wigg/wigg/internal/events"
	"github.com/wigg/wigg/internal/provider"
	"github.com/wigg/wigg/internal/provider/anilist"
	"github.com/wigg/wigg/internal/provider/openlibrary"
	"github.com/wigg/wigg/internal/provider/podcastindex"
	"github.com/wigg/wigg/internal/provider/tmdb"
	"github.com/wigg/wigg/internal/search"
	"github.com/wigg/wigg/internal/telemetry"
)

// Server handles HTTP requests for the WIGG API.
type Server struct {
	echo   *echo.Echo
	db     *sql.DB
	hub    *events.Hub
	logger zerolog.Logger
	cfg    *config.Config

	startTime time.Time

	registry         *provider.Registry
	searchService    *search.Service
	telemetryService *telemetry.Service
	telemetryStore   *telemetry.Store
}

// NewServer creates a new API server instance.
func NewServer(db *sql.DB, hub *events.Hub, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		db:        db,
		hub:       hub,
		logger:    logger,
		cfg:       cfg,
		startTime: time.Now(),
	}

	// Register provider adapters. Adapters missing credentials register
	// anyway and report not ready, so the planner routes around them.
	s.registry = provider.NewRegistry(logger)
	s.registry.Register(tmdb.NewClient(cfg.Providers.TMDB, logger))
	s.registry.Register(anilist.NewClient(cfg.Providers.AniList, logger))
	s.registry.Register(openlibrary.NewClient(cfg.Providers.OpenLibrary, logger))
	s.registry.Register(podcastindex.NewClient(cfg.Providers.PodcastIndex, logger))

	// Telemetry: buffered event collection with periodic flush to sqlite.
	s.telemetryStore = telemetry.NewStore(db)
	telemetryService, err := telemetry.NewService(telemetry.Config{
		Enabled:       cfg.Telemetry.Enabled,
		BufferSize:    cfg.Telemetry.BufferSize,
		FlushInterval: time.Duration(cfg.Telemetry.FlushIntervalSeconds) * time.Second,
	}, s.telemetryStore, logger)
	if err != nil {
		return nil, err
	}
	s.telemetryService = telemetryService

	// Search service with telemetry and WebSocket events.
	s.searchService = search.NewService(s.registry, logger)
	s.searchService.SetTracker(s.telemetryService)
	s.searchService.SetBroadcaster(hub)
	s.searchService.SetCacheConfig(search.CacheConfig{
		TTL:      time.Duration(cfg.Search.CacheTTLSeconds) * time.Second,
		MaxItems: cfg.Search.CacheMaxItems,
	})

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
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
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.healthCheck)
	s.echo.GET("/ws", s.hub.HandleWebSocket)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)

	searchHandlers := search.NewHandlers(s.searchService)
	searchHandlers.SetMaxProviders(s.cfg.Search.MaxProviders)
	searchHandlers.RegisterRoutes(api.Group("/search"))

	api.GET("/telemetry/events", s.getTelemetryEvents)
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")

	if err := s.telemetryService.Start(); err != nil {
		return err
	}

	return s.echo.Start(address)
}

// Shutdown gracefully stops the server and flushes telemetry.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	s.searchService.Close()
	if err := s.telemetryService.Stop(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to stop telemetry service")
	}

	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	ready := 0
	capabilities := s.registry.Capabilities()
	for _, cap := range capabilities {
		if cap.Ready {
			ready++
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":          "0.1.0",
		"startTime":        s.startTime.Format(time.RFC3339),
		"providers":        len(capabilities),
		"providersReady":   ready,
		"wsClients":        s.hub.ClientCount(),
		"telemetryPending": s.telemetryService.Pending(),
	})
}

// getTelemetryEvents returns recently recorded pipeline events.
func (s *Server) getTelemetryEvents(c echo.Context) error {
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	recorded, err := s.telemetryStore.RecentEvents(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if recorded == nil {
		recorded = []telemetry.Event{}
	}
	return c.JSON(http.StatusOK, recorded)
}
