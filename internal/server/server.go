// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stwalsh4118/rerun/internal/api"
	"github.com/stwalsh4118/rerun/internal/channel"
	"github.com/stwalsh4118/rerun/internal/config"
	"github.com/stwalsh4118/rerun/internal/db"
	"github.com/stwalsh4118/rerun/internal/guide"
	"github.com/stwalsh4118/rerun/internal/logger"
	"github.com/stwalsh4118/rerun/internal/middleware"
	"github.com/stwalsh4118/rerun/internal/playlist"
	"github.com/stwalsh4118/rerun/internal/schedule"
	"github.com/stwalsh4118/rerun/internal/timeline"
)

// Server represents the HTTP server
type Server struct {
	config          *config.Config
	db              *db.DB
	repos           *db.Repositories
	channelService  *channel.ChannelService
	timelineService *timeline.TimelineService
	resolver        playlist.Resolver
	guide           *guide.Guide
	router          *gin.Engine
	server          *http.Server
}

// New creates a new server instance. The resolver is shared with the
// broadcast runner so both compute identical playlists.
func New(cfg *config.Config, database *db.DB, repos *db.Repositories, resolver playlist.Resolver, scheduleResolver schedule.Resolver) *Server {
	channelService := channel.NewChannelService(repos)
	timelineService := timeline.NewTimelineService(repos)
	guideService := guide.NewGuide(repos, resolver, scheduleResolver)

	return &Server{
		config:          cfg,
		db:              database,
		repos:           repos,
		channelService:  channelService,
		timelineService: timelineService,
		resolver:        resolver,
		guide:           guideService,
	}
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	// Set Gin mode based on log level
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create new Gin router
	s.router = gin.New()

	// Add middleware stack
	s.router.Use(middleware.RequestLogger()) // Custom zerolog request logger
	s.router.Use(gin.Recovery())             // Panic recovery
	s.router.Use(cors.Default())             // CORS support (allows all origins)

	// Prometheus metrics endpoint
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Create API route group
	apiGroup := s.router.Group("/api")

	// Register service routes
	api.SetupHealthRoutes(apiGroup, s.db)
	channelHandler := api.NewChannelHandler(s.channelService, s.timelineService, s.resolver, s.guide, s.config.Guide)
	api.SetupChannelRoutes(apiGroup, channelHandler)
	api.SetupFeedRoutes(apiGroup, s.timelineService, s.resolver)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.setupRouter()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Msg("Starting HTTP server")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	// Check if server was started before attempting shutdown
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}
