package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"typerace/internal/app"
	"typerace/internal/config"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *gin.Engine
	rooms  *app.RoomRegistry
	config *config.Config
	logger *zap.Logger
}

// NewServer creates a new HTTP server. wsHandler serves the websocket
// endpoint and gatherer backs /metrics.
func NewServer(cfg *config.Config, rooms *app.RoomRegistry, wsHandler http.Handler, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router: gin.New(),
		rooms:  rooms,
		config: cfg,
		logger: logger,
	}

	s.router.Use(gin.Recovery(), s.requestLogger())
	s.router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	s.setupRoutes(wsHandler, gatherer)

	s.server = &http.Server{
		Addr:        cfg.GetAddr(),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(wsHandler http.Handler, gatherer prometheus.Gatherer) {
	api := s.router.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/rooms/:roomId", s.handleGetRoom)

	s.router.GET("/ws", gin.WrapH(wsHandler))
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// requestLogger logs every request. Health and metrics scrapes are only
// logged in development.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		if !s.config.IsDevelopment() && isProbeRequest(path) {
			return
		}
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("server starting", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

func isProbeRequest(path string) bool {
	return path == "/api/health" || path == "/metrics"
}
