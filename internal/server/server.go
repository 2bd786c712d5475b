// file: internal/server/server.go
// version: 2.1.0
// guid: 4b5c6d7e-8f9a-0b1c-2d3e-4f5a6b7c8d9e

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DS09AT/Shelvance-sub001/internal/config"
	"github.com/DS09AT/Shelvance-sub001/internal/engine"
	"github.com/DS09AT/Shelvance-sub001/internal/metrics"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
	"github.com/DS09AT/Shelvance-sub001/internal/operations"
	"github.com/DS09AT/Shelvance-sub001/internal/realtime"
	"github.com/DS09AT/Shelvance-sub001/internal/server/middleware"
)

// Version is reported by the health check.
const Version = "1.0.0"

// maxRefreshResults bounds how many finished refresh jobs keep their
// per-item results in memory.
const maxRefreshResults = 100

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	engine     *engine.Engine
	queue      *operations.OperationQueue
	events     *realtime.EventHub

	jobsMu   sync.Mutex
	jobs     map[string]*operations.RefreshJob
	jobOrder []string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates a new server instance around the federation engine and
// the operation queue running batch refreshes. Queue progress is streamed
// to event clients.
func NewServer(eng *engine.Engine, queue *operations.OperationQueue) *Server {
	router := gin.New()

	// Set up middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Register metrics (idempotent)
	metrics.Register()

	server := &Server{
		router: router,
		engine: eng,
		queue:  queue,
		events: realtime.NewEventHub(),
		jobs:   make(map[string]*operations.RefreshJob),
	}
	queue.SetObserver(server.events)

	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Events returns the hub streaming operation and circuit events.
func (s *Server) Events() *realtime.EventHub {
	return s.events
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM.
func (s *Server) Start(cfg ServerConfig) error {
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] server: listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	log.Println("[INFO] server: shutting down")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("[INFO] server: exited")
	return nil
}

// setupRoutes configures all the routes
func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint (standard path)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint, also served as /api/v1/health
	s.router.GET("/api/health", s.healthCheck)

	api := s.router.Group("/api/v1")
	api.Use(middleware.BasicAuth("/api/v1/health"))
	api.Use(middleware.MaxRequestBodySize(config.AppConfig.MaxRequestBytes))
	if config.AppConfig.APIRateLimit > 0 {
		api.Use(middleware.NewIPRateLimiter(config.AppConfig.APIRateLimit, config.AppConfig.APIBurst).Middleware())
	}
	{
		api.GET("/health", s.healthCheck)
		api.GET("/health/providers", s.listProviderHealth)
		api.GET("/capabilities", s.listCapabilities)

		// Provider definitions
		api.GET("/providers", s.listProviders)
		api.POST("/providers", s.createProvider)
		api.POST("/providers/test", s.testProviderDefinition)
		api.GET("/providers/:id", s.getProvider)
		api.PUT("/providers/:id", s.updateProvider)
		api.DELETE("/providers/:id", s.deleteProvider)
		api.POST("/providers/:id/test", s.testProvider)
		api.GET("/providers/:id/health", s.getProviderHealth)

		// Federated lookups
		api.POST("/lookup", s.lookup)

		// Batch operations
		api.POST("/operations/refresh", s.startRefresh)
		api.GET("/operations", s.listOperations)
		api.GET("/operations/active", s.listActiveOperations)
		api.GET("/operations/:id/status", s.getOperationStatus)
		api.GET("/operations/:id/results", s.getRefreshResults)
		api.DELETE("/operations/:id", s.cancelOperation)

		// Server-sent events
		api.GET("/events", s.events.HandleSSE)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// healthCheck reports process health plus a circuit summary. Provider
// outages degrade the status but never fail the check.
func (s *Server) healthCheck(c *gin.Context) {
	resp := gin.H{
		"status":        "ok",
		"timestamp":     time.Now().Unix(),
		"version":       Version,
		"database_type": config.AppConfig.DatabaseType,
	}

	all, err := s.engine.AllHealth()
	if err != nil {
		resp["partial_error"] = err.Error()
		c.JSON(http.StatusOK, resp)
		return
	}
	circuits := map[models.CircuitState]int{
		models.CircuitClosed:   0,
		models.CircuitOpen:     0,
		models.CircuitHalfOpen: 0,
	}
	for _, h := range all {
		circuits[h.State]++
	}
	if len(all) > 0 && circuits[models.CircuitClosed] == 0 {
		resp["status"] = "degraded"
	}
	resp["providers"] = len(all)
	resp["circuits"] = circuits
	c.JSON(http.StatusOK, resp)
}
