// Package http exposes the workflow services over a gin router.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RequestRecorder counts handled requests
type RequestRecorder interface {
	RecordRequest(method, route, status string)
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		Mode:            gin.ReleaseMode,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Deps are the application components served by the router
type Deps struct {
	Workflows service.WorkflowService
	Directory service.DirectoryService

	// Resolver verifies bearer tokens; nil disables bearer authentication
	Resolver port.IdentityResolver
	// TrustHeaders accepts X-Actor-Id looked up through Directory
	TrustHeaders bool

	// Health reports component status for GET /health; nil means always healthy
	Health func() (bool, interface{})

	// Gatherer backs GET MetricsPath; nil disables the endpoint
	Gatherer    prometheus.Gatherer
	MetricsPath string
	Recorder    RequestRecorder
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	deps       Deps
	httpServer *http.Server
	router     *gin.Engine
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, deps Deps, logger Logger) *Server {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	server := &Server{
		config: config,
		deps:   deps,
		router: gin.New(),
		logger: logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware logs and counts every request
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if s.deps.Recorder != nil {
			s.deps.Recorder.RecordRequest(method, route, strconv.Itoa(status))
		}

		kv := []interface{}{
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		}
		if actor, ok := actorFrom(c); ok {
			kv = append(kv, "actor_id", actor.ID)
		}
		s.logger.Info("HTTP request", kv...)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.deps.Workflows, s.deps.Directory, s.logger)

	s.router.GET("/health", s.healthCheck)
	if s.deps.Gatherer != nil {
		path := s.deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.router.GET(path, gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := s.router.Group("/api/v1")
	api.Use(IdentityMiddleware(s.deps.Resolver, s.deps.Directory, s.deps.TrustHeaders))
	{
		api.GET("/me", handlers.Me)

		// Workflows
		api.POST("/workflows", handlers.CreateWorkflow)
		api.GET("/workflows", handlers.ListWorkflows)
		api.GET("/workflows/:id", handlers.GetWorkflow)
		api.PATCH("/workflows/:id", handlers.EditWorkflow)
		api.DELETE("/workflows/:id", handlers.DeleteWorkflow)
		api.GET("/workflows/:id/actions", handlers.AvailableActions)
		api.POST("/workflows/:id/submit", handlers.SubmitWorkflow)
		api.POST("/workflows/:id/queue", handlers.QueueWorkflow)
		api.POST("/workflows/:id/approve", handlers.ApproveWorkflow)
		api.POST("/workflows/:id/reject", handlers.RejectWorkflow)
		api.POST("/workflows/:id/complete", handlers.CompleteWorkflow)

		// Dashboards
		api.GET("/approvals/pending", handlers.ListPendingApprovals)
		api.GET("/approvals/decisions", handlers.GetDecisionCounts)
		api.GET("/statistics", handlers.GetStatistics)

		// Directory
		api.GET("/users", handlers.ListUsers)
	}
}

// healthCheck handles GET /health
func (s *Server) healthCheck(c *gin.Context) {
	healthy, details := true, interface{}(nil)
	if s.deps.Health != nil {
		healthy, details = s.deps.Health()
	}

	status := http.StatusOK
	label := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		label = "unhealthy"
	}

	c.JSON(status, Response{
		Success: healthy,
		Data: HealthResponse{
			Status:     label,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Components: details,
		},
	})
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
