package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/workflowos/approval-engine/internal/application/dispatcher"
	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/config"
	httpserver "github.com/workflowos/approval-engine/internal/interfaces/http"
	"github.com/workflowos/approval-engine/pkg/metrics"
	"github.com/workflowos/approval-engine/pkg/utils"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Observability
	metrics  *metrics.Metrics
	registry *prometheus.Registry

	// Infrastructure
	store    port.WorkflowStore
	identity *IdentityBundle

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Interfaces
	server *httpserver.Server

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Metrics registry
// 2. Workflow store
// 3. User directory and token resolver
// 4. Event dispatcher and application services
// 5. HTTP server (constructed, not listening; see Server)
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	c.initMetrics()

	store, err := ProvideStore(ctx, &c.config.Storage, c.metrics, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.store = store
	c.logger.Info("Storage initialized")

	c.identity, err = ProvideIdentity(&c.config.Auth)
	if err != nil {
		c.closeStore()
		return fmt.Errorf("failed to initialize identity: %w", err)
	}
	c.logger.Info("Identity initialized", zap.Int("users", len(c.identity.Directory.IDs())))

	c.dispatcher, err = ProvideDispatcher(c.metrics, c.logger)
	if err != nil {
		c.closeStore()
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	c.services, err = ProvideServices(&ServiceDeps{
		Store:      c.store,
		Directory:  c.identity.Directory,
		Dispatcher: c.dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		_ = c.dispatcher.Close()
		c.closeStore()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	c.initServer()

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

func (c *Container) initMetrics() {
	c.metrics = metrics.New()
	c.registry = prometheus.NewRegistry()
	c.metrics.Register(c.registry)
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func (c *Container) initServer() {
	deps := httpserver.Deps{
		Workflows:    c.services.Workflows,
		Directory:    c.services.Directory,
		TrustHeaders: c.config.Auth.TrustHeaders,
		Health: func() (bool, interface{}) {
			h := c.Health()
			return h.Overall, h.Components
		},
		Recorder: c.metrics,
	}
	if c.identity.Resolver != nil {
		deps.Resolver = c.identity.Resolver
	}
	if c.config.Metrics.Enabled {
		deps.Gatherer = c.registry
		deps.MetricsPath = c.config.Metrics.Path
	}

	c.server = httpserver.NewServer(httpserver.ServerConfig{
		Host:            c.config.Server.Host,
		Port:            c.config.Server.Port,
		Mode:            c.config.Server.Mode,
		ReadTimeout:     c.config.Server.ReadTimeout,
		WriteTimeout:    c.config.Server.WriteTimeout,
		ShutdownTimeout: c.config.Server.ShutdownTimeout,
	}, deps, utils.NewKVLogger(c.logger))
}

// Close gracefully shuts down all components in reverse order
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	var errs []error

	// Step 1: stop accepting requests
	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop server: %w", err))
		}
	}

	// Step 2: drain async event handlers
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 3: release the store
	if err := c.closeStore(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %v", len(errs), errs)
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) closeStore() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	if err != nil {
		c.logger.Error("Failed to close store", zap.Error(err))
	} else {
		c.logger.Info("Store closed")
	}
	c.store = nil
	return err
}

// Ready returns true when all components are initialized
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	mark := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	if store := c.store; store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if snap, err := store.Load(ctx); err != nil {
			mark("storage", false, fmt.Sprintf("load failed: %v", err))
		} else {
			mark("storage", true, fmt.Sprintf("%s, version %d", c.config.Storage.Driver, snap.Version))
		}
	} else {
		mark("storage", false, "not initialized")
	}

	if c.dispatcher != nil {
		mark("dispatcher", true, "")
	} else {
		mark("dispatcher", false, "not initialized")
	}

	if c.identity != nil {
		mark("identity", true, fmt.Sprintf("%d users", len(c.identity.Directory.IDs())))
	} else {
		mark("identity", false, "not initialized")
	}

	return status
}

// Getters for accessing container components

// Store returns the instrumented workflow store
func (c *Container) Store() port.WorkflowStore {
	return c.store
}

// Services returns all application services
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Identity returns the user directory and token resolver
func (c *Container) Identity() *IdentityBundle {
	return c.identity
}

// Server returns the HTTP server
func (c *Container) Server() *httpserver.Server {
	return c.server
}

// Registry returns the Prometheus registry
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// Config returns the container's configuration
func (c *Container) Config() *config.Config {
	return c.config
}
