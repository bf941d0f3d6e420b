// Package container provides dependency injection and lifecycle management
// for the approval engine following Clean Architecture principles.
package container

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/workflowos/approval-engine/internal/application/dispatcher"
	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/application/service"
	"github.com/workflowos/approval-engine/internal/application/workflow"
	"github.com/workflowos/approval-engine/internal/config"
	"github.com/workflowos/approval-engine/internal/domain/entity"
	"github.com/workflowos/approval-engine/internal/infrastructure/identity"
	"github.com/workflowos/approval-engine/internal/infrastructure/persistence"
	filestore "github.com/workflowos/approval-engine/internal/infrastructure/persistence/file"
	"github.com/workflowos/approval-engine/internal/infrastructure/persistence/memory"
	redisstore "github.com/workflowos/approval-engine/internal/infrastructure/persistence/redis"
	"github.com/workflowos/approval-engine/internal/infrastructure/persistence/seed"
	"github.com/workflowos/approval-engine/internal/infrastructure/persistence/sqlite"
	"github.com/workflowos/approval-engine/internal/infrastructure/storage"
	"github.com/workflowos/approval-engine/pkg/database"
	"github.com/workflowos/approval-engine/pkg/metrics"
	"github.com/workflowos/approval-engine/pkg/utils"
)

// IdentityBundle holds the user directory and token resolver
type IdentityBundle struct {
	Directory *identity.Directory
	Resolver  *identity.TokenResolver
}

// ServiceBundle groups all application services
type ServiceBundle struct {
	Workflows service.WorkflowService
	Directory service.DirectoryService
}

// ProvideStore opens the workflow store selected by cfg.Driver and wraps it
// so failures are counted in m.
func ProvideStore(ctx context.Context, cfg *config.StorageConfig, m *metrics.Metrics, logger *zap.Logger) (port.WorkflowStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	var seedFn func() []*entity.Workflow
	if cfg.Seed {
		seedFn = seed.Workflows
	}

	var (
		store port.WorkflowStore
		err   error
	)
	switch cfg.Driver {
	case config.DriverMemory:
		var opts []memory.Option
		if seedFn != nil {
			opts = append(opts, memory.WithSeed(seedFn))
		}
		store = memory.NewStore(opts...)

	case config.DriverFile:
		var opts []filestore.Option
		if seedFn != nil {
			opts = append(opts, filestore.WithSeed(seedFn))
		}
		files := storage.NewLocalFileStorage(cfg.File.Dir, logger)
		store = filestore.NewStore(files, cfg.File.Name, logger, opts...)

	case config.DriverSQLite:
		var opts []sqlite.Option
		if seedFn != nil {
			opts = append(opts, sqlite.WithSeed(seedFn))
		}
		store, err = sqlite.Open(ctx, database.Config{
			Path:            cfg.SQLite.Path,
			MaxOpenConns:    cfg.SQLite.MaxOpenConns,
			MaxIdleConns:    cfg.SQLite.MaxIdleConns,
			ConnMaxLifetime: cfg.SQLite.ConnMaxLifetime,
			BusyTimeout:     cfg.SQLite.BusyTimeout,
		}, logger, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		opts := []redisstore.Option{redisstore.WithKey(cfg.Redis.Key)}
		if seedFn != nil {
			opts = append(opts, redisstore.WithSeed(seedFn))
		}
		store = redisstore.NewStore(client, opts...)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	logger.Info("Workflow store ready", zap.String("driver", cfg.Driver), zap.Bool("seed", cfg.Seed))
	if m == nil {
		return store, nil
	}
	return persistence.Instrument(store, m), nil
}

// ProvideIdentity builds the user directory and, when a secret is configured, the token resolver
func ProvideIdentity(cfg *config.AuthConfig) (*IdentityBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}

	var (
		directory *identity.Directory
		err       error
	)
	if cfg.UsersFile != "" {
		directory, err = identity.LoadDirectory(cfg.UsersFile)
	} else {
		directory, err = identity.NewDirectory(seed.Users())
	}
	if err != nil {
		return nil, err
	}

	bundle := &IdentityBundle{Directory: directory}
	if cfg.JWTSecret != "" {
		bundle.Resolver = identity.NewTokenResolver(cfg.JWTSecret, identity.WithDirectory(directory))
	}
	return bundle, nil
}

// ProvideDispatcher creates the event dispatcher and subscribes the audit and metrics handlers
func ProvideDispatcher(m *metrics.Metrics, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	kv := utils.NewKVLogger(logger)
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(kv))

	var recorder service.TransitionRecorder
	if m != nil {
		recorder = m
	}
	service.RegisterSubscribers(d, kv, recorder)
	return d, nil
}

// ServiceDeps holds dependencies required for creating services
type ServiceDeps struct {
	Store      port.WorkflowStore
	Directory  port.UserDirectory
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideServices creates the lifecycle engine and the application services
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("workflow store is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := utils.NewKVLogger(deps.Logger)

	var opts []service.Option
	if deps.Dispatcher != nil {
		opts = append(opts, service.WithDispatcher(deps.Dispatcher))
	}

	return &ServiceBundle{
		Workflows: service.NewWorkflowService(deps.Store, workflow.NewEngine(), serviceLogger, opts...),
		Directory: service.NewDirectoryService(deps.Directory, serviceLogger),
	}, nil
}
