package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/workflowos/approval-engine/internal/config"
	"github.com/workflowos/approval-engine/internal/container"
	"github.com/workflowos/approval-engine/pkg/utils"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "approval-engine",
		Usage:   "Serve the workflow approval API",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "configs/config.yaml",
				Sources: cli.EnvVars("WORKFLOW_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error); overrides the config file",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on; overrides the config file",
				Sources: cli.EnvVars("PORT"),
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:      "token",
				Usage:     "Issue an access token for a user in the directory",
				ArgsUsage: "<user-id>",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime; defaults to auth.token_ttl",
					},
				},
				Action: issueToken,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(command *cli.Command) (*config.Config, error) {
	path := command.String("config")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !command.IsSet("config") {
		// the default location is optional; defaults and env still apply
		path = ""
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if level := command.String("log-level"); level != "" {
		cfg.Logger.Level = level
	}
	if command.IsSet("port") {
		cfg.Server.Port = int(command.Int("port"))
	}
	return cfg, cfg.Validate()
}

func serve(ctx context.Context, command *cli.Command) error {
	cfg, err := loadConfig(command)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting workflow approval engine",
		zap.String("version", version),
		zap.String("storage", cfg.Storage.Driver),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Shutdown finished with errors", zap.Error(err))
		}
	}()

	if err := c.Server().Start(ctx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}

	logger.Info("Shutdown signal received")
	return nil
}

func issueToken(ctx context.Context, command *cli.Command) error {
	userID := command.Args().First()
	if userID == "" {
		return fmt.Errorf("usage: approval-engine token <user-id>")
	}

	cfg, err := loadConfig(command)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bundle, err := container.ProvideIdentity(&cfg.Auth)
	if err != nil {
		return err
	}
	if bundle.Resolver == nil {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	user, err := bundle.Directory.Get(ctx, userID)
	if err != nil {
		return err
	}

	ttl := cfg.Auth.TokenTTL
	if d := command.Duration("ttl"); d > 0 {
		ttl = d
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	token, err := bundle.Resolver.IssueToken(user, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(command.Root().Writer, token)
	return nil
}
