package main

import (
	"context"
	"fmt"

	"github.com/rpattn/cagetrack/internal/config"
	"github.com/rpattn/cagetrack/internal/db"
	"github.com/rpattn/cagetrack/internal/repository"
	"github.com/rpattn/cagetrack/internal/repository/memory"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	logLevel   string
	memory     bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "cagetrack",
		Short:         "Hospital laundry cage tracking service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", ".", "directory containing config.yaml")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.memory, "memory", false, "use a volatile in-memory store instead of Postgres")

	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newReportCommand(opts),
	)
	return cmd
}

// environment is the loaded configuration plus the resources every command shares.
type environment struct {
	cfg    config.Config
	logger *zap.Logger
	store  repository.Store
	conn   *db.Connection
}

func (e *environment) Close() {
	if e.conn != nil {
		e.conn.Close()
	}
	_ = e.logger.Sync()
}

func loadEnvironment(opts *rootOptions) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// openEnvironment loads config and opens the store. Postgres stores are migrated up when migrate is set.
func openEnvironment(ctx context.Context, opts *rootOptions, migrate bool) (*environment, error) {
	cfg, logger, err := loadEnvironment(opts)
	if err != nil {
		return nil, err
	}
	env := &environment{cfg: cfg, logger: logger}

	if opts.memory {
		logger.Warn("using in-memory store, data is lost on exit")
		env.store = memory.NewStore()
		return env, nil
	}

	conn, err := db.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	env.conn = conn

	if migrate {
		if err := db.RunMigrations(conn.Pool, db.Up); err != nil {
			env.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	env.store = repository.NewPostgresStore(conn)
	return env, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
