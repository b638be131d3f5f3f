package main

import (
	"github.com/rpattn/cagetrack/internal/db"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(db.Up), string(db.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			conn, err := db.NewConnection(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			direction := db.Direction(args[0])
			if err := db.RunMigrations(conn.Pool, direction); err != nil {
				return err
			}
			logger.Info("migrations applied", zap.String("direction", string(direction)))
			return nil
		},
	}
	return cmd
}
