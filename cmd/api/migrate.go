package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fintrack/fintrack/internal/config"
	"github.com/fintrack/fintrack/internal/repository"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		newMigrateSubcommand("up", "Apply all pending migrations", (*repository.Migrator).Up),
		newMigrateSubcommand("down", "Roll back the most recent migration", (*repository.Migrator).Down),
		newMigrateSubcommand("status", "Show the state of every migration", (*repository.Migrator).Status),
		newMigrateSubcommand("reset", "Roll back every migration and re-apply them", (*repository.Migrator).Reset),
	)

	return cmd
}

func newMigrateSubcommand(use, short string, run func(*repository.Migrator, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadMigrate()
			if err != nil {
				slog.Error("failed to load config", "error", err)
				return err
			}
			return withMigrator(cmd.Context(), cfg.DatabaseURL, slog.Default(), func(ctx context.Context, m *repository.Migrator) error {
				return run(m, ctx)
			})
		},
	}
}

func migrateUp(ctx context.Context, databaseURL string, logger *slog.Logger) error {
	return withMigrator(ctx, databaseURL, logger, func(ctx context.Context, m *repository.Migrator) error {
		return m.Up(ctx)
	})
}

func withMigrator(ctx context.Context, databaseURL string, logger *slog.Logger, fn func(context.Context, *repository.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	m, err := repository.OpenMigrator(ctx, databaseURL)
	if err != nil {
		logger.Error(
			"failed to open database for migrations",
			slog.String("error", sanitizeError(err, databaseURL)),
			slog.String("database_url", redactURL(databaseURL)),
		)
		return fmt.Errorf("migrate: %s", sanitizeError(err, databaseURL))
	}
	defer m.Close()

	if err := fn(ctx, m); err != nil {
		logger.Error("migration failed", "error", err)
		return err
	}
	logger.Info("migrations complete")
	return nil
}
