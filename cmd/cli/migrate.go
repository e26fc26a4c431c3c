package main

import (
	"context"
	"fmt"
	"time"

	"github.com/akeren/acs-site/config"
	"github.com/akeren/acs-site/pkg/migrations"
	"github.com/akeren/acs-site/pkg/utils"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newMigrateCmd() *cobra.Command {
	var migrationsDir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the dispatch record schema",
	}
	cmd.PersistentFlags().StringVar(&migrationsDir, "dir", "", "migrations directory (default $MIGRATIONS_DIR or ./migrations)")

	resolveConfig := func() (*config.DBConfig, migrations.Config) {
		dbCfg := config.NewDBConfigFromEnv()
		dir := migrationsDir
		if dir == "" {
			dir = utils.GetEnvTrimmedOrDefault("MIGRATIONS_DIR", "migrations")
		}
		return dbCfg, migrations.Config{Dir: dir, Driver: dbCfg.MigrationDriver(), Logger: logger}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg, migrateCfg := resolveConfig()
			return withDatabase(dbCfg, func(db *gorm.DB) error {
				sqlDB, err := db.DB()
				if err != nil {
					return fmt.Errorf("get SQL DB instance: %w", err)
				}

				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
				defer cancel()

				if err := migrations.Up(ctx, sqlDB, migrateCfg); err != nil {
					return fmt.Errorf("database migration failed: %w", err)
				}

				logger.Info("Database migrations completed")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg, migrateCfg := resolveConfig()
			return withDatabase(dbCfg, func(db *gorm.DB) error {
				sqlDB, err := db.DB()
				if err != nil {
					return fmt.Errorf("get SQL DB instance: %w", err)
				}

				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()

				status, err := migrations.CurrentStatus(ctx, sqlDB, migrateCfg)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				switch {
				case status.Pending:
					fmt.Fprintln(out, "No migrations applied")
				case status.Dirty:
					fmt.Fprintf(out, "Version %d (dirty, fix manually before migrating again)\n", status.Version)
				default:
					fmt.Fprintf(out, "Version %d\n", status.Version)
				}
				return nil
			})
		},
	})

	return cmd
}

// withDatabase opens the configured database for the duration of fn.
func withDatabase(dbCfg *config.DBConfig, fn func(db *gorm.DB) error) error {
	db, err := config.NewDatabase(logger, dbCfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer config.CloseDatabase(db, logger)

	return fn(db)
}
