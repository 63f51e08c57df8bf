package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Proton-105/storefront-account/internal/database"
	"github.com/Proton-105/storefront-account/migrations"
	"github.com/Proton-105/storefront-account/pkg/logger"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending customer database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.Driver != "postgres" {
			return fmt.Errorf("database driver %q has no migrations", cfg.Database.Driver)
		}

		log, closer := logger.New(cfg.Logger, cfg.Sentry, nil)
		defer closer.Close()

		ctx := cmd.Context()
		db, err := database.Open(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns)
		if err != nil {
			return err
		}
		defer db.Close()

		migrator := database.NewMigrator(db, log)
		if migrationsDir != "" {
			err = migrator.ApplyDir(ctx, migrationsDir)
		} else {
			err = migrator.Apply(ctx, migrations.FS, ".")
		}
		if err != nil {
			return err
		}

		log.Info("database migrations applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "", "read migrations from this directory instead of the embedded set")
}
