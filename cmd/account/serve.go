package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"

	"github.com/Proton-105/storefront-account/pkg/config"
	"github.com/Proton-105/storefront-account/pkg/logger"
)

const sentryFlushTimeout = 2 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the widget HTTP server and signup workers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, v, err := loadConfig()
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	log, closer := logger.New(cfg.Logger, cfg.Sentry, level)
	defer closer.Close()
	slog.SetDefault(log)

	if cfg.Sentry.Enabled {
		environment := cfg.Sentry.Environment
		if environment == "" {
			environment = cfg.AppEnv
		}
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: environment,
			Release:     version,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(sentryFlushTimeout)
	}

	// only the log level is applied without a restart
	if err := config.Watch(v, log, func(next *config.Config) {
		level.Set(logger.ParseLevel(next.Logger.Level))
	}); err != nil {
		log.Warn("config hot reload disabled", slog.Any("error", err))
	}

	log.Info("starting storefront account service",
		slog.String("env", cfg.AppEnv),
		slog.String("addr", cfg.HTTP.Addr),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("database", cfg.Database.Driver),
		slog.String("signup", cfg.Signup.Driver),
	)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}

	return a.run(ctx)
}
