package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/storefront-account/internal/account"
	"github.com/Proton-105/storefront-account/internal/database"
	apperrors "github.com/Proton-105/storefront-account/internal/errors"
	"github.com/Proton-105/storefront-account/internal/health"
	"github.com/Proton-105/storefront-account/internal/jobs"
	"github.com/Proton-105/storefront-account/internal/lifecycle"
	"github.com/Proton-105/storefront-account/internal/ratelimit"
	"github.com/Proton-105/storefront-account/internal/repository"
	"github.com/Proton-105/storefront-account/internal/signup"
	"github.com/Proton-105/storefront-account/internal/web"
	"github.com/Proton-105/storefront-account/internal/web/view"
	"github.com/Proton-105/storefront-account/migrations"
	"github.com/Proton-105/storefront-account/pkg/config"
	"github.com/Proton-105/storefront-account/pkg/graceful"
	"github.com/Proton-105/storefront-account/pkg/metrics"
	appredis "github.com/Proton-105/storefront-account/pkg/redis"
)

const (
	healthCheckTimeout   = 2 * time.Second
	widgetLockWait       = 2 * time.Second
	widgetStatsInterval  = 15 * time.Second
	limiterSweepInterval = time.Minute
	readHeaderTimeout    = 5 * time.Second
)

// app holds the wired service. Everything it starts is stopped through shutdown.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	shutdown *lifecycle.Shutdown
	probes   *lifecycle.Probes
	handler  http.Handler

	starters   []func(ctx context.Context) error
	background []func(ctx context.Context)
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *app, err error) {
	a := &app{
		cfg:      cfg,
		log:      log,
		shutdown: lifecycle.NewShutdown(log),
	}

	// release what was opened so far when wiring fails
	defer func() {
		if err != nil {
			_ = a.shutdown.Execute(context.Background())
		}
	}()

	checker := health.NewChecker(log, healthCheckTimeout)

	var redisClient *appredis.MetricsClient
	if cfg.UsesRedis() {
		client, err := appredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		redisClient = appredis.NewMetricsClient(client)
		checker.AddCheck("redis", health.NewRedisChecker(redisClient))
		a.shutdown.Register(lifecycle.PhaseResources, "redis", func(context.Context) error {
			return redisClient.Close()
		})
	}

	var (
		storage account.Storage
		locker  account.Locker
		results interface {
			account.ResultSource
			signup.ResultWriter
		}
	)
	if cfg.Storage.Driver == "redis" {
		storage = account.NewRedisStorage(redisClient.Unwrap(), log, cfg.Storage.WidgetTTL)
		locker = account.NewRedisLocker(redisClient.Unwrap(), log, widgetLockWait)
	} else {
		storage = account.NewMemoryStorage()
		locker = account.NewMemoryLocker()
	}
	if redisClient != nil {
		results = repository.NewRedisResultRepository(redisClient, cfg.Signup.ResultTTL)
	} else {
		results = repository.NewMemoryResultRepository(cfg.Signup.ResultTTL)
	}

	customers, err := a.openCustomers(ctx, checker)
	if err != nil {
		return nil, err
	}

	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)
	service := signup.NewService(
		customers,
		results,
		apperrors.NewCircuitBreaker(),
		apperrors.DefaultRetryPolicy(),
		errHandler,
		log.With(slog.String("component", "signup")),
	)

	signer, err := a.signupDispatcher(service)
	if err != nil {
		return nil, err
	}

	machine := account.NewMachine(storage, locker, signer, results, log.With(slog.String("component", "account")))
	cleaner := account.NewCleaner(storage, locker, log, cfg.Storage.WidgetTTL, cfg.Storage.CleanupInterval)
	collector := metrics.NewWidgetCollector(machine, widgetStatsInterval, log)
	a.background = append(a.background, cleaner.Run, collector.Run)

	rules := ratelimit.NewRules(cfg.RateLimit)
	memoryLimiter := ratelimit.NewMemoryLimiter(log)
	a.background = append(a.background, func(ctx context.Context) {
		memoryLimiter.Run(ctx, limiterSweepInterval, rules.MaxWindow())
	})

	var limiter ratelimit.Limiter = memoryLimiter
	if redisClient != nil {
		limiter = ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(redisClient.Unwrap(), log), memoryLimiter, log)
		a.background = append(a.background, ratelimit.NewCleaner(redisClient.Unwrap(), log, limiterSweepInterval, rules.MaxWindow()).Run)
	}

	a.probes = lifecycle.NewProbes(checker, log)
	a.handler = web.NewServer(web.Deps{
		Machine:  machine,
		Sessions: web.NewSessionStore(cfg.HTTP.SessionSecret, cfg.HTTP.SecureCookies),
		Options: view.Options{
			SignInURL:        cfg.Widget.SignInURL,
			ResetPasswordURL: cfg.Widget.ResetPasswordURL,
			AccountURL:       cfg.Widget.AccountURL,
			OrdersURL:        cfg.Widget.OrdersURL,
			PollInterval:     cfg.Widget.PollInterval,
		},
		Limiter: limiter,
		Rules:   rules,
		Checker: checker,
		Probes:  a.probes,
		Errors:  errHandler,
		Log:     log,
	})

	return a, nil
}

// openCustomers returns the customer repository selected by the database driver.
// Postgres connections get the embedded migrations applied first.
func (a *app) openCustomers(ctx context.Context, checker *health.Checker) (repository.CustomerRepository, error) {
	if a.cfg.Database.Driver != "postgres" {
		return repository.NewMemoryCustomerRepository(), nil
	}

	db, err := database.Open(ctx, a.cfg.Database.DSN, a.cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	a.shutdown.Register(lifecycle.PhaseResources, "postgres", func(context.Context) error {
		return db.Close()
	})

	if err := database.NewMigrator(db, a.log).Apply(ctx, migrations.FS, "."); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	checker.AddCheck("postgres", health.NewDBChecker(db))
	return repository.NewCustomerRepository(db, a.log), nil
}

// signupDispatcher builds the signer for the configured driver and registers
// its start and stop hooks.
func (a *app) signupDispatcher(service *signup.Service) (account.Signer, error) {
	cfg := a.cfg.Signup

	switch cfg.Driver {
	case "asynq":
		redisOpt := asynq.RedisClientOpt{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
			PoolSize: a.cfg.Redis.PoolSize,
		}

		manager := jobs.NewManager(redisOpt, a.log)
		worker := jobs.NewWorker(redisOpt, map[string]int{cfg.Queue: 1}, cfg.Concurrency, a.log)
		worker.RegisterHandler(signup.TaskTypeSignup, signup.NewTaskHandler(service))

		a.starters = append(a.starters, func(context.Context) error {
			return worker.Start()
		})
		a.shutdown.Register(lifecycle.PhaseIngress, "signup-worker", func(context.Context) error {
			worker.Shutdown()
			return nil
		})
		a.shutdown.Register(lifecycle.PhaseResources, "signup-queue", func(context.Context) error {
			return manager.Close()
		})

		return signup.NewAsynqDispatcher(manager, service, cfg.Queue, cfg.MaxRetry, cfg.HashCost, a.log), nil
	case "channel":
		dispatcher := signup.NewChannelDispatcher(service, cfg.Queue, cfg.Concurrency, cfg.HashCost, a.log)

		a.starters = append(a.starters, dispatcher.Start)
		a.shutdown.Register(lifecycle.PhaseWorkers, "signup-channel", func(context.Context) error {
			return dispatcher.Close()
		})

		return dispatcher, nil
	default:
		return nil, fmt.Errorf("unknown signup driver %q", cfg.Driver)
	}
}

// run serves HTTP until ctx is cancelled, then executes the shutdown phases.
func (a *app) run(ctx context.Context) error {
	bgCtx, cancelBackground := context.WithCancel(ctx)
	var wg sync.WaitGroup

	a.shutdown.Register(lifecycle.PhaseWorkers, "background", func(context.Context) error {
		cancelBackground()
		wg.Wait()
		return nil
	})

	for _, start := range a.starters {
		if err := start(bgCtx); err != nil {
			cancelBackground()
			return fmt.Errorf("start worker: %w", err)
		}
	}

	for _, task := range a.background {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task(bgCtx)
		}()
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	serveErr := graceful.NewServer(a.log, srv, a.cfg.HTTP.ShutdownTimeout, a.probes.Drain).ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := a.shutdown.Execute(shutdownCtx); err != nil {
		a.log.Error("shutdown finished with errors", slog.Any("error", err))
		if serveErr == nil {
			serveErr = err
		}
	}

	return serveErr
}
