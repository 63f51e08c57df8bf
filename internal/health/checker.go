package health

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Checkable represents a component that can report its health status.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// StatusOK is reported for components whose check passed.
const StatusOK = "OK"

// Checker aggregates health checks for multiple components.
type Checker struct {
	mu      sync.RWMutex
	log     *slog.Logger
	timeout time.Duration
	checks  map[string]Checkable
}

// NewChecker instantiates a Checker with the provided logger.
// Every check gets at most timeout; zero means two seconds.
func NewChecker(log *slog.Logger, timeout time.Duration) *Checker {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &Checker{
		log:     log,
		timeout: timeout,
		checks:  make(map[string]Checkable),
	}
}

// AddCheck registers a checkable component by name.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check runs all registered health checks concurrently and returns their statuses.
func (c *Checker) Check(ctx context.Context) map[string]string {
	c.mu.RLock()
	checks := make(map[string]Checkable, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(checks))
	)

	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			status := StatusOK
			if err := check.HealthCheck(checkCtx); err != nil {
				status = err.Error()
				c.log.Error("health check failed", slog.String("component", name), slog.Any("error", err))
			}

			mu.Lock()
			results[name] = status
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}

// Healthy reports whether every status in results is StatusOK.
func Healthy(results map[string]string) bool {
	for _, status := range results {
		if status != StatusOK {
			return false
		}
	}
	return true
}

// DBChecker verifies connectivity to a PostgreSQL database.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker constructs a DBChecker.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck pings the database to ensure it is reachable.
func (c *DBChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.db == nil {
		return sql.ErrConnDone
	}
	return c.db.PingContext(ctx)
}

// Pinger abstracts the subset of redis.Client used for health checks.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker verifies connectivity to a Redis instance.
type RedisChecker struct {
	pinger Pinger
}

// NewRedisChecker constructs a RedisChecker.
func NewRedisChecker(pinger Pinger) *RedisChecker {
	return &RedisChecker{pinger: pinger}
}

// HealthCheck issues a PING command against Redis.
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.pinger == nil {
		return redis.ErrClosed
	}
	return c.pinger.Ping(ctx).Err()
}

// FuncChecker adapts a plain function to Checkable.
type FuncChecker func(ctx context.Context) error

// HealthCheck calls f.
func (f FuncChecker) HealthCheck(ctx context.Context) error {
	if f == nil {
		return errors.New("no check function configured")
	}
	return f(ctx)
}
