package health

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestChecker_Check(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checker := NewChecker(nil, time.Second)
	checker.AddCheck("redis", NewRedisChecker(client))
	checker.AddCheck("worker", FuncChecker(func(context.Context) error { return errors.New("stopped") }))
	checker.AddCheck("db", NewDBChecker(nil))
	checker.AddCheck("", FuncChecker(nil))

	results := checker.Check(context.Background())

	assert.Len(t, results, 3)
	assert.Equal(t, StatusOK, results["redis"])
	assert.Equal(t, "stopped", results["worker"])
	assert.Equal(t, sql.ErrConnDone.Error(), results["db"])
	assert.False(t, Healthy(results))
}

func TestChecker_TimesOutSlowChecks(t *testing.T) {
	checker := NewChecker(nil, 20*time.Millisecond)
	checker.AddCheck("slow", FuncChecker(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	results := checker.Check(context.Background())
	assert.Equal(t, context.DeadlineExceeded.Error(), results["slow"])
}

func TestHealthy(t *testing.T) {
	assert.True(t, Healthy(map[string]string{}))
	assert.True(t, Healthy(map[string]string{"redis": StatusOK}))
}
