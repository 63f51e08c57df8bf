package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Proton-105/storefront-account/internal/account"
	appredis "github.com/Proton-105/storefront-account/pkg/redis"
)

const signupResultKeyPattern = "account:signup:%s"

// KeyValue is the subset of the Redis client used for signup results.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisResultRepository persists signup results in Redis.
type RedisResultRepository struct {
	client KeyValue
	ttl    time.Duration
}

// NewRedisResultRepository creates a Redis-backed result store. Results expire after ttl.
func NewRedisResultRepository(client KeyValue, ttl time.Duration) *RedisResultRepository {
	return &RedisResultRepository{client: client, ttl: ttl}
}

// Result returns the stored result or account.ErrResultNotFound.
func (r *RedisResultRepository) Result(ctx context.Context, widgetID string) (account.SignupResult, error) {
	value, err := r.client.Get(ctx, signupResultKey(widgetID))
	if err != nil {
		if appredis.IsNil(err) {
			return account.SignupResult{}, account.ErrResultNotFound
		}
		return account.SignupResult{}, fmt.Errorf("get signup result from redis: %w", err)
	}

	var result account.SignupResult
	if err := json.Unmarshal([]byte(value), &result); err != nil {
		return account.SignupResult{}, fmt.Errorf("unmarshal signup result: %w", err)
	}

	return result, nil
}

// SaveResult stores result for the widget.
func (r *RedisResultRepository) SaveResult(ctx context.Context, widgetID string, result account.SignupResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal signup result: %w", err)
	}

	if err := r.client.Set(ctx, signupResultKey(widgetID), payload, r.ttl); err != nil {
		return fmt.Errorf("set signup result to redis: %w", err)
	}

	return nil
}

// DeleteResult removes the stored result.
func (r *RedisResultRepository) DeleteResult(ctx context.Context, widgetID string) error {
	if err := r.client.Delete(ctx, signupResultKey(widgetID)); err != nil {
		return fmt.Errorf("delete signup result from redis: %w", err)
	}

	return nil
}

func signupResultKey(widgetID string) string {
	return fmt.Sprintf(signupResultKeyPattern, widgetID)
}
