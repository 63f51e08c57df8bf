package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	widgetKeyPattern  = "account:widget:%s"
	widgetScanPattern = "account:widget:*"
	widgetScanBatch   = 100
)

// RedisStorage persists widgets in Redis as JSON with a sliding TTL.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewRedisStorage initializes a Redis-backed Storage implementation.
func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

// GetWidget returns the stored widget or ErrWidgetNotFound when absent.
func (s *RedisStorage) GetWidget(ctx context.Context, id string) (Widget, error) {
	data, err := s.client.Get(ctx, widgetKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Widget{}, ErrWidgetNotFound
		}

		s.log.Error("failed to get widget from redis", "widget_id", id, "error", err)
		return Widget{}, err
	}

	var w Widget
	if err := json.Unmarshal(data, &w); err != nil {
		s.log.Error("failed to decode widget", "widget_id", id, "error", err)
		return Widget{}, err
	}

	return w, nil
}

// SaveWidget stores the widget and refreshes its TTL.
func (s *RedisStorage) SaveWidget(ctx context.Context, w Widget) error {
	data, err := json.Marshal(w)
	if err != nil {
		s.log.Error("failed to encode widget", "widget_id", w.ID, "error", err)
		return err
	}

	if err := s.client.Set(ctx, widgetKey(w.ID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save widget in redis", "widget_id", w.ID, "error", err)
		return err
	}

	return nil
}

// DeleteWidget removes the stored widget.
func (s *RedisStorage) DeleteWidget(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, widgetKey(id)).Err(); err != nil {
		s.log.Error("failed to delete widget", "widget_id", id, "error", err)
		return err
	}

	return nil
}

// ListWidgets retrieves every stored widget by scanning Redis keys.
func (s *RedisStorage) ListWidgets(ctx context.Context) ([]Widget, error) {
	var (
		cursor uint64
		result []Widget
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, widgetScanPattern, widgetScanBatch).Result()
		if err != nil {
			s.log.Error("failed to scan widgets", "error", err)
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch widget", "key", key, "error", err)
				return nil, err
			}

			var w Widget
			if err := json.Unmarshal(data, &w); err != nil {
				s.log.Error("failed to decode widget", "key", key, "error", err)
				continue
			}

			result = append(result, w)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func widgetKey(id string) string {
	return fmt.Sprintf(widgetKeyPattern, id)
}
