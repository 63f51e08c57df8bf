package account

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Cleaner removes widgets that have been idle for longer than ttl.
type Cleaner struct {
	storage  Storage
	locker   Locker
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewCleaner constructs a Cleaner instance. It must share the Machine's
// locker so a widget is never removed while an operation holds it.
// A nil locker falls back to an in-process MemoryLocker.
func NewCleaner(storage Storage, locker Locker, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if locker == nil {
		locker = NewMemoryLocker()
	}

	return &Cleaner{
		storage:  storage,
		locker:   locker,
		log:      log,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.storage == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("widget cleaner stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup performs a single pass and returns the number of removed widgets.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	widgets, err := c.storage.ListWidgets(ctx)
	if err != nil {
		c.log.Error("widget cleaner list failed", slog.Any("error", err))
		return 0
	}

	removed := 0
	for _, w := range widgets {
		if !c.idle(w) {
			continue
		}

		ok, err := c.expire(ctx, w.ID)
		if err != nil {
			c.log.Error("widget cleaner failed to delete widget", slog.String("widget_id", w.ID), slog.Any("error", err))
			continue
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		c.log.Info("idle widgets removed", slog.Int("count", removed))
	}

	return removed
}

func (c *Cleaner) idle(w Widget) bool {
	return c.now().Sub(w.UpdatedAt) > c.ttl
}

// expire deletes the widget under its lock after re-reading it, since the
// listed copy may predate a concurrent update.
func (c *Cleaner) expire(ctx context.Context, id string) (bool, error) {
	unlock, err := c.locker.Lock(ctx, id)
	if err != nil {
		if errors.Is(err, ErrWidgetLocked) {
			// in use right now, so not idle
			return false, nil
		}
		return false, err
	}
	defer unlock()

	current, err := c.storage.GetWidget(ctx, id)
	switch {
	case errors.Is(err, ErrWidgetNotFound):
		return false, nil
	case err != nil:
		return false, err
	case !c.idle(current):
		return false, nil
	}

	if err := c.storage.DeleteWidget(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}
