package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/storefront-account/internal/account"
	"github.com/Proton-105/storefront-account/internal/jobs"
)

// AsynqDispatcher enqueues signup requests to Redis for the worker process.
type AsynqDispatcher struct {
	manager  jobs.Manager
	service  *Service
	queue    string
	maxRetry int
	hashCost int
	log      *slog.Logger
}

var _ account.Signer = (*AsynqDispatcher)(nil)

// NewAsynqDispatcher creates a dispatcher enqueueing on queue.
func NewAsynqDispatcher(manager jobs.Manager, service *Service, queue string, maxRetry, hashCost int, log *slog.Logger) *AsynqDispatcher {
	if log == nil {
		log = slog.Default()
	}
	if queue == "" {
		queue = jobs.QueueCritical
	}

	return &AsynqDispatcher{
		manager:  manager,
		service:  service,
		queue:    queue,
		maxRetry: maxRetry,
		hashCost: hashCost,
		log:      log,
	}
}

// Dispatch marks the signup as loading and enqueues it.
func (d *AsynqDispatcher) Dispatch(ctx context.Context, widgetID string, req account.SignupRequest) error {
	payload, err := NewPayload(widgetID, req, d.hashCost)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			return d.service.Reject(ctx, widgetID, account.StatusInvalidRequest)
		}
		return err
	}

	if err := d.service.results.SaveResult(ctx, widgetID, account.SignupResult{Loading: true}); err != nil {
		return fmt.Errorf("mark signup loading: %w", err)
	}

	task, err := jobs.NewTask(TaskTypeSignup, payload, asynq.Queue(d.queue), asynq.MaxRetry(d.maxRetry))
	if err != nil {
		d.service.abandon(ctx, widgetID)
		return err
	}

	if _, err := d.manager.Enqueue(ctx, task); err != nil {
		d.service.abandon(ctx, widgetID)
		return fmt.Errorf("enqueue signup: %w", err)
	}

	return nil
}

// TaskHandler processes queued signup tasks.
type TaskHandler struct {
	service *Service
}

var _ asynq.Handler = (*TaskHandler)(nil)

func NewTaskHandler(service *Service) *TaskHandler {
	return &TaskHandler{service: service}
}

// ProcessTask implements asynq.Handler. Only a failure to store the result is retried.
func (h *TaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload Payload
	if err := jobs.DecodePayload(t, &payload); err != nil {
		return err
	}

	_, err := h.service.Process(ctx, payload)
	return err
}
