package signup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Proton-105/storefront-account/internal/account"
	"github.com/Proton-105/storefront-account/internal/domain"
	apperrors "github.com/Proton-105/storefront-account/internal/errors"
	"github.com/Proton-105/storefront-account/internal/repository"
	"github.com/Proton-105/storefront-account/pkg/metrics"
)

// ResultWriter stores the signup outcome the widget polls for.
type ResultWriter interface {
	SaveResult(ctx context.Context, widgetID string, result account.SignupResult) error
	DeleteResult(ctx context.Context, widgetID string) error
}

// ErrorReporter logs and reports failures that are not the customer's fault.
type ErrorReporter interface {
	Handle(ctx context.Context, err error) (string, bool)
}

// Service creates customer accounts from signup payloads.
type Service struct {
	customers repository.CustomerRepository
	results   ResultWriter
	breaker   *apperrors.CircuitBreaker
	retry     apperrors.RetryPolicy
	reporter  ErrorReporter
	log       *slog.Logger
	now       func() time.Time
}

// NewService wires a Service. A nil breaker gets the default configuration.
func NewService(
	customers repository.CustomerRepository,
	results ResultWriter,
	breaker *apperrors.CircuitBreaker,
	retry apperrors.RetryPolicy,
	reporter ErrorReporter,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	if breaker == nil {
		breaker = apperrors.NewCircuitBreaker()
	}

	return &Service{
		customers: customers,
		results:   results,
		breaker:   breaker,
		retry:     retry,
		reporter:  reporter,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Process registers the customer described by p and stores the outcome.
// The returned error is non-nil only when the outcome could not be stored.
// Saving is retried with the same policy as the insert.
func (s *Service) Process(ctx context.Context, p Payload) (account.SignupResult, error) {
	result := account.SignupResult{Status: s.register(ctx, p)}
	metrics.RecordSignupResult(result.Status)

	s.log.InfoContext(ctx, "signup processed",
		slog.String("widget_id", p.WidgetID),
		slog.String("status", result.Status),
	)

	err := apperrors.WithRetryPolicy(ctx, s.retry, func() error {
		if err := s.results.SaveResult(ctx, p.WidgetID, result); err != nil {
			return apperrors.NewDatabaseError(err)
		}
		return nil
	})

	return result, err
}

// Reject stores a terminal result for a request that never reached the database.
func (s *Service) Reject(ctx context.Context, widgetID, status string) error {
	metrics.RecordSignupResult(status)
	return s.results.SaveResult(ctx, widgetID, account.SignupResult{Status: status})
}

// abandon drops the loading marker of a signup that never reached a worker.
// A missing result reads as failed, so the widget does not return to pending.
func (s *Service) abandon(ctx context.Context, widgetID string) {
	metrics.RecordSignupResult(account.StatusFailed)
	if err := s.results.DeleteResult(ctx, widgetID); err != nil {
		s.log.ErrorContext(ctx, "stale signup marker not removed", slog.String("widget_id", widgetID), slog.Any("error", err))
	}
}

func (s *Service) register(ctx context.Context, p Payload) string {
	if err := p.Validate(); err != nil {
		s.log.WarnContext(ctx, "rejecting signup payload", slog.String("widget_id", p.WidgetID), slog.Any("error", err))
		return account.StatusInvalidRequest
	}

	customer := &domain.Customer{
		Email:        p.Email,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		PasswordHash: p.PasswordHash,
		CreatedAt:    s.now(),
	}

	attempts := 0
	exists, retried := false, false
	err := apperrors.WithRetryPolicy(ctx, s.retry, func() error {
		attempts++
		return s.breaker.Call(func() error {
			err := s.customers.Create(ctx, customer)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, repository.ErrCustomerExists):
				// a duplicate is a valid answer from a healthy database
				exists = true
				retried = attempts > 1
				return nil
			default:
				return apperrors.NewDatabaseError(err)
			}
		})
	})

	switch {
	case exists && retried && s.createdEarlier(ctx, p):
		return account.StatusRegistered
	case exists:
		return account.StatusCustomerExists
	case err != nil:
		if errors.Is(err, apperrors.ErrCircuitOpen) {
			metrics.RecordError("circuit_open", string(apperrors.SeverityHigh))
		} else {
			metrics.RecordError("signup", string(apperrors.SeverityHigh))
		}
		if s.reporter != nil {
			s.reporter.Handle(ctx, err)
		}
		return account.StatusFailed
	default:
		return account.StatusRegistered
	}
}

// createdEarlier reports whether the customer behind a duplicate on retry is
// the row an earlier attempt committed before its error reached us. bcrypt
// salts every hash, so only this payload carries the stored hash.
func (s *Service) createdEarlier(ctx context.Context, p Payload) bool {
	s.log.WarnContext(ctx, "duplicate customer on signup retry", slog.String("widget_id", p.WidgetID))

	existing, err := s.customers.FindByEmail(ctx, p.Email)
	if err != nil {
		s.log.ErrorContext(ctx, "duplicate customer lookup failed", slog.String("widget_id", p.WidgetID), slog.Any("error", err))
		return false
	}
	return existing.PasswordHash == p.PasswordHash
}
