package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Proton-105/storefront-account/internal/account"
)

type storedResult struct {
	result    account.SignupResult
	expiresAt time.Time
}

// MemoryResultRepository keeps signup results in process memory until they expire.
type MemoryResultRepository struct {
	mu      sync.Mutex
	ttl     time.Duration
	results map[string]storedResult
	now     func() time.Time
}

// NewMemoryResultRepository returns an empty result store.
func NewMemoryResultRepository(ttl time.Duration) *MemoryResultRepository {
	return &MemoryResultRepository{
		ttl:     ttl,
		results: make(map[string]storedResult),
		now:     time.Now,
	}
}

func (r *MemoryResultRepository) Result(_ context.Context, widgetID string) (account.SignupResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.results[widgetID]
	if !ok {
		return account.SignupResult{}, account.ErrResultNotFound
	}
	if r.ttl > 0 && r.now().After(stored.expiresAt) {
		delete(r.results, widgetID)
		return account.SignupResult{}, account.ErrResultNotFound
	}

	return stored.result, nil
}

func (r *MemoryResultRepository) SaveResult(_ context.Context, widgetID string, result account.SignupResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results[widgetID] = storedResult{result: result, expiresAt: r.now().Add(r.ttl)}
	return nil
}

func (r *MemoryResultRepository) DeleteResult(_ context.Context, widgetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.results, widgetID)
	return nil
}
