package repository

import (
	"context"
	"sync"

	"github.com/Proton-105/storefront-account/internal/domain"
)

// MemoryCustomerRepository keeps customers in process memory.
type MemoryCustomerRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byEmail map[string]domain.Customer
}

// NewMemoryCustomerRepository returns an empty repository.
func NewMemoryCustomerRepository() *MemoryCustomerRepository {
	return &MemoryCustomerRepository{byEmail: make(map[string]domain.Customer)}
}

func (r *MemoryCustomerRepository) FindByEmail(_ context.Context, email string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return &customer, nil
}

func (r *MemoryCustomerRepository) Create(_ context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(customer.Email)
	if _, exists := r.byEmail[email]; exists {
		return ErrCustomerExists
	}

	r.nextID++
	customer.ID = r.nextID
	customer.Email = email
	r.byEmail[email] = *customer
	return nil
}
