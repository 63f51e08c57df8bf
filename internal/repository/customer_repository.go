// Package repository implements persistence for customers and signup results.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/Proton-105/storefront-account/internal/domain"
)

const uniqueViolation = "23505"

var (
	// ErrCustomerExists indicates that the email is already registered.
	ErrCustomerExists = errors.New("customer already exists")
	// ErrCustomerNotFound indicates that no customer matches the lookup.
	ErrCustomerNotFound = errors.New("customer not found")
)

// CustomerRepository defines persistence operations for customers.
type CustomerRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Customer, error)
	Create(ctx context.Context, customer *domain.Customer) error
}

type customerRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewCustomerRepository creates a PostgreSQL-backed customer repository.
func NewCustomerRepository(db *sql.DB, log *slog.Logger) CustomerRepository {
	if log == nil {
		log = slog.Default()
	}

	return &customerRepository{
		db:  db,
		log: log,
	}
}

// FindByEmail retrieves a customer by email, compared case-insensitively.
func (r *customerRepository) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const query = `
		SELECT id, email, first_name, last_name, password_hash, created_at
		FROM customers
		WHERE email = $1
	`

	row := r.db.QueryRowContext(ctx, query, normalizeEmail(email))

	var customer domain.Customer
	if err := row.Scan(
		&customer.ID,
		&customer.Email,
		&customer.FirstName,
		&customer.LastName,
		&customer.PasswordHash,
		&customer.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}

		r.log.Error("failed to fetch customer by email", slog.Any("error", err))
		return nil, fmt.Errorf("select customer by email: %w", err)
	}

	return &customer, nil
}

// Create persists a new customer and fills its generated id.
func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	const query = `
		INSERT INTO customers (email, first_name, last_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	customer.Email = normalizeEmail(customer.Email)

	if err := r.db.QueryRowContext(
		ctx,
		query,
		customer.Email,
		customer.FirstName,
		customer.LastName,
		customer.PasswordHash,
		customer.CreatedAt,
	).Scan(&customer.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrCustomerExists
		}

		r.log.Error("failed to create customer", slog.Any("error", err))
		return fmt.Errorf("insert customer: %w", err)
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
