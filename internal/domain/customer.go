package domain

import "time"

// Customer is a registered storefront customer.
type Customer struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
}
