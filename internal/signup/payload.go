// Package signup turns submitted signup requests into customer accounts and
// publishes the outcome for the widget to observe.
package signup

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/Proton-105/storefront-account/internal/account"
)

// TaskTypeSignup identifies queued signup requests.
const TaskTypeSignup = "account:signup"

// bcrypt rejects longer input.
const maxPasswordBytes = 72

// ErrInvalidRequest marks a signup request that can never be processed.
var ErrInvalidRequest = errors.New("invalid signup request")

var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

// Payload is the queued form of a signup request. The password only travels as a bcrypt hash.
type Payload struct {
	WidgetID     string `json:"widget_id" validate:"required"`
	Email        string `json:"email" validate:"required,max=254"`
	FirstName    string `json:"firstname" validate:"required,max=128"`
	LastName     string `json:"lastname" validate:"required,max=128"`
	PasswordHash string `json:"password_hash" validate:"required"`
}

// NewPayload hashes the password of req and checks the structural limits of the result.
func NewPayload(widgetID string, req account.SignupRequest, cost int) (Payload, error) {
	if err := payloadValidator.Var(req.Password, "required"); err != nil {
		return Payload{}, fmt.Errorf("%w: password: %v", ErrInvalidRequest, err)
	}
	if len(req.Password) > maxPasswordBytes {
		return Payload{}, fmt.Errorf("%w: password longer than %d bytes", ErrInvalidRequest, maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), cost)
	if err != nil {
		return Payload{}, fmt.Errorf("hash password: %w", err)
	}

	p := Payload{
		WidgetID:     widgetID,
		Email:        req.Customer.Email,
		FirstName:    req.Customer.FirstName,
		LastName:     req.Customer.LastName,
		PasswordHash: string(hash),
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}

	return p, nil
}

// Validate reports structural problems as ErrInvalidRequest.
func (p Payload) Validate() error {
	if err := payloadValidator.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
