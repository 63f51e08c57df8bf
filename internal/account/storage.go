// Package account manages account widget instances and their view state machine.
package account

import (
	"context"
	"errors"
)

// ErrWidgetNotFound indicates that a widget instance does not exist or expired.
var ErrWidgetNotFound = errors.New("widget not found")

// Storage defines the persistence contract for widget instances.
type Storage interface {
	// GetWidget returns the widget with the given id or ErrWidgetNotFound.
	GetWidget(ctx context.Context, id string) (Widget, error)
	// SaveWidget stores w under w.ID.
	SaveWidget(ctx context.Context, w Widget) error
	// DeleteWidget removes the widget with the given id.
	DeleteWidget(ctx context.Context, id string) error
	// ListWidgets returns every stored widget.
	ListWidgets(ctx context.Context) ([]Widget, error)
}
