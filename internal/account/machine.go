package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrResultNotFound is returned by a ResultSource that has no result for a widget.
var ErrResultNotFound = errors.New("signup result not found")

// Signer hands a signup request to the asynchronous signup collaborator.
type Signer interface {
	Dispatch(ctx context.Context, widgetID string, req SignupRequest) error
}

// ResultSource exposes the latest signup result for a widget.
type ResultSource interface {
	Result(ctx context.Context, widgetID string) (SignupResult, error)
}

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe view transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

var validationRecorder = func(field string, valid bool) {}

// RegisterValidationRecorder allows external packages to observe field validation outcomes.
func RegisterValidationRecorder(recorder func(field string, valid bool)) {
	if recorder == nil {
		validationRecorder = func(string, bool) {}
		return
	}

	validationRecorder = recorder
}

// Machine applies widget operations under a per-widget lock, persists the
// result and executes the effects that reach outside the widget.
type Machine struct {
	storage Storage
	locker  Locker
	signer  Signer
	results ResultSource
	log     *slog.Logger
	now     func() time.Time
}

// NewMachine wires a Machine. A nil locker falls back to an in-process MemoryLocker.
func NewMachine(storage Storage, locker Locker, signer Signer, results ResultSource, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	if locker == nil {
		locker = NewMemoryLocker()
	}

	return &Machine{
		storage: storage,
		locker:  locker,
		signer:  signer,
		results: results,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a fresh widget.
func (m *Machine) Create(ctx context.Context, loggedIn bool) (Widget, error) {
	w := NewWidget(uuid.NewString(), loggedIn)
	w.UpdatedAt = m.now()

	if err := m.storage.SaveWidget(ctx, w); err != nil {
		return Widget{}, err
	}

	m.log.Debug("widget created", "widget_id", w.ID, "view", w.View.String())
	return w, nil
}

// Get returns the stored widget without changing it.
func (m *Machine) Get(ctx context.Context, id string) (Widget, error) {
	return m.storage.GetWidget(ctx, id)
}

// ListWidgets returns every stored widget.
func (m *Machine) ListWidgets(ctx context.Context) ([]Widget, error) {
	return m.storage.ListWidgets(ctx)
}

// Refresh observes the current signup result when the widget waits for one.
// A missing result counts as a failed attempt.
func (m *Machine) Refresh(ctx context.Context, id string) (Widget, Effect, error) {
	return m.update(ctx, id, func(w Widget) (Widget, Effect, error) {
		if w.View != ViewValidateSignUp || m.results == nil {
			return w, Effect{}, nil
		}

		result, err := m.results.Result(ctx, id)
		if err != nil {
			if !errors.Is(err, ErrResultNotFound) {
				return w, Effect{}, err
			}
			result = SignupResult{}
		}

		next, effect := w.Observe(result)
		return next, effect, nil
	})
}

// Toggle opens or closes the widget.
func (m *Machine) Toggle(ctx context.Context, id string) (Widget, Effect, error) {
	return m.update(ctx, id, func(w Widget) (Widget, Effect, error) {
		next, effect := w.Toggle()
		return next, effect, nil
	})
}

// ChangeView performs a customer-requested view switch.
func (m *Machine) ChangeView(ctx context.Context, id string, to View) (Widget, Effect, error) {
	return m.update(ctx, id, func(w Widget) (Widget, Effect, error) {
		return w.ChangeView(to)
	})
}

// ApplyEdit stores a field edit and records its validation outcome.
func (m *Machine) ApplyEdit(ctx context.Context, id, fieldID string, value *string) (Widget, error) {
	w, _, err := m.update(ctx, id, func(w Widget) (Widget, Effect, error) {
		next, err := w.ApplyEdit(fieldID, value)
		return next, Effect{}, err
	})
	if err != nil {
		return w, err
	}

	if value != nil {
		if f, perr := ParseField(fieldID); perr == nil {
			validationRecorder(string(f), w.Validity.Valid(f))
		}
	}

	return w, nil
}

// Advance moves the signup wizard by one step.
func (m *Machine) Advance(ctx context.Context, id string, direction int) (Widget, Effect, error) {
	return m.update(ctx, id, func(w Widget) (Widget, Effect, error) {
		return w.Advance(direction)
	})
}

// Submit finishes the wizard and dispatches the signup request. A dispatch
// failure is recorded as a failed signup so the customer can retry.
func (m *Machine) Submit(ctx context.Context, id string) (Widget, Effect, error) {
	return m.update(ctx, id, func(w Widget) (Widget, Effect, error) {
		next, effect, err := w.Submit()
		if err != nil || effect.Signup == nil {
			return next, effect, err
		}

		if m.signer == nil {
			failed, _ := next.Observe(SignupResult{Status: StatusFailed})
			return failed, effect, nil
		}

		if err := m.signer.Dispatch(ctx, id, *effect.Signup); err != nil {
			m.log.Error("failed to dispatch signup", "widget_id", id, "error", err)
			failed, _ := next.Observe(SignupResult{Status: StatusFailed})
			return failed, effect, nil
		}

		return next, effect, nil
	})
}

// Retry returns a failed signup to the first wizard step.
func (m *Machine) Retry(ctx context.Context, id string) (Widget, Effect, error) {
	return m.update(ctx, id, func(w Widget) (Widget, Effect, error) {
		return w.Retry()
	})
}

// Logout resets a logged-in widget.
func (m *Machine) Logout(ctx context.Context, id string) (Widget, Effect, error) {
	return m.update(ctx, id, func(w Widget) (Widget, Effect, error) {
		return w.Logout()
	})
}

func (m *Machine) update(ctx context.Context, id string, op func(Widget) (Widget, Effect, error)) (Widget, Effect, error) {
	unlock, err := m.locker.Lock(ctx, id)
	if err != nil {
		return Widget{}, Effect{}, err
	}
	defer unlock()

	current, err := m.storage.GetWidget(ctx, id)
	if err != nil {
		return Widget{}, Effect{}, err
	}

	next, effect, err := op(current)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrStepIncomplete) {
			m.log.Warn("widget operation rejected",
				"widget_id", id,
				"view", current.View.String(),
				"step", current.Step.String(),
				"error", err,
			)
		}
		return current, Effect{}, err
	}

	next.UpdatedAt = m.now()
	if err := m.storage.SaveWidget(ctx, next); err != nil {
		return current, Effect{}, err
	}

	if current.View != next.View {
		transitionRecorder(current.View.String(), next.View.String())
		m.log.Info("widget view changed",
			"widget_id", id,
			"from", current.View.String(),
			"to", next.View.String(),
		)
	}

	return next, effect, nil
}
