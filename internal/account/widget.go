package account

import (
	"errors"
	"time"
)

var (
	// ErrInvalidTransition indicates that the requested view change is not allowed.
	ErrInvalidTransition = errors.New("invalid view transition")
	// ErrStepIncomplete indicates that a wizard step still has invalid fields.
	ErrStepIncomplete = errors.New("wizard step has invalid fields")
)

// Signup statuses. Only StatusRegistered logs the customer in.
const (
	StatusRegistered     = "account_registered"
	StatusCustomerExists = "customer_exists"
	StatusInvalidRequest = "invalid_request"
	StatusFailed         = "failed"
)

// SignupResult is the externally observed outcome of a signup request.
type SignupResult struct {
	Status  string `json:"status"`
	Loading bool   `json:"loading"`
}

// Registered reports whether the account was created.
func (r SignupResult) Registered() bool {
	return r.Status == StatusRegistered
}

// SignupCustomer is the customer part of a signup request.
type SignupCustomer struct {
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// SignupRequest is handed to the signup collaborator on submit.
type SignupRequest struct {
	Customer SignupCustomer `json:"customer"`
	Password string         `json:"password"`
}

// Effect describes what the caller must do after an operation. Widget
// operations never perform I/O themselves.
type Effect struct {
	// RestoreFocus asks the renderer to move focus back to the toggle button.
	RestoreFocus bool
	// Signup carries the request to dispatch after a submit.
	Signup *SignupRequest
	// LoggedIn is set once, when a registered result moved the widget to LoggedIn.
	LoggedIn bool
	// LoggedOut is set when the customer left the LoggedIn view.
	LoggedOut bool
}

// Widget is one account widget instance. All operations are pure: they return
// the next Widget and leave the receiver untouched.
type Widget struct {
	ID         string        `json:"id"`
	View       View          `json:"view"`
	Step       Step          `json:"step"`
	Draft      Draft         `json:"draft"`
	Validity   Validity      `json:"validity"`
	IsOpen     bool          `json:"is_open"`
	IsLoggedIn bool          `json:"is_logged_in"`
	Prefilled  bool          `json:"prefilled"`
	Outcome    *SignupResult `json:"outcome,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// NewWidget returns a closed widget. Customers with an active session start in LoggedIn.
func NewWidget(id string, loggedIn bool) Widget {
	w := Widget{
		ID:       id,
		View:     ViewSignIn,
		Step:     StepPersonalDetails,
		Draft:    NewDraft(),
		Validity: NewValidity(),
	}
	if loggedIn {
		w.View = ViewLoggedIn
		w.IsLoggedIn = true
	}
	return w
}

// withView switches the view and clears both password fields with their flags.
func (w Widget) withView(to View) Widget {
	w.View = to
	w.Draft = w.Draft.With(FieldPassword, "").With(FieldConfirmPassword, "")
	w.Validity = w.Validity.With(FieldPassword, false).With(FieldConfirmPassword, false)
	return w
}

// withStep moves the wizard and applies the step-change resets.
func (w Widget) withStep(to Step) Widget {
	from := w.Step
	w.Step = clampStep(to)

	w.Draft = w.Draft.With(FieldConfirmPassword, "")
	w.Validity = w.Validity.
		With(FieldConfirmPassword, false).
		With(FieldAddressFirstName, true).
		With(FieldAddressLastName, true)

	if from == StepPersonalDetails && w.Step > from && !w.Prefilled {
		w.Draft = prefill(w.Draft, FieldAddressFirstName, FieldFirstName)
		w.Draft = prefill(w.Draft, FieldAddressLastName, FieldLastName)
		w.Prefilled = true
	}

	return w
}

func prefill(d Draft, target, source Field) Draft {
	if d.Get(target) != "" || d.Get(source) == "" {
		return d
	}
	return d.With(target, d.Get(source))
}

// ChangeView performs a customer-requested view switch.
func (w Widget) ChangeView(to View) (Widget, Effect, error) {
	if !IsTransitionAllowed(w.View, to) {
		return w, Effect{}, ErrInvalidTransition
	}
	return w.withView(to), Effect{RestoreFocus: true}, nil
}

// Toggle opens or closes the widget. Views other than LoggedIn and
// ValidateSignUp fall back to SignIn.
func (w Widget) Toggle() (Widget, Effect) {
	if w.View != ViewLoggedIn && w.View != ViewValidateSignUp && w.View != ViewSignIn {
		w = w.withView(ViewSignIn)
	}
	w.IsOpen = !w.IsOpen
	return w, Effect{RestoreFocus: true}
}

// ApplyEdit stores value under the normalised field id and revalidates that
// field. A nil value leaves the widget untouched. Validity is recomputed even
// when the value did not change.
func (w Widget) ApplyEdit(fieldID string, value *string) (Widget, error) {
	f, err := ParseField(fieldID)
	if err != nil {
		return w, err
	}
	if value == nil {
		return w, nil
	}

	if w.Draft.Get(f) != *value {
		w.Draft = w.Draft.With(f, *value)
	}
	w.Validity = w.Validity.With(f, ValidateField(f, *value, w.Draft))

	return w, nil
}

// StepComplete reports whether every field of step s is valid.
func (w Widget) StepComplete(s Step) bool {
	return w.Validity.All(stepFields[s]...)
}

// CanAdvance reports whether the "next step" control is enabled.
func (w Widget) CanAdvance() bool {
	return w.View == ViewCreateAccount && w.Step < LastStep && w.StepComplete(w.Step)
}

// CanGoBack reports whether the "previous step" control is enabled.
func (w Widget) CanGoBack() bool {
	return w.View == ViewCreateAccount && w.Step > StepPersonalDetails
}

// CanSubmit reports whether the "sign up" control is enabled.
func (w Widget) CanSubmit() bool {
	return w.View == ViewCreateAccount && w.Step == LastStep && w.StepComplete(w.Step)
}

// Advance moves the wizard one step in the sign of direction. Moving forward
// requires the current step to be complete; moving past either end is a no-op.
func (w Widget) Advance(direction int) (Widget, Effect, error) {
	if w.View != ViewCreateAccount {
		return w, Effect{}, ErrInvalidTransition
	}

	switch {
	case direction > 0:
		if !w.StepComplete(w.Step) {
			return w, Effect{}, ErrStepIncomplete
		}
		return w.withStep(w.Step + 1), Effect{RestoreFocus: true}, nil
	case direction < 0:
		return w.withStep(w.Step - 1), Effect{RestoreFocus: true}, nil
	default:
		return w, Effect{}, nil
	}
}

// Submit finishes the wizard and moves to ValidateSignUp. The returned effect
// carries the signup request built before the password reset.
func (w Widget) Submit() (Widget, Effect, error) {
	if w.View != ViewCreateAccount || w.Step != LastStep {
		return w, Effect{}, ErrInvalidTransition
	}
	if !w.StepComplete(w.Step) {
		return w, Effect{}, ErrStepIncomplete
	}

	req := &SignupRequest{
		Customer: SignupCustomer{
			Email:     w.Draft.Get(FieldEmail),
			FirstName: w.Draft.Get(FieldFirstName),
			LastName:  w.Draft.Get(FieldLastName),
		},
		Password: w.Draft.Get(FieldPassword),
	}

	next := w.withView(ViewValidateSignUp)
	next.Outcome = &SignupResult{Loading: true}

	return next, Effect{RestoreFocus: true, Signup: req}, nil
}

// Observe records the latest signup result. A registered result moves the
// widget to LoggedIn at most once; repeated observations are no-ops.
func (w Widget) Observe(result SignupResult) (Widget, Effect) {
	if w.View != ViewValidateSignUp {
		return w, Effect{}
	}

	observed := result
	w.Outcome = &observed

	if result.Registered() && !w.IsLoggedIn {
		w.IsLoggedIn = true
		return w.withView(ViewLoggedIn), Effect{RestoreFocus: true, LoggedIn: true}
	}

	return w, Effect{}
}

// Failed reports whether the last observed signup attempt failed.
func (w Widget) Failed() bool {
	return w.View == ViewValidateSignUp &&
		w.Outcome != nil &&
		!w.Outcome.Loading &&
		!w.Outcome.Registered()
}

// Pending reports whether the widget waits for a signup result.
func (w Widget) Pending() bool {
	return w.View == ViewValidateSignUp && !w.Failed()
}

// Retry returns a failed signup to the first wizard step.
func (w Widget) Retry() (Widget, Effect, error) {
	if !w.Failed() {
		return w, Effect{}, ErrInvalidTransition
	}

	next := w.withStep(StepPersonalDetails).withView(ViewCreateAccount)
	next.Outcome = nil

	return next, Effect{RestoreFocus: true}, nil
}

// Logout resets a logged-in widget to a fresh SignIn view.
func (w Widget) Logout() (Widget, Effect, error) {
	if w.View != ViewLoggedIn {
		return w, Effect{}, ErrInvalidTransition
	}

	next := NewWidget(w.ID, false)
	next.IsOpen = w.IsOpen
	next.UpdatedAt = w.UpdatedAt

	return next, Effect{RestoreFocus: true, LoggedOut: true}, nil
}
