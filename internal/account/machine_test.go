package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStorageFailure = errors.New("storage error")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetWidget(ctx context.Context, id string) (Widget, error) {
	args := m.Called(ctx, id)
	w, _ := args.Get(0).(Widget)
	return w, args.Error(1)
}

func (m *mockStorage) SaveWidget(ctx context.Context, w Widget) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *mockStorage) DeleteWidget(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStorage) ListWidgets(ctx context.Context) ([]Widget, error) {
	args := m.Called(ctx)
	widgets, _ := args.Get(0).([]Widget)
	return widgets, args.Error(1)
}

type mockSigner struct {
	mock.Mock
}

func (m *mockSigner) Dispatch(ctx context.Context, widgetID string, req SignupRequest) error {
	args := m.Called(ctx, widgetID, req)
	return args.Error(0)
}

type stubResults struct {
	result SignupResult
	err    error
	calls  int
}

func (s *stubResults) Result(context.Context, string) (SignupResult, error) {
	s.calls++
	return s.result, s.err
}

func TestMachine_ChangeView(t *testing.T) {
	ctx := context.Background()
	widgetID := "w-42"
	log := testLogger()

	testCases := []struct {
		name        string
		setupMocks  func(ms *mockStorage)
		to          View
		expectedErr error
	}{
		{
			name: "successful transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetWidget", mock.Anything, widgetID).
					Return(NewWidget(widgetID, false), nil).Once()
				ms.On("SaveWidget", mock.Anything, mock.MatchedBy(func(w Widget) bool {
					return w.View == ViewCreateAccount && !w.UpdatedAt.IsZero()
				})).Return(nil).Once()
			},
			to: ViewCreateAccount,
		},
		{
			name: "invalid transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetWidget", mock.Anything, widgetID).
					Return(NewWidget(widgetID, false), nil).Once()
			},
			to:          ViewLoggedIn,
			expectedErr: ErrInvalidTransition,
		},
		{
			name: "missing widget",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetWidget", mock.Anything, widgetID).
					Return(Widget{}, ErrWidgetNotFound).Once()
			},
			to:          ViewCreateAccount,
			expectedErr: ErrWidgetNotFound,
		},
		{
			name: "storage failure on save",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetWidget", mock.Anything, widgetID).
					Return(NewWidget(widgetID, false), nil).Once()
				ms.On("SaveWidget", mock.Anything, mock.Anything).Return(errStorageFailure).Once()
			},
			to:          ViewForgotPassword,
			expectedErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			machine := NewMachine(ms, nil, nil, nil, log)
			_, effect, err := machine.ChangeView(ctx, widgetID, tc.to)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.False(t, effect.RestoreFocus)
			} else {
				assert.NoError(t, err)
				assert.True(t, effect.RestoreFocus)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestMachine_RecordsTransitions(t *testing.T) {
	var (
		mu       sync.Mutex
		recorded [][2]string
	)
	RegisterTransitionRecorder(func(from, to string) {
		mu.Lock()
		defer mu.Unlock()
		recorded = append(recorded, [2]string{from, to})
	})
	t.Cleanup(func() { RegisterTransitionRecorder(nil) })

	ctx := context.Background()
	machine := NewMachine(NewMemoryStorage(), nil, nil, nil, testLogger())

	w, err := machine.Create(ctx, false)
	require.NoError(t, err)

	_, _, err = machine.ChangeView(ctx, w.ID, ViewForgotPassword)
	require.NoError(t, err)
	_, _, err = machine.ChangeView(ctx, w.ID, ViewSignIn)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][2]string{{"signIn", "forgotPassword"}, {"forgotPassword", "signIn"}}, recorded)
}

func TestMachine_ApplyEditRecordsValidation(t *testing.T) {
	var got []string
	RegisterValidationRecorder(func(field string, valid bool) {
		if valid {
			got = append(got, field+":valid")
			return
		}
		got = append(got, field+":invalid")
	})
	t.Cleanup(func() { RegisterValidationRecorder(nil) })

	ctx := context.Background()
	machine := NewMachine(NewMemoryStorage(), nil, nil, nil, testLogger())
	w, err := machine.Create(ctx, false)
	require.NoError(t, err)

	w, err = machine.ApplyEdit(ctx, w.ID, "address-telephone", strPtr("+37112345678"))
	require.NoError(t, err)
	assert.True(t, w.Validity.Valid(FieldAddressTelephone))

	_, err = machine.ApplyEdit(ctx, w.ID, "email", strPtr("nope"))
	require.NoError(t, err)

	_, err = machine.ApplyEdit(ctx, w.ID, "email", nil)
	require.NoError(t, err)

	_, err = machine.ApplyEdit(ctx, w.ID, "nickname", strPtr("x"))
	assert.ErrorIs(t, err, ErrUnknownField)

	assert.Equal(t, []string{"addresstelephone:valid", "email:invalid"}, got)
}

func TestMachine_SignupFlow(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	signer := &mockSigner{}
	results := &stubResults{result: SignupResult{Loading: true}}
	machine := NewMachine(storage, nil, signer, results, testLogger())

	w := shippingAddress(t)
	w.ID = "w-signup"
	require.NoError(t, storage.SaveWidget(ctx, w))

	signer.On("Dispatch", mock.Anything, "w-signup", SignupRequest{
		Customer: SignupCustomer{Email: "andy@example.com", FirstName: "Andy", LastName: "Kek"},
		Password: "Reactkek123",
	}).Return(nil).Once()

	submitted, effect, err := machine.Submit(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, effect.Signup)
	assert.Equal(t, ViewValidateSignUp, submitted.View)
	signer.AssertExpectations(t)

	pending, effect, err := machine.Refresh(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, pending.Pending())
	assert.False(t, effect.LoggedIn)

	results.result = SignupResult{Status: StatusRegistered}
	loggedIn, effect, err := machine.Refresh(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, ViewLoggedIn, loggedIn.View)
	assert.True(t, effect.LoggedIn)

	again, effect, err := machine.Refresh(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, ViewLoggedIn, again.View)
	assert.False(t, effect.LoggedIn)
	assert.Equal(t, 2, results.calls)
}

func TestMachine_SubmitDispatchFailure(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	signer := &mockSigner{}
	machine := NewMachine(storage, nil, signer, &stubResults{err: ErrResultNotFound}, testLogger())

	w := shippingAddress(t)
	w.ID = "w-fail"
	require.NoError(t, storage.SaveWidget(ctx, w))

	signer.On("Dispatch", mock.Anything, "w-fail", mock.Anything).Return(errors.New("queue down")).Once()

	failed, _, err := machine.Submit(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, failed.Failed())

	retried, _, err := machine.Retry(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, ViewCreateAccount, retried.View)
	assert.Equal(t, StepPersonalDetails, retried.Step)
}

func TestMachine_RefreshMissingResultCountsAsFailure(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	machine := NewMachine(storage, nil, nil, &stubResults{err: ErrResultNotFound}, testLogger())

	w, _, err := shippingAddress(t).Submit()
	require.NoError(t, err)
	w.ID = "w-missing"
	require.NoError(t, storage.SaveWidget(ctx, w))

	refreshed, _, err := machine.Refresh(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.Failed())
}

func TestMachine_RefreshPropagatesResultErrors(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	machine := NewMachine(storage, nil, nil, &stubResults{err: errStorageFailure}, testLogger())

	w, _, err := shippingAddress(t).Submit()
	require.NoError(t, err)
	w.ID = "w-err"
	require.NoError(t, storage.SaveWidget(ctx, w))

	_, _, err = machine.Refresh(ctx, w.ID)
	assert.ErrorIs(t, err, errStorageFailure)
}

func TestMachine_Logout(t *testing.T) {
	ctx := context.Background()
	machine := NewMachine(NewMemoryStorage(), nil, nil, nil, testLogger())

	w, err := machine.Create(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, ViewLoggedIn, w.View)

	out, effect, err := machine.Logout(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, effect.LoggedOut)
	assert.Equal(t, ViewSignIn, out.View)

	stored, err := machine.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsLoggedIn)
}

func TestMachine_SerialisesWithRedisLock(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	storage := NewMemoryStorage()
	machine := NewMachine(storage, NewRedisLocker(client, testLogger(), 2*time.Second), nil, nil, testLogger())

	w, err := machine.Create(ctx, false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errCh := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := machine.Toggle(ctx, w.ID)
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	final, err := machine.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, final.IsOpen, "an even number of toggles must leave the widget closed")
}

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
