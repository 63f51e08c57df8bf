package signup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Proton-105/storefront-account/internal/account"
	"github.com/Proton-105/storefront-account/internal/domain"
	apperrors "github.com/Proton-105/storefront-account/internal/errors"
	"github.com/Proton-105/storefront-account/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry() apperrors.RetryPolicy {
	return apperrors.RetryPolicy{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func validRequest() account.SignupRequest {
	return account.SignupRequest{
		Customer: account.SignupCustomer{Email: "andy@example.com", FirstName: "Andy", LastName: "Kek"},
		Password: "Reactkek123",
	}
}

func validPayload(t *testing.T, widgetID string) Payload {
	t.Helper()

	p, err := NewPayload(widgetID, validRequest(), bcrypt.MinCost)
	require.NoError(t, err)
	return p
}

type mockCustomers struct {
	mock.Mock
}

func (m *mockCustomers) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	args := m.Called(ctx, email)
	customer, _ := args.Get(0).(*domain.Customer)
	return customer, args.Error(1)
}

func (m *mockCustomers) Create(ctx context.Context, customer *domain.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

type fakeManager struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeManager) Enqueue(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: "critical"}, nil
}

func (f *fakeManager) Close() error { return nil }

func newService(customers repository.CustomerRepository, results ResultWriter) *Service {
	return NewService(customers, results, nil, fastRetry(), nil, testLogger())
}

func TestNewPayload(t *testing.T) {
	t.Run("hashes the password", func(t *testing.T) {
		p := validPayload(t, "w-1")

		assert.Equal(t, "andy@example.com", p.Email)
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte("Reactkek123")))

		data, err := json.Marshal(p)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "Reactkek123")
	})

	t.Run("rejects passwords bcrypt would truncate", func(t *testing.T) {
		req := validRequest()
		req.Password = string(make([]byte, 73))

		_, err := NewPayload("w-1", req, bcrypt.MinCost)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("rejects missing customer fields", func(t *testing.T) {
		req := validRequest()
		req.Customer.Email = ""

		_, err := NewPayload("w-1", req, bcrypt.MinCost)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestService_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("registers a new customer", func(t *testing.T) {
		customers := repository.NewMemoryCustomerRepository()
		results := repository.NewMemoryResultRepository(time.Minute)

		result, err := newService(customers, results).Process(ctx, validPayload(t, "w-1"))
		require.NoError(t, err)
		assert.Equal(t, account.StatusRegistered, result.Status)

		stored, err := results.Result(ctx, "w-1")
		require.NoError(t, err)
		assert.True(t, stored.Registered())

		customer, err := customers.FindByEmail(ctx, "ANDY@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Andy", customer.FirstName)
	})

	t.Run("reports an existing customer", func(t *testing.T) {
		customers := repository.NewMemoryCustomerRepository()
		require.NoError(t, customers.Create(ctx, &domain.Customer{Email: "andy@example.com"}))
		results := repository.NewMemoryResultRepository(time.Minute)

		result, err := newService(customers, results).Process(ctx, validPayload(t, "w-1"))
		require.NoError(t, err)
		assert.Equal(t, account.StatusCustomerExists, result.Status)
	})

	t.Run("database failure is retried then reported as failed", func(t *testing.T) {
		customers := new(mockCustomers)
		customers.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
		results := repository.NewMemoryResultRepository(time.Minute)

		result, err := newService(customers, results).Process(ctx, validPayload(t, "w-1"))
		require.NoError(t, err)
		assert.Equal(t, account.StatusFailed, result.Status)
		customers.AssertNumberOfCalls(t, "Create", 2)
	})

	t.Run("open breaker fails without touching the database", func(t *testing.T) {
		customers := new(mockCustomers)
		customers.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()
		results := repository.NewMemoryResultRepository(time.Minute)
		breaker := apperrors.NewCircuitBreakerWithConfig(apperrors.BreakerConfig{MinRequests: 1, OpenTimeout: time.Hour})

		svc := NewService(customers, results, breaker, apperrors.RetryPolicy{}, nil, testLogger())

		first, err := svc.Process(ctx, validPayload(t, "w-1"))
		require.NoError(t, err)
		assert.Equal(t, account.StatusFailed, first.Status)
		assert.Equal(t, apperrors.StateOpen, breaker.State())

		second, err := svc.Process(ctx, validPayload(t, "w-2"))
		require.NoError(t, err)
		assert.Equal(t, account.StatusFailed, second.Status)
		customers.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("duplicate on retry after a committed insert is registered", func(t *testing.T) {
		p := validPayload(t, "w-1")
		customers := new(mockCustomers)
		customers.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()
		customers.On("Create", mock.Anything, mock.Anything).Return(repository.ErrCustomerExists).Once()
		customers.On("FindByEmail", mock.Anything, p.Email).Return(&domain.Customer{Email: p.Email, PasswordHash: p.PasswordHash}, nil)
		results := repository.NewMemoryResultRepository(time.Minute)

		result, err := newService(customers, results).Process(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, account.StatusRegistered, result.Status)
		customers.AssertExpectations(t)
	})

	t.Run("duplicate on retry for another customer still exists", func(t *testing.T) {
		p := validPayload(t, "w-1")
		customers := new(mockCustomers)
		customers.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()
		customers.On("Create", mock.Anything, mock.Anything).Return(repository.ErrCustomerExists).Once()
		customers.On("FindByEmail", mock.Anything, p.Email).Return(&domain.Customer{Email: p.Email, PasswordHash: "$2a$04$other"}, nil)
		results := repository.NewMemoryResultRepository(time.Minute)

		result, err := newService(customers, results).Process(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, account.StatusCustomerExists, result.Status)
	})

	t.Run("duplicate on first attempt skips the lookup", func(t *testing.T) {
		customers := new(mockCustomers)
		customers.On("Create", mock.Anything, mock.Anything).Return(repository.ErrCustomerExists).Once()
		results := repository.NewMemoryResultRepository(time.Minute)

		result, err := newService(customers, results).Process(ctx, validPayload(t, "w-1"))
		require.NoError(t, err)
		assert.Equal(t, account.StatusCustomerExists, result.Status)
		customers.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})

	t.Run("structurally invalid payload", func(t *testing.T) {
		results := repository.NewMemoryResultRepository(time.Minute)

		result, err := newService(repository.NewMemoryCustomerRepository(), results).Process(ctx, Payload{WidgetID: "w-1"})
		require.NoError(t, err)
		assert.Equal(t, account.StatusInvalidRequest, result.Status)
	})
}

func TestChannelDispatcher_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := repository.NewMemoryResultRepository(time.Minute)
	svc := newService(repository.NewMemoryCustomerRepository(), results)

	d := NewChannelDispatcher(svc, "signup", 2, bcrypt.MinCost, testLogger())
	require.NoError(t, d.Start(ctx))
	defer d.Close()

	require.NoError(t, d.Dispatch(ctx, "w-1", validRequest()))

	require.Eventually(t, func() bool {
		result, err := results.Result(ctx, "w-1")
		return err == nil && result.Registered()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestChannelDispatcher_InvalidRequestStoresResult(t *testing.T) {
	ctx := context.Background()
	results := repository.NewMemoryResultRepository(time.Minute)
	d := NewChannelDispatcher(newService(repository.NewMemoryCustomerRepository(), results), "signup", 1, bcrypt.MinCost, testLogger())
	defer d.Close()

	req := validRequest()
	req.Customer.FirstName = ""
	require.NoError(t, d.Dispatch(ctx, "w-1", req))

	result, err := results.Result(ctx, "w-1")
	require.NoError(t, err)
	assert.Equal(t, account.StatusInvalidRequest, result.Status)
	assert.False(t, result.Loading)
}

func TestAsynqDispatcher(t *testing.T) {
	ctx := context.Background()
	results := repository.NewMemoryResultRepository(time.Minute)
	svc := newService(repository.NewMemoryCustomerRepository(), results)
	manager := &fakeManager{}

	d := NewAsynqDispatcher(manager, svc, "", 3, bcrypt.MinCost, testLogger())
	require.NoError(t, d.Dispatch(ctx, "w-1", validRequest()))

	require.Len(t, manager.tasks, 1)
	assert.Equal(t, TaskTypeSignup, manager.tasks[0].Type())
	assert.NotContains(t, string(manager.tasks[0].Payload()), "Reactkek123")

	pending, err := results.Result(ctx, "w-1")
	require.NoError(t, err)
	assert.True(t, pending.Loading)

	require.NoError(t, NewTaskHandler(svc).ProcessTask(ctx, manager.tasks[0]))

	done, err := results.Result(ctx, "w-1")
	require.NoError(t, err)
	assert.True(t, done.Registered())
}

func TestAsynqDispatcher_EnqueueFailure(t *testing.T) {
	results := repository.NewMemoryResultRepository(time.Minute)
	svc := newService(repository.NewMemoryCustomerRepository(), results)

	d := NewAsynqDispatcher(&fakeManager{err: errors.New("redis down")}, svc, "critical", 3, bcrypt.MinCost, testLogger())
	assert.Error(t, d.Dispatch(context.Background(), "w-1", validRequest()))

	_, err := results.Result(context.Background(), "w-1")
	assert.ErrorIs(t, err, account.ErrResultNotFound)
}

func TestChannelDispatcher_PublishFailureClearsLoading(t *testing.T) {
	ctx := context.Background()
	results := repository.NewMemoryResultRepository(time.Minute)
	d := NewChannelDispatcher(newService(repository.NewMemoryCustomerRepository(), results), "signup", 1, bcrypt.MinCost, testLogger())
	require.NoError(t, d.Close())

	assert.Error(t, d.Dispatch(ctx, "w-1", validRequest()))

	_, err := results.Result(ctx, "w-1")
	assert.ErrorIs(t, err, account.ErrResultNotFound)
}

func TestTaskHandler_MalformedPayloadSkipsRetry(t *testing.T) {
	svc := newService(repository.NewMemoryCustomerRepository(), repository.NewMemoryResultRepository(time.Minute))

	err := NewTaskHandler(svc).ProcessTask(context.Background(), asynq.NewTask(TaskTypeSignup, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

// completeWizard walks a fresh widget through both signup steps.
func completeWizard(t *testing.T, ctx context.Context, m *account.Machine) account.Widget {
	t.Helper()

	w, err := m.Create(ctx, false)
	require.NoError(t, err)
	_, _, err = m.ChangeView(ctx, w.ID, account.ViewCreateAccount)
	require.NoError(t, err)

	apply := func(field, value string) {
		_, err := m.ApplyEdit(ctx, w.ID, field, &value)
		require.NoError(t, err)
	}
	apply("email", "andy@example.com")
	apply("firstname", "Andy")
	apply("lastname", "Kek")
	apply("password", "Reactkek123")
	apply("confirmpassword", "Reactkek123")

	_, _, err = m.Advance(ctx, w.ID, 1)
	require.NoError(t, err)

	apply("addresstelephone", "+37112345678")
	apply("addresscountry", "Latvia")
	apply("addresscity", "Riga")
	apply("addressstreet", "Brivibas 1")
	apply("addresspostcode", "LV1010")

	return w
}

func TestMachineSignupFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := repository.NewMemoryResultRepository(time.Minute)
	d := NewChannelDispatcher(newService(repository.NewMemoryCustomerRepository(), results), "signup", 1, bcrypt.MinCost, testLogger())
	require.NoError(t, d.Start(ctx))
	defer d.Close()

	m := account.NewMachine(account.NewMemoryStorage(), nil, d, results, testLogger())
	w := completeWizard(t, ctx, m)

	submitted, effect, err := m.Submit(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, effect.Signup)
	assert.Equal(t, account.ViewValidateSignUp, submitted.View)

	require.Eventually(t, func() bool {
		refreshed, _, err := m.Refresh(ctx, w.ID)
		return err == nil && refreshed.View == account.ViewLoggedIn
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMachineSignupFlow_EnqueueFailureStaysFailed(t *testing.T) {
	ctx := context.Background()
	results := repository.NewMemoryResultRepository(time.Minute)
	svc := newService(repository.NewMemoryCustomerRepository(), results)
	d := NewAsynqDispatcher(&fakeManager{err: errors.New("redis down")}, svc, "critical", 3, bcrypt.MinCost, testLogger())

	m := account.NewMachine(account.NewMemoryStorage(), nil, d, results, testLogger())
	w := completeWizard(t, ctx, m)

	submitted, _, err := m.Submit(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, submitted.Failed())

	refreshed, _, err := m.Refresh(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.Failed())
	assert.False(t, refreshed.Pending())
}
