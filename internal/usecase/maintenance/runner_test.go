package maintenance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/wealthflow-recurring/internal/adapter/repository/memory"
	"github.com/simaogato/wealthflow-recurring/internal/domain"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/engine"
)

// MockProcessor is a mock implementation of Processor for testing
type MockProcessor struct {
	mock.Mock
	calls atomic.Int32
}

func (m *MockProcessor) Process(ctx context.Context, ownerID uuid.UUID, now domain.Date) (*engine.ProcessResult, error) {
	m.calls.Add(1)
	args := m.Called(ctx, ownerID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.ProcessResult), args.Error(1)
}

// MockOwnerLister is a mock implementation of OwnerLister for testing
type MockOwnerLister struct {
	mock.Mock
}

func (m *MockOwnerLister) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func TestRunOnce_ContinuesAfterOwnerFailure(t *testing.T) {
	ctx := context.Background()
	processor := new(MockProcessor)
	owners := new(MockOwnerLister)
	today := domain.MustParseDate("2024-03-01")
	runner := NewRunner(processor, owners, domain.FixedClock(today), zerolog.Nop())

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	owners.On("ListOwners", ctx).Return([]uuid.UUID{a, b, c}, nil)
	processor.On("Process", ctx, a, today).Return(&engine.ProcessResult{Executed: 2, Expired: 1}, nil)
	processor.On("Process", ctx, b, today).Return(nil, errors.New("registry unreachable"))
	processor.On("Process", ctx, c, today).Return(&engine.ProcessResult{Executed: 1, Failed: 1, Recovered: 1}, nil)

	summary, err := runner.RunOnce(ctx)

	require.NoError(t, err)
	assert.Equal(t, Summary{Owners: 3, FailedOwners: 1, Executed: 3, Expired: 1, Failed: 1, Recovered: 1}, *summary)
	processor.AssertExpectations(t)
}

func TestRunOnce_OwnerListingFailure(t *testing.T) {
	ctx := context.Background()
	processor := new(MockProcessor)
	owners := new(MockOwnerLister)
	runner := NewRunner(processor, owners, domain.FixedClock(domain.MustParseDate("2024-03-01")), zerolog.Nop())

	owners.On("ListOwners", ctx).Return(nil, errors.New("db down"))

	summary, err := runner.RunOnce(ctx)

	assert.Nil(t, summary)
	assert.ErrorContains(t, err, "failed to list owners")
	processor.AssertNotCalled(t, "Process", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunOnce_WithEngine(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	owner := uuid.New()

	rule := &domain.RecurringRule{
		ID:          uuid.New(),
		OwnerID:     owner,
		AccountID:   uuid.New(),
		Kind:        domain.RuleKindIncome,
		Amount:      decimal.NewFromInt(3000),
		Currency:    "EUR",
		Description: "Salary",
		Pattern: domain.RecurrencePattern{
			Frequency: domain.FrequencyMonthly,
			Interval:  1,
			StartDate: domain.MustParseDate("2024-01-25"),
		},
		NextExecution: domain.MustParseDate("2024-01-25"),
		IsActive:      true,
	}
	require.NoError(t, store.Save(ctx, rule))

	eng := engine.NewEngine(store, store, zerolog.Nop())
	runner := NewRunner(eng, store, domain.FixedClock(domain.MustParseDate("2024-01-25")), zerolog.Nop())

	summary, err := runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Owners)
	assert.Equal(t, 1, summary.Executed)

	summary, err = runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Executed)
}

func TestStart_InvalidSchedule(t *testing.T) {
	runner := NewRunner(new(MockProcessor), new(MockOwnerLister), domain.FixedClock(domain.MustParseDate("2024-01-01")), zerolog.Nop())

	err := runner.Start(context.Background(), "every now and then")
	assert.ErrorContains(t, err, "invalid maintenance schedule")
}

func TestStart_RunsOnSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor := new(MockProcessor)
	owners := new(MockOwnerLister)
	owner := uuid.New()
	owners.On("ListOwners", mock.Anything).Return([]uuid.UUID{owner}, nil)
	processor.On("Process", mock.Anything, owner, mock.Anything).Return(&engine.ProcessResult{}, nil)

	runner := NewRunner(processor, owners, domain.SystemClock{}, zerolog.Nop())
	require.NoError(t, runner.Start(ctx, "@every 1s"))
	assert.Error(t, runner.Start(ctx, "@every 1s"), "second start is rejected")

	assert.Eventually(t, func() bool { return processor.calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)

	runner.Stop()
	runner.Stop()
}
