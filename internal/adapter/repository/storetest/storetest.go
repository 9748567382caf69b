// Package storetest holds the behaviour every rule and transaction store must share.
// Store packages call Run from their own tests with a factory for a fresh store.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
)

// Factory returns stores for one subtest. Stores may be shared between subtests as
// long as every subtest only reads back the owners it created.
type Factory func(t *testing.T) (domain.RuleStore, domain.TransactionStore)

// Run exercises the store contract
func Run(t *testing.T, newStores Factory) {
	t.Run("rule round trip", func(t *testing.T) {
		rules, _ := newStores(t)
		testRuleRoundTrip(t, rules)
	})
	t.Run("optimistic versioning", func(t *testing.T) {
		rules, _ := newStores(t)
		testVersioning(t, rules)
	})
	t.Run("listing", func(t *testing.T) {
		rules, _ := newStores(t)
		testListing(t, rules)
	})
	t.Run("calendar bounds", func(t *testing.T) {
		rules, _ := newStores(t)
		testCalendarBounds(t, rules)
	})
	t.Run("delete", func(t *testing.T) {
		rules, _ := newStores(t)
		testDelete(t, rules)
	})
	t.Run("transactions", func(t *testing.T) {
		_, txs := newStores(t)
		testTransactions(t, txs)
	})
}

// NewRule builds a valid monthly expense rule for the owner, due on next
func NewRule(owner uuid.UUID, next string) *domain.RecurringRule {
	day := 1
	return &domain.RecurringRule{
		ID:          uuid.New(),
		OwnerID:     owner,
		AccountID:   uuid.New(),
		Kind:        domain.RuleKindExpense,
		Amount:      decimal.RequireFromString("-1200.50"),
		Currency:    "USD",
		Description: "Rent",
		Tags:        domain.NewTags("housing", "fixed"),
		Pattern: domain.RecurrencePattern{
			Frequency:  domain.FrequencyMonthly,
			Interval:   1,
			StartDate:  domain.MustParseDate("2024-01-01"),
			DayOfMonth: &day,
		},
		NextExecution: domain.MustParseDate(next),
		IsActive:      true,
	}
}

func testRuleRoundTrip(t *testing.T, store domain.RuleStore) {
	ctx := context.Background()

	rule := NewRule(uuid.New(), "2024-02-01")
	dest := uuid.New()
	category := uuid.New()
	end := domain.MustParseDate("2025-12-31")
	last := domain.MustParseDate("2024-01-01")
	rule.Kind = domain.RuleKindTransfer
	rule.DestinationAccountID = &dest
	rule.CategoryID = &category
	rule.Attachments = []domain.AttachmentRef{"lease.pdf", "addendum.pdf"}
	rule.Pattern.EndDate = &end
	rule.LastExecuted = &last

	require.NoError(t, store.Save(ctx, rule))
	assert.Equal(t, int64(1), rule.Version)

	got, err := store.Get(ctx, rule.ID)
	require.NoError(t, err)

	assert.Equal(t, rule.ID, got.ID)
	assert.Equal(t, rule.OwnerID, got.OwnerID)
	assert.Equal(t, rule.AccountID, got.AccountID)
	assert.Equal(t, dest, *got.DestinationAccountID)
	assert.Equal(t, category, *got.CategoryID)
	assert.Equal(t, domain.RuleKindTransfer, got.Kind)
	assert.True(t, rule.Amount.Equal(got.Amount), "amount %s", got.Amount)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "Rent", got.Description)
	assert.Equal(t, domain.NewTags("fixed", "housing"), got.Tags)
	assert.Equal(t, []domain.AttachmentRef{"lease.pdf", "addendum.pdf"}, got.Attachments)
	assert.Equal(t, domain.FrequencyMonthly, got.Pattern.Frequency)
	assert.Equal(t, 1, got.Pattern.Interval)
	assert.Equal(t, "2024-01-01", got.Pattern.StartDate.String())
	assert.Equal(t, "2025-12-31", got.Pattern.EndDate.String())
	require.NotNil(t, got.Pattern.DayOfMonth)
	assert.Equal(t, 1, *got.Pattern.DayOfMonth)
	assert.Nil(t, got.Pattern.DayOfWeek)
	assert.Nil(t, got.Pattern.MonthOfYear)
	assert.Equal(t, "2024-01-01", got.LastExecuted.String())
	assert.Equal(t, "2024-02-01", got.NextExecution.String())
	assert.True(t, got.IsActive)
	assert.Equal(t, int64(1), got.Version)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrRuleNotFound)
}

func testCalendarBounds(t *testing.T, store domain.RuleStore) {
	ctx := context.Background()
	owner := uuid.New()

	end := domain.LatestDate
	parked := NewRule(owner, "2024-01-01")
	parked.Pattern = domain.RecurrencePattern{
		Frequency: domain.FrequencyYearly,
		Interval:  domain.MaxInterval(domain.FrequencyYearly),
		StartDate: domain.MustParseDate("9950-01-01"),
		EndDate:   &end,
	}
	last := domain.MustParseDate("9950-01-01")
	parked.LastExecuted = &last
	parked.NextExecution = domain.LatestDate
	require.NoError(t, store.Save(ctx, parked))

	got, err := store.Get(ctx, parked.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LatestDate, got.NextExecution)
	assert.Equal(t, domain.LatestDate, *got.Pattern.EndDate)
	assert.Equal(t, 100, got.Pattern.Interval)

	current := NewRule(owner, "2024-01-01")
	require.NoError(t, store.Save(ctx, current))

	due, err := store.ListActiveDue(ctx, owner, domain.MustParseDate("2024-06-01"))
	require.NoError(t, err)
	require.Len(t, due, 1, "the last calendar day sorts after every earlier date")
	assert.Equal(t, current.ID, due[0].ID)

	listed, err := store.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, parked.ID, listed[1].ID)

	beyond := NewRule(owner, "2024-01-01")
	beyond.NextExecution = domain.LatestDate.AddDays(1)
	assert.ErrorIs(t, store.Save(ctx, beyond), domain.ErrInvalidRule)
	_, err = store.Get(ctx, beyond.ID)
	assert.ErrorIs(t, err, domain.ErrRuleNotFound)

	got.NextExecution = domain.NewDate(10024, time.January, 1)
	assert.ErrorIs(t, store.Save(ctx, got), domain.ErrInvalidRule)
	stored, err := store.Get(ctx, parked.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LatestDate, stored.NextExecution)
}

func testVersioning(t *testing.T, store domain.RuleStore) {
	ctx := context.Background()

	rule := NewRule(uuid.New(), "2024-02-01")
	require.NoError(t, store.Save(ctx, rule))

	first, err := store.Get(ctx, rule.ID)
	require.NoError(t, err)
	second, err := store.Get(ctx, rule.ID)
	require.NoError(t, err)

	first.NextExecution = domain.MustParseDate("2024-03-01")
	require.NoError(t, store.Save(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.IsActive = false
	assert.ErrorIs(t, store.Save(ctx, second), domain.ErrVersionConflict)
	assert.Equal(t, int64(1), second.Version, "a rejected save leaves the version alone")

	stored, err := store.Get(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", stored.NextExecution.String())
	assert.True(t, stored.IsActive)
	assert.Equal(t, int64(2), stored.Version)

	again := NewRule(rule.OwnerID, "2024-02-01")
	again.ID = rule.ID
	assert.ErrorIs(t, store.Save(ctx, again), domain.ErrVersionConflict, "inserting over an existing ID")

	ghost := NewRule(rule.OwnerID, "2024-02-01")
	ghost.Version = 3
	assert.ErrorIs(t, store.Save(ctx, ghost), domain.ErrRuleNotFound)
}

func testListing(t *testing.T, store domain.RuleStore) {
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	late := NewRule(owner, "2024-03-01")
	early := NewRule(owner, "2024-01-15")
	future := NewRule(owner, "2024-09-01")
	paused := NewRule(owner, "2024-01-01")
	paused.IsActive = false
	foreign := NewRule(other, "2024-01-01")

	for _, r := range []*domain.RecurringRule{late, early, future, paused, foreign} {
		require.NoError(t, store.Save(ctx, r))
	}

	due, err := store.ListActiveDue(ctx, owner, domain.MustParseDate("2024-03-01"))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, early.ID, due[0].ID)
	assert.Equal(t, late.ID, due[1].ID)

	all, err := store.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, paused.ID, all[0].ID)
	assert.Equal(t, future.ID, all[3].ID)

	owners, err := store.ListOwners(ctx)
	require.NoError(t, err)
	assert.Contains(t, owners, owner)
	assert.Contains(t, owners, other)

	lonely := NewRule(uuid.New(), "2024-01-01")
	lonely.IsActive = false
	require.NoError(t, store.Save(ctx, lonely))
	owners, err = store.ListOwners(ctx)
	require.NoError(t, err)
	assert.NotContains(t, owners, lonely.OwnerID, "owners without active rules are skipped")
}

func testDelete(t *testing.T, store domain.RuleStore) {
	ctx := context.Background()

	rule := NewRule(uuid.New(), "2024-02-01")
	require.NoError(t, store.Save(ctx, rule))

	require.NoError(t, store.Delete(ctx, rule.ID))
	_, err := store.Get(ctx, rule.ID)
	assert.ErrorIs(t, err, domain.ErrRuleNotFound)
	assert.ErrorIs(t, store.Delete(ctx, rule.ID), domain.ErrRuleNotFound)
}

func testTransactions(t *testing.T, store domain.TransactionStore) {
	ctx := context.Background()
	owner := uuid.New()

	rule := NewRule(owner, "2024-02-01")
	rule.Attachments = []domain.AttachmentRef{"lease.pdf"}

	first := rule.Materialize(domain.MustParseDate("2024-02-01"))
	id, err := store.CreateTransaction(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)

	_, err = store.CreateTransaction(ctx, rule.Materialize(domain.MustParseDate("2024-02-02")))
	assert.ErrorIs(t, err, domain.ErrDuplicateOccurrence, "same rule and occurrence")

	rule.NextExecution = domain.MustParseDate("2024-03-01")
	_, err = store.CreateTransaction(ctx, rule.Materialize(domain.MustParseDate("2024-03-01")))
	require.NoError(t, err)

	manual := func(on string) *domain.Transaction {
		return &domain.Transaction{
			OwnerID:     owner,
			AccountID:   uuid.New(),
			Kind:        domain.RuleKindIncome,
			Amount:      decimal.NewFromInt(50),
			Currency:    "EUR",
			Description: "Refund",
			Date:        domain.MustParseDate(on),
		}
	}
	// Entries without an idempotency key never collide
	_, err = store.CreateTransaction(ctx, manual("2024-01-10"))
	require.NoError(t, err)
	_, err = store.CreateTransaction(ctx, manual("2024-01-10"))
	require.NoError(t, err)

	_, err = store.CreateTransaction(ctx, &domain.Transaction{OwnerID: owner})
	assert.Error(t, err)

	count, err := store.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	page, err := store.List(ctx, owner, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "2024-03-01", page[0].Date.String())
	assert.Equal(t, "2024-02-01", page[1].Date.String())

	got := page[1]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, rule.ID, *got.RecurringRuleID)
	assert.Equal(t, "2024-02-01", got.OccurrenceDate.String())
	assert.True(t, rule.Amount.Equal(got.Amount))
	assert.Equal(t, rule.Tags, got.Tags)
	assert.Equal(t, []domain.AttachmentRef{"lease.pdf"}, got.Attachments)

	rest, err := store.List(ctx, owner, 10, 2)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	for _, tx := range rest {
		assert.Nil(t, tx.RecurringRuleID)
		assert.Nil(t, tx.OccurrenceDate)
	}

	everything, err := store.List(ctx, owner, 0, 0)
	require.NoError(t, err)
	assert.Len(t, everything, 4)

	empty, err := store.List(ctx, owner, 10, 40)
	require.NoError(t, err)
	assert.Empty(t, empty)

	none, err := store.Count(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, none)
}
