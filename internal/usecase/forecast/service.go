package forecast

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/calculator"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/expiry"
)

// MaxWindowDays bounds a projection window
const MaxWindowDays = 5 * 366

// ProjectedOccurrence is one future firing of a rule
type ProjectedOccurrence struct {
	RuleID      uuid.UUID
	Date        domain.Date
	Kind        domain.RuleKind
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// CurrencyTotals sums projected amounts of one currency, as stored (signs are kept)
type CurrencyTotals struct {
	Currency    string
	Income      decimal.Decimal
	Expense     decimal.Decimal
	Transfer    decimal.Decimal
	Net         decimal.Decimal // Income + Expense; transfers move money between the owner's own accounts
	Occurrences int
}

// ForecastResult represents the projected cash flow of an owner's recurring rules
type ForecastResult struct {
	From        domain.Date
	To          domain.Date
	Occurrences []ProjectedOccurrence
	Totals      []CurrencyTotals // Ordered by currency code
}

// ForecastService projects recurring rules forward without touching the ledger
type ForecastService struct {
	RuleLister domain.RuleLister
}

// NewForecastService creates a new ForecastService instance
func NewForecastService(ruleLister domain.RuleLister) *ForecastService {
	return &ForecastService{
		RuleLister: ruleLister,
	}
}

// Project calculates the occurrences falling in [from, to], assuming the engine runs every day
// Logic:
//   - Only active rules are projected, walking forward from their NextExecution
//   - An overdue rule (NextExecution before from) fires once on from and is re-anchored
//     there, as Engine.Process does; missed periods are not replayed
//   - Each rule stops at its end date
//   - Totals: per currency, amounts summed by kind; Net = Income + Expense
func (s *ForecastService) Project(ctx context.Context, ownerID uuid.UUID, from, to domain.Date) (*ForecastResult, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: forecast window ends %s before it starts %s", domain.ErrInvalidRule, to, from)
	}
	if from.AddDays(MaxWindowDays).Before(to) {
		return nil, fmt.Errorf("%w: forecast window is limited to %d days", domain.ErrInvalidRule, MaxWindowDays)
	}

	// 1. Get all of the owner's rules
	rules, err := s.RuleLister.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	// 2. Walk each active rule through the window
	result := &ForecastResult{From: from, To: to, Occurrences: []ProjectedOccurrence{}}
	totals := map[string]*CurrencyTotals{}
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		for _, date := range projectedDates(rule, from, to) {
			result.Occurrences = append(result.Occurrences, ProjectedOccurrence{
				RuleID:      rule.ID,
				Date:        date,
				Kind:        rule.Kind,
				Amount:      rule.Amount,
				Currency:    rule.Currency,
				Description: rule.Description,
			})
			addTo(totals, rule)
		}
	}

	// 3. Order occurrences and totals
	sort.SliceStable(result.Occurrences, func(i, j int) bool {
		a, b := result.Occurrences[i], result.Occurrences[j]
		if c := a.Date.Compare(b.Date); c != 0 {
			return c < 0
		}
		return a.Description < b.Description
	})

	for _, t := range totals {
		t.Net = t.Income.Add(t.Expense)
		result.Totals = append(result.Totals, *t)
	}
	sort.Slice(result.Totals, func(i, j int) bool { return result.Totals[i].Currency < result.Totals[j].Currency })

	return result, nil
}

// projectedDates lists the days the engine will fire rule on within [from, to]
func projectedDates(rule *domain.RecurringRule, from, to domain.Date) []domain.Date {
	if !rule.NextExecution.Before(from) {
		return calculator.Between(rule.Pattern, rule.NextExecution, from, to)
	}
	if expiry.IsExpired(rule.Pattern, rule.NextExecution) {
		return nil
	}
	next := calculator.NextOccurrence(rule.Pattern, from)
	return append([]domain.Date{from}, calculator.Between(rule.Pattern, next, from, to)...)
}

func addTo(totals map[string]*CurrencyTotals, rule *domain.RecurringRule) {
	t, ok := totals[rule.Currency]
	if !ok {
		t = &CurrencyTotals{
			Currency: rule.Currency,
			Income:   decimal.Zero,
			Expense:  decimal.Zero,
			Transfer: decimal.Zero,
		}
		totals[rule.Currency] = t
	}

	switch rule.Kind {
	case domain.RuleKindIncome:
		t.Income = t.Income.Add(rule.Amount)
	case domain.RuleKindExpense:
		t.Expense = t.Expense.Add(rule.Amount)
	case domain.RuleKindTransfer:
		t.Transfer = t.Transfer.Add(rule.Amount)
	}
	t.Occurrences++
}
