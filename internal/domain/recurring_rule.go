package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleKind represents what kind of ledger transaction a rule produces
type RuleKind string

const (
	RuleKindIncome   RuleKind = "INCOME"
	RuleKindExpense  RuleKind = "EXPENSE"
	RuleKindTransfer RuleKind = "TRANSFER"
)

// ParseRuleKind converts user input ("expense", "EXPENSE") into a RuleKind
func ParseRuleKind(s string) (RuleKind, error) {
	k := RuleKind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case RuleKindIncome, RuleKindExpense, RuleKindTransfer:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, s)
}

// AttachmentRef is an opaque reference to a stored attachment (file key, URL, ...)
type AttachmentRef string

// Tags is an unordered set of labels. Two Tags are equal regardless of insertion order.
type Tags map[string]struct{}

// NewTags builds a set from the given labels, dropping blanks and duplicates
func NewTags(labels ...string) Tags {
	t := make(Tags, len(labels))
	for _, l := range labels {
		t.Add(l)
	}
	return t
}

// Add inserts a label into the set
func (t Tags) Add(label string) {
	label = strings.TrimSpace(label)
	if label == "" {
		return
	}
	t[label] = struct{}{}
}

// Has reports whether label is in the set
func (t Tags) Has(label string) bool {
	_, ok := t[label]
	return ok
}

// Sorted returns the labels in lexical order, the canonical form used for persistence
func (t Tags) Sorted() []string {
	out := make([]string, 0, len(t))
	for l := range t {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of the set
func (t Tags) Clone() Tags {
	return NewTags(t.Sorted()...)
}

// RecurringRule represents a repeating transaction template owned by a single account holder
type RecurringRule struct {
	ID                   uuid.UUID
	OwnerID              uuid.UUID
	AccountID            uuid.UUID
	DestinationAccountID *uuid.UUID // Required for TRANSFER, NULL otherwise
	CategoryID           *uuid.UUID
	Kind                 RuleKind
	Amount               decimal.Decimal // Copied to the transaction as-is, sign included
	Currency             string          // ISO 4217 code
	Description          string
	Tags                 Tags
	Attachments          []AttachmentRef // Order is significant

	Pattern       RecurrencePattern
	LastExecuted  *Date // NULL until the rule first produced a transaction
	NextExecution Date  // Earliest date the rule is eligible to fire again
	IsActive      bool

	// Version is bumped by the registry on every successful Save.
	// A Save carrying a stale version fails with ErrVersionConflict.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate ensures the rule adheres to domain rules
// Returns an error wrapping ErrInvalidRule or ErrInvalidPattern if validation fails
func (r *RecurringRule) Validate() error {
	if r.OwnerID == uuid.Nil {
		return fmt.Errorf("%w: owner ID is required", ErrInvalidRule)
	}
	if r.AccountID == uuid.Nil {
		return fmt.Errorf("%w: account ID is required", ErrInvalidRule)
	}

	switch r.Kind {
	case RuleKindIncome, RuleKindExpense:
		if r.DestinationAccountID != nil {
			return fmt.Errorf("%w: only TRANSFER rules may have a destination account", ErrInvalidRule)
		}
	case RuleKindTransfer:
		// Transfers MUST name a distinct destination account
		if r.DestinationAccountID == nil {
			return fmt.Errorf("%w: transfer rule must have a destination account", ErrInvalidRule)
		}
		if *r.DestinationAccountID == r.AccountID {
			return fmt.Errorf("%w: transfer destination must differ from source account", ErrInvalidRule)
		}
	default:
		return fmt.Errorf("%w: kind must be INCOME, EXPENSE or TRANSFER", ErrInvalidRule)
	}

	if r.Amount.IsZero() {
		return fmt.Errorf("%w: amount must not be zero", ErrInvalidRule)
	}

	if money.GetCurrency(r.Currency) == nil {
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidRule, r.Currency)
	}

	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("%w: description cannot be empty", ErrInvalidRule)
	}

	if err := r.Pattern.Validate(); err != nil {
		return err
	}

	if err := r.ValidateDates(); err != nil {
		return err
	}

	// A rule already past its end date must not be active
	if r.IsActive && r.Pattern.EndDate != nil && r.NextExecution.After(*r.Pattern.EndDate) {
		return fmt.Errorf("%w: active rule has next execution %s after end date %s", ErrInvalidRule, r.NextExecution, r.Pattern.EndDate)
	}

	return nil
}

// ValidateDates checks that the execution dates fit the storable calendar.
// Stores call it on every save: a rule whose schedule ran past LatestDate must be deactivated
// with a storable NextExecution, never written as is.
func (r *RecurringRule) ValidateDates() error {
	if !r.NextExecution.InCalendar() {
		return fmt.Errorf("%w: next execution %s is outside 0001-01-01..%s", ErrInvalidRule, r.NextExecution, LatestDate)
	}
	if r.LastExecuted != nil && !r.LastExecuted.InCalendar() {
		return fmt.Errorf("%w: last executed %s is outside 0001-01-01..%s", ErrInvalidRule, r.LastExecuted, LatestDate)
	}
	return nil
}

// IsDue reports whether the rule is active and eligible to fire on the given day
func (r *RecurringRule) IsDue(now Date) bool {
	return r.IsActive && !r.NextExecution.After(now)
}

// Clone returns a deep copy, so registries never hand out aliases to stored state
func (r *RecurringRule) Clone() *RecurringRule {
	if r == nil {
		return nil
	}
	c := *r
	c.Tags = r.Tags.Clone()
	if r.Attachments != nil {
		c.Attachments = append([]AttachmentRef(nil), r.Attachments...)
	}
	c.DestinationAccountID = cloneUUID(r.DestinationAccountID)
	c.CategoryID = cloneUUID(r.CategoryID)
	if r.LastExecuted != nil {
		d := *r.LastExecuted
		c.LastExecuted = &d
	}
	c.Pattern = r.Pattern.clone()
	return &c
}

func (p RecurrencePattern) clone() RecurrencePattern {
	c := p
	if p.EndDate != nil {
		d := *p.EndDate
		c.EndDate = &d
	}
	c.DayOfWeek = cloneInt(p.DayOfWeek)
	c.DayOfMonth = cloneInt(p.DayOfMonth)
	c.MonthOfYear = cloneInt(p.MonthOfYear)
	return c
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// IsTransient reports whether an execution error should leave the rule untouched for a retry
// on the next pass instead of being surfaced to the caller
func IsTransient(err error) bool {
	return errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrDuplicateOccurrence)
}
