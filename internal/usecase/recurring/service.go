package recurring

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/calculator"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/expiry"
)

// MaxPreview bounds PreviewOccurrences
const MaxPreview = 366

// CreateRuleInput represents the input for creating a recurring rule
type CreateRuleInput struct {
	OwnerID              uuid.UUID
	AccountID            uuid.UUID
	DestinationAccountID *uuid.UUID // Required for TRANSFER, forbidden otherwise
	CategoryID           *uuid.UUID // Optional
	Kind                 domain.RuleKind
	Amount               decimal.Decimal
	Currency             string
	Description          string
	Tags                 []string
	Attachments          []domain.AttachmentRef
	Pattern              domain.RecurrencePattern
}

// UpdateRuleInput represents a partial update; nil fields are left unchanged
type UpdateRuleInput struct {
	ExpectedVersion      int64 // Optional: reject the update if the stored version differs
	AccountID            *uuid.UUID
	DestinationAccountID *uuid.UUID
	ClearDestination     bool
	CategoryID           *uuid.UUID
	ClearCategory        bool
	Kind                 *domain.RuleKind
	Amount               *decimal.Decimal
	Currency             *string
	Description          *string
	Tags                 *[]string
	Attachments          *[]domain.AttachmentRef
	Pattern              *domain.RecurrencePattern
	IsActive             *bool
}

// RecurringService handles recurring rule management operations
type RecurringService struct {
	Registry domain.RuleRegistry
	Lister   domain.RuleLister
}

// NewRecurringService creates a new RecurringService instance
func NewRecurringService(registry domain.RuleRegistry, lister domain.RuleLister) *RecurringService {
	return &RecurringService{
		Registry: registry,
		Lister:   lister,
	}
}

// CreateRule validates and stores a new active rule.
// Logic:
//  1. Normalize currency, description and tags
//  2. NextExecution = first occurrence on or after the pattern's start date
//  3. Validate the rule (a malformed pattern never reaches the engine)
//  4. Save as version 1
func (s *RecurringService) CreateRule(ctx context.Context, input CreateRuleInput) (*domain.RecurringRule, error) {
	rule := &domain.RecurringRule{
		ID:                   uuid.New(),
		OwnerID:              input.OwnerID,
		AccountID:            input.AccountID,
		DestinationAccountID: input.DestinationAccountID,
		CategoryID:           input.CategoryID,
		Kind:                 input.Kind,
		Amount:               input.Amount,
		Currency:             normalizeCurrency(input.Currency),
		Description:          strings.TrimSpace(input.Description),
		Tags:                 domain.NewTags(input.Tags...),
		Attachments:          input.Attachments,
		Pattern:              input.Pattern,
		IsActive:             true,
	}

	if err := rule.Pattern.Validate(); err != nil {
		return nil, err
	}
	rule.NextExecution = calculator.FirstOccurrence(rule.Pattern)

	// A pattern whose only candidates fall after EndDate is created inactive
	if expiry.IsExpired(rule.Pattern, rule.NextExecution) {
		rule.IsActive = false
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := s.Registry.Save(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

// UpdateRule applies a partial update.
// Logic:
//  1. Load the stored rule and check ExpectedVersion if given
//  2. Apply the changed fields
//  3. If the pattern changed, recompute NextExecution from LastExecuted
//     (or the first occurrence for a rule that never ran)
//  4. Deactivate if NextExecution is now past the end date; reactivating such a rule is an error
//  5. Validate and save (optimistic versioning)
func (s *RecurringService) UpdateRule(ctx context.Context, id uuid.UUID, input UpdateRuleInput) (*domain.RecurringRule, error) {
	stored, err := s.Registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.ExpectedVersion != 0 && input.ExpectedVersion != stored.Version {
		return nil, domain.ErrVersionConflict
	}

	rule := stored.Clone()

	if input.AccountID != nil {
		rule.AccountID = *input.AccountID
	}
	if input.ClearDestination {
		rule.DestinationAccountID = nil
	} else if input.DestinationAccountID != nil {
		dest := *input.DestinationAccountID
		rule.DestinationAccountID = &dest
	}
	if input.ClearCategory {
		rule.CategoryID = nil
	} else if input.CategoryID != nil {
		category := *input.CategoryID
		rule.CategoryID = &category
	}
	if input.Kind != nil {
		rule.Kind = *input.Kind
	}
	if input.Amount != nil {
		rule.Amount = *input.Amount
	}
	if input.Currency != nil {
		rule.Currency = normalizeCurrency(*input.Currency)
	}
	if input.Description != nil {
		rule.Description = strings.TrimSpace(*input.Description)
	}
	if input.Tags != nil {
		rule.Tags = domain.NewTags(*input.Tags...)
	}
	if input.Attachments != nil {
		rule.Attachments = append([]domain.AttachmentRef(nil), (*input.Attachments)...)
	}

	if input.Pattern != nil {
		if err := input.Pattern.Validate(); err != nil {
			return nil, err
		}
		rule.Pattern = *input.Pattern
		rule.NextExecution = resumeFrom(rule.Pattern, rule.LastExecuted)
	}

	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	if rule.IsActive && expiry.IsExpired(rule.Pattern, rule.NextExecution) {
		if input.IsActive != nil {
			return nil, fmt.Errorf("%w: cannot activate a rule whose next execution %s is after its end date", domain.ErrInvalidRule, rule.NextExecution)
		}
		rule.IsActive = false
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := s.Registry.Save(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

// DeleteRule removes a rule; transactions it already produced are kept
func (s *RecurringService) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return s.Registry.Delete(ctx, id)
}

// GetRule retrieves a rule by its ID
func (s *RecurringService) GetRule(ctx context.Context, id uuid.UUID) (*domain.RecurringRule, error) {
	return s.Registry.Get(ctx, id)
}

// ListRules retrieves all rules of an owner, active or not
func (s *RecurringService) ListRules(ctx context.Context, ownerID uuid.UUID) ([]*domain.RecurringRule, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("%w: owner ID is required", domain.ErrInvalidRule)
	}
	return s.Lister.ListByOwner(ctx, ownerID)
}

// PreviewOccurrences lists the next n dates the rule will fire on, starting with NextExecution
// and stopping at the end date. An inactive rule has no upcoming occurrences.
func (s *RecurringService) PreviewOccurrences(ctx context.Context, id uuid.UUID, n int) ([]domain.Date, error) {
	if n <= 0 || n > MaxPreview {
		return nil, fmt.Errorf("%w: preview count must be between 1 and %d", domain.ErrInvalidRule, MaxPreview)
	}

	rule, err := s.Registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rule.IsActive {
		return []domain.Date{}, nil
	}

	return calculator.Occurrences(rule.Pattern, rule.NextExecution, n), nil
}

// resumeFrom picks the next execution for a rule whose pattern was replaced
func resumeFrom(pattern domain.RecurrencePattern, lastExecuted *domain.Date) domain.Date {
	first := calculator.FirstOccurrence(pattern)
	if lastExecuted == nil || lastExecuted.Before(first) {
		return first
	}
	return calculator.NextOccurrence(pattern, *lastExecuted)
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
