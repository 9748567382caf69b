package domain

import (
	"context"

	"github.com/google/uuid"
)

// RuleRegistry defines the persistence contract the execution engine depends on
type RuleRegistry interface {
	// ListActiveDue retrieves the owner's active rules whose NextExecution is on or before now
	ListActiveDue(ctx context.Context, ownerID uuid.UUID, now Date) ([]*RecurringRule, error)

	// Save creates the rule when its Version is 0 and updates it otherwise.
	// The update only succeeds if the stored version equals rule.Version; otherwise it
	// returns ErrVersionConflict. On success rule.Version holds the new stored version.
	Save(ctx context.Context, rule *RecurringRule) error

	// Delete removes a rule immediately. Returns ErrRuleNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// Get retrieves a rule by its ID. Returns ErrRuleNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*RecurringRule, error)
}

// RuleLister is implemented by registries that can enumerate rules for management screens
type RuleLister interface {
	// ListByOwner retrieves every rule of the owner, active or not, ordered by NextExecution
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*RecurringRule, error)
}

// OwnerLister is implemented by registries that can enumerate owners for maintenance passes
type OwnerLister interface {
	// ListOwners returns the distinct owners that have at least one active rule
	ListOwners(ctx context.Context) ([]uuid.UUID, error)
}

// Ledger is the external collaborator that durably records transactions
type Ledger interface {
	// CreateTransaction records tx and returns its ID.
	// Returns ErrDuplicateOccurrence if tx carries a (rule, occurrence) key that already exists.
	CreateTransaction(ctx context.Context, tx *Transaction) (uuid.UUID, error)
}

// TransactionRepository defines read access to recorded transactions
type TransactionRepository interface {
	// List retrieves a paginated list of the owner's transactions, newest first
	List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Transaction, error)

	// Count returns the total number of the owner's transactions
	Count(ctx context.Context, ownerID uuid.UUID) (int, error)
}

// RuleStore is the full rule persistence surface a storage adapter provides
type RuleStore interface {
	RuleRegistry
	RuleLister
	OwnerLister
}

// TransactionStore is the full transaction persistence surface a storage adapter provides
type TransactionStore interface {
	Ledger
	TransactionRepository
}
