package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
)

// Store is an in-memory rule registry and ledger.
//
// It keeps the same contract as the durable stores (optimistic versioning on Save,
// one transaction per rule occurrence), so it doubles as the test store and as the
// STORE_DRIVER=memory backend for local runs. Everything is lost on restart.
type Store struct {
	mu sync.RWMutex

	rules        map[uuid.UUID]*domain.RecurringRule
	transactions []*domain.Transaction
	occurrences  map[occurrenceKey]uuid.UUID

	now func() time.Time
}

type occurrenceKey struct {
	ruleID uuid.UUID
	date   domain.Date
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		rules:       map[uuid.UUID]*domain.RecurringRule{},
		occurrences: map[occurrenceKey]uuid.UUID{},
		now:         time.Now,
	}
}

// ListActiveDue retrieves the owner's active rules with NextExecution on or before now,
// ordered by NextExecution
func (s *Store) ListActiveDue(ctx context.Context, ownerID uuid.UUID, now domain.Date) ([]*domain.RecurringRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.RecurringRule
	for _, r := range s.rules {
		if r.OwnerID == ownerID && r.IsDue(now) {
			out = append(out, r.Clone())
		}
	}
	sortRules(out)
	return out, nil
}

// ListByOwner retrieves every rule of the owner ordered by NextExecution
func (s *Store) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.RecurringRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.RecurringRule
	for _, r := range s.rules {
		if r.OwnerID == ownerID {
			out = append(out, r.Clone())
		}
	}
	sortRules(out)
	return out, nil
}

// ListOwners returns the distinct owners with at least one active rule
func (s *Store) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[uuid.UUID]struct{}{}
	var out []uuid.UUID
	for _, r := range s.rules {
		if !r.IsActive {
			continue
		}
		if _, ok := seen[r.OwnerID]; ok {
			continue
		}
		seen[r.OwnerID] = struct{}{}
		out = append(out, r.OwnerID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// Save inserts the rule when Version is 0, otherwise updates it if the stored version matches
func (s *Store) Save(ctx context.Context, rule *domain.RecurringRule) error {
	if err := rule.ValidateDates(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	stored, exists := s.rules[rule.ID]

	if rule.Version == 0 {
		if exists {
			return domain.ErrVersionConflict
		}
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = now
		}
	} else {
		if !exists {
			return domain.ErrRuleNotFound
		}
		if stored.Version != rule.Version {
			return domain.ErrVersionConflict
		}
	}

	rule.Version++
	rule.UpdatedAt = now
	s.rules[rule.ID] = rule.Clone()
	return nil
}

// Delete removes a rule
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return domain.ErrRuleNotFound
	}
	delete(s.rules, id)
	return nil
}

// Get retrieves a copy of a rule by its ID
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.RecurringRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[id]
	if !ok {
		return nil, domain.ErrRuleNotFound
	}
	return r.Clone(), nil
}

// CreateTransaction records tx, rejecting a second transaction for the same rule occurrence
func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) (uuid.UUID, error) {
	if err := tx.Validate(); err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	if tx.RecurringRuleID != nil {
		key := occurrenceKey{ruleID: *tx.RecurringRuleID, date: *tx.OccurrenceDate}
		if _, dup := s.occurrences[key]; dup {
			return uuid.Nil, domain.ErrDuplicateOccurrence
		}
		s.occurrences[key] = tx.ID
	}

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now().UTC()
	}
	s.transactions = append(s.transactions, copyTransaction(tx))
	return tx.ID, nil
}

// List retrieves the owner's transactions, newest first
func (s *Store) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []*domain.Transaction
	for _, tx := range s.transactions {
		if tx.OwnerID == ownerID {
			owned = append(owned, tx)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		if c := owned[i].Date.Compare(owned[j].Date); c != 0 {
			return c > 0
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if offset >= len(owned) {
		return []*domain.Transaction{}, nil
	}
	end := len(owned)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]*domain.Transaction, 0, end-offset)
	for _, tx := range owned[offset:end] {
		out = append(out, copyTransaction(tx))
	}
	return out, nil
}

// Count returns the number of the owner's transactions
func (s *Store) Count(ctx context.Context, ownerID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, tx := range s.transactions {
		if tx.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

// Close is a no-op so Store satisfies the same lifecycle as the SQL stores
func (s *Store) Close() error { return nil }

func sortRules(rules []*domain.RecurringRule) {
	sort.Slice(rules, func(i, j int) bool {
		if c := rules[i].NextExecution.Compare(rules[j].NextExecution); c != 0 {
			return c < 0
		}
		return rules[i].ID.String() < rules[j].ID.String()
	})
}

func copyTransaction(tx *domain.Transaction) *domain.Transaction {
	cp := *tx
	cp.Tags = tx.Tags.Clone()
	cp.Attachments = append([]domain.AttachmentRef(nil), tx.Attachments...)
	return &cp
}
