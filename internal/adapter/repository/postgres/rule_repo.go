package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/wealthflow-recurring/internal/adapter/repository/sqlrow"
	"github.com/simaogato/wealthflow-recurring/internal/domain"
)

// ruleRepository implements domain.RuleStore
type ruleRepository struct {
	db *DB
}

// NewRuleRepository creates a new recurring rule repository
func NewRuleRepository(db *DB) domain.RuleStore {
	return &ruleRepository{db: db}
}

// ListActiveDue retrieves the owner's active rules whose next execution is on or before now
func (r *ruleRepository) ListActiveDue(ctx context.Context, ownerID uuid.UUID, now domain.Date) ([]*domain.RecurringRule, error) {
	query := `
		SELECT ` + sqlrow.RuleColumns + `
		FROM recurring_rules
		WHERE owner_id = $1 AND is_active AND next_execution <= $2
		ORDER BY next_execution, id
	`
	return r.query(ctx, query, ownerID, now)
}

// ListByOwner retrieves every rule of the owner ordered by next execution
func (r *ruleRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.RecurringRule, error) {
	query := `
		SELECT ` + sqlrow.RuleColumns + `
		FROM recurring_rules
		WHERE owner_id = $1
		ORDER BY next_execution, id
	`
	return r.query(ctx, query, ownerID)
}

// ListOwners returns the distinct owners with at least one active rule
func (r *ruleRepository) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT owner_id FROM recurring_rules WHERE is_active ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer rows.Close()

	var owners []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owners: %w", err)
	}

	return owners, nil
}

// Get retrieves a rule by its ID
func (r *ruleRepository) Get(ctx context.Context, id uuid.UUID) (*domain.RecurringRule, error) {
	query := `SELECT ` + sqlrow.RuleColumns + ` FROM recurring_rules WHERE id = $1`

	rule, err := sqlrow.ScanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// Save inserts the rule when its version is 0 and otherwise updates it if the stored
// version still matches
func (r *ruleRepository) Save(ctx context.Context, rule *domain.RecurringRule) error {
	if err := rule.ValidateDates(); err != nil {
		return err
	}

	tags, err := sqlrow.EncodeTags(rule.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	attachments, err := sqlrow.EncodeAttachments(rule.Attachments)
	if err != nil {
		return fmt.Errorf("failed to encode attachments: %w", err)
	}

	now := time.Now().UTC()
	if rule.Version == 0 {
		return r.insert(ctx, rule, tags, attachments, now)
	}

	query := `
		UPDATE recurring_rules SET
			account_id = $3, destination_account_id = $4, category_id = $5,
			kind = $6, amount = $7, currency = $8, description = $9, tags = $10, attachments = $11,
			frequency = $12, interval_count = $13, start_date = $14, end_date = $15,
			day_of_week = $16, day_of_month = $17, month_of_year = $18,
			last_executed = $19, next_execution = $20, is_active = $21,
			version = version + 1, updated_at = $22
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Version,
		rule.AccountID, sqlrow.NullUUID(rule.DestinationAccountID), sqlrow.NullUUID(rule.CategoryID),
		string(rule.Kind), rule.Amount.String(), rule.Currency, rule.Description, tags, attachments,
		string(rule.Pattern.Frequency), rule.Pattern.Interval, rule.Pattern.StartDate, sqlrow.NullDate(rule.Pattern.EndDate),
		sqlrow.NullInt(rule.Pattern.DayOfWeek), sqlrow.NullInt(rule.Pattern.DayOfMonth), sqlrow.NullInt(rule.Pattern.MonthOfYear),
		sqlrow.NullDate(rule.LastExecuted), rule.NextExecution, rule.IsActive,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return r.missOrConflict(ctx, rule.ID)
	}

	rule.Version++
	rule.UpdatedAt = now
	return nil
}

func (r *ruleRepository) insert(ctx context.Context, rule *domain.RecurringRule, tags, attachments string, now time.Time) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	createdAt := rule.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query := `
		INSERT INTO recurring_rules (` + sqlrow.RuleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, 1, $22, $23)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.OwnerID, rule.AccountID, sqlrow.NullUUID(rule.DestinationAccountID), sqlrow.NullUUID(rule.CategoryID),
		string(rule.Kind), rule.Amount.String(), rule.Currency, rule.Description, tags, attachments,
		string(rule.Pattern.Frequency), rule.Pattern.Interval, rule.Pattern.StartDate, sqlrow.NullDate(rule.Pattern.EndDate),
		sqlrow.NullInt(rule.Pattern.DayOfWeek), sqlrow.NullInt(rule.Pattern.DayOfMonth), sqlrow.NullInt(rule.Pattern.MonthOfYear),
		sqlrow.NullDate(rule.LastExecuted), rule.NextExecution, rule.IsActive,
		createdAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// The ID is taken, so a version 0 save is stale by definition
		return domain.ErrVersionConflict
	}

	rule.Version = 1
	rule.CreatedAt = createdAt
	rule.UpdatedAt = now
	return nil
}

// Delete removes a rule by its ID
func (r *ruleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrRuleNotFound
	}

	return nil
}

// missOrConflict tells a missing rule apart from a stale version after an update touched no row
func (r *ruleRepository) missOrConflict(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM recurring_rules WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check rule existence: %w", err)
	}
	if !exists {
		return domain.ErrRuleNotFound
	}
	return domain.ErrVersionConflict
}

func (r *ruleRepository) query(ctx context.Context, query string, args ...any) ([]*domain.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.RecurringRule
	for rows.Next() {
		rule, err := sqlrow.ScanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}
