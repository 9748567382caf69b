package sqlite

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

// ListActiveDue returns the owner's active rules with next_execution on or before now.
func (s *Store) ListActiveDue(ctx context.Context, ownerID uuid.UUID, now domain.Date) ([]*domain.RecurringRule, error) {
	return s.queryRules(ctx, `
		SELECT `+sqlrow.RuleColumns+`
		FROM recurring_rules
		WHERE owner_id = ? AND is_active = 1 AND next_execution <= ?
		ORDER BY next_execution, id`,
		ownerID, now,
	)
}

// ListByOwner returns every rule of the owner ordered by next_execution.
func (s *Store) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.RecurringRule, error) {
	return s.queryRules(ctx, `
		SELECT `+sqlrow.RuleColumns+`
		FROM recurring_rules
		WHERE owner_id = ?
		ORDER BY next_execution, id`,
		ownerID,
	)
}

// ListOwners returns the distinct owners with at least one active rule.
func (s *Store) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT owner_id FROM recurring_rules WHERE is_active = 1 ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
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
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	return owners, nil
}

// Get returns a rule by ID or domain.ErrRuleNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.RecurringRule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqlrow.RuleColumns+` FROM recurring_rules WHERE id = ?`, id)
	rule, err := sqlrow.ScanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// Save inserts a rule with version 0 and otherwise performs a version-checked update.
func (s *Store) Save(ctx context.Context, rule *domain.RecurringRule) error {
	if rule == nil {
		return errors.New("nil rule")
	}
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
		return s.insertRule(ctx, rule, tags, attachments, now)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE recurring_rules SET
			account_id = ?, destination_account_id = ?, category_id = ?,
			kind = ?, amount = ?, currency = ?, description = ?, tags = ?, attachments = ?,
			frequency = ?, interval_count = ?, start_date = ?, end_date = ?,
			day_of_week = ?, day_of_month = ?, month_of_year = ?,
			last_executed = ?, next_execution = ?, is_active = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		rule.AccountID, sqlrow.NullUUID(rule.DestinationAccountID), sqlrow.NullUUID(rule.CategoryID),
		string(rule.Kind), rule.Amount.String(), rule.Currency, rule.Description, tags, attachments,
		string(rule.Pattern.Frequency), rule.Pattern.Interval, rule.Pattern.StartDate, sqlrow.NullDate(rule.Pattern.EndDate),
		sqlrow.NullInt(rule.Pattern.DayOfWeek), sqlrow.NullInt(rule.Pattern.DayOfMonth), sqlrow.NullInt(rule.Pattern.MonthOfYear),
		sqlrow.NullDate(rule.LastExecuted), rule.NextExecution, boolToInt(rule.IsActive),
		now.UnixNano(),
		rule.ID, rule.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recurring_rules WHERE id = ?`, rule.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check rule existence: %w", err)
		}
		if exists == 0 {
			return domain.ErrRuleNotFound
		}
		return domain.ErrVersionConflict
	}

	rule.Version++
	rule.UpdatedAt = now
	return nil
}

func (s *Store) insertRule(ctx context.Context, rule *domain.RecurringRule, tags, attachments string, now time.Time) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	created := rule.CreatedAt.UTC()
	if rule.CreatedAt.IsZero() {
		created = now
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_rules (`+sqlrow.RuleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		rule.ID, rule.OwnerID, rule.AccountID, sqlrow.NullUUID(rule.DestinationAccountID), sqlrow.NullUUID(rule.CategoryID),
		string(rule.Kind), rule.Amount.String(), rule.Currency, rule.Description, tags, attachments,
		string(rule.Pattern.Frequency), rule.Pattern.Interval, rule.Pattern.StartDate, sqlrow.NullDate(rule.Pattern.EndDate),
		sqlrow.NullInt(rule.Pattern.DayOfWeek), sqlrow.NullInt(rule.Pattern.DayOfMonth), sqlrow.NullInt(rule.Pattern.MonthOfYear),
		sqlrow.NullDate(rule.LastExecuted), rule.NextExecution, boolToInt(rule.IsActive),
		created.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrVersionConflict
	}

	rule.Version = 1
	rule.CreatedAt = created
	rule.UpdatedAt = now
	return nil
}

// Delete removes a rule or returns domain.ErrRuleNotFound.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

func (s *Store) queryRules(ctx context.Context, query string, args ...any) ([]*domain.RecurringRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}
