package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/wealthflow-recurring/internal/adapter/repository/sqlrow"
	"github.com/simaogato/wealthflow-recurring/internal/domain"
)

// CreateTransaction records tx. A second entry for the same (rule, occurrence) pair
// is ignored by the unique index and reported as domain.ErrDuplicateOccurrence.
func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) (uuid.UUID, error) {
	if err := tx.Validate(); err != nil {
		return uuid.Nil, err
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	tags, err := sqlrow.EncodeTags(tx.Tags)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	attachments, err := sqlrow.EncodeAttachments(tx.Attachments)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode attachments: %w", err)
	}
	created := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+sqlrow.TransactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recurring_rule_id, occurrence_date) DO NOTHING`,
		tx.ID, tx.OwnerID, tx.AccountID, sqlrow.NullUUID(tx.DestinationAccountID), sqlrow.NullUUID(tx.CategoryID),
		string(tx.Kind), tx.Amount.String(), tx.Currency, tx.Description, tx.Date, tags, attachments,
		sqlrow.NullUUID(tx.RecurringRuleID), sqlrow.NullDate(tx.OccurrenceDate), created.UnixNano(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return uuid.Nil, domain.ErrDuplicateOccurrence
	}

	tx.CreatedAt = created
	return tx.ID, nil
}

// List returns the owner's transactions newest first. A limit <= 0 returns every row.
func (s *Store) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqlrow.TransactionColumns+`
		FROM transactions
		WHERE owner_id = ?
		ORDER BY date DESC, created_at DESC
		LIMIT ? OFFSET ?`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	out := []*domain.Transaction{}
	for rows.Next() {
		tx, err := sqlrow.ScanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return out, nil
}

// Count returns how many transactions the owner has.
func (s *Store) Count(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE owner_id = ?`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}
