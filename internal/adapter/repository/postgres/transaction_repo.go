package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/wealthflow-recurring/internal/adapter/repository/sqlrow"
	"github.com/simaogato/wealthflow-recurring/internal/domain"
)

// transactionRepository implements domain.TransactionStore
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionStore {
	return &transactionRepository{db: db}
}

// CreateTransaction records a ledger entry.
// The (recurring_rule_id, occurrence_date) unique constraint makes a second insert of the
// same occurrence a no-op, reported as ErrDuplicateOccurrence.
func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) (uuid.UUID, error) {
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
	createdAt := time.Now().UTC()

	query := `
		INSERT INTO transactions (` + sqlrow.TransactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (recurring_rule_id, occurrence_date) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.OwnerID, tx.AccountID, sqlrow.NullUUID(tx.DestinationAccountID), sqlrow.NullUUID(tx.CategoryID),
		string(tx.Kind), tx.Amount.String(), tx.Currency, tx.Description, tx.Date, tags, attachments,
		sqlrow.NullUUID(tx.RecurringRuleID), sqlrow.NullDate(tx.OccurrenceDate), createdAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return uuid.Nil, domain.ErrDuplicateOccurrence
	}

	tx.CreatedAt = createdAt
	return tx.ID, nil
}

// List retrieves a paginated list of the owner's transactions, newest first
func (r *transactionRepository) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + sqlrow.TransactionColumns + `
		FROM transactions
		WHERE owner_id = $1
		ORDER BY date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	// LIMIT NULL returns every row, matching limit <= 0
	var pageSize any
	if limit > 0 {
		pageSize = limit
	}

	rows, err := r.db.QueryContext(ctx, query, ownerID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	transactions := []*domain.Transaction{}
	for rows.Next() {
		tx, err := sqlrow.ScanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// Count returns the total number of the owner's transactions
func (r *transactionRepository) Count(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
