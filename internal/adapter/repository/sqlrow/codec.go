// Package sqlrow converts domain types to and from database/sql column values.
// It is shared by the PostgreSQL and SQLite stores, which differ only in SQL dialect.
package sqlrow

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
)

// Scanner is satisfied by *sql.Row and *sql.Rows
type Scanner interface {
	Scan(dest ...any) error
}

// RuleColumns is the column list ScanRule expects, in order
const RuleColumns = `id, owner_id, account_id, destination_account_id, category_id,
	kind, amount, currency, description, tags, attachments,
	frequency, interval_count, start_date, end_date, day_of_week, day_of_month, month_of_year,
	last_executed, next_execution, is_active, version, created_at, updated_at`

// TransactionColumns is the column list ScanTransaction expects, in order
const TransactionColumns = `id, owner_id, account_id, destination_account_id, category_id,
	kind, amount, currency, description, date, tags, attachments,
	recurring_rule_id, occurrence_date, created_at`

// ScanRule reads one rule row selected with RuleColumns
func ScanRule(s Scanner) (*domain.RecurringRule, error) {
	var (
		rule                               domain.RecurringRule
		destination, category              uuid.NullUUID
		kind, amount, frequency            string
		tags, attachments                  string
		endDate, lastExecuted              domain.Date
		dayOfWeek, dayOfMonth, monthOfYear sql.NullInt32
		createdAt, updatedAt               Timestamp
	)

	err := s.Scan(
		&rule.ID, &rule.OwnerID, &rule.AccountID, &destination, &category,
		&kind, &amount, &rule.Currency, &rule.Description, &tags, &attachments,
		&frequency, &rule.Pattern.Interval, &rule.Pattern.StartDate, &endDate,
		&dayOfWeek, &dayOfMonth, &monthOfYear,
		&lastExecuted, &rule.NextExecution, &rule.IsActive, &rule.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Kind = domain.RuleKind(kind)
	rule.Pattern.Frequency = domain.Frequency(frequency)
	if rule.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse amount of rule %s: %w", rule.ID, err)
	}
	if rule.Tags, err = DecodeTags(tags); err != nil {
		return nil, err
	}
	if rule.Attachments, err = DecodeAttachments(attachments); err != nil {
		return nil, err
	}

	rule.DestinationAccountID = uuidPtr(destination)
	rule.CategoryID = uuidPtr(category)
	rule.Pattern.EndDate = datePtr(endDate)
	rule.Pattern.DayOfWeek = intPtr(dayOfWeek)
	rule.Pattern.DayOfMonth = intPtr(dayOfMonth)
	rule.Pattern.MonthOfYear = intPtr(monthOfYear)
	rule.LastExecuted = datePtr(lastExecuted)
	rule.CreatedAt = createdAt.Time
	rule.UpdatedAt = updatedAt.Time

	return &rule, nil
}

// ScanTransaction reads one transaction row selected with TransactionColumns
func ScanTransaction(s Scanner) (*domain.Transaction, error) {
	var (
		tx                    domain.Transaction
		destination, category uuid.NullUUID
		ruleID                uuid.NullUUID
		occurrence            domain.Date
		kind, amount          string
		tags, attachments     string
		createdAt             Timestamp
	)

	err := s.Scan(
		&tx.ID, &tx.OwnerID, &tx.AccountID, &destination, &category,
		&kind, &amount, &tx.Currency, &tx.Description, &tx.Date, &tags, &attachments,
		&ruleID, &occurrence, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Kind = domain.RuleKind(kind)
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse amount of transaction %s: %w", tx.ID, err)
	}
	if tx.Tags, err = DecodeTags(tags); err != nil {
		return nil, err
	}
	if tx.Attachments, err = DecodeAttachments(attachments); err != nil {
		return nil, err
	}

	tx.DestinationAccountID = uuidPtr(destination)
	tx.CategoryID = uuidPtr(category)
	tx.RecurringRuleID = uuidPtr(ruleID)
	tx.OccurrenceDate = datePtr(occurrence)
	tx.CreatedAt = createdAt.Time

	return &tx, nil
}

// EncodeTags serializes the set as a sorted JSON array
func EncodeTags(t domain.Tags) (string, error) {
	b, err := json.Marshal(t.Sorted())
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(b), nil
}

// DecodeTags parses a JSON array produced by EncodeTags
func DecodeTags(s string) (domain.Tags, error) {
	var labels []string
	if s != "" {
		if err := json.Unmarshal([]byte(s), &labels); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	return domain.NewTags(labels...), nil
}

// EncodeAttachments serializes the references as a JSON array, keeping their order
func EncodeAttachments(refs []domain.AttachmentRef) (string, error) {
	if refs == nil {
		refs = []domain.AttachmentRef{}
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("failed to encode attachments: %w", err)
	}
	return string(b), nil
}

// DecodeAttachments parses a JSON array produced by EncodeAttachments.
// An empty array decodes to nil.
func DecodeAttachments(s string) ([]domain.AttachmentRef, error) {
	var refs []domain.AttachmentRef
	if s != "" {
		if err := json.Unmarshal([]byte(s), &refs); err != nil {
			return nil, fmt.Errorf("failed to decode attachments: %w", err)
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return refs, nil
}

// NullUUID converts an optional ID into a nullable column value
func NullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// NullDate converts an optional date into a nullable column value
func NullDate(d *domain.Date) driver.Valuer {
	if d == nil {
		return domain.Date{}
	}
	return *d
}

// NullInt converts an optional small integer into a nullable column value
func NullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

// Timestamp scans TIMESTAMPTZ values as well as the Unix-nanosecond integers the SQLite store writes
type Timestamp struct {
	time.Time
}

// Scan implements sql.Scanner
func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v.UTC()
	case int64:
		t.Time = time.Unix(0, v).UTC()
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", src)
	}
	return nil
}

func (t *Timestamp) scanString(s string) error {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.Unix(0, n).UTC()
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("cannot parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func datePtr(d domain.Date) *domain.Date {
	if d.IsZero() {
		return nil
	}
	return &d
}

func intPtr(n sql.NullInt32) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}
