package domain

import (
	"errors"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction represents a dated ledger entry.
// Entries produced by the recurring engine carry the rule ID and the occurrence they materialize.
type Transaction struct {
	ID                   uuid.UUID
	OwnerID              uuid.UUID
	AccountID            uuid.UUID
	DestinationAccountID *uuid.UUID // NULL unless Kind is TRANSFER
	CategoryID           *uuid.UUID
	Kind                 RuleKind
	Amount               decimal.Decimal
	Currency             string
	Description          string
	Date                 Date
	Tags                 Tags
	Attachments          []AttachmentRef

	// Idempotency key of engine-generated entries: (RecurringRuleID, OccurrenceDate) is unique
	RecurringRuleID *uuid.UUID
	OccurrenceDate  *Date

	CreatedAt time.Time
}

// Validate ensures the transaction adheres to domain rules
// Returns an error if validation fails
func (t *Transaction) Validate() error {
	if t.OwnerID == uuid.Nil {
		return errors.New("transaction owner ID is required")
	}
	if t.AccountID == uuid.Nil {
		return errors.New("transaction account ID is required")
	}

	switch t.Kind {
	case RuleKindIncome, RuleKindExpense:
	case RuleKindTransfer:
		if t.DestinationAccountID == nil {
			return errors.New("transfer transaction must have a destination account")
		}
	default:
		return errors.New("transaction kind must be INCOME, EXPENSE or TRANSFER")
	}

	if t.Amount.IsZero() {
		return errors.New("transaction amount must not be zero")
	}
	if money.GetCurrency(t.Currency) == nil {
		return errors.New("transaction currency is invalid")
	}
	if t.Date.IsZero() {
		return errors.New("transaction date is required")
	}

	// Both halves of the idempotency key go together
	if (t.RecurringRuleID == nil) != (t.OccurrenceDate == nil) {
		return errors.New("transaction must have both recurring rule ID and occurrence date, or neither")
	}

	return nil
}

// Materialize builds the ledger transaction for the rule's current occurrence, dated on.
// Amount, currency, kind and the side fields are exact copies: no conversion or rounding happens here.
func (r *RecurringRule) Materialize(on Date) *Transaction {
	ruleID := r.ID
	occurrence := r.NextExecution

	tx := &Transaction{
		ID:              uuid.New(),
		OwnerID:         r.OwnerID,
		AccountID:       r.AccountID,
		CategoryID:      cloneUUID(r.CategoryID),
		Kind:            r.Kind,
		Amount:          r.Amount,
		Currency:        r.Currency,
		Description:     r.Description,
		Date:            on,
		Tags:            r.Tags.Clone(),
		Attachments:     append([]AttachmentRef(nil), r.Attachments...),
		RecurringRuleID: &ruleID,
		OccurrenceDate:  &occurrence,
	}
	if r.Kind == RuleKindTransfer {
		tx.DestinationAccountID = cloneUUID(r.DestinationAccountID)
	}
	return tx
}

// FormatAmount renders an amount with its currency symbol, e.g. "$1,200.00"
func FormatAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.String() + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, currency).Display()
}
