package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRecurringRule_Materialize(t *testing.T) {
	rule := validRule()
	category := uuid.New()
	rule.CategoryID = &category
	rule.Attachments = []AttachmentRef{"lease.pdf", "receipt.png"}
	rule.NextExecution = MustParseDate("2024-02-01")

	tx := rule.Materialize(MustParseDate("2024-02-03"))

	assert.NotEqual(t, uuid.Nil, tx.ID)
	assert.Equal(t, rule.OwnerID, tx.OwnerID)
	assert.Equal(t, rule.AccountID, tx.AccountID)
	assert.Equal(t, category, *tx.CategoryID)
	assert.Equal(t, RuleKindExpense, tx.Kind)
	assert.True(t, decimal.NewFromInt(-1200).Equal(tx.Amount), "sign must be preserved")
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, "Rent", tx.Description)
	assert.Equal(t, "2024-02-03", tx.Date.String())
	assert.Equal(t, rule.Tags, tx.Tags)
	assert.Equal(t, []AttachmentRef{"lease.pdf", "receipt.png"}, tx.Attachments)
	assert.Equal(t, rule.ID, *tx.RecurringRuleID)
	assert.Equal(t, "2024-02-01", tx.OccurrenceDate.String())
	assert.Nil(t, tx.DestinationAccountID)
	assert.NoError(t, tx.Validate())
}

func TestRecurringRule_MaterializeTransfer(t *testing.T) {
	rule := validRule()
	dest := uuid.New()
	rule.Kind = RuleKindTransfer
	rule.DestinationAccountID = &dest
	rule.Amount = decimal.RequireFromString("250.55")

	tx := rule.Materialize(MustParseDate("2024-01-01"))

	assert.Equal(t, RuleKindTransfer, tx.Kind)
	assert.Equal(t, dest, *tx.DestinationAccountID)
	assert.Equal(t, "250.55", tx.Amount.String())
	assert.NoError(t, tx.Validate())
}

func TestTransaction_Validate(t *testing.T) {
	ruleID := uuid.New()
	occurrence := MustParseDate("2024-01-01")

	base := func() Transaction {
		return Transaction{
			ID:          uuid.New(),
			OwnerID:     uuid.New(),
			AccountID:   uuid.New(),
			Kind:        RuleKindIncome,
			Amount:      decimal.NewFromInt(3000),
			Currency:    "EUR",
			Description: "Salary",
			Date:        MustParseDate("2024-01-25"),
		}
	}

	tests := []struct {
		name    string
		mutate  func(tx *Transaction)
		wantErr bool
		errMsg  string
	}{
		{name: "valid manual transaction", mutate: func(tx *Transaction) {}},
		{
			name: "valid engine transaction",
			mutate: func(tx *Transaction) {
				tx.RecurringRuleID = &ruleID
				tx.OccurrenceDate = &occurrence
			},
		},
		{
			name:    "missing owner",
			mutate:  func(tx *Transaction) { tx.OwnerID = uuid.Nil },
			wantErr: true,
			errMsg:  "transaction owner ID is required",
		},
		{
			name:    "transfer without destination",
			mutate:  func(tx *Transaction) { tx.Kind = RuleKindTransfer },
			wantErr: true,
			errMsg:  "transfer transaction must have a destination account",
		},
		{
			name:    "zero amount",
			mutate:  func(tx *Transaction) { tx.Amount = decimal.Zero },
			wantErr: true,
			errMsg:  "transaction amount must not be zero",
		},
		{
			name:    "bad currency",
			mutate:  func(tx *Transaction) { tx.Currency = "" },
			wantErr: true,
			errMsg:  "transaction currency is invalid",
		},
		{
			name:    "missing date",
			mutate:  func(tx *Transaction) { tx.Date = Date{} },
			wantErr: true,
			errMsg:  "transaction date is required",
		},
		{
			name:    "half an idempotency key",
			mutate:  func(tx *Transaction) { tx.RecurringRuleID = &ruleID },
			wantErr: true,
			errMsg:  "both recurring rule ID and occurrence date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := base()
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$1,200.00", FormatAmount(decimal.NewFromInt(1200), "USD"))
	assert.Equal(t, "-$12.50", FormatAmount(decimal.RequireFromString("-12.5"), "USD"))
	assert.Equal(t, "12 ???", FormatAmount(decimal.NewFromInt(12), "???"))
}
