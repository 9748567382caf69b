package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/recurring"
)

// File is the YAML document accepted by Import
//
//	rules:
//	  - account: 6f1c...
//	    kind: expense
//	    amount: "-1200.00"
//	    currency: EUR
//	    description: Rent
//	    tags: [housing]
//	    frequency: monthly
//	    start: 2024-01-01
//	    day_of_month: 1
type File struct {
	Rules []RuleEntry `yaml:"rules"`
}

// RuleEntry is one rule of an import file. Dates use YYYY-MM-DD.
type RuleEntry struct {
	Account     string   `yaml:"account"`
	Destination string   `yaml:"destination,omitempty"`
	Category    string   `yaml:"category,omitempty"`
	Kind        string   `yaml:"kind"`
	Amount      string   `yaml:"amount"`
	Currency    string   `yaml:"currency"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags,omitempty"`
	Attachments []string `yaml:"attachments,omitempty"`

	Frequency   string `yaml:"frequency"`
	Interval    int    `yaml:"interval,omitempty"` // Defaults to 1
	Start       string `yaml:"start"`
	End         string `yaml:"end,omitempty"`
	DayOfWeek   *int   `yaml:"day_of_week,omitempty"`
	DayOfMonth  *int   `yaml:"day_of_month,omitempty"`
	MonthOfYear *int   `yaml:"month_of_year,omitempty"`
}

// EntryError reports why one entry of the file was not imported
type EntryError struct {
	Index       int // 0-based position in the rules list
	Description string
	Err         error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("rule #%d (%s): %v", e.Index+1, e.Description, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// Result lists what an import created and what it skipped
type Result struct {
	Created []*domain.RecurringRule
	Errors  []*EntryError
}

// RuleCreator is the part of the rule service the importer needs
type RuleCreator interface {
	CreateRule(ctx context.Context, input recurring.CreateRuleInput) (*domain.RecurringRule, error)
}

// Importer bulk-creates rules from YAML
type Importer struct {
	Rules  RuleCreator
	Logger zerolog.Logger
}

// NewImporter creates a new Importer instance
func NewImporter(rules RuleCreator, logger zerolog.Logger) *Importer {
	return &Importer{
		Rules:  rules,
		Logger: logger,
	}
}

// Import decodes r and creates every entry for ownerID.
// A malformed document fails as a whole; a bad entry is recorded in Result.Errors and the
// remaining entries are still imported.
func (i *Importer) Import(ctx context.Context, ownerID uuid.UUID, r io.Reader) (*Result, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode import file: %w", err)
	}

	result := &Result{}
	for idx, entry := range file.Rules {
		input, err := entry.toInput(ownerID)
		if err == nil {
			var rule *domain.RecurringRule
			rule, err = i.Rules.CreateRule(ctx, input)
			if err == nil {
				result.Created = append(result.Created, rule)
				continue
			}
		}

		entryErr := &EntryError{Index: idx, Description: entry.Description, Err: err}
		i.Logger.Warn().Err(err).Int("entry", idx+1).Str("description", entry.Description).Msg("skipping import entry")
		result.Errors = append(result.Errors, entryErr)
	}

	i.Logger.Info().
		Str("owner_id", ownerID.String()).
		Int("created", len(result.Created)).
		Int("skipped", len(result.Errors)).
		Msg("rule import finished")

	return result, nil
}

func (e RuleEntry) toInput(ownerID uuid.UUID) (recurring.CreateRuleInput, error) {
	var in recurring.CreateRuleInput

	account, err := uuid.Parse(strings.TrimSpace(e.Account))
	if err != nil {
		return in, fmt.Errorf("%w: account: %v", domain.ErrInvalidRule, err)
	}
	destination, err := optionalUUID(e.Destination)
	if err != nil {
		return in, fmt.Errorf("%w: destination: %v", domain.ErrInvalidRule, err)
	}
	category, err := optionalUUID(e.Category)
	if err != nil {
		return in, fmt.Errorf("%w: category: %v", domain.ErrInvalidRule, err)
	}

	kind, err := domain.ParseRuleKind(e.Kind)
	if err != nil {
		return in, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(e.Amount))
	if err != nil {
		return in, fmt.Errorf("%w: amount %q is not a decimal number", domain.ErrInvalidRule, e.Amount)
	}

	freq, err := domain.ParseFrequency(e.Frequency)
	if err != nil {
		return in, err
	}
	start, err := domain.ParseDate(strings.TrimSpace(e.Start))
	if err != nil {
		return in, fmt.Errorf("%w: start: %v", domain.ErrInvalidPattern, err)
	}
	interval := e.Interval
	if interval == 0 {
		interval = 1
	}

	opts := []domain.PatternOption{}
	if strings.TrimSpace(e.End) != "" {
		end, err := domain.ParseDate(strings.TrimSpace(e.End))
		if err != nil {
			return in, fmt.Errorf("%w: end: %v", domain.ErrInvalidPattern, err)
		}
		opts = append(opts, domain.Until(end))
	}
	if e.DayOfWeek != nil {
		opts = append(opts, domain.OnWeekday(*e.DayOfWeek))
	}
	if e.DayOfMonth != nil {
		opts = append(opts, domain.OnDayOfMonth(*e.DayOfMonth))
	}
	if e.MonthOfYear != nil {
		opts = append(opts, domain.InMonth(*e.MonthOfYear))
	}
	pattern, err := domain.NewRecurrencePattern(freq, interval, start, opts...)
	if err != nil {
		return in, err
	}

	attachments := make([]domain.AttachmentRef, 0, len(e.Attachments))
	for _, a := range e.Attachments {
		attachments = append(attachments, domain.AttachmentRef(a))
	}

	return recurring.CreateRuleInput{
		OwnerID:              ownerID,
		AccountID:            account,
		DestinationAccountID: destination,
		CategoryID:           category,
		Kind:                 kind,
		Amount:               amount,
		Currency:             e.Currency,
		Description:          e.Description,
		Tags:                 e.Tags,
		Attachments:          attachments,
		Pattern:              pattern,
	}, nil
}

func optionalUUID(s string) (*uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
