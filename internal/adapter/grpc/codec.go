package grpc

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/forecast"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/recurring"
)

// args reads request fields out of a structpb.Struct.
// Every accessor returns an InvalidArgument status naming the offending field.
type args map[string]any

func argsOf(req *structpb.Struct) args {
	if req == nil {
		return args{}
	}
	return args(req.AsMap())
}

func (a args) has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

func (a args) str(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid("%s must be a string", key)
	}
	return s, nil
}

func (a args) requiredUUID(key string) (uuid.UUID, error) {
	s, err := a.str(key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, invalid("invalid %s format: %v", key, err)
	}
	return id, nil
}

func (a args) optionalUUID(key string) (*uuid.UUID, error) {
	if !a.has(key) {
		return nil, nil
	}
	id, err := a.requiredUUID(key)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (a args) requiredDate(key string) (domain.Date, error) {
	s, err := a.str(key)
	if err != nil {
		return domain.Date{}, err
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return domain.Date{}, invalid("invalid %s: %v", key, err)
	}
	return d, nil
}

func (a args) optionalDate(key string) (*domain.Date, error) {
	if !a.has(key) {
		return nil, nil
	}
	d, err := a.requiredDate(key)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (a args) integer(key string) (int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, nil
	}
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, invalid("%s must be an integer", key)
	}
	return int(f), nil
}

func (a args) optionalInt(key string) (*int, error) {
	if !a.has(key) {
		return nil, nil
	}
	n, err := a.integer(key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (a args) boolean(key string) (bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, invalid("%s must be a boolean", key)
	}
	return b, nil
}

func (a args) strings(key string) ([]string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, invalid("%s must be a list of strings", key)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, invalid("%s must be a list of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

func (a args) amount(key string) (decimal.Decimal, error) {
	s, err := a.str(key)
	if err != nil {
		return decimal.Zero, err
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalid("invalid amount format: %v", err)
	}
	return amount, nil
}

func (a args) nested(key string) (args, bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false, invalid("%s must be an object", key)
	}
	return args(m), true, nil
}

func (a args) kind(key string) (domain.RuleKind, error) {
	s, err := a.str(key)
	if err != nil {
		return "", err
	}
	k, err := domain.ParseRuleKind(s)
	if err != nil {
		return "", invalid("%v", err)
	}
	return k, nil
}

func (a args) attachments(key string) ([]domain.AttachmentRef, error) {
	refs, err := a.strings(key)
	if err != nil || refs == nil {
		return nil, err
	}
	out := make([]domain.AttachmentRef, len(refs))
	for i, r := range refs {
		out[i] = domain.AttachmentRef(r)
	}
	return out, nil
}

// pattern decodes {frequency, interval, start_date, end_date, day_of_week, day_of_month, month_of_year}
func (a args) pattern() (domain.RecurrencePattern, error) {
	s, err := a.str("frequency")
	if err != nil {
		return domain.RecurrencePattern{}, err
	}
	freq, err := domain.ParseFrequency(s)
	if err != nil {
		return domain.RecurrencePattern{}, invalid("%v", err)
	}

	interval := 1
	if a.has("interval") {
		if interval, err = a.integer("interval"); err != nil {
			return domain.RecurrencePattern{}, err
		}
	}

	p := domain.RecurrencePattern{Frequency: freq, Interval: interval}
	if p.StartDate, err = a.requiredDate("start_date"); err != nil {
		return p, err
	}
	if p.EndDate, err = a.optionalDate("end_date"); err != nil {
		return p, err
	}
	if p.DayOfWeek, err = a.optionalInt("day_of_week"); err != nil {
		return p, err
	}
	if p.DayOfMonth, err = a.optionalInt("day_of_month"); err != nil {
		return p, err
	}
	if p.MonthOfYear, err = a.optionalInt("month_of_year"); err != nil {
		return p, err
	}
	return p, nil
}

func createInput(a args) (recurring.CreateRuleInput, error) {
	var (
		in  recurring.CreateRuleInput
		err error
	)
	if in.OwnerID, err = a.requiredUUID("owner_id"); err != nil {
		return in, err
	}
	if in.AccountID, err = a.requiredUUID("account_id"); err != nil {
		return in, err
	}
	if in.DestinationAccountID, err = a.optionalUUID("destination_account_id"); err != nil {
		return in, err
	}
	if in.CategoryID, err = a.optionalUUID("category_id"); err != nil {
		return in, err
	}
	if in.Kind, err = a.kind("kind"); err != nil {
		return in, err
	}
	if in.Amount, err = a.amount("amount"); err != nil {
		return in, err
	}
	if in.Currency, err = a.str("currency"); err != nil {
		return in, err
	}
	if in.Description, err = a.str("description"); err != nil {
		return in, err
	}
	if in.Tags, err = a.strings("tags"); err != nil {
		return in, err
	}
	if in.Attachments, err = a.attachments("attachments"); err != nil {
		return in, err
	}

	p, ok, err := a.nested("pattern")
	if err != nil {
		return in, err
	}
	if !ok {
		return in, invalid("pattern is required")
	}
	in.Pattern, err = p.pattern()
	return in, err
}

// updateInput only sets the fields present in the request
func updateInput(a args) (recurring.UpdateRuleInput, error) {
	var (
		in  recurring.UpdateRuleInput
		err error
	)

	if a.has("expected_version") {
		v, err := a.integer("expected_version")
		if err != nil {
			return in, err
		}
		in.ExpectedVersion = int64(v)
	}
	if in.AccountID, err = a.optionalUUID("account_id"); err != nil {
		return in, err
	}
	if in.DestinationAccountID, err = a.optionalUUID("destination_account_id"); err != nil {
		return in, err
	}
	if in.ClearDestination, err = a.boolean("clear_destination"); err != nil {
		return in, err
	}
	if in.CategoryID, err = a.optionalUUID("category_id"); err != nil {
		return in, err
	}
	if in.ClearCategory, err = a.boolean("clear_category"); err != nil {
		return in, err
	}
	if a.has("kind") {
		k, err := a.kind("kind")
		if err != nil {
			return in, err
		}
		in.Kind = &k
	}
	if a.has("amount") {
		amount, err := a.amount("amount")
		if err != nil {
			return in, err
		}
		in.Amount = &amount
	}
	if a.has("currency") {
		s, err := a.str("currency")
		if err != nil {
			return in, err
		}
		in.Currency = &s
	}
	if a.has("description") {
		s, err := a.str("description")
		if err != nil {
			return in, err
		}
		in.Description = &s
	}
	if a.has("tags") {
		tags, err := a.strings("tags")
		if err != nil {
			return in, err
		}
		in.Tags = &tags
	}
	if a.has("attachments") {
		refs, err := a.attachments("attachments")
		if err != nil {
			return in, err
		}
		in.Attachments = &refs
	}
	if p, ok, err := a.nested("pattern"); err != nil {
		return in, err
	} else if ok {
		pattern, err := p.pattern()
		if err != nil {
			return in, err
		}
		in.Pattern = &pattern
	}
	if a.has("is_active") {
		active, err := a.boolean("is_active")
		if err != nil {
			return in, err
		}
		in.IsActive = &active
	}
	return in, nil
}

func ruleToMap(r *domain.RecurringRule) map[string]any {
	pattern := map[string]any{
		"frequency":  string(r.Pattern.Frequency),
		"interval":   r.Pattern.Interval,
		"start_date": r.Pattern.StartDate.String(),
	}
	if r.Pattern.EndDate != nil {
		pattern["end_date"] = r.Pattern.EndDate.String()
	}
	if r.Pattern.DayOfWeek != nil {
		pattern["day_of_week"] = *r.Pattern.DayOfWeek
	}
	if r.Pattern.DayOfMonth != nil {
		pattern["day_of_month"] = *r.Pattern.DayOfMonth
	}
	if r.Pattern.MonthOfYear != nil {
		pattern["month_of_year"] = *r.Pattern.MonthOfYear
	}

	m := map[string]any{
		"id":             r.ID.String(),
		"owner_id":       r.OwnerID.String(),
		"account_id":     r.AccountID.String(),
		"kind":           string(r.Kind),
		"amount":         r.Amount.String(),
		"currency":       r.Currency,
		"description":    r.Description,
		"tags":           stringList(r.Tags.Sorted()),
		"attachments":    attachmentList(r.Attachments),
		"pattern":        pattern,
		"next_execution": r.NextExecution.String(),
		"is_active":      r.IsActive,
		"version":        r.Version,
		"created_at":     r.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":     r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if r.DestinationAccountID != nil {
		m["destination_account_id"] = r.DestinationAccountID.String()
	}
	if r.CategoryID != nil {
		m["category_id"] = r.CategoryID.String()
	}
	if r.LastExecuted != nil {
		m["last_executed"] = r.LastExecuted.String()
	}
	return m
}

func transactionToMap(tx *domain.Transaction) map[string]any {
	m := map[string]any{
		"id":          tx.ID.String(),
		"owner_id":    tx.OwnerID.String(),
		"account_id":  tx.AccountID.String(),
		"kind":        string(tx.Kind),
		"amount":      tx.Amount.String(),
		"currency":    tx.Currency,
		"description": tx.Description,
		"date":        tx.Date.String(),
		"tags":        stringList(tx.Tags.Sorted()),
		"attachments": attachmentList(tx.Attachments),
		"created_at":  tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if tx.DestinationAccountID != nil {
		m["destination_account_id"] = tx.DestinationAccountID.String()
	}
	if tx.CategoryID != nil {
		m["category_id"] = tx.CategoryID.String()
	}
	if tx.RecurringRuleID != nil {
		m["recurring_rule_id"] = tx.RecurringRuleID.String()
		m["occurrence_date"] = tx.OccurrenceDate.String()
	}
	return m
}

func forecastToMap(f *forecast.ForecastResult) map[string]any {
	occurrences := make([]any, 0, len(f.Occurrences))
	for _, o := range f.Occurrences {
		occurrences = append(occurrences, map[string]any{
			"rule_id":     o.RuleID.String(),
			"date":        o.Date.String(),
			"kind":        string(o.Kind),
			"amount":      o.Amount.String(),
			"currency":    o.Currency,
			"description": o.Description,
		})
	}
	totals := make([]any, 0, len(f.Totals))
	for _, t := range f.Totals {
		totals = append(totals, map[string]any{
			"currency":    t.Currency,
			"income":      t.Income.String(),
			"expense":     t.Expense.String(),
			"transfer":    t.Transfer.String(),
			"net":         t.Net.String(),
			"occurrences": t.Occurrences,
		})
	}
	return map[string]any{
		"from":        f.From.String(),
		"to":          f.To.String(),
		"occurrences": occurrences,
		"totals":      totals,
	}
}

func stringList(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func attachmentList(refs []domain.AttachmentRef) []any {
	out := make([]any, len(refs))
	for i, r := range refs {
		out[i] = string(r)
	}
	return out
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

func invalid(format string, a ...any) error {
	return status.Error(codes.InvalidArgument, fmt.Sprintf(format, a...))
}
