package domain

import (
	"fmt"
	"strings"
)

// Frequency represents the unit a recurrence pattern steps by
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

// ParseFrequency converts user input ("monthly", "MONTHLY") into a Frequency
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown frequency %q", ErrInvalidPattern, s)
}

// maxInterval bounds Interval per frequency, roughly a century of steps at most
var maxInterval = map[Frequency]int{
	FrequencyDaily:   1000,
	FrequencyWeekly:  520,
	FrequencyMonthly: 240,
	FrequencyYearly:  100,
}

// MaxInterval returns the largest Interval accepted for freq (0 for an unknown frequency)
func MaxInterval(freq Frequency) int { return maxInterval[freq] }

// RecurrencePattern describes when a recurring rule fires.
// It is a value object: copy it, never mutate a pattern that belongs to a stored rule.
type RecurrencePattern struct {
	Frequency   Frequency
	Interval    int   // Step count in units of Frequency (2 + WEEKLY = every two weeks)
	StartDate   Date  // First day the schedule is active
	EndDate     *Date // Optional. No occurrence may be generated after it.
	DayOfWeek   *int  // Optional 0-6 (Sunday = 0). WEEKLY only.
	DayOfMonth  *int  // Optional 1-31, clamped to the month length. MONTHLY or YEARLY.
	MonthOfYear *int  // Optional 1-12. YEARLY only.
}

// Validate ensures the pattern is well formed.
// Every violation wraps ErrInvalidPattern so callers can reject it before a rule is stored.
func (p RecurrencePattern) Validate() error {
	switch p.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
	default:
		return fmt.Errorf("%w: frequency must be DAILY, WEEKLY, MONTHLY or YEARLY", ErrInvalidPattern)
	}

	if p.Interval < 1 {
		return fmt.Errorf("%w: interval must be a positive integer", ErrInvalidPattern)
	}
	if limit := MaxInterval(p.Frequency); p.Interval > limit {
		return fmt.Errorf("%w: interval for %s must not exceed %d", ErrInvalidPattern, p.Frequency, limit)
	}

	if p.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidPattern)
	}
	if !p.StartDate.InCalendar() {
		return fmt.Errorf("%w: start date %s is outside 0001-01-01..%s", ErrInvalidPattern, p.StartDate, LatestDate)
	}
	if p.EndDate != nil && !p.EndDate.InCalendar() {
		return fmt.Errorf("%w: end date %s is outside 0001-01-01..%s", ErrInvalidPattern, p.EndDate, LatestDate)
	}

	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidPattern, p.EndDate, p.StartDate)
	}

	if p.DayOfWeek != nil {
		if p.Frequency != FrequencyWeekly {
			return fmt.Errorf("%w: day of week requires WEEKLY frequency", ErrInvalidPattern)
		}
		if *p.DayOfWeek < 0 || *p.DayOfWeek > 6 {
			return fmt.Errorf("%w: day of week must be between 0 and 6", ErrInvalidPattern)
		}
	}

	if p.DayOfMonth != nil {
		if p.Frequency != FrequencyMonthly && p.Frequency != FrequencyYearly {
			return fmt.Errorf("%w: day of month requires MONTHLY or YEARLY frequency", ErrInvalidPattern)
		}
		if *p.DayOfMonth < 1 || *p.DayOfMonth > 31 {
			return fmt.Errorf("%w: day of month must be between 1 and 31", ErrInvalidPattern)
		}
	}

	if p.MonthOfYear != nil {
		if p.Frequency != FrequencyYearly {
			return fmt.Errorf("%w: month of year requires YEARLY frequency", ErrInvalidPattern)
		}
		if *p.MonthOfYear < 1 || *p.MonthOfYear > 12 {
			return fmt.Errorf("%w: month of year must be between 1 and 12", ErrInvalidPattern)
		}
	}

	return nil
}

// NewRecurrencePattern builds and validates a pattern in one step
func NewRecurrencePattern(freq Frequency, interval int, start Date, opts ...PatternOption) (RecurrencePattern, error) {
	p := RecurrencePattern{
		Frequency: freq,
		Interval:  interval,
		StartDate: start,
	}
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.Validate(); err != nil {
		return RecurrencePattern{}, err
	}
	return p, nil
}

// PatternOption sets an optional field of a RecurrencePattern
type PatternOption func(*RecurrencePattern)

// Until sets the end date
func Until(end Date) PatternOption {
	return func(p *RecurrencePattern) { p.EndDate = &end }
}

// OnWeekday sets the target day of week (0 = Sunday)
func OnWeekday(dow int) PatternOption {
	return func(p *RecurrencePattern) { p.DayOfWeek = &dow }
}

// OnDayOfMonth sets the target day of month
func OnDayOfMonth(dom int) PatternOption {
	return func(p *RecurrencePattern) { p.DayOfMonth = &dom }
}

// InMonth sets the target month of year
func InMonth(month int) PatternOption {
	return func(p *RecurrencePattern) { p.MonthOfYear = &month }
}

// String renders the pattern for logs and CLI output, e.g. "every 2 WEEKLY on 3 from 2024-01-03"
func (p RecurrencePattern) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "every %d %s", p.Interval, p.Frequency)
	if p.DayOfWeek != nil {
		fmt.Fprintf(&b, " on weekday %d", *p.DayOfWeek)
	}
	if p.MonthOfYear != nil {
		fmt.Fprintf(&b, " in month %d", *p.MonthOfYear)
	}
	if p.DayOfMonth != nil {
		fmt.Fprintf(&b, " on day %d", *p.DayOfMonth)
	}
	fmt.Fprintf(&b, " from %s", p.StartDate)
	if p.EndDate != nil {
		fmt.Fprintf(&b, " until %s", p.EndDate)
	}
	return b.String()
}
