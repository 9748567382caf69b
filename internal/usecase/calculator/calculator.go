package calculator

import (
	"time"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
)

// NextOccurrence computes the next occurrence of a recurrence pattern after anchor.
//
// Logic:
//   - If anchor is before the pattern's StartDate, the StartDate is returned
//   - DAILY: anchor + Interval days
//   - WEEKLY: anchor + 7*Interval days, then shifted forward onto DayOfWeek if set
//   - MONTHLY: anchor + Interval months, keeping the anchor's day (or DayOfMonth if set),
//     clamped to the last day of the target month
//   - YEARLY: anchor + Interval years, month overridden by MonthOfYear if set, same day clamp
//
// The function is pure and total for a valid pattern: it never reads the clock and the
// result is strictly after anchor whenever anchor is on or after StartDate.
// EndDate is not consulted; that is the expiry policy's job.
func NextOccurrence(pattern domain.RecurrencePattern, anchor domain.Date) domain.Date {
	if anchor.Before(pattern.StartDate) {
		return pattern.StartDate
	}

	interval := pattern.Interval
	if interval < 1 {
		// Validation rejects this; stay total and strictly increasing anyway
		interval = 1
	}

	switch pattern.Frequency {
	case domain.FrequencyWeekly:
		next := anchor.AddDays(7 * interval)
		if pattern.DayOfWeek != nil {
			next = alignWeekday(next, *pattern.DayOfWeek)
		}
		return next

	case domain.FrequencyMonthly:
		year, month := addMonths(anchor.Year(), anchor.Month(), interval)
		return clampedDate(year, month, targetDay(pattern, anchor))

	case domain.FrequencyYearly:
		year := anchor.Year() + interval
		month := anchor.Month()
		if pattern.MonthOfYear != nil {
			month = time.Month(*pattern.MonthOfYear)
		}
		return clampedDate(year, month, targetDay(pattern, anchor))

	default:
		return anchor.AddDays(interval)
	}
}

// FirstOccurrence returns the first date on or after StartDate that satisfies the pattern's
// alignment fields. It is the NextExecution of a rule that has never been executed.
//
// Logic:
//   - DAILY, or any pattern without alignment fields: StartDate
//   - WEEKLY with DayOfWeek: StartDate shifted forward onto that weekday
//   - MONTHLY with DayOfMonth: the clamped DayOfMonth in StartDate's month, or in the next
//     month if that day has already passed
//   - YEARLY: MonthOfYear (default StartDate's month) and DayOfMonth (default StartDate's day)
//     in StartDate's year, or the following year if that date has already passed
func FirstOccurrence(pattern domain.RecurrencePattern) domain.Date {
	start := pattern.StartDate

	switch pattern.Frequency {
	case domain.FrequencyWeekly:
		if pattern.DayOfWeek != nil {
			return alignWeekday(start, *pattern.DayOfWeek)
		}
		return start

	case domain.FrequencyMonthly:
		if pattern.DayOfMonth == nil {
			return start
		}
		candidate := clampedDate(start.Year(), start.Month(), *pattern.DayOfMonth)
		if candidate.Before(start) {
			year, month := addMonths(start.Year(), start.Month(), 1)
			candidate = clampedDate(year, month, *pattern.DayOfMonth)
		}
		return candidate

	case domain.FrequencyYearly:
		month := start.Month()
		if pattern.MonthOfYear != nil {
			month = time.Month(*pattern.MonthOfYear)
		}
		day := start.Day()
		if pattern.DayOfMonth != nil {
			day = *pattern.DayOfMonth
		}
		candidate := clampedDate(start.Year(), month, day)
		if candidate.Before(start) {
			candidate = clampedDate(start.Year()+1, month, day)
		}
		return candidate

	default:
		return start
	}
}

// Occurrences lists up to n occurrences of the pattern starting from first (inclusive),
// stopping at the pattern's EndDate or domain.LatestDate. first is normally a rule's NextExecution.
func Occurrences(pattern domain.RecurrencePattern, first domain.Date, n int) []domain.Date {
	if n <= 0 {
		return nil
	}
	out := make([]domain.Date, 0, n)
	current := first
	for len(out) < n {
		if (pattern.EndDate != nil && current.After(*pattern.EndDate)) || current.After(domain.LatestDate) {
			break
		}
		out = append(out, current)
		current = NextOccurrence(pattern, current)
	}
	return out
}

// Between lists the occurrences falling in the closed window [from, to], walking forward from
// first (normally a rule's NextExecution) and honouring the pattern's EndDate.
func Between(pattern domain.RecurrencePattern, first, from, to domain.Date) []domain.Date {
	var out []domain.Date
	for current := first; !current.After(to); current = NextOccurrence(pattern, current) {
		if (pattern.EndDate != nil && current.After(*pattern.EndDate)) || current.After(domain.LatestDate) {
			break
		}
		if !current.Before(from) {
			out = append(out, current)
		}
	}
	return out
}

// alignWeekday shifts d forward (0-6 days) so it lands on the given weekday
func alignWeekday(d domain.Date, weekday int) domain.Date {
	shift := (weekday - int(d.Weekday()) + 7) % 7
	return d.AddDays(shift)
}

// targetDay is DayOfMonth when set, otherwise the anchor's own day
func targetDay(pattern domain.RecurrencePattern, anchor domain.Date) int {
	if pattern.DayOfMonth != nil {
		return *pattern.DayOfMonth
	}
	return anchor.Day()
}

// addMonths adds n months to (year, month) without touching the day, so there is no overflow
func addMonths(year int, month time.Month, n int) (int, time.Month) {
	total := int(month) - 1 + n
	year += total / 12
	return year, time.Month(total%12 + 1)
}

// clampedDate builds the date, clamping day to the month length (Jan 31 -> Feb 28/29)
func clampedDate(year int, month time.Month, day int) domain.Date {
	if last := domain.DaysInMonth(year, month); day > last {
		day = last
	}
	return domain.NewDate(year, month, day)
}
