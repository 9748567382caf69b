package calculator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
)

func intPtr(v int) *int { return &v }

func d(s string) domain.Date { return domain.MustParseDate(s) }

func pattern(freq domain.Frequency, interval int, start string, opts ...domain.PatternOption) domain.RecurrencePattern {
	p := domain.RecurrencePattern{Frequency: freq, Interval: interval, StartDate: d(start)}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name    string
		pattern domain.RecurrencePattern
		anchor  string
		want    string
	}{
		// Daily
		{"daily interval 1", pattern(domain.FrequencyDaily, 1, "2024-01-01"), "2024-01-31", "2024-02-01"},
		{"daily interval 3 crosses leap day", pattern(domain.FrequencyDaily, 3, "2024-01-01"), "2024-02-27", "2024-03-01"},
		{"daily interval 10 crosses year", pattern(domain.FrequencyDaily, 10, "2023-01-01"), "2023-12-25", "2024-01-04"},

		// Weekly
		{"weekly interval 1", pattern(domain.FrequencyWeekly, 1, "2024-01-01"), "2024-01-03", "2024-01-10"},
		{"weekly interval 2 already aligned", pattern(domain.FrequencyWeekly, 2, "2024-01-01", domain.OnWeekday(3)), "2024-01-03", "2024-01-17"},
		{"weekly shifts forward onto friday", pattern(domain.FrequencyWeekly, 1, "2024-01-01", domain.OnWeekday(5)), "2024-01-03", "2024-01-12"},
		{"weekly shifts forward onto sunday", pattern(domain.FrequencyWeekly, 1, "2024-01-01", domain.OnWeekday(0)), "2024-01-03", "2024-01-14"},
		{"weekly interval 3 with weekday", pattern(domain.FrequencyWeekly, 3, "2024-01-01", domain.OnWeekday(1)), "2024-01-01", "2024-01-22"},

		// Monthly
		{"monthly keeps anchor day", pattern(domain.FrequencyMonthly, 1, "2024-01-01"), "2024-01-15", "2024-02-15"},
		{"monthly day 31 into leap february", pattern(domain.FrequencyMonthly, 1, "2024-01-01", domain.OnDayOfMonth(31)), "2024-01-31", "2024-02-29"},
		{"monthly day 31 into common february", pattern(domain.FrequencyMonthly, 1, "2023-01-01", domain.OnDayOfMonth(31)), "2023-01-31", "2023-02-28"},
		{"monthly day 31 recovers after february", pattern(domain.FrequencyMonthly, 1, "2024-01-01", domain.OnDayOfMonth(31)), "2024-02-29", "2024-03-31"},
		{"monthly day 31 into april", pattern(domain.FrequencyMonthly, 1, "2024-01-01", domain.OnDayOfMonth(31)), "2024-03-31", "2024-04-30"},
		{"monthly anchor day 31 without day of month clamps", pattern(domain.FrequencyMonthly, 1, "2024-01-01"), "2024-01-31", "2024-02-29"},
		{"monthly interval 2 from january 31", pattern(domain.FrequencyMonthly, 2, "2024-01-01"), "2024-01-31", "2024-03-31"},
		{"monthly interval 3 crosses year", pattern(domain.FrequencyMonthly, 3, "2024-01-01"), "2024-11-15", "2025-02-15"},
		{"monthly interval 12 is a year", pattern(domain.FrequencyMonthly, 12, "2024-01-01"), "2024-12-01", "2025-12-01"},
		{"monthly interval 14", pattern(domain.FrequencyMonthly, 14, "2024-01-01", domain.OnDayOfMonth(30)), "2024-12-01", "2026-02-28"},
		{"monthly day of month earlier than anchor day", pattern(domain.FrequencyMonthly, 1, "2024-01-01", domain.OnDayOfMonth(1)), "2024-03-20", "2024-04-01"},

		// Yearly
		{"yearly keeps month and day", pattern(domain.FrequencyYearly, 1, "2024-01-01"), "2024-03-10", "2025-03-10"},
		{"yearly leap day into common year", pattern(domain.FrequencyYearly, 1, "2024-01-01"), "2024-02-29", "2025-02-28"},
		{"yearly interval 4 keeps leap day", pattern(domain.FrequencyYearly, 4, "2024-01-01"), "2024-02-29", "2028-02-29"},
		{"yearly month override", pattern(domain.FrequencyYearly, 1, "2024-01-01", domain.InMonth(6)), "2024-01-10", "2025-06-10"},
		{"yearly month and day clamp", pattern(domain.FrequencyYearly, 1, "2024-01-01", domain.InMonth(6), domain.OnDayOfMonth(31)), "2024-06-30", "2025-06-30"},
		{"yearly february 29 target", pattern(domain.FrequencyYearly, 2, "2023-01-01", domain.InMonth(2), domain.OnDayOfMonth(29)), "2023-02-28", "2025-02-28"},
		{"yearly interval 2 into leap february", pattern(domain.FrequencyYearly, 2, "2022-01-01", domain.InMonth(2), domain.OnDayOfMonth(29)), "2022-02-28", "2024-02-29"},

		// Before start
		{"anchor before start returns start", pattern(domain.FrequencyMonthly, 1, "2024-05-15", domain.OnDayOfMonth(15)), "2024-01-01", "2024-05-15"},
		{"anchor day before start returns start", pattern(domain.FrequencyDaily, 7, "2024-05-15"), "2024-05-14", "2024-05-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOccurrence(tt.pattern, d(tt.anchor))
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNextOccurrence_StrictlyIncreasing(t *testing.T) {
	patterns := []domain.RecurrencePattern{
		pattern(domain.FrequencyDaily, 1, "2023-12-30"),
		pattern(domain.FrequencyDaily, 5, "2023-12-30"),
		pattern(domain.FrequencyWeekly, 1, "2023-12-30"),
		pattern(domain.FrequencyWeekly, 2, "2023-12-30", domain.OnWeekday(3)),
		pattern(domain.FrequencyWeekly, 1, "2023-12-30", domain.OnWeekday(0)),
		pattern(domain.FrequencyMonthly, 1, "2023-12-30"),
		pattern(domain.FrequencyMonthly, 1, "2023-12-31", domain.OnDayOfMonth(31)),
		pattern(domain.FrequencyMonthly, 5, "2023-12-29", domain.OnDayOfMonth(29)),
		pattern(domain.FrequencyMonthly, 1, "2023-12-30", domain.OnDayOfMonth(1)),
		pattern(domain.FrequencyYearly, 1, "2024-02-29"),
		pattern(domain.FrequencyYearly, 3, "2023-12-30", domain.InMonth(2), domain.OnDayOfMonth(31)),
	}

	for _, p := range patterns {
		t.Run(p.String(), func(t *testing.T) {
			// Start from before the start date to cover that branch too
			current := p.StartDate.AddDays(-3)
			for i := 0; i < 400; i++ {
				next := NextOccurrence(p, current)
				require.True(t, next.After(current), "step %d: %s is not after %s", i, next, current)
				current = next
			}
		})
	}
}

func TestNextOccurrence_WeeklyAlwaysLandsOnWeekday(t *testing.T) {
	for dow := 0; dow <= 6; dow++ {
		p := pattern(domain.FrequencyWeekly, 1, "2024-01-01", domain.OnWeekday(dow))
		current := p.StartDate
		for i := 0; i < 20; i++ {
			current = NextOccurrence(p, current)
			assert.Equal(t, dow, int(current.Weekday()), "weekday %d at step %d", dow, i)
		}
	}
}

func TestNextOccurrence_DaylightSavingAgnostic(t *testing.T) {
	// 2024-03-10 (US) and 2024-03-31 (EU) are DST transitions; date arithmetic must not notice them
	p := pattern(domain.FrequencyDaily, 1, "2024-03-01")
	current := d("2024-03-01")
	for i := 0; i < 40; i++ {
		next := NextOccurrence(p, current)
		assert.Equal(t, current.AddDays(1), next)
		current = next
	}
	assert.Equal(t, "2024-04-10", current.String())

	weekly := pattern(domain.FrequencyWeekly, 1, "2024-03-01")
	assert.Equal(t, "2024-04-02", NextOccurrence(weekly, d("2024-03-26")).String())
}

// RFC 5545 and this calculator agree whenever no clamp is involved, so rrule-go works as an oracle
func TestNextOccurrence_MatchesRRuleWithoutClamp(t *testing.T) {
	freqs := map[domain.Frequency]rrule.Frequency{
		domain.FrequencyDaily:   rrule.DAILY,
		domain.FrequencyWeekly:  rrule.WEEKLY,
		domain.FrequencyMonthly: rrule.MONTHLY,
		domain.FrequencyYearly:  rrule.YEARLY,
	}

	for freq, rfreq := range freqs {
		for interval := 1; interval <= 4; interval++ {
			t.Run(fmt.Sprintf("%s/%d", freq, interval), func(t *testing.T) {
				p := pattern(freq, interval, "2020-01-01")
				for anchor := d("2023-11-01"); anchor.Before(d("2024-04-01")); anchor = anchor.AddDays(1) {
					if anchor.Day() > 28 {
						continue
					}
					rule, err := rrule.NewRRule(rrule.ROption{Freq: rfreq, Interval: interval, Dtstart: anchor.Time()})
					require.NoError(t, err)

					want := domain.DateOf(rule.After(anchor.Time(), false))
					assert.Equal(t, want, NextOccurrence(p, anchor), "anchor %s", anchor)
				}
			})
		}
	}
}

func TestFirstOccurrence(t *testing.T) {
	tests := []struct {
		name    string
		pattern domain.RecurrencePattern
		want    string
	}{
		{"daily starts on start date", pattern(domain.FrequencyDaily, 2, "2024-01-15"), "2024-01-15"},
		{"weekly without weekday", pattern(domain.FrequencyWeekly, 1, "2024-01-03"), "2024-01-03"},
		{"weekly aligned start", pattern(domain.FrequencyWeekly, 2, "2024-01-03", domain.OnWeekday(3)), "2024-01-03"},
		{"weekly shifts to next monday", pattern(domain.FrequencyWeekly, 1, "2024-01-03", domain.OnWeekday(1)), "2024-01-08"},
		{"monthly without day", pattern(domain.FrequencyMonthly, 1, "2024-01-20"), "2024-01-20"},
		{"monthly day on start", pattern(domain.FrequencyMonthly, 1, "2024-01-15", domain.OnDayOfMonth(15)), "2024-01-15"},
		{"monthly day later this month", pattern(domain.FrequencyMonthly, 1, "2024-01-10", domain.OnDayOfMonth(31)), "2024-01-31"},
		{"monthly day already passed", pattern(domain.FrequencyMonthly, 1, "2024-01-20", domain.OnDayOfMonth(1)), "2024-02-01"},
		{"monthly clamp in start month", pattern(domain.FrequencyMonthly, 1, "2024-02-10", domain.OnDayOfMonth(31)), "2024-02-29"},
		{"monthly clamp in next month", pattern(domain.FrequencyMonthly, 1, "2024-01-31", domain.OnDayOfMonth(30)), "2024-02-29"},
		{"yearly without fields", pattern(domain.FrequencyYearly, 1, "2024-03-10"), "2024-03-10"},
		{"yearly month later this year", pattern(domain.FrequencyYearly, 1, "2024-03-10", domain.InMonth(6)), "2024-06-10"},
		{"yearly month passed", pattern(domain.FrequencyYearly, 1, "2024-03-10", domain.InMonth(2), domain.OnDayOfMonth(29)), "2025-02-28"},
		{"yearly day later this month", pattern(domain.FrequencyYearly, 1, "2024-03-10", domain.OnDayOfMonth(25)), "2024-03-25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FirstOccurrence(tt.pattern)
			assert.Equal(t, tt.want, got.String())
			assert.False(t, got.Before(tt.pattern.StartDate))
		})
	}
}

func TestOccurrences(t *testing.T) {
	p := pattern(domain.FrequencyMonthly, 1, "2024-01-31", domain.OnDayOfMonth(31), domain.Until(d("2024-05-31")))

	got := Occurrences(p, FirstOccurrence(p), 10)
	assert.Equal(t, []domain.Date{d("2024-01-31"), d("2024-02-29"), d("2024-03-31"), d("2024-04-30"), d("2024-05-31")}, got)

	assert.Len(t, Occurrences(p, FirstOccurrence(p), 2), 2)
	assert.Empty(t, Occurrences(p, FirstOccurrence(p), 0))
	assert.Empty(t, Occurrences(p, d("2024-06-30"), 3))
}

func TestBetween(t *testing.T) {
	p := pattern(domain.FrequencyWeekly, 1, "2024-01-01", domain.OnWeekday(1))

	got := Between(p, d("2024-01-01"), d("2024-01-10"), d("2024-01-29"))
	assert.Equal(t, []domain.Date{d("2024-01-15"), d("2024-01-22"), d("2024-01-29")}, got)

	ended := pattern(domain.FrequencyWeekly, 1, "2024-01-01", domain.OnWeekday(1), domain.Until(d("2024-01-20")))
	assert.Equal(t, []domain.Date{d("2024-01-15")}, Between(ended, d("2024-01-01"), d("2024-01-10"), d("2024-01-31")))

	assert.Empty(t, Between(p, d("2024-02-05"), d("2024-01-01"), d("2024-01-31")))
}

func TestNextOccurrence_LargestInterval(t *testing.T) {
	tests := []struct {
		freq domain.Frequency
		want string
	}{
		{freq: domain.FrequencyDaily, want: "2026-09-27"},
		{freq: domain.FrequencyWeekly, want: "2033-12-19"},
		{freq: domain.FrequencyMonthly, want: "2044-01-01"},
		{freq: domain.FrequencyYearly, want: "2124-01-01"},
	}

	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			p := pattern(tt.freq, domain.MaxInterval(tt.freq), "2024-01-01")
			require.NoError(t, p.Validate())

			next := NextOccurrence(p, d("2024-01-01"))
			assert.Equal(t, tt.want, next.String())
			assert.True(t, next.InCalendar())
		})
	}
}

func TestNextOccurrence_PastLatestDate(t *testing.T) {
	p := pattern(domain.FrequencyYearly, 100, "9950-01-01")
	require.NoError(t, p.Validate())

	// The step itself is well defined; callers must not store it
	next := NextOccurrence(p, d("9950-01-01"))
	assert.True(t, next.After(domain.LatestDate))
	assert.False(t, next.InCalendar())
}

func TestOccurrences_StopAtLatestDate(t *testing.T) {
	p := pattern(domain.FrequencyYearly, 1, "9998-06-01")

	assert.Equal(t, []domain.Date{d("9998-06-01"), d("9999-06-01")}, Occurrences(p, d("9998-06-01"), 5))
	assert.Equal(t, []domain.Date{d("9999-06-01")}, Between(p, d("9998-06-01"), d("9999-01-01"), domain.LatestDate))
}
