package expiry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
)

func TestIsExpired(t *testing.T) {
	end := domain.MustParseDate("2024-06-01")
	bounded := domain.RecurrencePattern{
		Frequency: domain.FrequencyMonthly,
		Interval:  1,
		StartDate: domain.MustParseDate("2024-01-01"),
		EndDate:   &end,
	}
	unbounded := bounded
	unbounded.EndDate = nil

	tests := []struct {
		name      string
		pattern   domain.RecurrencePattern
		candidate string
		want      bool
	}{
		{"before end date", bounded, "2024-05-31", false},
		{"on end date", bounded, "2024-06-01", false},
		{"day after end date", bounded, "2024-06-02", true},
		{"long after end date", bounded, "2030-01-01", true},
		{"no end date", unbounded, "2999-12-31", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExpired(tt.pattern, domain.MustParseDate(tt.candidate)))
		})
	}
}
