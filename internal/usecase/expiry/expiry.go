package expiry

import "github.com/simaogato/wealthflow-recurring/internal/domain"

// IsExpired reports whether candidate falls strictly after the pattern's EndDate.
// A pattern without EndDate never expires; an occurrence exactly on EndDate is still allowed.
func IsExpired(pattern domain.RecurrencePattern, candidate domain.Date) bool {
	if pattern.EndDate == nil {
		return false
	}
	return candidate.After(*pattern.EndDate)
}
