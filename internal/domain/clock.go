package domain

import "time"

// Clock is the source of "today" for every entry point that needs the current date.
// Pure components (pattern calculator, expiry policy) never read it; callers pass dates in.
type Clock interface {
	Today() Date
}

// SystemClock reads the wall clock in the given location (time.Local when nil)
type SystemClock struct {
	Location *time.Location
}

// Today returns the current calendar date
func (c SystemClock) Today() Date {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return DateOf(time.Now().In(loc))
}

// FixedClock always returns the same date. Useful for tests and for replaying a given day.
type FixedClock Date

// Today returns the fixed date
func (c FixedClock) Today() Date { return Date(c) }
