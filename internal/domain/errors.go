package domain

import "errors"

var (
	// ErrRuleNotFound is returned by a RuleRegistry when no rule has the requested ID
	ErrRuleNotFound = errors.New("recurring rule not found")

	// ErrVersionConflict is returned by RuleRegistry.Save when the stored rule was modified
	// since it was read. Callers treat it as transient and retry on the next pass.
	ErrVersionConflict = errors.New("recurring rule version conflict")

	// ErrDuplicateOccurrence is returned by a Ledger when a transaction for the same
	// rule occurrence has already been recorded
	ErrDuplicateOccurrence = errors.New("occurrence already materialized")

	// ErrInvalidPattern wraps every recurrence pattern validation failure
	ErrInvalidPattern = errors.New("invalid recurrence pattern")

	// ErrInvalidRule wraps every recurring rule validation failure
	ErrInvalidRule = errors.New("invalid recurring rule")
)
