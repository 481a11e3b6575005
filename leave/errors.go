/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error categories in one place. Callers branch with errors.Is/As;
  the HTTP layer maps categories to status codes.

ERROR CATEGORIES:
  1. Validation errors - business-rule violations, rejected before any
     external call, no partial state
  2. Not-found errors  - referenced ledger record missing
  3. External errors   - calendar unreachable or rejecting (see the
     calendar package for the status-class taxonomy)
  4. Consistency errors - ledger and mirror diverged and the compensating
     step could not heal it; requires manual reconciliation

SEE ALSO:
  - calendar/errors.go: external status classes
  - validator.go, service.go: producers of these errors
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all business-rule rejections.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden is returned when the actor may not touch the record.
	ErrForbidden = errors.New("forbidden")

	// ErrConsistency is returned when ledger and external mirror diverged
	// and the compensating step failed. Manual reconciliation required.
	ErrConsistency = errors.New("ledger and calendar require manual reconciliation")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError carries the violated rule and a human-readable reason.
type ValidationError struct {
	Rule   string // e.g. "weekend_start", "zero_usage", "type_class_change"
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Rule, e.Reason) }
func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationErr(rule, format string, args ...any) error {
	return &ValidationError{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError identifies the missing record.
type NotFoundError struct {
	ID RecordID
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("record %d not found", e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConsistencyError records the divergence left behind by a failed
// compensation: the external event that exists without a ledger row.
type ConsistencyError struct {
	ExternalEventID string
	Cause           error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("external event %s has no ledger row and compensating delete failed: %v",
		e.ExternalEventID, e.Cause)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }
