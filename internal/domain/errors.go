package domain

import "errors"

// Domain errors
var (
	// Event errors
	ErrEventNotFound = errors.New("event not found")

	// Validation errors
	ErrEmptyTitle            = errors.New("event title must not be empty")
	ErrZeroCapacity          = errors.New("total capacity must be at least 1")
	ErrActivationNotInFuture = errors.New("activation time must be in the future")
	ErrInvalidClaimantID     = errors.New("invalid claimant id")

	// InvariantViolation signals a reachable-only-by-bug condition, such
	// as decrementing an already-zero capacity counter. It indicates the
	// engine's mutual-exclusion contract was broken and must never be
	// silently swallowed.
	ErrInvariantViolation = errors.New("allocation invariant violated")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrEventNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyTitle) ||
		errors.Is(err, ErrZeroCapacity) ||
		errors.Is(err, ErrActivationNotInFuture) ||
		errors.Is(err, ErrInvalidClaimantID)
}

// IsInvariantViolation checks if the error indicates a correctness bug
// in the allocation path.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
