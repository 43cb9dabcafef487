package ordering

import (
	"errors"
	"fmt"
)

// ValidationCode categorizes rejected weight changes.
type ValidationCode string

const (
	// ErrCodeBelowMinimum indicates a first attempt under MinOpenerKg.
	ErrCodeBelowMinimum ValidationCode = "BELOW_MINIMUM_OPENER"

	// ErrCodeDecrease indicates a weight lower than the previous attempt.
	ErrCodeDecrease ValidationCode = "WEIGHT_DECREASE"

	// ErrCodeIncrementTooSmall indicates an increase under IncrementKg.
	ErrCodeIncrementTooSmall ValidationCode = "INCREMENT_TOO_SMALL"

	// ErrCodeMissingPrevious indicates attempt 2 or 3 with no previous weight.
	ErrCodeMissingPrevious ValidationCode = "MISSING_PREVIOUS"

	// ErrCodeInvalidAttempt indicates an attempt number outside 1..3.
	ErrCodeInvalidAttempt ValidationCode = "INVALID_ATTEMPT_NUMBER"

	// ErrCodeTooClose indicates the athlete is 3 or fewer slots from the bar.
	ErrCodeTooClose ValidationCode = "TOO_CLOSE"

	// ErrCodeNotInOrder indicates the athlete is not in the live queue.
	ErrCodeNotInOrder ValidationCode = "NOT_IN_ORDER"

	// ErrCodeAlreadyJudged indicates the slot already has a judged attempt.
	ErrCodeAlreadyJudged ValidationCode = "ALREADY_JUDGED"
)

// ValidationError is a synchronous rejection with a user-facing reason.
// No state is mutated when one is returned.
type ValidationError struct {
	Code   ValidationCode
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(code ValidationCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CodeOf returns the validation code of err, or "" if it is not a
// ValidationError.
func CodeOf(err error) ValidationCode {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}
