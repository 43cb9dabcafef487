package ordering

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/liftoff/internal/meet"
)

// MinChangeDistance is the number of queue slots an athlete must be beyond
// the current position for a weight change to be accepted.
const MinChangeDistance = 3

// ValidateAttemptWeight checks a requested weight against the previous
// attempt of the same lift.
//
// Attempt 1 must be at least MinOpenerKg. Later attempts may repeat the
// previous weight, but may not go down, and any increase must be at least
// IncrementKg. A later attempt with no previous weight is an error.
func ValidateAttemptWeight(weight float64, previous *float64, attemptNumber int) error {
	if attemptNumber < 1 || attemptNumber > meet.MaxAttempts {
		return NewValidationError(ErrCodeInvalidAttempt, "attempt number must be between 1 and %d, got %d", meet.MaxAttempts, attemptNumber)
	}

	w := decimal.NewFromFloat(weight)
	if attemptNumber == 1 {
		if w.LessThan(decimal.NewFromFloat(MinOpenerKg)) {
			return NewValidationError(ErrCodeBelowMinimum, "minimum opening attempt is %gkg, got %gkg", MinOpenerKg, weight)
		}
		return nil
	}

	if previous == nil {
		return NewValidationError(ErrCodeMissingPrevious, "attempt %d requires the weight of attempt %d", attemptNumber, attemptNumber-1)
	}

	prev := decimal.NewFromFloat(*previous)
	switch {
	case w.LessThan(prev):
		return NewValidationError(ErrCodeDecrease, "weight cannot decrease from %gkg to %gkg", *previous, weight)
	case w.Equal(prev):
		return nil
	case w.Sub(prev).LessThan(IncrementKg):
		return NewValidationError(ErrCodeIncrementTooSmall, "increase from %gkg must be at least %skg, got %gkg", *previous, IncrementKg.String(), weight)
	}
	return nil
}

// CanChangeAttempt reports whether an athlete may still change weight.
//
// The athlete's queue position must be more than MinChangeDistance slots
// after currentIndex. Athletes missing from the order are rejected.
func CanChangeAttempt(athleteID string, order []Entry, currentIndex int) error {
	pos := IndexOf(order, athleteID)
	if pos < 0 {
		return NewValidationError(ErrCodeNotInOrder, "athlete %s is not in the attempt order", athleteID)
	}
	if distance := pos - currentIndex; distance <= MinChangeDistance {
		return NewValidationError(ErrCodeTooClose, "athlete %s is %d slots from the bar; changes close %d slots out", athleteID, distance, MinChangeDistance)
	}
	return nil
}
