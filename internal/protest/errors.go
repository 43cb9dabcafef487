package protest

import (
	"errors"
	"fmt"
)

// Code classifies protest rejections.
type Code string

const (
	CodeWindowClosed    Code = "WINDOW_CLOSED"
	CodeNoWindow        Code = "NO_WINDOW"
	CodeInvalidType     Code = "INVALID_TYPE"
	CodeReasonTooShort  Code = "REASON_TOO_SHORT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInvalidDecision Code = "INVALID_DECISION"
	CodeAthleteMismatch Code = "ATHLETE_MISMATCH"
)

// Error is a rejected protest operation. No state changes when one is returned.
type Error struct {
	Code   Code
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("protest %s: %s", e.Code, e.Reason)
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// IsError reports whether err is a protest rejection.
func IsError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// CodeOf returns the rejection code of err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ErrNotFound is returned by repositories for unknown protest IDs.
var ErrNotFound = errors.New("protest not found")
