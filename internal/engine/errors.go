package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/liftoff/internal/ordering"
	"github.com/roach88/liftoff/internal/protest"
)

var (
	// ErrNoCompetition is returned by commands issued before Open.
	ErrNoCompetition = errors.New("no competition is open")

	// ErrEnded is returned by commands issued after End.
	ErrEnded = errors.New("competition has ended")

	// ErrEmptyQueue is returned by Start when nobody is left to lift.
	ErrEmptyQueue = errors.New("attempt queue is empty")

	// ErrStopped is returned by Runner.Do after the runner has shut down.
	ErrStopped = errors.New("runner stopped")

	// ErrProtestsDisabled is returned by protest commands when the session
	// has no protest workflow.
	ErrProtestsDisabled = errors.New("protest workflow not configured")
)

// TransitionError reports a command that is illegal in the current state.
// No state changes when one is returned.
type TransitionError struct {
	From    State
	Command string
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Command, e.From)
}

// IsTransitionError reports whether err is a TransitionError.
// Uses errors.As to handle wrapped errors.
func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}

// PersistenceError wraps a failed collaborator call.
//
// The session applies nothing from a failed call: the queue and index are
// exactly as before, so the operator can retry the same command.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the collaborator error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a persistence failure the operator
// may retry. Uses errors.As to handle wrapped errors.
func IsRetryable(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// Machine codes for engine rejections. Weight and protest rejections keep
// the codes of their own packages.
const (
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeNoCompetition     = "NO_COMPETITION"
	CodeEnded             = "COMPETITION_ENDED"
	CodeEmptyQueue        = "EMPTY_QUEUE"
	CodeProtestsDisabled  = "PROTESTS_DISABLED"
	CodePersistence       = "PERSISTENCE_FAILED"
	CodeStopped           = "STOPPED"
)

// CodeOf returns the machine code of a command error, or "" when err
// carries none.
func CodeOf(err error) string {
	if c := ordering.CodeOf(err); c != "" {
		return string(c)
	}
	if c := protest.CodeOf(err); c != "" {
		return string(c)
	}
	switch {
	case IsTransitionError(err):
		return CodeInvalidTransition
	case errors.Is(err, ErrNoCompetition):
		return CodeNoCompetition
	case errors.Is(err, ErrEnded):
		return CodeEnded
	case errors.Is(err, ErrEmptyQueue):
		return CodeEmptyQueue
	case errors.Is(err, ErrProtestsDisabled):
		return CodeProtestsDisabled
	case IsRetryable(err):
		return CodePersistence
	case errors.Is(err, ErrStopped):
		return CodeStopped
	}
	return ""
}
