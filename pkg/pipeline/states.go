package pipeline

import (
	"errors"
	"fmt"
	"slices"
)

// Status is the pipeline state machine's current state.
type Status string

const (
	StatusPlanning     Status = "PLANNING"
	StatusArchitecting Status = "ARCHITECTING"
	StatusCoding       Status = "CODING"
	StatusReviewing    Status = "REVIEWING"
	StatusTesting      Status = "TESTING"
	StatusFinalizing   Status = "FINALIZING"
	StatusDone         Status = "DONE"
	StatusError        Status = "ERROR"
)

// Transitions lists the legal successors of every non-terminal status.
//
//nolint:gochecknoglobals // read-only transition table
var Transitions = map[Status][]Status{
	StatusPlanning:     {StatusArchitecting, StatusError},
	StatusArchitecting: {StatusCoding, StatusError},
	StatusCoding:       {StatusCoding, StatusReviewing, StatusError},
	StatusReviewing:    {StatusTesting, StatusError},
	StatusTesting:      {StatusFinalizing, StatusError},
	StatusFinalizing:   {StatusDone, StatusError},
}

// ErrInvalidTransition is returned for a transition not in Transitions.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrRecursionLimit is returned when a run needs more stage invocations than allowed.
var ErrRecursionLimit = errors.New("recursion limit reached")

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// IsValidTransition checks if a status transition is legal.
func IsValidTransition(from, to Status) bool {
	return slices.Contains(Transitions[from], to)
}

func checkTransition(from, to Status) error {
	if !IsValidTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
