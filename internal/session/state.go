package session

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of a session.
type State int32

// Session states. A session moves forward only:
//
//	Unstarted -> Registering -> Active -> Stopping -> Terminated
//	                         \-> Aborted
const (
	StateUnstarted State = iota
	StateRegistering
	StateActive
	StateStopping
	StateTerminated
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateRegistering:
		return "registering"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateTerminated:
		return "terminated"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Final reports whether no further transition is possible.
func (s State) Final() bool {
	return s == StateTerminated || s == StateAborted
}

// Errors returned by sessions.
var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current state.
	ErrInvalidTransition = errors.New("session: invalid state transition")
	// ErrRegistrationFailed is returned when every registration attempt failed.
	ErrRegistrationFailed = errors.New("session: registration failed")
	// ErrNotRegistered is returned when an action needs a user id that the
	// session does not have.
	ErrNotRegistered = errors.New("session: user not registered")
)

var transitions = map[State][]State{
	StateUnstarted:   {StateRegistering, StateTerminated},
	StateRegistering: {StateActive, StateAborted},
	StateActive:      {StateStopping},
	StateStopping:    {StateTerminated},
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
