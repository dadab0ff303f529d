package session

import (
	"time"

	"github.com/google/uuid"
)

// State is a step of the submission lifecycle.
type State int

const (
	StateIdle State = iota
	StateEditing
	StateValidating
	StateValid
	StateInvalid
	StateEncoding
	StateSent
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateValidating:
		return "validating"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	case StateEncoding:
		return "encoding"
	case StateSent:
		return "sent"
	default:
		return "unknown"
	}
}

// next lists the legal successors of every state.
var next = map[State][]State{
	StateIdle:       {StateEditing},
	StateEditing:    {StateValidating, StateIdle},
	StateValidating: {StateValid, StateInvalid},
	StateValid:      {StateEncoding},
	StateInvalid:    {StateEditing},
	StateEncoding:   {StateSent, StateEditing},
	StateSent:       {StateIdle},
}

// CanTransition reports whether from → to is part of the lifecycle.
func CanTransition(from, to State) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition is delivered to observers after every state change.
// Submission is the zero UUID outside a submission.
type Transition struct {
	From       State
	To         State
	Submission uuid.UUID
	At         time.Time
}
