//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package engine

import (
	"errors"
	"fmt"
)

// State identifies one phase of the query lifecycle.
type State int

// Lifecycle states, in order.
const (
	StateIdle State = iota
	StateCondensing
	StateRetrieving
	StateGenerating
	StateResolving
	StateTerminated
)

// String returns the state name for logs and errors.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCondensing:
		return "condensing"
	case StateRetrieving:
		return "retrieving"
	case StateGenerating:
		return "generating"
	case StateResolving:
		return "resolving"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when a lifecycle move is not legal.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// transitions lists the legal moves. The lifecycle is strictly forward:
// no state repeats and nothing follows Terminated.
var transitions = map[State][]State{
	StateIdle:       {StateCondensing},
	StateCondensing: {StateRetrieving},
	StateRetrieving: {StateGenerating, StateTerminated},
	StateGenerating: {StateResolving, StateTerminated},
	StateResolving:  {StateTerminated},
	StateTerminated: nil,
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Lifecycle tracks the phase of one query. Not safe for concurrent use;
// each query owns its own Lifecycle.
type Lifecycle struct {
	state State
}

// NewLifecycle creates a Lifecycle in the Idle state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return l.state
}

// Advance moves the lifecycle to the given state, or fails with
// ErrInvalidTransition when the move is not legal.
func (l *Lifecycle) Advance(to State) error {
	if !CanTransition(l.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, to)
	}
	l.state = to
	return nil
}
