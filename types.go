package uikit

import "github.com/felixgeelhaar/uikit/internal/ir"

// Re-export non-generic types from internal/ir for public API
type (
	// StateType represents the kind of state node
	StateType = ir.StateType
	// EventType is a named event identifier
	EventType = ir.EventType
	// StateID uniquely identifies a state within a machine
	StateID = ir.StateID
	// ActionType identifies a named action
	ActionType = ir.ActionType
	// GuardType identifies a named guard
	GuardType = ir.GuardType
	// Event represents a runtime event with optional payload
	Event = ir.Event
	// ValidationError is returned by Build when a definition is inconsistent
	ValidationError = ir.ValidationError
)

// MachineConfig is a validated, immutable machine definition
type MachineConfig[C any] = ir.MachineConfig[C]

// Action is a side-effect function executed during transitions.
// It receives a pointer to the context for modification and the triggering event.
type Action[C any] func(ctx *C, event Event)

// Guard is a predicate that determines if a transition should occur.
// It receives the current context (by value) and the triggering event.
type Guard[C any] func(ctx C, event Event) bool

// Re-export constants
const (
	StateTypeAtomic   = ir.StateTypeAtomic
	StateTypeCompound = ir.StateTypeCompound
	StateTypeFinal    = ir.StateTypeFinal
	StateTypeParallel = ir.StateTypeParallel
)

// State represents the current runtime state of an interpreter
type State[C any] struct {
	Value   StateID // Current state ID (leaf state, or parallel state when in parallel)
	Context C       // Current context

	// When inside a parallel state, maps region ID to its current leaf state.
	// Nil when not in a parallel state.
	ActiveInParallel map[StateID]StateID
}

// Matches checks if the current state matches the given state ID
// For parallel states, also checks if any region's current state matches
func (s State[C]) Matches(id StateID) bool {
	if s.Value == id {
		return true
	}
	for region, leafID := range s.ActiveInParallel {
		if leafID == id || region == id {
			return true
		}
	}
	return false
}

// StateValue returns the value in XState form: the leaf ID as a string
// for simple machines, or a region to leaf map for parallel ones.
func (s State[C]) StateValue() any {
	if len(s.ActiveInParallel) == 0 {
		return string(s.Value)
	}
	regions := make(map[string]string, len(s.ActiveInParallel))
	for region, leaf := range s.ActiveInParallel {
		regions[string(region)] = string(leaf)
	}
	return regions
}
