package uikit

import (
	"time"

	"github.com/felixgeelhaar/uikit/internal/ir"
)

// MachineBuilder provides a fluent API for constructing state machines
type MachineBuilder[C any] struct {
	id      string
	initial StateID
	context C
	states  []*StateBuilder[C]
	actions map[ActionType]Action[C]
	guards  map[GuardType]Guard[C]
}

// StateBuilder provides a fluent API for constructing states
type StateBuilder[C any] struct {
	machine     *MachineBuilder[C]
	parent      *StateBuilder[C] // Parent state for nested states and regions
	id          StateID
	stateType   StateType
	initial     StateID // Initial child state (for compound states)
	children    []*StateBuilder[C]
	entry       []ActionType
	exit        []ActionType
	transitions []*TransitionBuilder[C]
}

// TransitionBuilder provides a fluent API for constructing transitions
type TransitionBuilder[C any] struct {
	state   *StateBuilder[C]
	event   EventType
	delay   time.Duration
	target  StateID
	guard   GuardType
	actions []ActionType
}

// NewMachine creates a new MachineBuilder with the given ID
func NewMachine[C any](id string) *MachineBuilder[C] {
	return &MachineBuilder[C]{
		id:      id,
		actions: make(map[ActionType]Action[C]),
		guards:  make(map[GuardType]Guard[C]),
	}
}

// WithInitial sets the initial state ID
func (b *MachineBuilder[C]) WithInitial(initial StateID) *MachineBuilder[C] {
	b.initial = initial
	return b
}

// WithContext sets the initial context value
func (b *MachineBuilder[C]) WithContext(ctx C) *MachineBuilder[C] {
	b.context = ctx
	return b
}

// WithAction registers a named action
func (b *MachineBuilder[C]) WithAction(name ActionType, action Action[C]) *MachineBuilder[C] {
	b.actions[name] = action
	return b
}

// WithGuard registers a named guard
func (b *MachineBuilder[C]) WithGuard(name GuardType, guard Guard[C]) *MachineBuilder[C] {
	b.guards[name] = guard
	return b
}

// State starts building a new state with the given ID
func (b *MachineBuilder[C]) State(id StateID) *StateBuilder[C] {
	sb := &StateBuilder[C]{
		machine:   b,
		id:        id,
		stateType: StateTypeAtomic,
	}
	b.states = append(b.states, sb)
	return sb
}

// Build constructs the final MachineConfig from the builder
func (b *MachineBuilder[C]) Build() (*ir.MachineConfig[C], error) {
	machine := ir.NewMachineConfig(b.id, b.initial, b.context)

	for name, action := range b.actions {
		machine.Actions[name] = ir.Action[C](action)
	}
	for name, guard := range b.guards {
		machine.Guards[name] = ir.Guard[C](guard)
	}

	for _, sb := range b.states {
		buildStateRecursive(sb, "", machine)
	}

	if err := ir.Validate(machine); err != nil {
		return nil, err
	}

	return machine, nil
}

// buildStateRecursive adds a state and its children to the machine config
// in document order.
func buildStateRecursive[C any](sb *StateBuilder[C], parentID StateID, machine *ir.MachineConfig[C]) {
	stateType := sb.stateType
	if len(sb.children) > 0 && stateType == StateTypeAtomic {
		stateType = ir.StateTypeCompound
	}

	state := ir.NewStateConfig(sb.id, stateType)
	state.Parent = parentID
	state.Initial = sb.initial
	for _, child := range sb.children {
		state.Children = append(state.Children, child.id)
	}
	state.Entry = append(state.Entry, sb.entry...)
	state.Exit = append(state.Exit, sb.exit...)

	for _, tb := range sb.transitions {
		trans := ir.NewTransitionConfig(tb.event, tb.target)
		trans.Guard = tb.guard
		trans.Delay = tb.delay
		trans.Actions = append(trans.Actions, tb.actions...)
		if trans.IsDelayed() {
			trans.Event = ir.DelayedEventType(sb.id, tb.delay)
		}
		state.Transitions = append(state.Transitions, trans)
	}

	machine.AddState(state)

	for _, child := range sb.children {
		buildStateRecursive(child, sb.id, machine)
	}
}

// --- StateBuilder methods ---

// Final marks this state as a final state
func (b *StateBuilder[C]) Final() *StateBuilder[C] {
	b.stateType = StateTypeFinal
	return b
}

// Parallel marks this state as parallel: every region declared with
// Region is active while the state is active.
func (b *StateBuilder[C]) Parallel() *StateBuilder[C] {
	b.stateType = StateTypeParallel
	return b
}

// OnEntry adds an entry action to the state
func (b *StateBuilder[C]) OnEntry(action ActionType) *StateBuilder[C] {
	b.entry = append(b.entry, action)
	return b
}

// OnExit adds an exit action to the state
func (b *StateBuilder[C]) OnExit(action ActionType) *StateBuilder[C] {
	b.exit = append(b.exit, action)
	return b
}

// WithInitial sets the initial child state for a compound state or region
func (b *StateBuilder[C]) WithInitial(initial StateID) *StateBuilder[C] {
	b.initial = initial
	return b
}

// State starts building a nested child state
func (b *StateBuilder[C]) State(id StateID) *StateBuilder[C] {
	child := &StateBuilder[C]{
		machine:   b.machine,
		parent:    b,
		id:        id,
		stateType: StateTypeAtomic,
	}
	b.children = append(b.children, child)
	return child
}

// Region starts building a region of a parallel state.
// A region is a compound state; close it with EndRegion.
func (b *StateBuilder[C]) Region(id StateID) *StateBuilder[C] {
	region := b.State(id)
	region.stateType = StateTypeCompound
	return region
}

// On starts building a new transition triggered by the given event
func (b *StateBuilder[C]) On(event EventType) *TransitionBuilder[C] {
	tb := &TransitionBuilder[C]{
		state: b,
		event: event,
	}
	b.transitions = append(b.transitions, tb)
	return tb
}

// After starts building a transition taken automatically once the state
// has been active for d. Leaving the state first cancels it.
func (b *StateBuilder[C]) After(d time.Duration) *TransitionBuilder[C] {
	tb := &TransitionBuilder[C]{
		state: b,
		delay: d,
	}
	b.transitions = append(b.transitions, tb)
	return tb
}

// Done completes the state definition and returns to the MachineBuilder
func (b *StateBuilder[C]) Done() *MachineBuilder[C] {
	return b.machine
}

// End completes a nested state and returns to the parent StateBuilder
func (b *StateBuilder[C]) End() *StateBuilder[C] {
	return b.parent
}

// EndState completes a state nested in a region and returns to the region
func (b *StateBuilder[C]) EndState() *StateBuilder[C] {
	return b.parent
}

// EndRegion completes a region and returns to its parallel state
func (b *StateBuilder[C]) EndRegion() *StateBuilder[C] {
	return b.parent
}

// --- TransitionBuilder methods ---

// Target sets the target state for the transition.
// Without a target the transition runs its actions without changing state.
func (b *TransitionBuilder[C]) Target(target StateID) *TransitionBuilder[C] {
	b.target = target
	return b
}

// Guard sets the guard condition for the transition
func (b *TransitionBuilder[C]) Guard(guard GuardType) *TransitionBuilder[C] {
	b.guard = guard
	return b
}

// Do adds an action to be executed during the transition
func (b *TransitionBuilder[C]) Do(action ActionType) *TransitionBuilder[C] {
	b.actions = append(b.actions, action)
	return b
}

// On starts a new transition on the same state (chainable)
func (b *TransitionBuilder[C]) On(event EventType) *TransitionBuilder[C] {
	return b.state.On(event)
}

// After starts a new delayed transition on the same state (chainable)
func (b *TransitionBuilder[C]) After(d time.Duration) *TransitionBuilder[C] {
	return b.state.After(d)
}

// Done completes the state definition and returns to the machine builder
func (b *TransitionBuilder[C]) Done() *MachineBuilder[C] {
	return b.state.Done()
}

// End completes the transition and returns to the owning StateBuilder
func (b *TransitionBuilder[C]) End() *StateBuilder[C] {
	return b.state
}

// EndState completes the owning state and returns to its parent
func (b *TransitionBuilder[C]) EndState() *StateBuilder[C] {
	return b.state.parent
}
