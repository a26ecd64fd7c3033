package uikit

import (
	"fmt"
	"reflect"

	"github.com/felixgeelhaar/uikit/internal/ir"
	"github.com/felixgeelhaar/uikit/internal/parser"
)

// MachineDef is a marker type that must be embedded in a struct
// to define a state machine using the reflection DSL.
//
// Use struct tags to configure the machine:
//   - id:"machineId" - Required machine identifier
//   - initial:"stateName" - Required initial state name
//
// Example:
//
//	type Toggle struct {
//	    uikit.MachineDef `id:"toggle" initial:"off"`
//	    Off uikit.StateNode `on:"TOGGLE->on"`
//	    On  uikit.StateNode `on:"TOGGLE->off"`
//	}
type MachineDef struct{}

// StateNode is a marker type for defining atomic states in the reflection DSL.
//
// Use struct tags to configure the state:
//   - on:"EVENT->target" - Define a transition (can specify multiple with comma)
//   - on:"EVENT->target:guard" - Transition with guard condition
//   - on:"EVENT->target/action1;action2" - Transition with actions
//   - on:"EVENT->/action" - Targetless transition, runs the action and stays
//   - after:"2s->target" - Delayed transition, cancelled when the state is left
//   - entry:"action1,action2" - Entry actions
//   - exit:"action1,action2" - Exit actions
//
// Example:
//
//	Playing uikit.StateNode `on:"PAUSE->paused,TOGGLE_EXPAND->/toggleExpand"`
type StateNode struct{}

// CompoundNode is a marker type for defining compound (nested) states.
//
// Child states are defined as fields within the struct that embeds CompoundNode.
//
// Example:
//
//	type Menu struct {
//	    uikit.CompoundNode `initial:"closed"`
//	    Closed uikit.StateNode `on:"TOGGLE_MENU->open"`
//	    Open   uikit.StateNode `on:"TOGGLE_MENU->closed"`
//	}
type CompoundNode struct{}

// ParallelNode is a marker type for defining parallel states. Every child
// field is a region, usually a struct embedding CompoundNode.
type ParallelNode struct{}

// FinalNode is a marker type for defining final states.
type FinalNode struct{}

// ActionRegistry holds action and guard function implementations
// that are referenced by name in the reflection DSL.
//
// ActionRegistry is not safe for concurrent use. It should be fully
// configured before calling FromStruct or FromStructWithContext.
type ActionRegistry[C any] struct {
	actions map[ActionType]Action[C]
	guards  map[GuardType]Guard[C]
}

// NewActionRegistry creates a new empty action registry.
func NewActionRegistry[C any]() *ActionRegistry[C] {
	return &ActionRegistry[C]{
		actions: make(map[ActionType]Action[C]),
		guards:  make(map[GuardType]Guard[C]),
	}
}

// WithAction registers an action function by name.
func (r *ActionRegistry[C]) WithAction(name ActionType, action Action[C]) *ActionRegistry[C] {
	r.actions[name] = action
	return r
}

// WithGuard registers a guard function by name.
func (r *ActionRegistry[C]) WithGuard(name GuardType, guard Guard[C]) *ActionRegistry[C] {
	r.guards[name] = guard
	return r
}

// FromStruct builds a MachineConfig from a struct definition using the reflection DSL.
//
// The struct M must embed MachineDef. Actions and guards referenced in tags
// must be registered in the provided ActionRegistry.
func FromStruct[M any, C any](registry *ActionRegistry[C]) (*ir.MachineConfig[C], error) {
	var zero C
	return FromStructWithContext[M, C](registry, zero)
}

// FromStructWithContext builds a MachineConfig with an initial context value.
func FromStructWithContext[M any, C any](registry *ActionRegistry[C], ctx C) (*ir.MachineConfig[C], error) {
	var m M
	t := reflect.TypeOf(m)

	schema, err := parser.ParseMachineStruct(t)
	if err != nil {
		return nil, fmt.Errorf("parse struct: %w", err)
	}

	machine := ir.NewMachineConfig(schema.ID, ir.StateID(schema.Initial), ctx)
	if registry != nil {
		for name, action := range registry.actions {
			machine.Actions[name] = ir.Action[C](action)
		}
		for name, guard := range registry.guards {
			machine.Guards[name] = ir.Guard[C](guard)
		}
	}

	for _, stateSchema := range schema.States {
		if err := addSchemaState(machine, stateSchema, ""); err != nil {
			return nil, err
		}
	}

	if err := ir.Validate(machine); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return machine, nil
}

var schemaStateTypes = map[parser.StateSchemaType]ir.StateType{
	parser.StateSchemaAtomic:   ir.StateTypeAtomic,
	parser.StateSchemaCompound: ir.StateTypeCompound,
	parser.StateSchemaFinal:    ir.StateTypeFinal,
	parser.StateSchemaParallel: ir.StateTypeParallel,
}

// addSchemaState registers a parsed state before its children so the
// machine keeps document order.
func addSchemaState[C any](machine *ir.MachineConfig[C], schema *parser.StateSchema, parentID ir.StateID) error {
	stateType, ok := schemaStateTypes[schema.Type]
	if !ok {
		return fmt.Errorf("unknown state schema type: %d", schema.Type)
	}

	stateID := ir.StateID(schema.Name)
	state := ir.NewStateConfig(stateID, stateType)
	state.Parent = parentID
	state.Initial = ir.StateID(schema.Initial)
	for _, action := range schema.Entry {
		state.Entry = append(state.Entry, ir.ActionType(action))
	}
	for _, action := range schema.Exit {
		state.Exit = append(state.Exit, ir.ActionType(action))
	}
	for _, child := range schema.Children {
		state.Children = append(state.Children, ir.StateID(child.Name))
	}

	for _, trans := range schema.Transitions {
		transition := ir.NewTransitionConfig(ir.EventType(trans.Event), ir.StateID(trans.Target))
		transition.Guard = ir.GuardType(trans.Guard)
		transition.Delay = trans.Delay
		if transition.IsDelayed() {
			transition.Event = ir.DelayedEventType(stateID, trans.Delay)
		}
		for _, action := range trans.Actions {
			transition.Actions = append(transition.Actions, ir.ActionType(action))
		}
		state.Transitions = append(state.Transitions, transition)
	}

	machine.AddState(state)

	for _, child := range schema.Children {
		if err := addSchemaState(machine, child, stateID); err != nil {
			return err
		}
	}
	return nil
}
