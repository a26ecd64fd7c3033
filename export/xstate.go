// Package export converts machine definitions to external formats:
// XState v5 JSON for the Stately visualiser and Graphviz DOT.
package export

import (
	"encoding/json"
	"strconv"

	"github.com/felixgeelhaar/uikit/internal/ir"
)

// XStateExporter converts a MachineConfig to XState-compatible JSON format.
// The exported JSON can be used with:
// - XState Visualizer (stately.ai/viz)
// - XState Inspector
// - XState v5 compatible tools
type XStateExporter[C any] struct {
	machine *ir.MachineConfig[C]
}

// NewXStateExporter creates a new exporter for the given machine configuration
func NewXStateExporter[C any](machine *ir.MachineConfig[C]) *XStateExporter[C] {
	return &XStateExporter[C]{machine: machine}
}

// XStateMachine represents an XState machine configuration
type XStateMachine struct {
	ID      string                `json:"id"`
	Initial string                `json:"initial,omitempty"`
	Context any                   `json:"context,omitempty"`
	States  map[string]XStateNode `json:"states"`
}

// XStateNode represents a single state in XState format
type XStateNode struct {
	Type    string                       `json:"type,omitempty"`    // "final" or "parallel"
	Initial string                       `json:"initial,omitempty"` // For compound states
	States  map[string]XStateNode        `json:"states,omitempty"`
	Entry   []string                     `json:"entry,omitempty"`
	Exit    []string                     `json:"exit,omitempty"`
	On      map[string]XStateTransitions `json:"on,omitempty"`
	After   map[string]XStateTransitions `json:"after,omitempty"` // Key is delay in milliseconds
}

// XStateTransition represents a transition in XState format.
// A transition without a target runs its actions and stays in the state.
type XStateTransition struct {
	Target  string   `json:"target,omitempty"`
	Actions []string `json:"actions,omitempty"`
	Guard   string   `json:"guard,omitempty"`
}

// XStateTransitions is the candidate list for one event, tried in order.
// A single candidate is written as an object and several as an array.
type XStateTransitions []XStateTransition

// MarshalJSON implements json.Marshaler
func (t XStateTransitions) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]XStateTransition(t))
}

// UnmarshalJSON implements json.Unmarshaler
func (t *XStateTransitions) UnmarshalJSON(data []byte) error {
	var single XStateTransition
	if err := json.Unmarshal(data, &single); err == nil {
		*t = XStateTransitions{single}
		return nil
	}
	var many []XStateTransition
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*t = many
	return nil
}

// Export converts the machine configuration to XState JSON format
func (e *XStateExporter[C]) Export() (*XStateMachine, error) {
	machine := &XStateMachine{
		ID:      e.machine.ID,
		Initial: string(e.machine.Initial),
		States:  make(map[string]XStateNode),
	}
	if !isEmpty(e.machine.Context) {
		machine.Context = e.machine.Context
	}

	for _, stateID := range e.machine.RootStates() {
		machine.States[string(stateID)] = e.buildStateNode(stateID)
	}

	return machine, nil
}

// ExportJSON returns the machine configuration as a JSON string
func (e *XStateExporter[C]) ExportJSON() (string, error) {
	machine, err := e.Export()
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(machine)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// ExportJSONIndent returns the machine configuration as a formatted JSON string
func (e *XStateExporter[C]) ExportJSONIndent(prefix, indent string) (string, error) {
	machine, err := e.Export()
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(machine, prefix, indent)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// buildStateNode recursively builds an XState node for the given state
func (e *XStateExporter[C]) buildStateNode(stateID ir.StateID) XStateNode {
	state := e.machine.States[stateID]
	if state == nil {
		return XStateNode{}
	}

	node := XStateNode{}

	switch state.Type {
	case ir.StateTypeFinal:
		node.Type = "final"
	case ir.StateTypeParallel:
		node.Type = "parallel"
	case ir.StateTypeCompound:
		node.Initial = string(state.Initial)
	}
	// XState infers compound and atomic from the presence of nested states

	if len(state.Children) > 0 {
		node.States = make(map[string]XStateNode, len(state.Children))
		for _, childID := range state.Children {
			node.States[string(childID)] = e.buildStateNode(childID)
		}
	}

	node.Entry = actionNames(state.Entry)
	node.Exit = actionNames(state.Exit)

	for _, trans := range state.Transitions {
		transition := XStateTransition{
			Target:  string(trans.Target),
			Actions: actionNames(trans.Actions),
			Guard:   string(trans.Guard),
		}

		// Delayed transitions go in "after", event-based go in "on"
		if trans.IsDelayed() {
			if node.After == nil {
				node.After = make(map[string]XStateTransitions)
			}
			delayMs := strconv.FormatInt(trans.Delay.Milliseconds(), 10)
			node.After[delayMs] = append(node.After[delayMs], transition)
			continue
		}
		if node.On == nil {
			node.On = make(map[string]XStateTransitions)
		}
		event := string(trans.Event)
		node.On[event] = append(node.On[event], transition)
	}

	return node
}

func actionNames(actions []ir.ActionType) []string {
	if len(actions) == 0 {
		return nil
	}
	names := make([]string, len(actions))
	for i, action := range actions {
		names[i] = string(action)
	}
	return names
}

// isEmpty reports whether a context marshals to nothing worth exporting
func isEmpty(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return true
	}
	s := string(data)
	return s == "{}" || s == "null"
}
