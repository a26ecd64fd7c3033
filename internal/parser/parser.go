// Package parser turns struct definitions tagged with the uikit DSL into a
// machine schema. It knows the marker types by name only, so it has no
// dependency on the root package.
package parser

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"
)

// StateSchemaType is the kind of a parsed state.
type StateSchemaType int

const (
	StateSchemaAtomic StateSchemaType = iota
	StateSchemaCompound
	StateSchemaFinal
	StateSchemaParallel
)

// TransitionSchema is one parsed transition. An empty Target declares a
// targetless transition; a non-zero Delay replaces the Event.
type TransitionSchema struct {
	Event   string
	Target  string
	Guard   string
	Actions []string
	Delay   time.Duration
}

// StateSchema is one parsed state and its children, in field order.
type StateSchema struct {
	Name        string
	Type        StateSchemaType
	Initial     string
	Entry       []string
	Exit        []string
	Transitions []TransitionSchema
	Children    []*StateSchema
}

// MachineSchema is the parsed machine definition.
type MachineSchema struct {
	ID      string
	Initial string
	States  []*StateSchema
}

// Marker type names
const (
	MarkerMachineDefinition = "MachineDef"
	MarkerState             = "StateNode"
	MarkerCompoundState     = "CompoundNode"
	MarkerFinalState        = "FinalNode"
	MarkerParallelState     = "ParallelNode"
)

var markerKinds = map[string]StateSchemaType{
	MarkerState:         StateSchemaAtomic,
	MarkerCompoundState: StateSchemaCompound,
	MarkerFinalState:    StateSchemaFinal,
	MarkerParallelState: StateSchemaParallel,
}

var (
	errMissingArrow  = errors.New("missing '->'")
	errEmptyEvent    = errors.New("empty event")
	errEmptyTarget   = errors.New("empty target")
	errMissingDefTag = errors.New("struct must embed uikit.MachineDef")
)

// ParseMachineStruct parses t, a struct (or pointer to one) embedding MachineDef.
func ParseMachineStruct(t reflect.Type) (*MachineSchema, error) {
	t = deref(t)
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", t.Kind())
	}

	def, ok := findField(t, func(f reflect.StructField) bool {
		return markerName(f.Type) == MarkerMachineDefinition
	})
	if !ok {
		return nil, errMissingDefTag
	}

	schema := &MachineSchema{ID: def.Tag.Get("id"), Initial: def.Tag.Get("initial")}
	switch {
	case schema.ID == "":
		return nil, fmt.Errorf("invalid machine tag: missing required 'id' tag")
	case schema.Initial == "":
		return nil, fmt.Errorf("invalid machine tag: missing required 'initial' tag")
	}

	states, err := parseFields(t, func(f reflect.StructField) bool {
		return f.Index[0] == def.Index[0]
	})
	if err != nil {
		return nil, err
	}
	schema.States = states
	return schema, nil
}

// parseFields parses every state field of t except the skipped ones
func parseFields(t reflect.Type, skip func(reflect.StructField) bool) ([]*StateSchema, error) {
	var states []*StateSchema
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if skip(field) {
			continue
		}
		state, err := parseStateField(field)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if state != nil {
			states = append(states, state)
		}
	}
	return states, nil
}

// parseStateField returns nil for fields that are not states.
// A field is a state when its type is a marker, or a struct embedding one;
// the embedded marker's tag wins over the field's own tag.
func parseStateField(field reflect.StructField) (*StateSchema, error) {
	ft := deref(field.Type)
	if ft.Kind() != reflect.Struct {
		return nil, nil
	}

	if kind, ok := markerKinds[markerName(ft)]; ok {
		if kind == StateSchemaParallel {
			return nil, fmt.Errorf("parallel state %s declares no regions", field.Name)
		}
		return newState(field.Name, kind, field.Tag)
	}

	marker, ok := findField(ft, func(f reflect.StructField) bool {
		_, known := markerKinds[markerName(f.Type)]
		return f.Anonymous && known
	})
	if !ok {
		return nil, nil
	}

	tag := marker.Tag
	if tag == "" {
		tag = field.Tag
	}
	kind := markerKinds[markerName(marker.Type)]
	state, err := newState(field.Name, kind, tag)
	if err != nil {
		return nil, err
	}
	if kind == StateSchemaParallel && state.Initial != "" {
		return nil, fmt.Errorf("parallel state %s must not declare an initial state", field.Name)
	}
	if kind != StateSchemaCompound && kind != StateSchemaParallel {
		return state, nil
	}

	children, err := parseFields(ft, func(f reflect.StructField) bool { return f.Anonymous })
	if err != nil {
		return nil, fmt.Errorf("child %w", err)
	}
	state.Children = children
	return state, nil
}

// newState builds a state from its tags:
// `on:"EV->target,..." after:"2s->idle" entry:"a,b" exit:"c" initial:"child"`
func newState(field string, kind StateSchemaType, tag reflect.StructTag) (*StateSchema, error) {
	state := &StateSchema{
		Name:    toSnakeCase(field),
		Type:    kind,
		Initial: tag.Get("initial"),
		Entry:   splitTrim(tag.Get("entry"), ","),
		Exit:    splitTrim(tag.Get("exit"), ","),
	}

	on, err := parseTransitions(tag.Get("on"))
	if err != nil {
		return nil, fmt.Errorf("invalid 'on' tag: %w", err)
	}
	after, err := parseDelayedTransitions(tag.Get("after"))
	if err != nil {
		return nil, fmt.Errorf("invalid 'after' tag: %w", err)
	}
	state.Transitions = append(on, after...)
	return state, nil
}

// parseTransitions parses a comma separated list of transitions
func parseTransitions(s string) ([]TransitionSchema, error) {
	var out []TransitionSchema
	for i, part := range splitTrim(s, ",") {
		t, err := parseTransition(part)
		if err != nil {
			return nil, fmt.Errorf("transition %d: %w", i+1, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// parseDelayedTransitions parses "200ms->open" style entries, where the
// duration stands in for the event. Delayed transitions need a target.
func parseDelayedTransitions(s string) ([]TransitionSchema, error) {
	var out []TransitionSchema
	for i, part := range splitTrim(s, ",") {
		t, err := parseTransition(part)
		if err == nil && t.Target == "" {
			err = fmt.Errorf("%w: %s", errEmptyTarget, part)
		}
		if err != nil {
			return nil, fmt.Errorf("delayed transition %d: %w", i+1, err)
		}

		delay, err := time.ParseDuration(t.Event)
		if err != nil {
			return nil, fmt.Errorf("delayed transition %d: %w", i+1, err)
		}
		if delay <= 0 {
			return nil, fmt.Errorf("delayed transition %d: delay must be positive: %s", i+1, t.Event)
		}
		t.Event, t.Delay = "", delay
		out = append(out, t)
	}
	return out, nil
}

// parseTransition parses "EVENT->target/action1;action2:guard". Every part
// after the event is optional, but a transition needs a target or an action.
func parseTransition(s string) (TransitionSchema, error) {
	var t TransitionSchema

	event, rest, ok := strings.Cut(s, "->")
	if !ok {
		return t, fmt.Errorf("%w in transition: %s", errMissingArrow, s)
	}
	if t.Event = strings.TrimSpace(event); t.Event == "" {
		return t, fmt.Errorf("%w in transition: %s", errEmptyEvent, s)
	}

	if i := strings.LastIndex(rest, ":"); i >= 0 {
		t.Guard = strings.TrimSpace(rest[i+1:])
		rest = rest[:i]
	}
	target, actions, _ := strings.Cut(rest, "/")
	t.Target = strings.TrimSpace(target)
	t.Actions = splitTrim(actions, ";")

	if t.Target == "" && len(t.Actions) == 0 {
		return t, fmt.Errorf("%w in transition: %s", errEmptyTarget, s)
	}
	return t, nil
}

func findField(t reflect.Type, match func(reflect.StructField) bool) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); match(f) {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func markerName(t reflect.Type) string {
	return deref(t).Name()
}

func deref(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

// toSnakeCase maps field names to state IDs. Acronyms stay together:
// HTTPServer becomes http_server.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			afterLower := unicode.IsLower(runes[i-1])
			beforeLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if afterLower || beforeLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// splitTrim splits s on sep, dropping blank parts.
func splitTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
