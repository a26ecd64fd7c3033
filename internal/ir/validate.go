package ir

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValidationIssue is a single problem found in a machine definition
type ValidationIssue struct {
	Code    string   // e.g. "MISSING_INITIAL", "INVALID_TARGET"
	Message string   // human-readable description
	Path    []string // e.g. ["states", "opening", "transitions", "0"]
}

func (v ValidationIssue) String() string {
	if len(v.Path) == 0 {
		return "[" + v.Code + "] " + v.Message
	}
	return fmt.Sprintf("[%s] %s (at %s)", v.Code, v.Message, strings.Join(v.Path, "."))
}

// ValidationError collects every issue of a machine definition
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "validation failed"
	case 1:
		return e.Issues[0].String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d issues:\n", len(e.Issues))
	for i, issue := range e.Issues {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, issue)
	}
	return b.String()
}

// AddIssue records an issue at path
func (e *ValidationError) AddIssue(code, message string, path ...string) {
	e.Issues = append(e.Issues, ValidationIssue{Code: code, Message: message, Path: path})
}

// HasIssues reports whether any issue was recorded
func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// Validation error codes
const (
	ErrCodeMissingInitial         = "MISSING_INITIAL"
	ErrCodeInitialNotFound        = "INITIAL_NOT_FOUND"
	ErrCodeInvalidTarget          = "INVALID_TARGET"
	ErrCodeMissingAction          = "MISSING_ACTION"
	ErrCodeMissingGuard           = "MISSING_GUARD"
	ErrCodeNoStates               = "NO_STATES"
	ErrCodeDuplicateState         = "DUPLICATE_STATE"
	ErrCodeCompoundMissingInitial = "COMPOUND_MISSING_INITIAL"
	ErrCodeCompoundInvalidInitial = "COMPOUND_INVALID_INITIAL"
	ErrCodeInvalidParent          = "INVALID_PARENT"
	ErrCodeInvalidChild           = "INVALID_CHILD"
	ErrCodeParallelNoRegions      = "PARALLEL_NO_REGIONS"
	ErrCodeParallelHasInitial     = "PARALLEL_HAS_INITIAL"
	ErrCodeDelayedMissingTarget   = "DELAYED_MISSING_TARGET"
	ErrCodeInvalidDelay           = "INVALID_DELAY"
)

// Validate checks m and returns nil when it can be interpreted.
// Issues are reported in document order.
func Validate[C any](m *MachineConfig[C]) *ValidationError {
	v := &validator[C]{m: m, errs: &ValidationError{}}

	v.checkMachine()
	for _, id := range v.orderedStates() {
		state := m.States[id]
		path := []string{"states", string(id)}

		switch state.Type {
		case StateTypeCompound:
			v.checkCompound(state, path)
		case StateTypeParallel:
			v.checkParallel(state, path)
		}
		v.checkParent(state, path)
		v.checkActions("entry", state.Entry, extend(path, "entry"))
		v.checkActions("exit", state.Exit, extend(path, "exit"))
		for i, t := range state.Transitions {
			v.checkTransition(t, extend(path, "transitions", strconv.Itoa(i)))
		}
	}

	if v.errs.HasIssues() {
		return v.errs
	}
	return nil
}

type validator[C any] struct {
	m    *MachineConfig[C]
	errs *ValidationError
}

// orderedStates lists declared states first, then any state placed in the
// map directly, by ID
func (v *validator[C]) orderedStates() []StateID {
	ids := v.m.StatesInOrder()
	seen := make(map[StateID]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}

	var extra []StateID
	for id := range v.m.States {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })

	out := ids[:0]
	for _, id := range ids {
		if v.m.States[id] != nil {
			out = append(out, id)
		}
	}
	return append(out, extra...)
}

func (v *validator[C]) checkMachine() {
	m := v.m
	if m.Initial == "" {
		v.errs.AddIssue(ErrCodeMissingInitial, "initial state is required")
	}
	if len(m.States) == 0 {
		v.errs.AddIssue(ErrCodeNoStates, "at least one state is required")
	}
	if _, ok := m.States[m.Initial]; m.Initial != "" && len(m.States) > 0 && !ok {
		v.errs.AddIssue(ErrCodeInitialNotFound,
			fmt.Sprintf("initial state '%s' not found in states", m.Initial))
	}
	for _, id := range m.duplicates {
		v.errs.AddIssue(ErrCodeDuplicateState,
			fmt.Sprintf("state '%s' is declared more than once", id),
			"states", string(id))
	}
}

func (v *validator[C]) checkCompound(state *StateConfig, path []string) {
	switch {
	case state.Initial == "":
		v.errs.AddIssue(ErrCodeCompoundMissingInitial,
			fmt.Sprintf("compound state '%s' must have an initial child state", state.ID),
			path...)
	case !containsState(state.Children, state.Initial):
		v.errs.AddIssue(ErrCodeCompoundInvalidInitial,
			fmt.Sprintf("initial state '%s' must be a child of compound state '%s'", state.Initial, state.ID),
			path...)
	}

	for i, childID := range state.Children {
		childPath := extend(path, "children", strconv.Itoa(i))
		child, ok := v.m.States[childID]
		if !ok {
			v.errs.AddIssue(ErrCodeInvalidChild, fmt.Sprintf("child state '%s' not found", childID), childPath...)
			continue
		}
		if child.Parent != state.ID {
			v.errs.AddIssue(ErrCodeInvalidChild,
				fmt.Sprintf("child state '%s' has incorrect parent '%s', expected '%s'", childID, child.Parent, state.ID),
				childPath...)
		}
	}
}

// checkParallel: every region is entered, so there is no initial child
func (v *validator[C]) checkParallel(state *StateConfig, path []string) {
	if len(state.Children) == 0 {
		v.errs.AddIssue(ErrCodeParallelNoRegions,
			fmt.Sprintf("parallel state '%s' must have at least one region", state.ID),
			path...)
	}
	if state.Initial != "" {
		v.errs.AddIssue(ErrCodeParallelHasInitial,
			fmt.Sprintf("parallel state '%s' cannot declare an initial child", state.ID),
			path...)
	}
	for i, childID := range state.Children {
		if child, ok := v.m.States[childID]; !ok || child.Parent != state.ID {
			v.errs.AddIssue(ErrCodeInvalidChild,
				fmt.Sprintf("region '%s' of parallel state '%s' is invalid", childID, state.ID),
				extend(path, "children", strconv.Itoa(i))...)
		}
	}
}

func (v *validator[C]) checkParent(state *StateConfig, path []string) {
	if state.Parent == "" {
		return
	}
	parent, ok := v.m.States[state.Parent]
	switch {
	case !ok:
		v.errs.AddIssue(ErrCodeInvalidParent,
			fmt.Sprintf("parent state '%s' not found", state.Parent),
			path...)
	case parent.Type != StateTypeCompound && parent.Type != StateTypeParallel:
		v.errs.AddIssue(ErrCodeInvalidParent,
			fmt.Sprintf("parent state '%s' is not a compound or parallel state", state.Parent),
			path...)
	}
}

// checkActions reports unregistered actions; path ends at the action list
func (v *validator[C]) checkActions(kind string, actions []ActionType, path []string) {
	for i, name := range actions {
		if _, ok := v.m.Actions[name]; !ok {
			v.errs.AddIssue(ErrCodeMissingAction,
				fmt.Sprintf("%s action '%s' is not defined", kind, name),
				extend(path, strconv.Itoa(i))...)
		}
	}
}

// checkTransition accepts targetless transitions; they run actions in place
func (v *validator[C]) checkTransition(t *TransitionConfig, path []string) {
	if _, ok := v.m.States[t.Target]; t.Target != "" && !ok {
		v.errs.AddIssue(ErrCodeInvalidTarget,
			fmt.Sprintf("transition target '%s' not found", t.Target),
			path...)
	}

	if t.Delay < 0 || (t.Event == "" && t.Delay == 0) {
		v.errs.AddIssue(ErrCodeInvalidDelay, fmt.Sprintf("delay %s must be positive", t.Delay), path...)
	}
	if t.IsDelayed() && t.Target == "" {
		v.errs.AddIssue(ErrCodeDelayedMissingTarget, "delayed transition requires a target", path...)
	}

	if _, ok := v.m.Guards[t.Guard]; t.Guard != "" && !ok {
		v.errs.AddIssue(ErrCodeMissingGuard, fmt.Sprintf("guard '%s' is not defined", t.Guard), path...)
	}
	v.checkActions("transition", t.Actions, extend(path, "actions"))
}

func containsState(ids []StateID, id StateID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// extend copies path so sibling issues never share a backing array
func extend(path []string, elems ...string) []string {
	out := make([]string, 0, len(path)+len(elems))
	return append(append(out, path...), elems...)
}
