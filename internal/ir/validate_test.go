package ir

import (
	"strings"
	"testing"
	"time"
)

type modalCtx struct{}

// modalMachine returns a valid closed/opening/open machine that tests break on purpose
func modalMachine() *MachineConfig[modalCtx] {
	m := NewMachineConfig("modal", "closed", modalCtx{})
	m.Actions["lockBodyScroll"] = func(ctx *modalCtx, e Event) {}
	m.Guards["closeOnEscape"] = func(ctx modalCtx, e Event) bool { return true }

	closed := NewStateConfig("closed", StateTypeAtomic)
	closed.Transitions = []*TransitionConfig{NewTransitionConfig("OPEN", "opening")}
	m.AddState(closed)

	opening := NewStateConfig("opening", StateTypeAtomic)
	opening.Entry = []ActionType{"lockBodyScroll"}
	settle := NewTransitionConfig(DelayedEventType("opening", 200*time.Millisecond), "open")
	settle.Delay = 200 * time.Millisecond
	opening.Transitions = []*TransitionConfig{settle}
	m.AddState(opening)

	open := NewStateConfig("open", StateTypeAtomic)
	escape := NewTransitionConfig("ESCAPE_KEY", "closed")
	escape.Guard = "closeOnEscape"
	open.Transitions = []*TransitionConfig{escape}
	m.AddState(open)

	return m
}

func TestValidate_ValidMachine(t *testing.T) {
	if err := Validate(modalMachine()); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
}

func TestValidate_Issues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *MachineConfig[modalCtx])
		code   string
	}{
		{
			name:   "missing initial",
			mutate: func(m *MachineConfig[modalCtx]) { m.Initial = "" },
			code:   ErrCodeMissingInitial,
		},
		{
			name:   "initial not found",
			mutate: func(m *MachineConfig[modalCtx]) { m.Initial = "closing" },
			code:   ErrCodeInitialNotFound,
		},
		{
			name: "invalid target",
			mutate: func(m *MachineConfig[modalCtx]) {
				m.States["open"].Transitions[0].Target = "closing"
			},
			code: ErrCodeInvalidTarget,
		},
		{
			name:   "missing guard",
			mutate: func(m *MachineConfig[modalCtx]) { delete(m.Guards, "closeOnEscape") },
			code:   ErrCodeMissingGuard,
		},
		{
			name:   "missing entry action",
			mutate: func(m *MachineConfig[modalCtx]) { delete(m.Actions, "lockBodyScroll") },
			code:   ErrCodeMissingAction,
		},
		{
			name: "missing exit action",
			mutate: func(m *MachineConfig[modalCtx]) {
				m.States["open"].Exit = []ActionType{"unlockBodyScroll"}
			},
			code: ErrCodeMissingAction,
		},
		{
			name: "missing transition action",
			mutate: func(m *MachineConfig[modalCtx]) {
				m.States["closed"].Transitions[0].Actions = []ActionType{"assignTrigger"}
			},
			code: ErrCodeMissingAction,
		},
		{
			name: "negative delay",
			mutate: func(m *MachineConfig[modalCtx]) {
				m.States["opening"].Transitions[0].Delay = -time.Second
			},
			code: ErrCodeInvalidDelay,
		},
		{
			name: "delayed without target",
			mutate: func(m *MachineConfig[modalCtx]) {
				m.States["opening"].Transitions[0].Target = ""
			},
			code: ErrCodeDelayedMissingTarget,
		},
		{
			name: "compound without initial",
			mutate: func(m *MachineConfig[modalCtx]) {
				group := NewStateConfig("group", StateTypeCompound)
				m.AddState(group)
			},
			code: ErrCodeCompoundMissingInitial,
		},
		{
			name: "parallel without regions",
			mutate: func(m *MachineConfig[modalCtx]) {
				m.AddState(NewStateConfig("shell", StateTypeParallel))
			},
			code: ErrCodeParallelNoRegions,
		},
		{
			name: "parallel with initial",
			mutate: func(m *MachineConfig[modalCtx]) {
				shell := NewStateConfig("shell", StateTypeParallel)
				shell.Initial = "region"
				shell.Children = []StateID{"region"}
				m.AddState(shell)
				region := NewStateConfig("region", StateTypeAtomic)
				region.Parent = "shell"
				m.AddState(region)
			},
			code: ErrCodeParallelHasInitial,
		},
		{
			name: "parent is atomic",
			mutate: func(m *MachineConfig[modalCtx]) {
				child := NewStateConfig("stray", StateTypeAtomic)
				child.Parent = "open"
				m.AddState(child)
			},
			code: ErrCodeInvalidParent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := modalMachine()
			tt.mutate(m)

			err := Validate(m)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !containsCode(err, tt.code) {
				t.Errorf("expected %s, got: %v", tt.code, err)
			}
		})
	}
}

func TestValidate_TargetlessTransition(t *testing.T) {
	m := modalMachine()
	m.Actions["focusFirstElement"] = func(ctx *modalCtx, e Event) {}
	focus := NewTransitionConfig("FOCUS_FIRST", "")
	focus.Actions = []ActionType{"focusFirstElement"}
	m.States["open"].Transitions = append(m.States["open"].Transitions, focus)

	if err := Validate(m); err != nil {
		t.Errorf("targetless transitions are valid, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	m := modalMachine()
	m.Initial = "closing"
	m.States["closed"].Entry = []ActionType{"restoreFocus"}
	m.States["closed"].Exit = []ActionType{"announceOpening"}

	err := Validate(m)
	if err == nil {
		t.Fatal("expected errors")
	}
	if len(err.Issues) < 3 {
		t.Errorf("expected at least 3 issues, got %d: %v", len(err.Issues), err)
	}
	if !strings.Contains(err.Error(), "validation failed with") {
		t.Errorf("expected multi-issue summary, got: %s", err.Error())
	}
}

func TestValidationError_String(t *testing.T) {
	err := &ValidationError{}
	err.AddIssue("TEST_CODE", "test message", "states", "open", "transitions", "0")

	str := err.Error()
	if !strings.Contains(str, "TEST_CODE") {
		t.Errorf("expected error string to contain code, got: %s", str)
	}
	if !strings.Contains(str, "test message") {
		t.Errorf("expected error string to contain message, got: %s", str)
	}
	if !strings.Contains(str, "states.open.transitions.0") {
		t.Errorf("expected error string to contain path, got: %s", str)
	}
}

func containsCode(err *ValidationError, code string) bool {
	for _, issue := range err.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}
