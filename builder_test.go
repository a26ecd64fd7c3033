package uikit

import (
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/uikit/internal/ir"
)

type buttonCtx struct {
	Attempts int
	Message  string
}

func TestMachineBuilder_Basic(t *testing.T) {
	machine, err := NewMachine[buttonCtx]("button").
		WithInitial("idle").
		WithContext(buttonCtx{Message: "ready"}).
		State("idle").On("HOVER").Target("hover").Done().
		State("hover").On("UNHOVER").Target("idle").Done().
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if machine.ID != "button" {
		t.Errorf("expected ID 'button', got %q", machine.ID)
	}
	if machine.Initial != "idle" {
		t.Errorf("expected initial 'idle', got %q", machine.Initial)
	}
	if machine.Context.Message != "ready" {
		t.Errorf("expected context to be carried, got %+v", machine.Context)
	}
	if len(machine.States) != 2 {
		t.Fatalf("expected 2 states, got %d", len(machine.States))
	}

	hover := machine.States["idle"].FindTransition("HOVER")
	if hover == nil || hover.Target != "hover" {
		t.Errorf("expected HOVER -> hover, got %+v", hover)
	}
}

func TestMachineBuilder_ActionsAndGuards(t *testing.T) {
	machine, err := NewMachine[buttonCtx]("button").
		WithInitial("idle").
		WithAction("incrementAttempts", func(ctx *buttonCtx, e Event) { ctx.Attempts++ }).
		WithAction("track", func(ctx *buttonCtx, e Event) {}).
		WithGuard("hasAttempts", func(ctx buttonCtx, e Event) bool { return ctx.Attempts > 0 }).
		State("idle").On("PRESS").Target("pressed").Do("track").Done().
		State("pressed").
		OnEntry("incrementAttempts").
		OnExit("track").
		On("RELEASE").Target("hover").Guard("hasAttempts").
		On("RELEASE").Target("idle").
		Done().
		State("hover").Done().
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	pressed := machine.States["pressed"]
	if len(pressed.Entry) != 1 || pressed.Entry[0] != "incrementAttempts" {
		t.Errorf("unexpected entry actions %v", pressed.Entry)
	}
	if len(pressed.Exit) != 1 || pressed.Exit[0] != "track" {
		t.Errorf("unexpected exit actions %v", pressed.Exit)
	}
	if len(pressed.Transitions) != 2 {
		t.Fatalf("expected both RELEASE branches, got %d", len(pressed.Transitions))
	}
	if pressed.Transitions[0].Guard != "hasAttempts" || pressed.Transitions[1].Guard != "" {
		t.Errorf("guarded branch must precede the fallback")
	}
	if machine.States["idle"].Transitions[0].Actions[0] != "track" {
		t.Errorf("expected transition action 'track'")
	}
	if machine.GetAction("incrementAttempts") == nil || machine.GetGuard("hasAttempts") == nil {
		t.Error("expected registered action and guard")
	}
}

func TestMachineBuilder_Targetless(t *testing.T) {
	machine, err := NewMachine[buttonCtx]("focus").
		WithInitial("open").
		WithAction("focusFirst", func(ctx *buttonCtx, e Event) {}).
		State("open").On("FOCUS_FIRST").Do("focusFirst").Done().
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	trans := machine.States["open"].FindTransition("FOCUS_FIRST")
	if trans == nil || !trans.IsTargetless() {
		t.Fatalf("expected targetless transition, got %+v", trans)
	}
}

func TestMachineBuilder_After(t *testing.T) {
	machine, err := NewMachine[buttonCtx]("button").
		WithInitial("success").
		State("success").
		After(2 * time.Second).Target("idle").
		On("RESET").Target("idle").
		Done().
		State("idle").Done().
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	delayed := machine.States["success"].DelayedTransitions()
	if len(delayed) != 1 {
		t.Fatalf("expected 1 delayed transition, got %d", len(delayed))
	}
	if delayed[0].Delay != 2*time.Second {
		t.Errorf("expected 2s delay, got %s", delayed[0].Delay)
	}
	if delayed[0].Event != "after.2000.success" {
		t.Errorf("unexpected delayed event %q", delayed[0].Event)
	}
	if machine.States["success"].FindTransition("RESET") == nil {
		t.Error("chained On after After must stay on the same state")
	}
}

func TestMachineBuilder_NestedAndParallel(t *testing.T) {
	machine, err := NewMachine[struct{}]("ui").
		WithInitial("ui").
		State("ui").Parallel().
		Region("menu").WithInitial("closed").
		State("closed").On("TOGGLE_MENU").Target("open").EndState().
		State("open").On("TOGGLE_MENU").Target("closed").EndState().
		EndRegion().
		Region("player").WithInitial("idle").
		State("idle").On("OPEN_PLAYER").Target("playing").EndState().
		State("playing").WithInitial("buffering").
		State("buffering").End().
		State("streaming").End().
		EndState().
		EndRegion().
		Done().
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ui := machine.States["ui"]
	if ui.Type != StateTypeParallel {
		t.Errorf("expected parallel, got %s", ui.Type)
	}
	if len(ui.Children) != 2 || ui.Children[0] != "menu" || ui.Children[1] != "player" {
		t.Errorf("unexpected regions %v", ui.Children)
	}
	if machine.States["menu"].Type != StateTypeCompound || machine.States["menu"].Parent != "ui" {
		t.Errorf("menu should be a compound region of ui")
	}
	playing := machine.States["playing"]
	if playing.Type != StateTypeCompound || playing.Initial != "buffering" {
		t.Errorf("playing should be compound with initial buffering, got %+v", playing)
	}
	if machine.States["streaming"].Parent != "playing" {
		t.Errorf("streaming should be nested in playing")
	}

	want := []StateID{"ui", "menu", "closed", "open", "player", "idle", "playing", "buffering", "streaming"}
	got := machine.StatesInOrder()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("document order %v, want %v", got, want)
		}
	}
}

func TestMachineBuilder_ValidationError(t *testing.T) {
	_, err := NewMachine[struct{}]("broken").
		WithInitial("idle").
		State("idle").On("GO").Target("nowhere").Done().
		Build()
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Issues[0].Code != ir.ErrCodeInvalidTarget {
		t.Errorf("expected %s, got %s", ir.ErrCodeInvalidTarget, verr.Issues[0].Code)
	}
}
