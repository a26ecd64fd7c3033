package uikit

import (
	"testing"
	"time"
)

type benchCtx struct {
	Attempts int
}

type benchButton struct {
	MachineDef        `id:"bench" initial:"idle"`
	Idle              StateNode `on:"HOVER->hover,PRESS->pressed"`
	Hover             StateNode `on:"UNHOVER->idle,PRESS->pressed"`
	Pressed           StateNode `on:"RELEASE->hover:hasAttempts,RELEASE->idle" entry:"incrementAttempts"`
	HoveredAndFocused StateNode `on:"BLUR->hover"`
}

func benchRegistry() *ActionRegistry[benchCtx] {
	return NewActionRegistry[benchCtx]().
		WithAction("incrementAttempts", func(ctx *benchCtx, e Event) { ctx.Attempts++ }).
		WithGuard("hasAttempts", func(ctx benchCtx, e Event) bool { return ctx.Attempts > 0 })
}

func BenchmarkReflection_BuildTime(b *testing.B) {
	registry := benchRegistry()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := FromStruct[benchButton, benchCtx](registry); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuilder_BuildTime(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := NewMachine[benchCtx]("bench").
			WithInitial("idle").
			WithAction("incrementAttempts", func(ctx *benchCtx, e Event) { ctx.Attempts++ }).
			WithGuard("hasAttempts", func(ctx benchCtx, e Event) bool { return ctx.Attempts > 0 }).
			State("idle").On("HOVER").Target("hover").On("PRESS").Target("pressed").Done().
			State("hover").On("UNHOVER").Target("idle").On("PRESS").Target("pressed").Done().
			State("pressed").OnEntry("incrementAttempts").
			On("RELEASE").Target("hover").Guard("hasAttempts").
			On("RELEASE").Target("idle").
			Done().
			Build()
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkInterpreter_Send_HotPath measures Send on a started machine
func BenchmarkInterpreter_Send_HotPath(b *testing.B) {
	machine, err := FromStruct[benchButton, benchCtx](benchRegistry())
	if err != nil {
		b.Fatal(err)
	}
	interp := NewInterpreter(machine)
	interp.Start()

	events := []Event{{Type: "PRESS"}, {Type: "RELEASE"}, {Type: "UNHOVER"}}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		interp.Send(events[i%len(events)])
	}
}

func BenchmarkInterpreter_Send_Parallel(b *testing.B) {
	machine, err := NewMachine[benchCtx]("ui").
		WithInitial("ui").
		State("ui").Parallel().
		Region("menu").WithInitial("closed").
		State("closed").On("TOGGLE_MENU").Target("open").EndState().
		State("open").On("TOGGLE_MENU").Target("closed").EndState().
		EndRegion().
		Region("player").WithInitial("idle").
		State("idle").On("OPEN_PLAYER").Target("playing").EndState().
		State("playing").On("CLOSE_PLAYER").Target("idle").EndState().
		EndRegion().
		Done().
		Build()
	if err != nil {
		b.Fatal(err)
	}
	interp := NewInterpreter(machine)
	interp.Start()

	events := []Event{{Type: "TOGGLE_MENU"}, {Type: "OPEN_PLAYER"}, {Type: "CLOSE_PLAYER"}}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		interp.Send(events[i%len(events)])
	}
}

func BenchmarkInterpreter_DelayedCycle(b *testing.B) {
	machine, err := NewMachine[benchCtx]("modal").
		WithInitial("closed").
		State("closed").On("OPEN").Target("opening").Done().
		State("opening").After(200 * time.Millisecond).Target("open").Done().
		State("open").On("CLOSE").Target("closed").Done().
		Build()
	if err != nil {
		b.Fatal(err)
	}
	clock := NewManualClock()
	interp := NewInterpreter(machine, WithClock(clock))
	interp.Start()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		interp.Send(Event{Type: "OPEN"})
		clock.Advance(200 * time.Millisecond)
		interp.Send(Event{Type: "CLOSE"})
	}
}
