package parser

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// Local marker types; the parser matches markers by type name
type MachineDef struct{}
type StateNode struct{}
type CompoundNode struct{}
type ParallelNode struct{}
type FinalNode struct{}

func TestParseMachineStruct_Player(t *testing.T) {
	type Player struct {
		MachineDef `id:"player" initial:"ready"`
		Ready      StateNode `on:"PLAY->playing/playMedia,TOGGLE_EXPAND->/toggleExpand"`
		Playing    StateNode `on:"PAUSE->paused,END->ended,TOGGLE_EXPAND->/toggleExpand"`
		Paused     StateNode `on:"PLAY->playing,END->ended" entry:"notePause" exit:"noteResume"`
		Ended      FinalNode
	}

	schema, err := ParseMachineStruct(reflect.TypeOf(Player{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if schema.ID != "player" || schema.Initial != "ready" {
		t.Errorf("unexpected machine tag: %+v", schema)
	}
	if len(schema.States) != 4 {
		t.Fatalf("expected 4 states, got %d", len(schema.States))
	}

	ready := schema.States[0]
	if ready.Name != "ready" || ready.Type != StateSchemaAtomic {
		t.Errorf("unexpected ready state: %+v", ready)
	}
	if len(ready.Transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(ready.Transitions))
	}
	play := ready.Transitions[0]
	if play.Event != "PLAY" || play.Target != "playing" || len(play.Actions) != 1 || play.Actions[0] != "playMedia" {
		t.Errorf("unexpected PLAY transition: %+v", play)
	}
	toggle := ready.Transitions[1]
	if toggle.Target != "" || len(toggle.Actions) != 1 || toggle.Actions[0] != "toggleExpand" {
		t.Errorf("expected targetless TOGGLE_EXPAND, got %+v", toggle)
	}

	paused := schema.States[2]
	if len(paused.Entry) != 1 || paused.Entry[0] != "notePause" {
		t.Errorf("expected entry [notePause], got %v", paused.Entry)
	}
	if len(paused.Exit) != 1 || paused.Exit[0] != "noteResume" {
		t.Errorf("expected exit [noteResume], got %v", paused.Exit)
	}

	if schema.States[3].Type != StateSchemaFinal {
		t.Errorf("expected ended to be final")
	}
}

func TestParseMachineStruct_GuardsAndFallback(t *testing.T) {
	type Button struct {
		MachineDef `id:"button" initial:"pressed"`
		Pressed    StateNode `on:"RELEASE->hover:hasAttempts,RELEASE->idle,CLICK->loading/track;log:canLoad"`
		Hover      StateNode
		Idle       StateNode
		Loading    StateNode
	}

	schema, err := ParseMachineStruct(reflect.TypeOf(Button{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trans := schema.States[0].Transitions
	if len(trans) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(trans))
	}
	if trans[0].Guard != "hasAttempts" || trans[0].Target != "hover" {
		t.Errorf("unexpected guarded transition: %+v", trans[0])
	}
	if trans[1].Guard != "" || trans[1].Target != "idle" {
		t.Errorf("unexpected fallback transition: %+v", trans[1])
	}
	if trans[2].Guard != "canLoad" || len(trans[2].Actions) != 2 || trans[2].Actions[1] != "log" {
		t.Errorf("unexpected CLICK transition: %+v", trans[2])
	}
}

func TestParseMachineStruct_AfterTag(t *testing.T) {
	type Modal struct {
		MachineDef `id:"modal" initial:"opening"`
		Opening    StateNode `on:"OPENED->open" after:"200ms->open"`
		Open       StateNode
		Success    StateNode `after:"2s->open/clear:canClear"`
	}

	schema, err := ParseMachineStruct(reflect.TypeOf(Modal{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opening := schema.States[0]
	if len(opening.Transitions) != 2 {
		t.Fatalf("expected event and delayed transitions, got %d", len(opening.Transitions))
	}
	delayed := opening.Transitions[1]
	if delayed.Delay != 200*time.Millisecond || delayed.Target != "open" || delayed.Event != "" {
		t.Errorf("unexpected delayed transition: %+v", delayed)
	}

	success := schema.States[2].Transitions[0]
	if success.Delay != 2*time.Second || success.Guard != "canClear" || success.Actions[0] != "clear" {
		t.Errorf("unexpected delayed transition: %+v", success)
	}
}

func TestParseMachineStruct_AfterTagErrors(t *testing.T) {
	tests := map[string]string{
		"bad duration":   "soon->open",
		"negative":       "-1s->open",
		"missing target": "1s->/clear",
		"missing arrow":  "1s open",
	}

	for name, after := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parseDelayedTransitions(after); err == nil {
				t.Errorf("expected error for %q", after)
			}
		})
	}
}

func TestParseMachineStruct_Parallel(t *testing.T) {
	type Menu struct {
		CompoundNode `initial:"closed"`
		Closed       StateNode `on:"TOGGLE_MENU->open"`
		Open         StateNode `on:"TOGGLE_MENU->closed"`
	}
	type Player struct {
		CompoundNode `initial:"idle"`
		Idle         StateNode `on:"OPEN_PLAYER->playing"`
		Playing      StateNode `on:"CLOSE_PLAYER->idle" entry:"spawnPlayer"`
	}
	type Shell struct {
		ParallelNode
		Menu   Menu
		Player Player
	}
	type UI struct {
		MachineDef `id:"ui" initial:"ui"`
		UI         Shell
	}

	schema, err := ParseMachineStruct(reflect.TypeOf(UI{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	shell := schema.States[0]
	if shell.Name != "ui" || shell.Type != StateSchemaParallel {
		t.Fatalf("expected parallel ui state, got %+v", shell)
	}
	if len(shell.Children) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(shell.Children))
	}
	player := shell.Children[1]
	if player.Name != "player" || player.Initial != "idle" || len(player.Children) != 2 {
		t.Errorf("unexpected player region: %+v", player)
	}
	if player.Children[1].Entry[0] != "spawnPlayer" {
		t.Errorf("expected spawnPlayer entry, got %v", player.Children[1].Entry)
	}
}

func TestParseMachineStruct_ParallelErrors(t *testing.T) {
	type Region struct {
		CompoundNode `initial:"a"`
		A            StateNode
	}
	type WithInitial struct {
		ParallelNode `initial:"region"`
		Region       Region
	}
	type InitialMachine struct {
		MachineDef `id:"bad" initial:"shell"`
		Shell      WithInitial
	}
	if _, err := ParseMachineStruct(reflect.TypeOf(InitialMachine{})); err == nil {
		t.Error("expected error for parallel state with initial")
	}

	type BareMachine struct {
		MachineDef `id:"bad" initial:"shell"`
		Shell      ParallelNode
	}
	if _, err := ParseMachineStruct(reflect.TypeOf(BareMachine{})); err == nil {
		t.Error("expected error for parallel state without regions")
	}
}

func TestParseMachineStruct_DeeplyNested(t *testing.T) {
	type Visible struct {
		CompoundNode `initial:"opening"`
		Opening      StateNode `on:"OPENED->shown"`
		Shown        StateNode
	}
	type Dialog struct {
		CompoundNode `initial:"hidden" on:"RESET->gone"`
		Hidden       StateNode `on:"OPEN->visible"`
		Visible      Visible
	}
	type DeepMachine struct {
		MachineDef `id:"deep" initial:"dialog"`
		Dialog     Dialog
		Gone       FinalNode
	}

	schema, err := ParseMachineStruct(reflect.TypeOf(DeepMachine{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dialog := schema.States[0]
	if dialog.Type != StateSchemaCompound || len(dialog.Transitions) != 1 {
		t.Errorf("unexpected dialog: %+v", dialog)
	}
	visible := dialog.Children[1]
	if visible.Type != StateSchemaCompound || visible.Initial != "opening" {
		t.Errorf("unexpected visible: %+v", visible)
	}
	if visible.Children[0].Transitions[0].Target != "shown" {
		t.Errorf("unexpected opening transitions: %+v", visible.Children[0].Transitions)
	}
}

func TestParseMachineStruct_PointerAndErrors(t *testing.T) {
	type Simple struct {
		MachineDef `id:"simple" initial:"idle"`
		Idle       StateNode
	}
	if _, err := ParseMachineStruct(reflect.TypeOf(&Simple{})); err != nil {
		t.Errorf("pointer types should parse, got %v", err)
	}

	if _, err := ParseMachineStruct(reflect.TypeOf(42)); err == nil {
		t.Error("expected error for non-struct")
	}

	type NoDef struct {
		Idle StateNode
	}
	if _, err := ParseMachineStruct(reflect.TypeOf(NoDef{})); err == nil {
		t.Error("expected error for missing MachineDef")
	}

	type NoID struct {
		MachineDef `initial:"idle"`
		Idle       StateNode
	}
	if _, err := ParseMachineStruct(reflect.TypeOf(NoID{})); err == nil {
		t.Error("expected error for missing id tag")
	}

	type NoInitial struct {
		MachineDef `id:"simple"`
		Idle       StateNode
	}
	if _, err := ParseMachineStruct(reflect.TypeOf(NoInitial{})); err == nil {
		t.Error("expected error for missing initial tag")
	}
}

func TestParseTransition_InvalidFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing arrow", "EVENT target"},
		{"empty event", "->target"},
		{"empty target without actions", "EVENT->"},
		{"empty target with guard only", "EVENT->:guard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseTransition(tt.input); err == nil {
				t.Errorf("expected error for input %q", tt.input)
			}
		})
	}
}

func TestParseTransition_Whitespace(t *testing.T) {
	trans, err := parseTransition("  BACKDROP_CLICK  ->  closing / announce ; unlock : closeOnBackdrop ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trans.Event != "BACKDROP_CLICK" || trans.Target != "closing" || trans.Guard != "closeOnBackdrop" {
		t.Errorf("unexpected transition: %+v", trans)
	}
	if len(trans.Actions) != 2 || trans.Actions[0] != "announce" || trans.Actions[1] != "unlock" {
		t.Errorf("unexpected actions: %v", trans.Actions)
	}
}

func TestParseTransitions_ErrorContext(t *testing.T) {
	_, err := parseTransitions("PLAY->playing, PAUSED, END->ended")
	if err == nil {
		t.Fatal("expected error for invalid transition")
	}
	if !strings.Contains(err.Error(), "transition 2") {
		t.Errorf("error should mention 'transition 2', got: %s", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Idle":              "idle",
		"HoveredAndFocused": "hovered_and_focused",
		"HTTPServer":        "http_server",
		"UIRegion":          "ui_region",
		"UI":                "ui",
		"":                  "",
	}

	for input, want := range tests {
		if got := toSnakeCase(input); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSplitTrim(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", nil},
		{"  ", nil},
		{"a", []string{"a"}},
		{"  a , b , c  ", []string{"a", "b", "c"}},
		{"a,,b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		result := splitTrim(tt.input, ",")
		if len(result) != len(tt.expected) {
			t.Errorf("splitTrim(%q) len = %d, expected %d", tt.input, len(result), len(tt.expected))
			continue
		}
		for i := range result {
			if result[i] != tt.expected[i] {
				t.Errorf("splitTrim(%q)[%d] = %q, expected %q", tt.input, i, result[i], tt.expected[i])
			}
		}
	}
}
