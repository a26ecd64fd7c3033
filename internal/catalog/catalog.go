// Package catalog names the widget machines and drives any of them
// through one type-erased interface.
package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/felixgeelhaar/uikit"
	"github.com/felixgeelhaar/uikit/export"
	"github.com/felixgeelhaar/uikit/machines/button"
	"github.com/felixgeelhaar/uikit/machines/modal"
	"github.com/felixgeelhaar/uikit/machines/player"
	"github.com/felixgeelhaar/uikit/machines/ui"
)

// Machine names
const (
	Button = "button"
	Modal  = "modal"
	Player = "player"
	UI     = "ui"
)

// Snapshot is a machine state with its context flattened to JSON field names
type Snapshot struct {
	Machine string            `json:"machine"`
	Value   string            `json:"value"`
	Regions map[string]string `json:"regions,omitempty"`
	Context map[string]any    `json:"context"`
	// Children holds the snapshots of spawned actors
	Children []Snapshot `json:"children,omitempty"`
}

// String renders the value with the active leaf of every region, as in
// "ui(menu:open player:idle)"
func (s Snapshot) String() string {
	if len(s.Regions) == 0 {
		return s.Value
	}
	regions := make([]string, 0, len(s.Regions))
	for region := range s.Regions {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	var b strings.Builder
	b.WriteString(s.Value + "(")
	for i, region := range regions {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(region + ":" + s.Regions[region])
	}
	b.WriteByte(')')
	return b.String()
}

// Matches reports whether id is the value, a region or a region's leaf
func (s Snapshot) Matches(id string) bool {
	if s.Value == id {
		return true
	}
	for region, leaf := range s.Regions {
		if region == id || leaf == id {
			return true
		}
	}
	return false
}

// Driver runs one machine instance
type Driver interface {
	Name() string
	// Events lists the events the machine reacts to, in declaration order
	Events() []uikit.EventType
	Start()
	Stop()
	Send(event uikit.Event)
	Snapshot() Snapshot
	Subscribe(fn func(Snapshot)) func()
	Exporter() export.MachineExporter
}

// Config holds the runtime settings shared by every actor a driver starts
type Config struct {
	Clock  uikit.Clock
	Logger zerolog.Logger
}

func (c Config) options() []uikit.Option {
	opts := []uikit.Option{uikit.WithLogger(c.Logger)}
	if c.Clock != nil {
		opts = append(opts, uikit.WithClock(c.Clock))
	}
	return opts
}

type factory func(cfg Config) (Driver, error)

var factories = map[string]factory{
	Button: newButton,
	Modal:  newModal,
	Player: newPlayer,
	UI:     newUI,
}

// Names returns the machine names in alphabetical order
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a driver for the named machine. The machine is not started.
func New(name string, cfg Config) (Driver, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown machine %q", name)
	}
	return f(cfg)
}

// Exporters returns an exporter for every machine keyed by name
func Exporters() (map[string]export.MachineExporter, error) {
	out := make(map[string]export.MachineExporter, len(factories))
	for _, name := range Names() {
		d, err := New(name, Config{Logger: zerolog.Nop()})
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", name, err)
		}
		out[name] = d.Exporter()
	}
	return out, nil
}

// NewEvent builds an event whose payload carries fields by their JSON names.
// Machines read their payload fields from such maps.
func NewEvent(eventType uikit.EventType, fields map[string]any) uikit.Event {
	if len(fields) == 0 {
		return uikit.Event{Type: eventType}
	}
	return uikit.Event{Type: eventType, Payload: fields}
}

// actor adapts a typed interpreter to Driver
type actor[C any] struct {
	name     string
	machine  *uikit.MachineConfig[C]
	interp   *uikit.Interpreter[C]
	children func(C) []Snapshot
}

func newActor[C any](name string, machine *uikit.MachineConfig[C], cfg Config) *actor[C] {
	return &actor[C]{
		name:    name,
		machine: machine,
		interp:  uikit.NewInterpreter(machine, cfg.options()...),
	}
}

func (a *actor[C]) Name() string { return a.name }

func (a *actor[C]) Events() []uikit.EventType {
	return machineEvents(a.machine)
}

func (a *actor[C]) Start()                 { a.interp.Start() }
func (a *actor[C]) Stop()                  { a.interp.Stop() }
func (a *actor[C]) Send(event uikit.Event) { a.interp.Send(event) }

func (a *actor[C]) Snapshot() Snapshot {
	return a.snapshot(a.interp.State())
}

func (a *actor[C]) Subscribe(fn func(Snapshot)) func() {
	return a.interp.Subscribe(func(s uikit.State[C]) {
		fn(a.snapshot(s))
	})
}

func (a *actor[C]) Exporter() export.MachineExporter {
	return export.For(a.machine)
}

func (a *actor[C]) snapshot(s uikit.State[C]) Snapshot {
	return snapshotOf(a.name, s, a.children)
}

func snapshotOf[C any](name string, s uikit.State[C], children func(C) []Snapshot) Snapshot {
	snap := Snapshot{
		Machine: name,
		Value:   string(s.Value),
		Context: contextFields(s.Context),
	}
	if len(s.ActiveInParallel) > 0 {
		snap.Regions = make(map[string]string, len(s.ActiveInParallel))
		for region, leaf := range s.ActiveInParallel {
			snap.Regions[string(region)] = string(leaf)
		}
	}
	if children != nil {
		snap.Children = children(s.Context)
	}
	return snap
}

// contextFields flattens a context to a map keyed by JSON field names
func contextFields(ctx any) map[string]any {
	data, err := json.Marshal(ctx)
	if err != nil {
		return map[string]any{}
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(data, &fields); err != nil {
		return map[string]any{}
	}
	return fields
}

// machineEvents lists the non-delayed events of a machine in document order
func machineEvents[C any](m *uikit.MachineConfig[C]) []uikit.EventType {
	seen := make(map[uikit.EventType]bool)
	var events []uikit.EventType
	for _, id := range m.StatesInOrder() {
		for _, t := range m.States[id].Transitions {
			if t.IsDelayed() || seen[t.Event] {
				continue
			}
			seen[t.Event] = true
			events = append(events, t.Event)
		}
	}
	return events
}

func newButton(cfg Config) (Driver, error) {
	m, err := button.New()
	if err != nil {
		return nil, err
	}
	return newActor(Button, m, cfg), nil
}

// ModalContent is the content element of driven modals. Modal drivers act
// on a Recorder in which it holds ModalFocusable.
const ModalContent = "dialog"

// ModalFocusable are the focusable elements inside ModalContent
var ModalFocusable = []modal.Element{"close", "confirm", "cancel"}

func newModal(cfg Config) (Driver, error) {
	env := modal.NewRecorder()
	env.SetFocusable(ModalContent, ModalFocusable...)
	m, err := modal.New(env, modal.WithContentElement(ModalContent))
	if err != nil {
		return nil, err
	}
	return newActor(Modal, m, cfg), nil
}

func newPlayer(cfg Config) (Driver, error) {
	m, err := player.New(nil)
	if err != nil {
		return nil, err
	}
	return newActor(Player, m, cfg), nil
}

func newUI(cfg Config) (Driver, error) {
	p, err := player.New(nil)
	if err != nil {
		return nil, err
	}
	m, err := ui.New(p, ui.WithActorOptions(cfg.options()...))
	if err != nil {
		return nil, err
	}

	a := newActor(UI, m, cfg)
	a.children = func(ctx ui.Context) []Snapshot {
		if ctx.PlayerRef == nil {
			return nil
		}
		return []Snapshot{snapshotOf[player.Context](Player, ctx.PlayerRef.State(), nil)}
	}
	return a, nil
}
