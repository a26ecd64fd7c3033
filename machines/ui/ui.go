// Package ui coordinates a navigation menu and a media player overlay as
// two independent regions of one parallel machine. Entering the player's
// playing state spawns a player machine actor owned by the ui machine.
package ui

import (
	"github.com/felixgeelhaar/uikit"
	"github.com/felixgeelhaar/uikit/machines/player"
)

// MachineID identifies the ui machine
const MachineID = "ui"

// States
const (
	StateUI uikit.StateID = "ui"

	RegionMenu uikit.StateID = "menu"
	MenuClosed uikit.StateID = "closed"
	MenuOpen   uikit.StateID = "open"

	RegionPlayer  uikit.StateID = "player"
	PlayerIdle    uikit.StateID = "idle"
	PlayerPlaying uikit.StateID = "playing"
)

// Events
const (
	EventToggleMenu  uikit.EventType = "TOGGLE_MENU"
	EventOpenPlayer  uikit.EventType = "OPEN_PLAYER"
	EventClosePlayer uikit.EventType = "CLOSE_PLAYER"
)

// Context mirrors the region states and holds the spawned player actor.
// PlayerRef is set only while the player region is in playing.
type Context struct {
	IsMenuOpen bool `json:"isMenuOpen"`
	IsPlaying  bool `json:"isPlaying"`

	PlayerRef *uikit.Interpreter[player.Context] `json:"-"`
	PlayerID  string                             `json:"playerMachineRef,omitempty"`
}

// OpenPlayerPayload is carried by OPEN_PLAYER
type OpenPlayerPayload struct {
	MediaURL string `json:"mediaUrl"`
}

// OpenPlayerEvent builds an OPEN_PLAYER event for mediaURL
func OpenPlayerEvent(mediaURL string) uikit.Event {
	return uikit.Event{Type: EventOpenPlayer, Payload: OpenPlayerPayload{MediaURL: mediaURL}}
}

// Option configures the ui machine
type Option func(*config)

type config struct {
	actorOpts []uikit.Option
}

// WithActorOptions sets the interpreter options used for spawned player actors
func WithActorOptions(opts ...uikit.Option) Option {
	return func(c *config) {
		c.actorOpts = append(c.actorOpts, opts...)
	}
}

// New builds the ui machine. Spawned players run playerMachine; a nil
// playerMachine selects the default player with no media collaborator.
func New(playerMachine *uikit.MachineConfig[player.Context], opts ...Option) (*uikit.MachineConfig[Context], error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	if playerMachine == nil {
		m, err := player.New(nil)
		if err != nil {
			return nil, err
		}
		playerMachine = m
	}

	s := &spawner{machine: playerMachine, opts: cfg.actorOpts}

	return uikit.NewMachine[Context](MachineID).
		WithInitial(StateUI).
		WithAction("markMenuOpen", func(ctx *Context, _ uikit.Event) { ctx.IsMenuOpen = true }).
		WithAction("markMenuClosed", func(ctx *Context, _ uikit.Event) { ctx.IsMenuOpen = false }).
		WithAction("markIdle", func(ctx *Context, _ uikit.Event) { ctx.IsPlaying = false }).
		WithAction("spawnPlayer", s.spawn).
		WithAction("stopPlayer", s.stop).
		State(StateUI).Parallel().
		Region(RegionMenu).WithInitial(MenuClosed).
		State(MenuClosed).
		OnEntry("markMenuClosed").
		On(EventToggleMenu).Target(MenuOpen).
		EndState().
		State(MenuOpen).
		OnEntry("markMenuOpen").
		On(EventToggleMenu).Target(MenuClosed).
		EndState().
		EndRegion().
		Region(RegionPlayer).WithInitial(PlayerIdle).
		State(PlayerIdle).
		OnEntry("markIdle").
		On(EventOpenPlayer).Target(PlayerPlaying).
		EndState().
		State(PlayerPlaying).
		OnEntry("spawnPlayer").
		OnExit("stopPlayer").
		On(EventClosePlayer).Target(PlayerIdle).
		EndState().
		EndRegion().
		Done().
		Build()
}

type spawner struct {
	machine *uikit.MachineConfig[player.Context]
	opts    []uikit.Option
}

// spawn starts a player seeded with the media fields of the OPEN_PLAYER payload
func (s *spawner) spawn(ctx *Context, e uikit.Event) {
	seed := s.machine.Context
	switch p := e.Payload.(type) {
	case OpenPlayerPayload:
		if p.MediaURL != "" {
			seed.MediaURL = p.MediaURL
		}
	case *OpenPlayerPayload:
		if p != nil && p.MediaURL != "" {
			seed.MediaURL = p.MediaURL
		}
	default:
		seed = player.ContextFromPayload(seed, p)
	}

	child := uikit.Spawn(s.machine, seed, s.opts...)
	ctx.PlayerRef = child
	ctx.PlayerID = child.ID()
	ctx.IsPlaying = true
}

func (s *spawner) stop(ctx *Context, _ uikit.Event) {
	if ctx.PlayerRef != nil {
		ctx.PlayerRef.Stop()
	}
	ctx.PlayerRef = nil
	ctx.PlayerID = ""
}
