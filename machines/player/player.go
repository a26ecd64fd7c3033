// Package player models minimal media playback (ready, playing, paused,
// ended) with an expanded/collapsed flag that can be toggled in every state.
//
// The machine is declared with the struct tag DSL.
package player

import (
	"github.com/felixgeelhaar/uikit"
	"github.com/felixgeelhaar/uikit/internal/payload"
)

// MachineID identifies the player machine
const MachineID = "player"

// States
const (
	StateReady   uikit.StateID = "ready"
	StatePlaying uikit.StateID = "playing"
	StatePaused  uikit.StateID = "paused"
	StateEnded   uikit.StateID = "ended"
)

// Events
const (
	EventPlay         uikit.EventType = "PLAY"
	EventPause        uikit.EventType = "PAUSE"
	EventEnd          uikit.EventType = "END"
	EventReset        uikit.EventType = "RESET"
	EventToggleExpand uikit.EventType = "TOGGLE_EXPAND"
)

// Context describes the loaded media item and the expanded flag
type Context struct {
	MediaID          string  `json:"mediaId,omitempty"`
	MediaURL         string  `json:"mediaUrl,omitempty"`
	MediaTitle       string  `json:"mediaTitle,omitempty"`
	MediaDescription string  `json:"mediaDescription,omitempty"`
	MediaThumbnail   string  `json:"mediaThumbnail,omitempty"`
	MediaDuration    float64 `json:"mediaDuration,omitempty"`
	MediaCurrentTime float64 `json:"mediaCurrentTime,omitempty"`
	MediaViews       int     `json:"mediaViews,omitempty"`
	Expanded         bool    `json:"expanded"`
}

// Media starts playback of the item described by a Context.
// Play runs inside the transition and must not send events back to the machine.
type Media interface {
	Play(ctx Context)
}

// MediaFunc adapts a function to Media
type MediaFunc func(ctx Context)

// Play calls f(ctx)
func (f MediaFunc) Play(ctx Context) { f(ctx) }

// NopMedia ignores playback requests
type NopMedia struct{}

func (NopMedia) Play(Context) {}

type definition struct {
	uikit.MachineDef `id:"player" initial:"ready"`

	Ready   uikit.StateNode `on:"PLAY->playing/playMedia,TOGGLE_EXPAND->/toggleExpand"`
	Playing uikit.StateNode `on:"PAUSE->paused,END->ended,TOGGLE_EXPAND->/toggleExpand"`
	Paused  uikit.StateNode `on:"PLAY->playing,END->ended,TOGGLE_EXPAND->/toggleExpand"`
	Ended   uikit.StateNode `on:"RESET->ready,TOGGLE_EXPAND->/toggleExpand"`
}

// New builds the player machine with an empty context
func New(media Media) (*uikit.MachineConfig[Context], error) {
	return NewWithContext(media, Context{})
}

// NewWithContext builds the player machine starting from ctx.
// A nil media is replaced by NopMedia.
func NewWithContext(media Media, ctx Context) (*uikit.MachineConfig[Context], error) {
	if media == nil {
		media = NopMedia{}
	}
	registry := uikit.NewActionRegistry[Context]().
		WithAction("playMedia", func(ctx *Context, _ uikit.Event) {
			media.Play(*ctx)
		}).
		WithAction("toggleExpand", func(ctx *Context, _ uikit.Event) {
			ctx.Expanded = !ctx.Expanded
		})
	return uikit.FromStructWithContext[definition](registry, ctx)
}

// ContextFromPayload reads media descriptor fields from a map payload.
// Missing fields keep the values of base.
func ContextFromPayload(base Context, p any) Context {
	fields := []struct {
		key string
		dst *string
	}{
		{"mediaId", &base.MediaID},
		{"mediaUrl", &base.MediaURL},
		{"mediaTitle", &base.MediaTitle},
		{"mediaDescription", &base.MediaDescription},
		{"mediaThumbnail", &base.MediaThumbnail},
	}
	for _, f := range fields {
		if v, ok := payload.String(p, f.key); ok {
			*f.dst = v
		}
	}
	if v, ok := number(p, "mediaDuration"); ok {
		base.MediaDuration = v
	}
	if v, ok := number(p, "mediaCurrentTime"); ok {
		base.MediaCurrentTime = v
	}
	if v, ok := number(p, "mediaViews"); ok {
		base.MediaViews = int(v)
	}
	return base
}

func number(p any, key string) (float64, bool) {
	v, ok := payload.Field(p, key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
