// Package button models the interaction lifecycle of a single actionable
// control: a reversible hover/focus overlay, a press counter and an
// asynchronous action cycle (loading, then success or error).
package button

import (
	"time"

	"github.com/felixgeelhaar/uikit"
	"github.com/felixgeelhaar/uikit/internal/payload"
)

// MachineID identifies the button machine
const MachineID = "button"

// States
const (
	StateIdle              uikit.StateID = "idle"
	StateHover             uikit.StateID = "hover"
	StateFocused           uikit.StateID = "focused"
	StateHoveredAndFocused uikit.StateID = "hoveredAndFocused"
	StatePressed           uikit.StateID = "pressed"
	StateLoading           uikit.StateID = "loading"
	StateSuccess           uikit.StateID = "success"
	StateError             uikit.StateID = "error"
)

// Events
const (
	EventHover        uikit.EventType = "HOVER"
	EventUnhover      uikit.EventType = "UNHOVER"
	EventPress        uikit.EventType = "PRESS"
	EventRelease      uikit.EventType = "RELEASE"
	EventClick        uikit.EventType = "CLICK"
	EventStartLoading uikit.EventType = "START_LOADING"
	EventSuccess      uikit.EventType = "SUCCESS"
	EventError        uikit.EventType = "ERROR"
	EventReset        uikit.EventType = "RESET"
	EventFocus        uikit.EventType = "FOCUS"
	EventBlur         uikit.EventType = "BLUR"
)

// Default messages used when SUCCESS or ERROR carry none
const (
	DefaultMessage = "Success!"
	DefaultError   = "An error occurred"
)

// DefaultSuccessDelay is how long the success state is shown before
// returning to idle.
const DefaultSuccessDelay = 2000 * time.Millisecond

// Context is the button's machine-local data.
//
// Error and Message are only assigned on entry to the error and success
// states and are never cleared, so both may be set after a retry.
type Context struct {
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
}

// SuccessPayload is carried by SUCCESS
type SuccessPayload struct {
	Message string `json:"message,omitempty"`
}

// ErrorPayload is carried by ERROR
type ErrorPayload struct {
	Error string `json:"error"`
}

// SuccessEvent builds a SUCCESS event. An empty message selects DefaultMessage.
func SuccessEvent(message string) uikit.Event {
	return uikit.Event{Type: EventSuccess, Payload: SuccessPayload{Message: message}}
}

// ErrorEvent builds an ERROR event. An empty message selects DefaultError.
func ErrorEvent(err string) uikit.Event {
	return uikit.Event{Type: EventError, Payload: ErrorPayload{Error: err}}
}

// Option configures the button machine
type Option func(*config)

type config struct {
	successDelay time.Duration
}

// WithSuccessDelay overrides how long success is shown before returning to idle
func WithSuccessDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.successDelay = d
		}
	}
}

// New builds the button machine definition
func New(opts ...Option) (*uikit.MachineConfig[Context], error) {
	cfg := config{successDelay: DefaultSuccessDelay}
	for _, opt := range opts {
		opt(&cfg)
	}

	return uikit.NewMachine[Context](MachineID).
		WithInitial(StateIdle).
		WithAction("incrementAttempts", incrementAttempts).
		WithAction("assignMessage", assignMessage).
		WithAction("assignError", assignError).
		// attempts was just incremented on entry to pressed, so the
		// fallback to idle is unreachable while that entry action exists.
		WithGuard("hasAttempts", func(ctx Context, e uikit.Event) bool {
			return ctx.Attempts > 0
		}).
		State(StateIdle).
		On(EventHover).Target(StateHover).
		On(EventPress).Target(StatePressed).
		On(EventFocus).Target(StateFocused).
		On(EventStartLoading).Target(StateLoading).
		Done().
		State(StateHover).
		On(EventUnhover).Target(StateIdle).
		On(EventPress).Target(StatePressed).
		On(EventFocus).Target(StateHoveredAndFocused).
		Done().
		State(StateFocused).
		On(EventBlur).Target(StateIdle).
		On(EventHover).Target(StateHoveredAndFocused).
		On(EventPress).Target(StatePressed).
		Done().
		State(StateHoveredAndFocused).
		On(EventBlur).Target(StateHover).
		On(EventUnhover).Target(StateFocused).
		On(EventPress).Target(StatePressed).
		Done().
		State(StatePressed).
		OnEntry("incrementAttempts").
		On(EventRelease).Target(StateHover).Guard("hasAttempts").
		On(EventRelease).Target(StateIdle).
		On(EventClick).Target(StateLoading).
		Done().
		State(StateLoading).
		On(EventSuccess).Target(StateSuccess).Do("assignMessage").
		On(EventError).Target(StateError).Do("assignError").
		On(EventReset).Target(StateIdle).
		Done().
		State(StateSuccess).
		After(cfg.successDelay).Target(StateIdle).
		On(EventReset).Target(StateIdle).
		Done().
		State(StateError).
		On(EventReset).Target(StateIdle).
		On(EventClick).Target(StateLoading).
		Done().
		Build()
}

func incrementAttempts(ctx *Context, _ uikit.Event) {
	ctx.Attempts++
}

func assignMessage(ctx *Context, e uikit.Event) {
	ctx.Message = DefaultMessage
	switch p := e.Payload.(type) {
	case SuccessPayload:
		if p.Message != "" {
			ctx.Message = p.Message
		}
	case *SuccessPayload:
		if p != nil && p.Message != "" {
			ctx.Message = p.Message
		}
	default:
		if msg, ok := payload.String(p, "message"); ok {
			ctx.Message = msg
		}
	}
}

func assignError(ctx *Context, e uikit.Event) {
	ctx.Error = DefaultError
	switch p := e.Payload.(type) {
	case ErrorPayload:
		if p.Error != "" {
			ctx.Error = p.Error
		}
	case *ErrorPayload:
		if p != nil && p.Error != "" {
			ctx.Error = p.Error
		}
	default:
		if msg, ok := payload.String(p, "error"); ok {
			ctx.Error = msg
		}
	}
}
