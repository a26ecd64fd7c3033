// Package modal models an accessible dialog: a four phase open/close
// lifecycle with timed animation phases, body scroll locking, focus
// trapping and focus restoration to the element that opened it.
//
// All document side effects go through an Environment supplied to New.
package modal

import (
	"time"

	"github.com/felixgeelhaar/uikit"
	"github.com/felixgeelhaar/uikit/internal/payload"
)

// MachineID identifies the modal machine
const MachineID = "modal"

// States
const (
	StateClosed  uikit.StateID = "closed"
	StateOpening uikit.StateID = "opening"
	StateOpen    uikit.StateID = "open"
	StateClosing uikit.StateID = "closing"
)

// Events
const (
	EventOpen          uikit.EventType = "OPEN"
	EventOpened        uikit.EventType = "OPENED"
	EventClose         uikit.EventType = "CLOSE"
	EventClosed        uikit.EventType = "CLOSED"
	EventBackdropClick uikit.EventType = "BACKDROP_CLICK"
	EventEscapeKey     uikit.EventType = "ESCAPE_KEY"
	EventFocusFirst    uikit.EventType = "FOCUS_FIRST"
	EventFocusLast     uikit.EventType = "FOCUS_LAST"
	EventTabForward    uikit.EventType = "TAB_FORWARD"
	EventTabBackward   uikit.EventType = "TAB_BACKWARD"
)

// Screen reader announcements
const (
	AnnounceOpened = "Dialog opened"
	AnnounceClosed = "Dialog closed"
)

// DefaultTransitionDelay is the length of the opening and closing animations
const DefaultTransitionDelay = 200 * time.Millisecond

// Context is the modal's machine-local data
type Context struct {
	TriggerElement    Element   `json:"triggerElement,omitempty"`
	CloseOnBackdrop   bool      `json:"closeOnBackdrop"`
	CloseOnEscape     bool      `json:"closeOnEscape"`
	ContentElement    Element   `json:"contentElement,omitempty"`
	FocusableElements []Element `json:"focusableElements,omitempty"`
}

// OpenPayload is carried by OPEN
type OpenPayload struct {
	TriggerElement Element `json:"triggerElement,omitempty"`
}

// OpenEvent builds an OPEN event remembering trigger for focus restoration
func OpenEvent(trigger Element) uikit.Event {
	return uikit.Event{Type: EventOpen, Payload: OpenPayload{TriggerElement: trigger}}
}

// Option configures the modal machine
type Option func(*config)

type config struct {
	ctx   Context
	delay time.Duration
}

// WithCloseOnBackdrop sets whether a backdrop click closes the open modal
func WithCloseOnBackdrop(v bool) Option {
	return func(c *config) { c.ctx.CloseOnBackdrop = v }
}

// WithCloseOnEscape sets whether the escape key closes the open modal
func WithCloseOnEscape(v bool) Option {
	return func(c *config) { c.ctx.CloseOnEscape = v }
}

// WithContentElement sets the container searched for focusable elements
func WithContentElement(el Element) Option {
	return func(c *config) { c.ctx.ContentElement = el }
}

// WithTransitionDelay overrides the opening and closing durations
func WithTransitionDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.delay = d
		}
	}
}

// New builds the modal machine definition acting on env.
// A nil env is replaced by NopEnvironment.
func New(env Environment, opts ...Option) (*uikit.MachineConfig[Context], error) {
	if env == nil {
		env = NopEnvironment{}
	}
	cfg := config{
		ctx:   Context{CloseOnBackdrop: true, CloseOnEscape: true},
		delay: DefaultTransitionDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &actions{env: env}

	return uikit.NewMachine[Context](MachineID).
		WithInitial(StateClosed).
		WithContext(cfg.ctx).
		WithAction("assignTrigger", assignTrigger).
		WithAction("restoreFocus", a.restoreFocus).
		WithAction("lockBodyScroll", a.lockBodyScroll).
		WithAction("unlockBodyScroll", a.unlockBodyScroll).
		WithAction("announceOpening", a.announceOpening).
		WithAction("announceClosing", a.announceClosing).
		WithAction("trapFocus", a.trapFocus).
		WithAction("focusFirstElement", a.focusFirstElement).
		WithAction("focusLastElement", a.focusLastElement).
		WithAction("handleTabForward", a.handleTabForward).
		WithAction("handleTabBackward", a.handleTabBackward).
		WithGuard("closeOnBackdrop", func(ctx Context, _ uikit.Event) bool { return ctx.CloseOnBackdrop }).
		WithGuard("closeOnEscape", func(ctx Context, _ uikit.Event) bool { return ctx.CloseOnEscape }).
		State(StateClosed).
		OnEntry("restoreFocus").
		On(EventOpen).Target(StateOpening).Do("assignTrigger").
		Done().
		State(StateOpening).
		OnEntry("lockBodyScroll").
		OnEntry("announceOpening").
		After(cfg.delay).Target(StateOpen).
		On(EventOpened).Target(StateOpen).
		On(EventClose).Target(StateClosing).
		Done().
		State(StateOpen).
		OnEntry("trapFocus").
		OnEntry("focusFirstElement").
		On(EventClose).Target(StateClosing).
		On(EventBackdropClick).Target(StateClosing).Guard("closeOnBackdrop").
		On(EventEscapeKey).Target(StateClosing).Guard("closeOnEscape").
		On(EventFocusFirst).Do("focusFirstElement").
		On(EventFocusLast).Do("focusLastElement").
		On(EventTabForward).Do("handleTabForward").
		On(EventTabBackward).Do("handleTabBackward").
		Done().
		State(StateClosing).
		OnEntry("unlockBodyScroll").
		OnEntry("announceClosing").
		After(cfg.delay).Target(StateClosed).
		On(EventClosed).Target(StateClosed).
		Done().
		Build()
}

// assignTrigger clears the trigger when OPEN carries none
func assignTrigger(ctx *Context, e uikit.Event) {
	ctx.TriggerElement = nil
	switch p := e.Payload.(type) {
	case OpenPayload:
		ctx.TriggerElement = p.TriggerElement
	case *OpenPayload:
		if p != nil {
			ctx.TriggerElement = p.TriggerElement
		}
	default:
		if el, ok := payload.Field(p, "triggerElement"); ok {
			ctx.TriggerElement = el
		}
	}
}

type actions struct {
	env Environment
}

func (a *actions) restoreFocus(ctx *Context, _ uikit.Event) {
	if ctx.TriggerElement != nil {
		a.env.Focus(ctx.TriggerElement)
	}
}

func (a *actions) lockBodyScroll(*Context, uikit.Event)   { a.env.LockBodyScroll() }
func (a *actions) unlockBodyScroll(*Context, uikit.Event) { a.env.UnlockBodyScroll() }

func (a *actions) announceOpening(*Context, uikit.Event) { a.env.Announce(AnnounceOpened) }
func (a *actions) announceClosing(*Context, uikit.Event) { a.env.Announce(AnnounceClosed) }

// trapFocus recomputes the focusable set on every entry to open
func (a *actions) trapFocus(ctx *Context, _ uikit.Event) {
	ctx.FocusableElements = nil
	if ctx.ContentElement == nil {
		return
	}
	ctx.FocusableElements = a.env.Focusable(ctx.ContentElement)
}

func (a *actions) focusFirstElement(ctx *Context, _ uikit.Event) {
	if len(ctx.FocusableElements) > 0 {
		a.env.Focus(ctx.FocusableElements[0])
	}
}

func (a *actions) focusLastElement(ctx *Context, _ uikit.Event) {
	if n := len(ctx.FocusableElements); n > 0 {
		a.env.Focus(ctx.FocusableElements[n-1])
	}
}

// handleTabForward wraps focus to the first element when tabbing past the last
func (a *actions) handleTabForward(ctx *Context, _ uikit.Event) {
	n := len(ctx.FocusableElements)
	if n == 0 {
		return
	}
	if sameElement(a.env.ActiveElement(), ctx.FocusableElements[n-1]) {
		a.env.Focus(ctx.FocusableElements[0])
	}
}

// handleTabBackward wraps focus to the last element when tabbing before the first
func (a *actions) handleTabBackward(ctx *Context, _ uikit.Event) {
	n := len(ctx.FocusableElements)
	if n == 0 {
		return
	}
	if sameElement(a.env.ActiveElement(), ctx.FocusableElements[0]) {
		a.env.Focus(ctx.FocusableElements[n-1])
	}
}
