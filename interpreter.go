package uikit

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/felixgeelhaar/uikit/internal/ir"
)

// EventStop is the event passed to exit actions when an interpreter is stopped
const EventStop EventType = "stop"

// Option configures an Interpreter
type Option func(*settings)

type settings struct {
	clock  Clock
	logger zerolog.Logger
	id     string
}

// WithClock sets the clock used to schedule delayed transitions
func WithClock(c Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger used for transition tracing at debug level
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithID sets the actor identity. A random UUID is used otherwise.
func WithID(id string) Option {
	return func(s *settings) {
		s.id = id
	}
}

// Interpreter is the statechart runtime that processes events and manages state.
// It is safe for concurrent use: events, timer firings and context updates
// are applied one at a time.
type Interpreter[C any] struct {
	mu      sync.Mutex
	id      string
	machine *ir.MachineConfig[C]
	clock   Clock
	log     zerolog.Logger

	state   State[C]
	active  map[StateID]bool
	epochs  map[StateID]uint64
	timers  map[StateID][]Timer
	started bool
	stopped bool

	observers    map[int]func(State[C])
	nextObserver int
	// outbox holds published snapshots not yet delivered to observers
	outbox   []State[C]
	draining bool
}

// transitionSource holds the state that owns the transition and the transition itself
type transitionSource struct {
	state      *ir.StateConfig
	transition *ir.TransitionConfig
}

// NewInterpreter creates a new interpreter for the given machine configuration
func NewInterpreter[C any](machine *ir.MachineConfig[C], opts ...Option) *Interpreter[C] {
	cfg := settings{clock: SystemClock{}, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}

	return &Interpreter[C]{
		id:        cfg.id,
		machine:   machine,
		clock:     cfg.clock,
		log:       cfg.logger.With().Str("machine", machine.ID).Str("actor", cfg.id).Logger(),
		state:     State[C]{Context: machine.Context},
		active:    make(map[StateID]bool),
		epochs:    make(map[StateID]uint64),
		timers:    make(map[StateID][]Timer),
		observers: make(map[int]func(State[C])),
	}
}

// Spawn creates a child actor seeded with ctx instead of the machine's
// default context, and starts it.
func Spawn[C any](machine *ir.MachineConfig[C], ctx C, opts ...Option) *Interpreter[C] {
	i := NewInterpreter(machine, opts...)
	i.state.Context = ctx
	i.Start()
	return i
}

// ID returns the actor identity
func (i *Interpreter[C]) ID() string {
	return i.id
}

// Machine returns the definition the interpreter runs
func (i *Interpreter[C]) Machine() *ir.MachineConfig[C] {
	return i.machine
}

// Start initializes the interpreter and enters the initial state
func (i *Interpreter[C]) Start() {
	i.apply(func() bool {
		if i.started || i.stopped {
			return false
		}
		i.started = true

		i.enterStates(i.computeEntrySet(i.machine.Initial, ""), Event{})
		i.refreshValue()
		i.log.Debug().Str("state", string(i.state.Value)).Msg("actor started")
		return true
	})
	i.flush()
}

// Stop cancels pending timers and exits every active state, running exit
// actions deepest first. Events sent afterwards are ignored.
func (i *Interpreter[C]) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.stopped {
		return
	}
	i.stopped = true
	if !i.started {
		return
	}

	stop := Event{Type: EventStop}
	for _, id := range i.sortedActive(true) {
		i.exitState(id, stop)
	}
	i.log.Debug().Msg("actor stopped")
}

// Stopped reports whether Stop has been called
func (i *Interpreter[C]) Stopped() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stopped
}

// State returns the current snapshot of the interpreter
func (i *Interpreter[C]) State() State[C] {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Matches checks if the given state is part of the active configuration.
// Ancestors of the active leaves match as well.
func (i *Interpreter[C]) Matches(id StateID) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.stopped {
		return i.state.Matches(id)
	}
	return i.active[id]
}

// Done returns true if the machine is in a top-level final state
func (i *Interpreter[C]) Done() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.started {
		return false
	}
	stateConfig := i.machine.GetState(i.state.Value)
	if stateConfig == nil {
		return false
	}
	return stateConfig.IsFinal() && stateConfig.Parent == ""
}

// Send processes an event and potentially transitions to a new state.
// Events with no enabled transition in the current configuration are ignored.
func (i *Interpreter[C]) Send(event Event) {
	i.apply(func() bool {
		if !i.started || i.stopped {
			return false
		}

		sources := i.selectTransitions(event)
		if len(sources) == 0 {
			i.log.Debug().Str("event", string(event.Type)).Msg("event ignored")
			return false
		}

		for _, src := range sources {
			// An earlier transition in the same step may have exited this source
			if !i.active[src.state.ID] {
				continue
			}
			i.microstep(src, event)
		}
		i.refreshValue()
		return true
	})
	i.flush()
}

// UpdateContext applies fn to the context. It does nothing once the
// interpreter is stopped.
func (i *Interpreter[C]) UpdateContext(fn func(ctx *C)) {
	i.apply(func() bool {
		if i.stopped {
			return false
		}
		fn(&i.state.Context)
		return true
	})
	i.flush()
}

// apply runs fn under the lock and queues the resulting snapshot for
// observers when fn reports a change. The lock is released even if an
// action panics.
func (i *Interpreter[C]) apply(fn func() bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if fn() {
		i.outbox = append(i.outbox, i.state)
	}
}

// flush delivers queued snapshots in the order they were produced. Only
// one goroutine delivers at a time; snapshots queued meanwhile, including
// by observers sending events, are picked up by that goroutine.
func (i *Interpreter[C]) flush() {
	for {
		i.mu.Lock()
		if i.draining || len(i.outbox) == 0 {
			i.mu.Unlock()
			return
		}
		i.draining = true
		snap := i.outbox[0]
		i.outbox = i.outbox[1:]
		observers := i.observerList()
		i.mu.Unlock()

		i.deliver(observers, snap)
	}
}

func (i *Interpreter[C]) deliver(observers []func(State[C]), snap State[C]) {
	defer func() {
		i.mu.Lock()
		i.draining = false
		i.mu.Unlock()
	}()
	notify(observers, snap)
}

// Subscribe registers fn to receive every new snapshot, in the order the
// snapshots were produced. fn runs outside the interpreter lock and may
// send events. The returned function removes the subscription.
func (i *Interpreter[C]) Subscribe(fn func(State[C])) func() {
	i.mu.Lock()
	defer i.mu.Unlock()

	id := i.nextObserver
	i.nextObserver++
	i.observers[id] = fn

	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		delete(i.observers, id)
	}
}

func (i *Interpreter[C]) observerList() []func(State[C]) {
	if len(i.observers) == 0 {
		return nil
	}
	ids := make([]int, 0, len(i.observers))
	for id := range i.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(State[C]), 0, len(ids))
	for _, id := range ids {
		out = append(out, i.observers[id])
	}
	return out
}

func notify[C any](observers []func(State[C]), snap State[C]) {
	for _, fn := range observers {
		fn(snap)
	}
}

// findMatchingTransition finds the first transition that matches the event and passes guards
func (i *Interpreter[C]) findMatchingTransition(state *ir.StateConfig, event Event) *ir.TransitionConfig {
	for _, t := range state.Transitions {
		if t.IsDelayed() || t.Event != event.Type {
			continue
		}
		if !i.guardAllows(t, event) {
			continue // Guard failed, try next transition
		}
		return t
	}
	return nil
}

func (i *Interpreter[C]) guardAllows(t *ir.TransitionConfig, event Event) bool {
	if t.Guard == "" {
		return true
	}
	guard := i.machine.GetGuard(t.Guard)
	return guard == nil || guard(i.state.Context, event)
}

// selectTransitions picks at most one enabled transition per active leaf,
// bubbling from the leaf through its ancestors. A transition whose exit
// set overlaps one already selected is preempted.
func (i *Interpreter[C]) selectTransitions(event Event) []transitionSource {
	var selected []transitionSource
	seen := make(map[StateID]bool)
	exiting := make(map[StateID]bool)

	for _, leaf := range i.activeLeaves() {
		for s := i.machine.GetState(leaf); s != nil; s = i.machine.GetState(s.Parent) {
			t := i.findMatchingTransition(s, event)
			if t == nil {
				continue
			}
			if seen[s.ID] {
				break
			}
			seen[s.ID] = true

			exits := i.exitSet(s.ID, t)
			if overlaps(exits, exiting) {
				break
			}
			for _, id := range exits {
				exiting[id] = true
			}
			selected = append(selected, transitionSource{state: s, transition: t})
			break
		}
	}
	return selected
}

func overlaps(ids []StateID, set map[StateID]bool) bool {
	for _, id := range ids {
		if set[id] {
			return true
		}
	}
	return false
}

// exitSet returns the active states a transition leaves, deepest first
func (i *Interpreter[C]) exitSet(source StateID, t *ir.TransitionConfig) []StateID {
	if t.IsTargetless() {
		return nil
	}
	domain := i.machine.TransitionDomain(source, t.Target)

	var out []StateID
	for _, id := range i.sortedActive(true) {
		if i.machine.IsDescendantOf(id, domain) {
			out = append(out, id)
		}
	}
	return out
}

// microstep executes one transition: exit actions (deepest first),
// transition actions, then entry actions (outermost first).
func (i *Interpreter[C]) microstep(src transitionSource, event Event) {
	t := src.transition
	if t.IsTargetless() {
		i.executeActions(t.Actions, event)
		i.log.Debug().
			Str("event", string(event.Type)).
			Str("state", string(src.state.ID)).
			Msg("targetless transition")
		return
	}

	domain := i.machine.TransitionDomain(src.state.ID, t.Target)
	for _, id := range i.exitSet(src.state.ID, t) {
		i.exitState(id, event)
	}

	i.executeActions(t.Actions, event)

	i.enterStates(i.computeEntrySet(t.Target, domain), event)

	i.log.Debug().
		Str("event", string(event.Type)).
		Str("from", string(src.state.ID)).
		Str("to", string(t.Target)).
		Msg("transition")
}

// computeEntrySet returns the states entered when target is entered from
// below domain, including default entry of compound and parallel
// descendants and of sibling regions, in document order.
func (i *Interpreter[C]) computeEntrySet(target, domain StateID) []StateID {
	set := make(map[StateID]bool)

	path := i.machine.GetPath(target)
	start := 0
	if domain != "" {
		for idx, id := range path {
			if id == domain {
				start = idx + 1
				break
			}
		}
	}
	path = path[start:]

	onPath := make(map[StateID]bool, len(path))
	for _, id := range path {
		set[id] = true
		onPath[id] = true
	}
	for _, id := range path {
		s := i.machine.GetState(id)
		if s == nil || !s.IsParallel() {
			continue
		}
		for _, region := range s.Children {
			if !onPath[region] {
				i.addDefaultEntry(region, set)
			}
		}
	}
	i.addDefaultEntry(target, set)

	out := make([]StateID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	i.sortByOrder(out, false)
	return out
}

func (i *Interpreter[C]) addDefaultEntry(id StateID, set map[StateID]bool) {
	s := i.machine.GetState(id)
	if s == nil {
		return
	}
	set[id] = true
	switch {
	case s.IsParallel():
		for _, region := range s.Children {
			i.addDefaultEntry(region, set)
		}
	case s.IsCompound() && s.Initial != "":
		i.addDefaultEntry(s.Initial, set)
	}
}

func (i *Interpreter[C]) enterStates(ids []StateID, event Event) {
	for _, id := range ids {
		i.enterState(id, event)
	}
}

// enterState marks a state active, runs its entry actions and schedules
// its delayed transitions for this residency.
func (i *Interpreter[C]) enterState(id StateID, event Event) {
	s := i.machine.GetState(id)
	if s == nil {
		return
	}
	i.active[id] = true
	i.epochs[id]++
	i.executeActions(s.Entry, event)

	epoch := i.epochs[id]
	for _, t := range s.DelayedTransitions() {
		t := t
		timer := i.clock.AfterFunc(t.Delay, func() {
			i.fireDelayed(id, epoch, t)
		})
		i.timers[id] = append(i.timers[id], timer)
	}
}

// exitState cancels the state's timers, runs its exit actions and marks it inactive
func (i *Interpreter[C]) exitState(id StateID, event Event) {
	for _, timer := range i.timers[id] {
		timer.Stop()
	}
	delete(i.timers, id)

	if s := i.machine.GetState(id); s != nil {
		i.executeActions(s.Exit, event)
	}
	delete(i.active, id)
}

// fireDelayed takes a delayed transition if the state is still in the
// residency that scheduled it.
func (i *Interpreter[C]) fireDelayed(id StateID, epoch uint64, t *ir.TransitionConfig) {
	i.apply(func() bool {
		if !i.started || i.stopped || !i.active[id] || i.epochs[id] != epoch {
			return false
		}

		event := Event{Type: t.Event}
		if !i.guardAllows(t, event) {
			i.log.Debug().Str("state", string(id)).Msg("delayed transition blocked by guard")
			return false
		}

		i.microstep(transitionSource{state: i.machine.GetState(id), transition: t}, event)
		i.refreshValue()
		return true
	})
	i.flush()
}

// executeActions executes a list of actions
func (i *Interpreter[C]) executeActions(actions []ir.ActionType, event Event) {
	for _, actionName := range actions {
		action := i.machine.GetAction(actionName)
		if action != nil {
			action(&i.state.Context, event)
		}
	}
}

// refreshValue recomputes the snapshot value from the active configuration.
// ActiveInParallel is always a fresh map so earlier snapshots never change.
func (i *Interpreter[C]) refreshValue() {
	leaves := i.activeLeaves()

	var parallel *ir.StateConfig
	for _, id := range i.sortedActive(false) {
		if s := i.machine.GetState(id); s != nil && s.IsParallel() {
			parallel = s
			break
		}
	}

	if parallel == nil {
		if len(leaves) > 0 {
			i.state.Value = leaves[0]
		}
		i.state.ActiveInParallel = nil
		return
	}

	regions := make(map[StateID]StateID, len(parallel.Children))
	for _, region := range parallel.Children {
		for _, leaf := range leaves {
			if leaf == region || i.machine.IsDescendantOf(leaf, region) {
				regions[region] = leaf
				break
			}
		}
	}
	i.state.Value = parallel.ID
	i.state.ActiveInParallel = regions
}

func (i *Interpreter[C]) activeLeaves() []StateID {
	var leaves []StateID
	for id := range i.active {
		if s := i.machine.GetState(id); s != nil && s.IsLeaf() {
			leaves = append(leaves, id)
		}
	}
	i.sortByOrder(leaves, false)
	return leaves
}

func (i *Interpreter[C]) sortedActive(reverse bool) []StateID {
	ids := make([]StateID, 0, len(i.active))
	for id := range i.active {
		ids = append(ids, id)
	}
	i.sortByOrder(ids, reverse)
	return ids
}

func (i *Interpreter[C]) sortByOrder(ids []StateID, reverse bool) {
	order := func(id StateID) int {
		if s := i.machine.GetState(id); s != nil {
			return s.Order
		}
		return -1
	}
	sort.SliceStable(ids, func(a, b int) bool {
		if reverse {
			return order(ids[a]) > order(ids[b])
		}
		return order(ids[a]) < order(ids[b])
	})
}
