package ir

import "time"

// MachineConfig is the immutable internal representation of a statechart
type MachineConfig[C any] struct {
	ID      string
	Initial StateID
	Context C
	States  map[StateID]*StateConfig
	Actions map[ActionType]Action[C]
	Guards  map[GuardType]Guard[C]

	// order lists state IDs in document order (pre-order, declaration order)
	order      []StateID
	duplicates []StateID
}

// StateConfig represents a single state node
type StateConfig struct {
	ID          StateID
	Type        StateType
	Parent      StateID   // Parent state ID (empty for root-level states)
	Initial     StateID   // Initial child state (for compound states only)
	Children    []StateID // Child state IDs (compound children or parallel regions)
	Entry       []ActionType
	Exit        []ActionType
	Transitions []*TransitionConfig

	// Order is the position of the state in document order
	Order int
}

// TransitionConfig represents a single transition
type TransitionConfig struct {
	Event   EventType
	Target  StateID // Empty for targetless transitions
	Guard   GuardType
	Actions []ActionType
	Delay   time.Duration // Non-zero for delayed (after) transitions
}

// NewMachineConfig creates a new MachineConfig with initialized maps
func NewMachineConfig[C any](id string, initial StateID, ctx C) *MachineConfig[C] {
	return &MachineConfig[C]{
		ID:      id,
		Initial: initial,
		Context: ctx,
		States:  make(map[StateID]*StateConfig),
		Actions: make(map[ActionType]Action[C]),
		Guards:  make(map[GuardType]Guard[C]),
	}
}

// NewStateConfig creates a new StateConfig
func NewStateConfig(id StateID, stateType StateType) *StateConfig {
	return &StateConfig{
		ID:   id,
		Type: stateType,
	}
}

// NewTransitionConfig creates a new TransitionConfig
func NewTransitionConfig(event EventType, target StateID) *TransitionConfig {
	return &TransitionConfig{
		Event:  event,
		Target: target,
	}
}

// AddState registers a state and records its document order.
// States must be added parents first, in declaration order.
func (m *MachineConfig[C]) AddState(s *StateConfig) {
	if _, exists := m.States[s.ID]; exists {
		m.duplicates = append(m.duplicates, s.ID)
		return
	}
	s.Order = len(m.order)
	m.order = append(m.order, s.ID)
	m.States[s.ID] = s
}

// StatesInOrder returns the state IDs in document order
func (m *MachineConfig[C]) StatesInOrder() []StateID {
	out := make([]StateID, len(m.order))
	copy(out, m.order)
	return out
}

// RootStates returns the states without a parent, in document order
func (m *MachineConfig[C]) RootStates() []StateID {
	var roots []StateID
	for _, id := range m.order {
		if s := m.States[id]; s != nil && s.Parent == "" {
			roots = append(roots, id)
		}
	}
	return roots
}

// GetState returns the state config for the given ID, or nil if not found
func (m *MachineConfig[C]) GetState(id StateID) *StateConfig {
	return m.States[id]
}

// GetAction returns the action for the given type, or nil if not found
func (m *MachineConfig[C]) GetAction(t ActionType) Action[C] {
	return m.Actions[t]
}

// GetGuard returns the guard for the given type, or nil if not found
func (m *MachineConfig[C]) GetGuard(t GuardType) Guard[C] {
	return m.Guards[t]
}

// FindTransition finds the first event transition for the given event
// Returns nil if no matching transition is found
func (s *StateConfig) FindTransition(event EventType) *TransitionConfig {
	for _, t := range s.Transitions {
		if t.Event == event && !t.IsDelayed() {
			return t
		}
	}
	return nil
}

// DelayedTransitions returns the transitions scheduled with After
func (s *StateConfig) DelayedTransitions() []*TransitionConfig {
	var out []*TransitionConfig
	for _, t := range s.Transitions {
		if t.IsDelayed() {
			out = append(out, t)
		}
	}
	return out
}

// IsDelayed reports whether the transition fires after a delay instead of on an event
func (t *TransitionConfig) IsDelayed() bool {
	return t.Delay > 0
}

// IsTargetless reports whether the transition only runs actions
func (t *TransitionConfig) IsTargetless() bool {
	return t.Target == ""
}

// IsCompound returns true if this is a compound state with children
func (s *StateConfig) IsCompound() bool {
	return s.Type == StateTypeCompound && len(s.Children) > 0
}

// IsParallel returns true if this is a parallel state
func (s *StateConfig) IsParallel() bool {
	return s.Type == StateTypeParallel
}

// IsAtomic returns true if this is an atomic (leaf) state
func (s *StateConfig) IsAtomic() bool {
	return s.Type == StateTypeAtomic
}

// IsFinal returns true if this is a final state
func (s *StateConfig) IsFinal() bool {
	return s.Type == StateTypeFinal
}

// IsLeaf returns true if the state has no children
func (s *StateConfig) IsLeaf() bool {
	return len(s.Children) == 0
}

// GetAncestors returns all ancestor state IDs from immediate parent to root
func (m *MachineConfig[C]) GetAncestors(stateID StateID) []StateID {
	var ancestors []StateID
	current := m.GetState(stateID)
	for current != nil && current.Parent != "" {
		ancestors = append(ancestors, current.Parent)
		current = m.GetState(current.Parent)
	}
	return ancestors
}

// GetPath returns the full path from root to the given state
func (m *MachineConfig[C]) GetPath(stateID StateID) []StateID {
	ancestors := m.GetAncestors(stateID)
	path := make([]StateID, len(ancestors)+1)
	for i, id := range ancestors {
		path[len(ancestors)-1-i] = id
	}
	path[len(path)-1] = stateID
	return path
}

// GetInitialLeaf resolves the initial state to its deepest leaf
// For atomic states, returns the state itself
// For compound states, recursively follows initial children
// For parallel states, returns the parallel state itself
func (m *MachineConfig[C]) GetInitialLeaf(stateID StateID) StateID {
	state := m.GetState(stateID)
	if state == nil {
		return stateID
	}
	if state.IsCompound() && state.Initial != "" {
		return m.GetInitialLeaf(state.Initial)
	}
	return stateID
}

// IsDescendantOf checks if stateID is a descendant of ancestorID
func (m *MachineConfig[C]) IsDescendantOf(stateID, ancestorID StateID) bool {
	if ancestorID == "" {
		return stateID != ""
	}
	for _, a := range m.GetAncestors(stateID) {
		if a == ancestorID {
			return true
		}
	}
	return false
}

// FindLCA finds the Lowest Common Ancestor of two states
func (m *MachineConfig[C]) FindLCA(stateA, stateB StateID) StateID {
	pathA := m.GetPath(stateA)
	pathB := m.GetPath(stateB)

	var lca StateID
	for i := 0; i < len(pathA) && i < len(pathB); i++ {
		if pathA[i] != pathB[i] {
			break
		}
		lca = pathA[i]
	}
	return lca
}

// TransitionDomain returns the state whose descendants are exited and
// entered by an external transition from source to target. It is the
// nearest proper ancestor of source that is a compound state containing
// target; the empty ID stands for the machine root.
func (m *MachineConfig[C]) TransitionDomain(source, target StateID) StateID {
	for _, a := range m.GetAncestors(source) {
		s := m.GetState(a)
		if s == nil || s.IsParallel() {
			continue
		}
		if m.IsDescendantOf(target, a) {
			return a
		}
	}
	return ""
}
