package modal

import (
	"fmt"
	"reflect"
	"sync"
)

// Element is an opaque handle to a node of the host document
type Element any

// Environment is the document the modal acts on. Every side effect of the
// machine goes through it so the transitions can run without a real UI.
type Environment interface {
	LockBodyScroll()
	UnlockBodyScroll()
	Announce(message string)
	// Focusable returns the elements inside container that can take focus, in tab order
	Focusable(container Element) []Element
	Focus(el Element)
	ActiveElement() Element
}

// NopEnvironment ignores every call
type NopEnvironment struct{}

func (NopEnvironment) LockBodyScroll()             {}
func (NopEnvironment) UnlockBodyScroll()           {}
func (NopEnvironment) Announce(string)             {}
func (NopEnvironment) Focusable(Element) []Element { return nil }
func (NopEnvironment) Focus(Element)               {}
func (NopEnvironment) ActiveElement() Element      { return nil }

// Recorder is an in-memory Environment that records every call.
// Focus moves the active element, and Focusable answers from Containers.
type Recorder struct {
	mu         sync.Mutex
	Containers map[Element][]Element
	active     Element
	calls      []string
	locked     bool
}

// NewRecorder returns a Recorder with no containers
func NewRecorder() *Recorder {
	return &Recorder{Containers: make(map[Element][]Element)}
}

// SetFocusable replaces the focusable elements of container
// Uncomparable containers are ignored.
func (r *Recorder) SetFocusable(container Element, elements ...Element) {
	if !isComparable(container) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Containers[container] = elements
}

// SetActive moves focus without recording a call, as a user click would
func (r *Recorder) SetActive(el Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = el
}

func (r *Recorder) LockBodyScroll() {
	r.record("lockBodyScroll")
	r.mu.Lock()
	r.locked = true
	r.mu.Unlock()
}

func (r *Recorder) UnlockBodyScroll() {
	r.record("unlockBodyScroll")
	r.mu.Lock()
	r.locked = false
	r.mu.Unlock()
}

func (r *Recorder) Announce(message string) {
	r.record("announce:" + message)
}

func (r *Recorder) Focusable(container Element) []Element {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("focusable:%v", container))
	if !isComparable(container) {
		return nil
	}
	elements := r.Containers[container]
	out := make([]Element, len(elements))
	copy(out, elements)
	return out
}

func (r *Recorder) Focus(el Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("focus:%v", el))
	r.active = el
}

func (r *Recorder) ActiveElement() Element {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Calls returns the recorded calls in order
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Reset forgets the recorded calls
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// ScrollLocked reports whether the body scroll is currently locked
func (r *Recorder) ScrollLocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked
}

func (r *Recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

// sameElement compares two handles without panicking on uncomparable values
func sameElement(a, b Element) bool {
	if a == nil || b == nil {
		return false
	}
	if !isComparable(a) || !isComparable(b) {
		return false
	}
	return a == b
}

// isComparable inspects the dynamic value, so a struct whose interface
// field holds a slice is rejected as well
func isComparable(el Element) bool {
	return el != nil && reflect.ValueOf(el).Comparable()
}
