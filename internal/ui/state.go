// Package ui holds the page state machine shared by every view.
//
// A page starts Idle, is Loading while its data is fetched, and is Ready once
// rendered with data. Submitting a form moves it to Mutating; the mutation
// ends Idle (success, the browser is redirected), back to Ready (the form is
// re-rendered with a validation or API error) or in Error. An Error page can
// only be retried by loading again.
package ui

import (
	"fmt"
)

// State is a page's lifecycle state.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Mutating
	Error
)

var stateNames = [...]string{
	Idle:     "idle",
	Loading:  "loading",
	Ready:    "ready",
	Mutating: "mutating",
	Error:    "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

var transitions = map[State][]State{
	Idle:     {Loading},
	Loading:  {Ready, Error},
	Ready:    {Mutating, Loading},
	Mutating: {Ready, Idle, Error},
	Error:    {Loading},
}

// CanTransition reports whether from -> to is legal.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionError is returned for an illegal transition.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal page transition %s -> %s", e.From, e.To)
}

// Machine tracks one page's state. The zero value is Idle.
type Machine struct {
	start State
	state State
	trail []State
}

// Resume returns a machine already in s. A form post continues the Ready
// page it was submitted from, so its handler resumes at Ready.
func Resume(s State) *Machine {
	return &Machine{start: s, state: s}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Trail returns every state visited, starting with the initial one.
func (m *Machine) Trail() []State {
	return append([]State{m.start}, m.trail...)
}

// To moves the machine to next, or returns a *TransitionError and leaves it
// unchanged.
func (m *Machine) To(next State) error {
	if !CanTransition(m.state, next) {
		return &TransitionError{From: m.state, To: next}
	}
	m.state = next
	m.trail = append(m.trail, next)
	return nil
}

// Path applies each state in order, stopping at the first illegal one.
func (m *Machine) Path(states ...State) error {
	for _, s := range states {
		if err := m.To(s); err != nil {
			return err
		}
	}
	return nil
}

// Interactive reports whether submit controls should be enabled.
func (m *Machine) Interactive() bool {
	return m.state == Ready
}
