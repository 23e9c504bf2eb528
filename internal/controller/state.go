// Package controller owns the crawl lifecycle: the frontier, worker
// concurrency, per-host politeness, and the single outcome-processing path
// that feeds validation results back into learning and coverage.
package controller

import "sync"

// State is a lifecycle stage of a crawl run.
type State string

// Lifecycle states.
const (
	StateInitializing State = "initializing"
	StateRunning      State = "running"
	StatePaused       State = "paused"
	StateDraining     State = "draining"
	StateAborting     State = "aborting"
	StateStopped      State = "stopped"
)

// transitions lists the legal next states. Aborting is reachable from
// every live state; Stopped is terminal.
var transitions = map[State][]State{
	StateInitializing: {StateRunning, StateAborting, StateStopped},
	StateRunning:      {StatePaused, StateDraining, StateAborting},
	StatePaused:       {StateRunning, StateDraining, StateAborting},
	StateDraining:     {StateStopped, StateAborting},
	StateAborting:     {StateStopped},
	StateStopped:      {},
}

// machine is a mutex-guarded state holder validating every transition.
type machine struct {
	mu    sync.Mutex
	state State
}

func newMachine() *machine {
	return &machine{state: StateInitializing}
}

func (m *machine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// to attempts the transition and reports whether it was legal. Illegal
// transitions leave the state unchanged.
func (m *machine) to(next State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.state = next
			return true
		}
	}
	return false
}

// is reports whether the current state matches any of the given states.
func (m *machine) is(states ...State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range states {
		if m.state == s {
			return true
		}
	}
	return false
}
