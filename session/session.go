// Package session tracks per-user conversation state.
package session

import "sync"

// State is a step of the per-user conversation state machine.
type State int

const (
	// Idle is the rest state: no conversation flow is active.
	Idle State = iota
	// AwaitingURL means the user is inside the add flow and free text is
	// interpreted as a candidate product URL.
	AwaitingURL
	// AwaitingDeletion means a deletion menu is on screen and selections
	// are interpreted as positional deletion choices.
	AwaitingDeletion
)

// Manager holds the conversation state of every user. State is volatile:
// after a restart every user resumes at Idle, by design.
type Manager struct {
	mu     sync.RWMutex
	states map[int64]State
}

// NewManager creates a manager with every user at Idle.
func NewManager() *Manager {
	return &Manager{states: make(map[int64]State)}
}

// State returns the user's current state. Absent means Idle.
func (m *Manager) State(user int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[user]
}

// Set moves the user to the given state.
func (m *Manager) Set(user int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st == Idle {
		delete(m.states, user)
		return
	}
	m.states[user] = st
}

// Clear resets the user to Idle.
func (m *Manager) Clear(user int64) {
	m.Set(user, Idle)
}
