package telegram

import "sync"

// UserState is the pending conversation step of one chat
type UserState struct {
	State string
}

// StateManager keeps per-chat conversation state
type StateManager struct {
	mu     sync.RWMutex
	states map[int64]*UserState
}

// NewStateManager creates a new state manager
func NewStateManager() *StateManager {
	return &StateManager{
		states: make(map[int64]*UserState),
	}
}

// Set sets a chat's state
func (sm *StateManager) Set(chatID int64, state string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.states[chatID] = &UserState{State: state}
}

// Get returns a chat's current state
func (sm *StateManager) Get(chatID int64) *UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.states[chatID]
}

// Clear removes a chat's state
func (sm *StateManager) Clear(chatID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.states, chatID)
}

// State constants
const (
	StateWaitDate = "wait_date"
)
