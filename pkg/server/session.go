package server

import (
	"sync"
	"time"

	"github.com/NicolasHaas/gobbs/pkg/model"
)

// SessionManager is the registry of active client sessions. It is the only
// cross-connection shared mutable state in the server; every operation takes
// the registry lock so concurrent LOGIN/LOGOUT/disconnect sequences never
// lose an entry or expose a torn snapshot.
type SessionManager struct {
	mu       sync.RWMutex
	nextID   uint64
	sessions map[uint64]*model.Session // sessionID -> session
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		nextID:   1,
		sessions: make(map[uint64]*model.Session),
	}
}

// Create creates a new session for an authenticated user. Session ids are
// strictly increasing and never reused for the lifetime of the process.
func (sm *SessionManager) Create(userID int64, username string, role model.Role, remote string) *model.Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sess := &model.Session{
		ID:        sm.nextID,
		UserID:    userID,
		Username:  username,
		Role:      role,
		Remote:    remote,
		CreatedAt: time.Now(),
	}
	sm.nextID++
	sm.sessions[sess.ID] = sess
	return sess
}

// Get retrieves a copy of a session by ID.
func (sm *SessionManager) Get(id uint64) (model.Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sessions[id]
	if !ok {
		return model.Session{}, false
	}
	return *s, true
}

// Remove removes a session. Removing an absent id is a no-op.
func (sm *SessionManager) Remove(id uint64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, id)
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Snapshot returns a copy of all active sessions, in unspecified order.
func (sm *SessionManager) Snapshot() []model.Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	result := make([]model.Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		result = append(result, *s)
	}
	return result
}
