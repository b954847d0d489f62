package memory

import (
	"sync"

	"quiz-session-service/internal/session"
)

// SessionStore is the in-memory implementation of app.SessionStore. It
// keeps live controllers only; nothing survives a restart, so Save and
// Restore are deliberate no-ops.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Controller
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session.Controller),
	}
}

func (s *SessionStore) Get(token string) (*session.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctrl, ok := s.sessions[token]
	return ctrl, ok
}

func (s *SessionStore) Put(token string, ctrl *session.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = ctrl
}

func (s *SessionStore) Save(*session.Controller) {}

func (s *SessionStore) Restore(string) (session.Snapshot, bool) {
	return session.Snapshot{}, false
}

// Evict and Delete are the same here: with no persisted snapshot there is
// nothing to keep.
func (s *SessionStore) Evict(token string) { s.Delete(token) }

func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}
