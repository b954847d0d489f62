package redis

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"quiz-session-service/internal/session"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps live controllers in memory (timers cannot live in
// Redis) and persists a snapshot of each session with a TTL, so a student
// who reconnects within the TTL resumes where they left off.
// Save/Restore is the explicit durability contract; there is no ambient
// cross-session state.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*session.Controller
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
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
	s.sessions[token] = ctrl
	s.mu.Unlock()
	s.Save(ctrl)
}

// Save persists the session snapshot. Best effort: a Redis hiccup must not
// fail the student's in-flight session.
func (s *SessionStore) Save(ctrl *session.Controller) {
	snap := ctrl.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("marshal session snapshot %q: %v", snap.Token, err)
		return
	}
	if err := s.client.Set(context.Background(), s.key(snap.Token), data, s.ttl).Err(); err != nil {
		log.Printf("persist session %q: %v", snap.Token, err)
	}
}

// Restore loads a previously saved snapshot for a token, if one is live.
func (s *SessionStore) Restore(token string) (session.Snapshot, bool) {
	data, err := s.client.Get(context.Background(), s.key(token)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("restore session %q: %v", token, err)
		}
		return session.Snapshot{}, false
	}
	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("decode session snapshot %q: %v", token, err)
		return session.Snapshot{}, false
	}
	return snap, true
}

// Evict drops the live controller only; the snapshot stays in Redis until
// its TTL so the student can resume on reconnect.
func (s *SessionStore) Evict(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(token)).Err()
}

func (s *SessionStore) key(token string) string {
	return "quiz:session:" + token
}
