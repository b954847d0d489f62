package app

import (
	"context"
	"log"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/session"
)

// SessionStore abstracts where live sessions are kept and how snapshots are
// persisted (in-memory, Redis, etc).
type SessionStore interface {
	Get(token string) (*session.Controller, bool)
	Put(token string, ctrl *session.Controller)
	Save(ctrl *session.Controller)
	Restore(token string) (session.Snapshot, bool)
	// Evict drops the live controller but keeps any persisted snapshot;
	// Delete drops both.
	Evict(token string)
	Delete(token string)
}

// Backend is the slice of the upstream contract the session flow needs.
type Backend interface {
	ResolveQuiz(ctx context.Context, token string) (domain.Quiz, error)
	ResolveQuestions(ctx context.Context, token string) ([]domain.Question, error)
	SubmitAnswers(ctx context.Context, token string, answers []domain.AnswerRecord) error
}

// SessionService owns the token -> session mapping. Each token maps to one
// isolated controller; there is no shared state between sessions.
type SessionService struct {
	store   SessionStore
	backend Backend
}

func NewSessionService(store SessionStore, backend Backend) *SessionService {
	return &SessionService{store: store, backend: backend}
}

// Begin resolves a token into a live session. Resolution is never cached:
// a consumed token must fail here even if a stale snapshot still exists.
// If a snapshot is found the session resumes from it; otherwise a fresh
// controller starts at question zero.
func (s *SessionService) Begin(ctx context.Context, token string) (*session.Controller, error) {
	if ctrl, ok := s.store.Get(token); ok {
		return ctrl, nil
	}

	quiz, err := s.backend.ResolveQuiz(ctx, token)
	if err != nil {
		return nil, err
	}
	questions, err := s.backend.ResolveQuestions(ctx, token)
	if err != nil {
		return nil, err
	}

	var ctrl *session.Controller
	if snap, ok := s.store.Restore(token); ok {
		ctrl, err = session.Restore(snap, quiz, questions, s.backend)
		if err != nil {
			// A snapshot that no longer matches the resolved quiz is
			// discarded; the student restarts rather than resuming a
			// corrupt ledger.
			log.Printf("discarding session snapshot for token %q: %v", token, err)
			ctrl = nil
		}
	}
	if ctrl == nil {
		ctrl = session.New(token, quiz, questions, s.backend)
	}
	s.store.Put(token, ctrl)
	return ctrl, nil
}

// Get returns the live session for a token, if any.
func (s *SessionService) Get(token string) (*session.Controller, error) {
	ctrl, ok := s.store.Get(token)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return ctrl, nil
}

// Start begins the timed run for a resolved session.
func (s *SessionService) Start(token string) error {
	return s.mutate(token, (*session.Controller).Start)
}

// Select records the pending choice for the current question.
func (s *SessionService) Select(token, option string) error {
	return s.mutate(token, func(ctrl *session.Controller) error {
		return ctrl.Select(option)
	})
}

// Advance commits the current selection and moves forward.
func (s *SessionService) Advance(token string) error {
	return s.mutate(token, (*session.Controller).Advance)
}

// Previous steps back to review an already answered question.
func (s *SessionService) Previous(token string) error {
	return s.mutate(token, (*session.Controller).Previous)
}

// Submit sends the completed ledger to the scorer. On success the session
// is discarded: the token is consumed and nothing local may mutate again.
func (s *SessionService) Submit(ctx context.Context, token string) error {
	ctrl, err := s.Get(token)
	if err != nil {
		return err
	}
	if err := ctrl.Submit(ctx); err != nil {
		s.store.Save(ctrl)
		return err
	}
	ctrl.Close()
	s.store.Delete(token)
	return nil
}

// Persist snapshots a session after mutations the service did not drive
// itself (timer expiries observed by the transport).
func (s *SessionService) Persist(token string) {
	if ctrl, ok := s.store.Get(token); ok {
		s.store.Save(ctrl)
	}
}

// End tears down a session without submitting, e.g. when the student
// navigates away. The snapshot stays behind for a later resume.
func (s *SessionService) End(token string) {
	ctrl, ok := s.store.Get(token)
	if !ok {
		return
	}
	s.store.Save(ctrl)
	ctrl.Close()
	s.store.Evict(token)
}

func (s *SessionService) mutate(token string, op func(*session.Controller) error) error {
	ctrl, err := s.Get(token)
	if err != nil {
		return err
	}
	if err := op(ctrl); err != nil {
		return err
	}
	s.store.Save(ctrl)
	return nil
}
