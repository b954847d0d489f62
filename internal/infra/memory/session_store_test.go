package memory

import (
	"testing"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/session"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	ctrl := session.New("tok-1", domain.Quiz{ID: "quiz-1", TotalQuestions: 1}, []domain.Question{
		{ID: "q1", Options: []string{"a"}, TimeLimit: 10},
	}, nil)
	defer ctrl.Close()

	store.Put("tok-1", ctrl)
	if _, ok := store.Get("tok-1"); !ok {
		t.Fatalf("expected session present")
	}
	if _, ok := store.Restore("tok-1"); ok {
		t.Fatalf("memory store must not restore snapshots")
	}

	store.Delete("tok-1")
	if _, ok := store.Get("tok-1"); ok {
		t.Fatalf("expected session removed")
	}
}
