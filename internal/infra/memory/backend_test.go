package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func TestTokenIsSingleUse(t *testing.T) {
	ctx := context.Background()
	backend := NewBackend(testFixtures())

	if _, err := backend.ResolveQuiz(ctx, "tok-alice"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	err := backend.SubmitAnswers(ctx, "tok-alice", []domain.AnswerRecord{
		{QuestionID: "q1", Answer: "4", TimeSpent: 2},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A consumed token must deterministically fail to resolve again.
	if _, err := backend.ResolveQuiz(ctx, "tok-alice"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected token invalid after submit, got %v", err)
	}
	if err := backend.SubmitAnswers(ctx, "tok-alice", nil); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected second submit rejected, got %v", err)
	}
}

func TestUnknownTokenFails(t *testing.T) {
	backend := NewBackend(testFixtures())
	if _, err := backend.ResolveQuiz(context.Background(), "expired-token"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected token invalid, got %v", err)
	}
}

func TestQuestionsCarryNoAnswerKey(t *testing.T) {
	backend := NewBackend(testFixtures())
	questions, err := backend.ResolveQuestions(context.Background(), "tok-alice")
	if err != nil {
		t.Fatalf("resolve questions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	// domain.Question has no answer field at all; check ordering instead.
	if questions[0].Order != 0 || questions[1].Order != 1 {
		t.Fatalf("questions out of order: %+v", questions)
	}
}

func TestResultScoringAndRank(t *testing.T) {
	ctx := context.Background()
	clock := &steppingClock{t: time.Unix(1700000000, 0)}
	backend := newBackendWithClock(testFixtures(), clock.next)

	// Alice: both correct. Bob: one correct, later.
	if err := backend.SubmitAnswers(ctx, "tok-alice", []domain.AnswerRecord{
		{QuestionID: "q1", Answer: "4", TimeSpent: 2},
		{QuestionID: "q2", Answer: "Mercury", TimeSpent: 3},
	}); err != nil {
		t.Fatalf("alice submit: %v", err)
	}
	if err := backend.SubmitAnswers(ctx, "tok-bob", []domain.AnswerRecord{
		{QuestionID: "q1", Answer: "4", TimeSpent: 2},
		{QuestionID: "q2", Answer: "Venus", TimeSpent: 3},
	}); err != nil {
		t.Fatalf("bob submit: %v", err)
	}

	alice, err := backend.FetchResult(ctx, "tok-alice")
	if err != nil {
		t.Fatalf("alice result: %v", err)
	}
	if alice.TotalScore != 2 || alice.Percentage != 100 || alice.Rank != 1 {
		t.Fatalf("unexpected alice result %+v", alice)
	}

	bob, err := backend.FetchResult(ctx, "tok-bob")
	if err != nil {
		t.Fatalf("bob result: %v", err)
	}
	if bob.TotalScore != 1 || bob.Percentage != 50 || bob.Rank != 2 {
		t.Fatalf("unexpected bob result %+v", bob)
	}
	if len(bob.Answers) != 2 || bob.Answers[1].IsCorrect || bob.Answers[1].CorrectAnswer != "Mercury" {
		t.Fatalf("unexpected bob review %+v", bob.Answers)
	}
}

func TestResultNotReadyBeforeSubmit(t *testing.T) {
	backend := NewBackend(testFixtures())
	if _, err := backend.FetchResult(context.Background(), "tok-alice"); !errors.Is(err, domain.ErrResultNotReady) {
		t.Fatalf("expected not-ready error, got %v", err)
	}
}

func TestStatusReflectsSubmission(t *testing.T) {
	ctx := context.Background()
	backend := NewBackend(testFixtures())

	status, err := backend.FetchStatus(ctx, "tok-alice")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Submitted {
		t.Fatalf("expected unsubmitted status")
	}

	if err := backend.SubmitAnswers(ctx, "tok-alice", nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	status, err = backend.FetchStatus(ctx, "tok-alice")
	if err != nil {
		t.Fatalf("status after submit: %v", err)
	}
	if !status.Submitted || status.CompletedAt == nil {
		t.Fatalf("expected submitted status, got %+v", status)
	}
}

type steppingClock struct {
	t time.Time
}

func (c *steppingClock) next() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func testFixtures() map[string]Fixture {
	quiz := domain.Quiz{
		ID:              "quiz-1",
		Title:           "General Knowledge",
		TimePerQuestion: 10,
		TotalQuestions:  2,
	}
	questions := []domain.Question{
		{ID: "q1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, TimeLimit: 10, Order: 0},
		{ID: "q2", Text: "Closest planet to the sun?", Options: []string{"Venus", "Mercury", "Mars"}, TimeLimit: 10, Order: 1},
	}
	key := map[string]string{"q1": "4", "q2": "Mercury"}
	return map[string]Fixture{
		"tok-alice": {Quiz: quiz, Questions: questions, AnswerKey: key},
		"tok-bob":   {Quiz: quiz, Questions: questions, AnswerKey: key},
	}
}
