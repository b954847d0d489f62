package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func TestResolveQuiz(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quiz/tok-1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(domain.Quiz{
			ID:              "quiz-1",
			Title:           "Sample",
			TimePerQuestion: 10,
			TotalQuestions:  3,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	quiz, err := client.ResolveQuiz(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("resolve quiz: %v", err)
	}
	if quiz.ID != "quiz-1" || quiz.TotalQuestions != 3 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
}

func TestResolveQuestionsKeepsOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quiz/tok-1/questions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]domain.Question{
			{ID: "q1", Text: "first", Options: []string{"a", "b"}, TimeLimit: 10, Order: 0},
			{ID: "q2", Text: "second", Options: []string{"c", "d"}, TimeLimit: 10, Order: 1},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	questions, err := client.ResolveQuestions(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("resolve questions: %v", err)
	}
	if len(questions) != 2 || questions[0].ID != "q1" || questions[1].ID != "q2" {
		t.Fatalf("unexpected questions %+v", questions)
	}
}

func TestNotFoundMapsToTokenInvalid(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	if _, err := client.ResolveQuiz(context.Background(), "expired-token"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected token invalid, got %v", err)
	}
}

func TestServerErrorMapsToUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	if _, err := client.ResolveQuiz(context.Background(), "tok"); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestNetworkErrorMapsToUpstream(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // connection refused from here on

	client := NewClient(server.URL, time.Second)
	if _, err := client.ResolveQuiz(context.Background(), "tok"); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestSubmitAnswersBody(t *testing.T) {
	var got submitRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/quiz/tok-1/submit" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	err := client.SubmitAnswers(context.Background(), "tok-1", []domain.AnswerRecord{
		{QuestionID: "q1", Answer: "4", TimeSpent: 3},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(got.Answers) != 1 || got.Answers[0].QuestionID != "q1" || got.Answers[0].TimeSpent != 3 {
		t.Fatalf("unexpected submit payload %+v", got)
	}
}

func TestFetchResultNotFoundMeansNotReady(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	if _, err := client.FetchResult(context.Background(), "tok"); !errors.Is(err, domain.ErrResultNotReady) {
		t.Fatalf("expected not-ready error, got %v", err)
	}
}

func TestFetchResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.Result{
			TotalScore:     2,
			TotalQuestions: 3,
			Percentage:     67,
			Rank:           1,
			Answers: []domain.ReviewEntry{
				{QuestionText: "first", StudentAnswer: "a", CorrectAnswer: "a", IsCorrect: true},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	result, err := client.FetchResult(context.Background(), "tok")
	if err != nil {
		t.Fatalf("fetch result: %v", err)
	}
	if result.Percentage != 67 || result.Rank != 1 || len(result.Answers) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}
