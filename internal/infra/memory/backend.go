package memory

import (
	"context"
	"math"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// Fixture is the backend-side content behind one invitation token. The
// answer key lives here and is stripped from everything a session sees.
type Fixture struct {
	Quiz      domain.Quiz
	Questions []domain.Question
	AnswerKey map[string]string // question ID -> correct option
}

type submission struct {
	records     []domain.AnswerRecord
	score       int
	submittedAt time.Time
}

// Backend is an in-memory upstream, used for demos and as the test double
// for the session stack. Tokens are single-use: a submission consumes the
// token and later resolves fail deterministically.
type Backend struct {
	clock func() time.Time

	mu          sync.Mutex
	fixtures    map[string]Fixture // keyed by token
	used        map[string]bool
	submissions map[string]submission // keyed by token
}

func NewBackend(fixtures map[string]Fixture) *Backend {
	return &Backend{
		clock:       time.Now,
		fixtures:    fixtures,
		used:        make(map[string]bool),
		submissions: make(map[string]submission),
	}
}

// newBackendWithClock is test-only for deterministic submission times.
func newBackendWithClock(fixtures map[string]Fixture, clock func() time.Time) *Backend {
	b := NewBackend(fixtures)
	b.clock = clock
	return b
}

func (b *Backend) ResolveQuiz(_ context.Context, token string) (domain.Quiz, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fx, err := b.liveFixtureLocked(token)
	if err != nil {
		return domain.Quiz{}, err
	}
	return fx.Quiz, nil
}

func (b *Backend) ResolveQuestions(_ context.Context, token string) ([]domain.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fx, err := b.liveFixtureLocked(token)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Question, len(fx.Questions))
	copy(out, fx.Questions)
	return out, nil
}

func (b *Backend) SubmitAnswers(_ context.Context, token string, answers []domain.AnswerRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	fx, err := b.liveFixtureLocked(token)
	if err != nil {
		return err
	}
	score := 0
	for _, rec := range answers {
		if fx.AnswerKey[rec.QuestionID] == rec.Answer {
			score++
		}
	}
	b.used[token] = true
	b.submissions[token] = submission{
		records:     answers,
		score:       score,
		submittedAt: b.clock(),
	}
	return nil
}

func (b *Backend) FetchResult(_ context.Context, token string) (domain.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.submissions[token]
	if !ok {
		return domain.Result{}, domain.ErrResultNotReady
	}
	fx := b.fixtures[token]

	review := make([]domain.ReviewEntry, 0, len(sub.records))
	for i, rec := range sub.records {
		correct := fx.AnswerKey[rec.QuestionID]
		text := ""
		if i < len(fx.Questions) {
			text = fx.Questions[i].Text
		}
		review = append(review, domain.ReviewEntry{
			QuestionText:  text,
			StudentAnswer: rec.Answer,
			CorrectAnswer: correct,
			IsCorrect:     rec.Answer == correct,
		})
	}

	total := fx.Quiz.TotalQuestions
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(sub.score) / float64(total) * 100))
	}
	return domain.Result{
		ID:             token,
		TotalScore:     sub.score,
		TotalQuestions: total,
		Percentage:     percentage,
		Rank:           b.rankLocked(fx.Quiz.ID, sub),
		CompletedAt:    sub.submittedAt,
		Answers:        review,
	}, nil
}

func (b *Backend) FetchStatus(_ context.Context, token string) (domain.Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.fixtures[token]; !ok {
		return domain.Status{}, domain.ErrTokenInvalid
	}
	if sub, ok := b.submissions[token]; ok {
		at := sub.submittedAt
		return domain.Status{Submitted: true, CompletedAt: &at}, nil
	}
	return domain.Status{}, nil
}

func (b *Backend) liveFixtureLocked(token string) (Fixture, error) {
	fx, ok := b.fixtures[token]
	if !ok || b.used[token] {
		return Fixture{}, domain.ErrTokenInvalid
	}
	return fx, nil
}

// rankLocked places a submission among all submissions for the same quiz:
// higher score first, earlier submission breaking ties.
func (b *Backend) rankLocked(quizID string, mine submission) int {
	rank := 1
	for token, other := range b.submissions {
		if b.fixtures[token].Quiz.ID != quizID {
			continue
		}
		if other.score > mine.score ||
			(other.score == mine.score && other.submittedAt.Before(mine.submittedAt)) {
			rank++
		}
	}
	return rank
}
