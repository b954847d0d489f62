package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Backend is the self-hosted upstream: invitation tokens, quiz content and
// submissions live in Postgres instead of behind a remote API. Sessions talk
// to it through the same interface as the HTTP client and cannot tell the
// difference.
type Backend struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

func NewBackend(pool *pgxpool.Pool) *Backend {
	return &Backend{pool: pool, clock: time.Now}
}

// quizDoc is the stored JSONB shape. It carries the answer key, which is
// stripped before anything reaches a session.
type quizDoc struct {
	domain.Quiz
	Questions []questionDoc `json:"questions"`
}

type questionDoc struct {
	domain.Question
	CorrectAnswer string `json:"correct_answer"`
}

func (d quizDoc) studentQuestions() []domain.Question {
	out := make([]domain.Question, 0, len(d.Questions))
	for _, q := range d.Questions {
		out = append(out, q.Question)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (d quizDoc) answerKey() map[string]string {
	key := make(map[string]string, len(d.Questions))
	for _, q := range d.Questions {
		key[q.ID] = q.CorrectAnswer
	}
	return key
}

func (b *Backend) ResolveQuiz(ctx context.Context, token string) (domain.Quiz, error) {
	doc, err := b.loadLiveQuiz(ctx, token)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz := doc.Quiz
	if quiz.TotalQuestions == 0 {
		quiz.TotalQuestions = len(doc.Questions)
	}
	return quiz, nil
}

func (b *Backend) ResolveQuestions(ctx context.Context, token string) ([]domain.Question, error) {
	doc, err := b.loadLiveQuiz(ctx, token)
	if err != nil {
		return nil, err
	}
	return doc.studentQuestions(), nil
}

// SubmitAnswers scores the ledger against the stored key, records the
// submission and consumes the token, all in one transaction.
func (b *Backend) SubmitAnswers(ctx context.Context, token string, answers []domain.AnswerRecord) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrUpstream, err)
	}
	defer tx.Rollback(ctx)

	var quizID string
	var used bool
	var raw []byte
	err = tx.QueryRow(ctx, `
		SELECT i.quiz_id, i.used, q.data
		FROM invitations i JOIN quizzes q ON q.id = i.quiz_id
		WHERE i.token = $1
		FOR UPDATE OF i`, token).Scan(&quizID, &used, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("%w: load invitation: %v", domain.ErrUpstream, err)
	}
	if used {
		return domain.ErrTokenInvalid
	}

	var doc quizDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: decode quiz: %v", domain.ErrUpstream, err)
	}
	key := doc.answerKey()
	score := 0
	for _, rec := range answers {
		if key[rec.QuestionID] == rec.Answer {
			score++
		}
	}

	recorded, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO submissions (id, token, quiz_id, answers, score, total, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), token, quizID, recorded, score, len(doc.Questions), b.clock()); err != nil {
		return fmt.Errorf("%w: record submission: %v", domain.ErrUpstream, err)
	}
	if _, err := tx.Exec(ctx, `UPDATE invitations SET used = TRUE WHERE token = $1`, token); err != nil {
		return fmt.Errorf("%w: consume token: %v", domain.ErrUpstream, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrUpstream, err)
	}
	return nil
}

func (b *Backend) FetchResult(ctx context.Context, token string) (domain.Result, error) {
	var (
		quizID      string
		rawAnswers  []byte
		rawQuiz     []byte
		score       int
		total       int
		submittedAt time.Time
	)
	err := b.pool.QueryRow(ctx, `
		SELECT s.quiz_id, s.answers, q.data, s.score, s.total, s.submitted_at
		FROM submissions s JOIN quizzes q ON q.id = s.quiz_id
		WHERE s.token = $1`, token).
		Scan(&quizID, &rawAnswers, &rawQuiz, &score, &total, &submittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrResultNotReady
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("%w: load submission: %v", domain.ErrUpstream, err)
	}

	var rank int
	err = b.pool.QueryRow(ctx, `
		SELECT 1 + COUNT(*) FROM submissions
		WHERE quiz_id = $1 AND (score > $2 OR (score = $2 AND submitted_at < $3))`,
		quizID, score, submittedAt).Scan(&rank)
	if err != nil {
		return domain.Result{}, fmt.Errorf("%w: compute rank: %v", domain.ErrUpstream, err)
	}

	var doc quizDoc
	if err := json.Unmarshal(rawQuiz, &doc); err != nil {
		return domain.Result{}, fmt.Errorf("%w: decode quiz: %v", domain.ErrUpstream, err)
	}
	var records []domain.AnswerRecord
	if err := json.Unmarshal(rawAnswers, &records); err != nil {
		return domain.Result{}, fmt.Errorf("%w: decode answers: %v", domain.ErrUpstream, err)
	}

	key := doc.answerKey()
	text := make(map[string]string, len(doc.Questions))
	for _, q := range doc.Questions {
		text[q.ID] = q.Text
	}
	review := make([]domain.ReviewEntry, 0, len(records))
	for _, rec := range records {
		review = append(review, domain.ReviewEntry{
			QuestionText:  text[rec.QuestionID],
			StudentAnswer: rec.Answer,
			CorrectAnswer: key[rec.QuestionID],
			IsCorrect:     rec.Answer == key[rec.QuestionID],
		})
	}

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(score) / float64(total) * 100))
	}
	return domain.Result{
		ID:             token,
		TotalScore:     score,
		TotalQuestions: total,
		Percentage:     percentage,
		Rank:           rank,
		CompletedAt:    submittedAt,
		Answers:        review,
	}, nil
}

func (b *Backend) FetchStatus(ctx context.Context, token string) (domain.Status, error) {
	var submittedAt *time.Time
	err := b.pool.QueryRow(ctx, `
		SELECT s.submitted_at
		FROM invitations i LEFT JOIN submissions s ON s.token = i.token
		WHERE i.token = $1`, token).Scan(&submittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Status{}, domain.ErrTokenInvalid
	}
	if err != nil {
		return domain.Status{}, fmt.Errorf("%w: load status: %v", domain.ErrUpstream, err)
	}
	return domain.Status{Submitted: submittedAt != nil, CompletedAt: submittedAt}, nil
}

func (b *Backend) loadLiveQuiz(ctx context.Context, token string) (quizDoc, error) {
	var raw []byte
	err := b.pool.QueryRow(ctx, `
		SELECT q.data
		FROM invitations i JOIN quizzes q ON q.id = i.quiz_id
		WHERE i.token = $1 AND NOT i.used`, token).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return quizDoc{}, domain.ErrTokenInvalid
	}
	if err != nil {
		return quizDoc{}, fmt.Errorf("%w: load quiz: %v", domain.ErrUpstream, err)
	}
	var doc quizDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return quizDoc{}, fmt.Errorf("%w: decode quiz: %v", domain.ErrUpstream, err)
	}
	return doc, nil
}
