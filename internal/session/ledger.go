package session

import (
	"fmt"

	"quiz-session-service/internal/domain"
)

// Ledger is the append-only sequence of committed answers. One record per
// question, in question order; a duplicate commit is a programming error
// and fails loudly rather than overwriting.
type Ledger struct {
	records []domain.AnswerRecord
	seen    map[string]struct{}
}

func NewLedger(capacity int) *Ledger {
	return &Ledger{
		records: make([]domain.AnswerRecord, 0, capacity),
		seen:    make(map[string]struct{}, capacity),
	}
}

// Commit appends one answer. Exactly one commit per question ID is allowed.
func (l *Ledger) Commit(questionID, answer string, timeSpent int) error {
	if _, ok := l.seen[questionID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCommit, questionID)
	}
	l.seen[questionID] = struct{}{}
	l.records = append(l.records, domain.AnswerRecord{
		QuestionID: questionID,
		Answer:     answer,
		TimeSpent:  timeSpent,
	})
	return nil
}

// Len is the number of committed answers.
func (l *Ledger) Len() int { return len(l.records) }

// Record returns the committed answer at index i.
func (l *Ledger) Record(i int) (domain.AnswerRecord, bool) {
	if i < 0 || i >= len(l.records) {
		return domain.AnswerRecord{}, false
	}
	return l.records[i], true
}

// Records returns the ledger in commit order. The slice is a copy; the
// ledger itself stays immutable once committed.
func (l *Ledger) Records() []domain.AnswerRecord {
	out := make([]domain.AnswerRecord, len(l.records))
	copy(out, l.records)
	return out
}
