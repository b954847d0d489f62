package session

import (
	"fmt"

	"quiz-session-service/internal/domain"
)

// Snapshot is the durable form of a session: enough to resume after a
// disconnect or process restart. Persistence is an explicit save/restore
// contract; there is no ambient shared state between sessions.
type Snapshot struct {
	Token   string                `json:"token"`
	State   string                `json:"state"`
	Records []domain.AnswerRecord `json:"records"`
}

// Snapshot captures the session's durable state under the lock.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Token:   c.token,
		State:   c.state.String(),
		Records: c.ledger.Records(),
	}
}

// Restore rebuilds a controller from a snapshot against freshly resolved
// quiz content. An Active session resumes at its frontier with a fresh
// full-length timer for the current question; an in-flight submission that
// never concluded falls back to Completed so the student can submit again.
func Restore(snap Snapshot, quiz domain.Quiz, questions []domain.Question, scorer Scorer) (*Controller, error) {
	c := New(snap.Token, quiz, questions, scorer)
	if len(snap.Records) > len(questions) {
		return nil, fmt.Errorf("restore session %q: %d records for %d questions", snap.Token, len(snap.Records), len(questions))
	}
	for i, rec := range snap.Records {
		if rec.QuestionID != questions[i].ID {
			return nil, fmt.Errorf("restore session %q: record %d is for question %q, want %q",
				snap.Token, i, rec.QuestionID, questions[i].ID)
		}
		if err := c.ledger.Commit(rec.QuestionID, rec.Answer, rec.TimeSpent); err != nil {
			return nil, err
		}
	}
	c.view = c.ledger.Len()

	state, err := parseState(snap.State)
	if err != nil {
		return nil, fmt.Errorf("restore session %q: %w", snap.Token, err)
	}
	if state == Submitting {
		state = Completed
	}
	if state == Active && c.ledger.Len() == len(questions) {
		state = Completed
	}
	c.state = state
	if state == Active {
		c.startTimerLocked()
	}
	return c, nil
}

func parseState(s string) (State, error) {
	for _, st := range []State{NotStarted, Active, Completed, Submitting, Submitted, Failed} {
		if st.String() == s {
			return st, nil
		}
	}
	return NotStarted, fmt.Errorf("unknown session state %q", s)
}
