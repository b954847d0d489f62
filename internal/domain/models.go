package domain

import "time"

// Quiz is the metadata an invitation token resolves to. Immutable for the
// duration of a session.
type Quiz struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Topic           string `json:"topic"`
	TimePerQuestion int    `json:"time_per_question"` // seconds
	TotalQuestions  int    `json:"total_questions"`
}

// TotalTime is the combined time budget across all questions.
func (q Quiz) TotalTime() time.Duration {
	return time.Duration(q.TotalQuestions*q.TimePerQuestion) * time.Second
}

// Question is the student-facing view of a single question. The correct
// answer never appears here; option text is not guaranteed unique.
type Question struct {
	ID        string   `json:"id"`
	Text      string   `json:"question_text"`
	Options   []string `json:"options"`
	TimeLimit int      `json:"time_limit"` // seconds
	Order     int      `json:"order"`      // 0-based, contiguous per quiz
}

// AnswerRecord is one committed answer in a session ledger.
type AnswerRecord struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
	TimeSpent  int    `json:"time_spent"` // seconds, 0 <= TimeSpent <= TimeLimit
}

// ReviewEntry is the per-question breakdown inside a Result.
type ReviewEntry struct {
	QuestionText  string `json:"question_text"`
	StudentAnswer string `json:"student_answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

// Result is produced by the scorer at submission time and is immutable
// afterwards; this service only ever reads it.
type Result struct {
	ID             string        `json:"id"`
	TotalScore     int           `json:"total_score"`
	TotalQuestions int           `json:"total_questions"`
	Percentage     int           `json:"percentage"` // integer, rounded
	Rank           int           `json:"rank"`       // 1-based
	CompletedAt    time.Time     `json:"completed_at"`
	Answers        []ReviewEntry `json:"answers"`
}

// Status reports whether the ledger behind a token has been submitted yet.
type Status struct {
	Submitted   bool       `json:"submitted"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
