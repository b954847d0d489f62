package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

// Scorer is the remote service that turns a submitted ledger into a Result.
// Scoring semantics live entirely on the other side of this interface.
type Scorer interface {
	SubmitAnswers(ctx context.Context, token string, answers []domain.AnswerRecord) error
}

// EventKind tags controller notifications pushed to transports.
type EventKind int

const (
	// EventAdvanced: an answer was committed and a new question is live.
	EventAdvanced EventKind = iota
	// EventCompleted: the last answer was committed; ledger is full.
	EventCompleted
)

// Event notifies a transport of a commit the student did not necessarily
// trigger (timeouts advance the session on their own).
type Event struct {
	Kind     EventKind
	Index    int // frontier index after the commit
	Record   domain.AnswerRecord
	TimedOut bool
}

// Controller owns one student's progression through one quiz: position,
// ledger, lifecycle and the single live question timer. All state is guarded
// by one mutex; the only goroutine it spawns is the per-timer watcher.
type Controller struct {
	token     string
	quiz      domain.Quiz
	questions []domain.Question
	scorer    Scorer
	now       func() time.Time

	mu       sync.Mutex
	state    State
	ledger   *Ledger
	view     int    // displayed question index, <= frontier
	selected string // pending choice for the frontier question
	timer    *Timer
	events   chan Event
	closed   bool
}

// New builds a controller for a resolved token. The question slice must be
// in order; the controller trusts the resolver for that.
func New(token string, quiz domain.Quiz, questions []domain.Question, scorer Scorer) *Controller {
	return newController(token, quiz, questions, scorer, time.Now)
}

// newController allows an injected clock for deterministic elapsed times.
func newController(token string, quiz domain.Quiz, questions []domain.Question, scorer Scorer, now func() time.Time) *Controller {
	return &Controller{
		token:     token,
		quiz:      quiz,
		questions: questions,
		scorer:    scorer,
		now:       now,
		state:     NotStarted,
		ledger:    NewLedger(len(questions)),
		events:    make(chan Event, 16),
	}
}

// Token returns the invitation token the session is bound to.
func (c *Controller) Token() string { return c.token }

// Quiz returns the bound quiz metadata.
func (c *Controller) Quiz() domain.Quiz { return c.quiz }

// Questions returns the ordered question list.
func (c *Controller) Questions() []domain.Question {
	out := make([]domain.Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Frontier is the index of the first unanswered question; it always equals
// the ledger length.
func (c *Controller) Frontier() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Len()
}

// Records returns a copy of the committed ledger in commit order.
func (c *Controller) Records() []domain.AnswerRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Records()
}

// Events delivers commit notifications. Closed when the session is closed.
func (c *Controller) Events() <-chan Event { return c.events }

// Remaining is the time left on the live question timer, zero otherwise.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return 0
	}
	return c.timer.Remaining()
}

// Start moves NotStarted -> Active and arms the timer for question zero.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.questions) == 0 {
		return fmt.Errorf("session %q: quiz has no questions", c.token)
	}
	st, err := next(c.state, evStart)
	if err != nil {
		return err
	}
	c.state = st
	c.startTimerLocked()
	return nil
}

// View describes the question currently displayed: the question itself, the
// answer shown for it, and whether that answer is already committed.
func (c *Controller) View() (q domain.Question, answer string, committed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q = c.questions[c.view]
	if c.view < c.ledger.Len() {
		rec, _ := c.ledger.Record(c.view)
		return q, rec.Answer, true
	}
	return q, c.selected, false
}

// Select records the pending choice for the frontier question. Committed
// answers are append-only; selecting while reviewing an earlier question is
// rejected rather than silently rewriting history.
func (c *Controller) Select(option string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Active {
		return fmt.Errorf("session: select not allowed in state %s", c.state)
	}
	if c.view < c.ledger.Len() {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCommit, c.questions[c.view].ID)
	}
	q := c.questions[c.ledger.Len()]
	for _, opt := range q.Options {
		if opt == option {
			c.selected = option
			return nil
		}
	}
	return fmt.Errorf("%w: %q", domain.ErrInvalidOption, option)
}

// Previous steps the displayed question back for review. The timer for the
// frontier question keeps running; nothing is re-opened.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Active {
		return fmt.Errorf("session: previous not allowed in state %s", c.state)
	}
	if c.view > 0 {
		c.view--
	}
	return nil
}

// Advance moves forward. While reviewing it only steps the display; at the
// frontier it commits the pending selection with the elapsed time and either
// arms the next timer or completes the session.
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Active {
		return fmt.Errorf("session: advance not allowed in state %s", c.state)
	}
	if c.view < c.ledger.Len() {
		c.view++
		return nil
	}
	if c.selected == "" {
		return domain.ErrNoSelection
	}
	elapsed := 0
	if c.timer != nil {
		elapsed = c.timer.Elapsed()
	}
	return c.commitLocked(c.selected, elapsed, false)
}

// timeout handles an expiry from a specific timer handle. A handle that is
// no longer the live one is stale and ignored; that check, not convention,
// is what keeps a late expiry from touching a later question.
func (c *Controller) timeout(t *Timer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != Active || c.timer != t {
		return
	}
	q := c.questions[c.ledger.Len()]
	answer := c.selected
	if answer == "" {
		// No explicit choice: the first option is committed as the answer.
		answer = q.Options[0]
	}
	_ = c.commitLocked(answer, q.TimeLimit, true)
}

// commitLocked performs the atomic advance: append to the ledger, retire the
// old timer, then either arm the next one or complete.
func (c *Controller) commitLocked(answer string, elapsed int, timedOut bool) error {
	q := c.questions[c.ledger.Len()]
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > q.TimeLimit {
		elapsed = q.TimeLimit
	}
	if err := c.ledger.Commit(q.ID, answer, elapsed); err != nil {
		return err
	}
	if c.timer != nil {
		c.timer.Cancel()
		c.timer = nil
	}
	c.view = c.ledger.Len()
	c.selected = ""

	rec, _ := c.ledger.Record(c.ledger.Len() - 1)
	if c.ledger.Len() == len(c.questions) {
		st, err := next(c.state, evComplete)
		if err != nil {
			return err
		}
		c.state = st
		c.emitLocked(Event{Kind: EventCompleted, Index: c.ledger.Len(), Record: rec, TimedOut: timedOut})
		return nil
	}
	st, err := next(c.state, evAdvance)
	if err != nil {
		return err
	}
	c.state = st
	c.startTimerLocked()
	c.emitLocked(Event{Kind: EventAdvanced, Index: c.ledger.Len(), Record: rec, TimedOut: timedOut})
	return nil
}

// startTimerLocked replaces the live timer for the frontier question. The
// previous handle is always cancelled before a new one exists, so at most
// one timer is live per session.
func (c *Controller) startTimerLocked() {
	if c.timer != nil {
		c.timer.Cancel()
	}
	q := c.questions[c.ledger.Len()]
	t := startTimer(time.Duration(q.TimeLimit)*time.Second, c.now)
	c.timer = t
	go c.watch(t)
}

func (c *Controller) watch(t *Timer) {
	select {
	case <-t.Expired():
		c.timeout(t)
	case <-t.Cancelled():
	}
}

// Submit sends the full ledger to the scorer. Valid only from Completed;
// from Submitted it is rejected so a double-fire has no side effect.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Submitted:
		c.mu.Unlock()
		return domain.ErrAlreadySubmitted
	case Submitting:
		c.mu.Unlock()
		return domain.ErrSubmitInFlight
	}
	st, err := next(c.state, evSubmit)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = st
	records := c.ledger.Records()
	token := c.token
	c.mu.Unlock()

	submitErr := c.scorer.SubmitAnswers(ctx, token, records)

	c.mu.Lock()
	defer c.mu.Unlock()
	if submitErr != nil {
		c.state, _ = next(c.state, evFail)
		return fmt.Errorf("submit session %q: %w", token, submitErr)
	}
	c.state, _ = next(c.state, evSubmitOK)
	return nil
}

// Close tears the session down: the live timer is cancelled so no leaked
// expiry can fire into a dead controller, and the event channel is closed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Cancel()
		c.timer = nil
	}
	close(c.events)
}

func (c *Controller) emitLocked(ev Event) {
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		// Drop the oldest rather than block the commit path.
		select {
		case <-c.events:
		default:
		}
		c.events <- ev
	}
}
