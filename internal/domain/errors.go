package domain

import "errors"

var (
	// ErrTokenInvalid is returned when an invitation token is unknown,
	// expired, or already consumed by a submission.
	ErrTokenInvalid = errors.New("invitation token invalid or expired")
	// ErrUpstream is returned when the quiz backend is unreachable or
	// answers with an unexpected status.
	ErrUpstream = errors.New("quiz backend unavailable")
	// ErrResultNotReady is returned when results are requested for a token
	// whose session was never submitted.
	ErrResultNotReady = errors.New("quiz result not available")
	// ErrSessionNotFound is returned when a session op references a token
	// with no live session.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrDuplicateCommit indicates the ledger received a second answer for
	// the same question. This is a programming error, never user input.
	ErrDuplicateCommit = errors.New("answer already committed for question")
	// ErrNoSelection is returned when advancing without a chosen option.
	ErrNoSelection = errors.New("no option selected for current question")
	// ErrInvalidOption is returned when the chosen option is not one of the
	// current question's options.
	ErrInvalidOption = errors.New("option not part of current question")
	// ErrAlreadySubmitted rejects a second submit from a submitted session.
	ErrAlreadySubmitted = errors.New("session already submitted")
	// ErrSubmitInFlight rejects a submit while one is already running.
	ErrSubmitInFlight = errors.New("submission already in progress")
)
