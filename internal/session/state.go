package session

import "fmt"

// State is the lifecycle position of a session. Transitions go through the
// pure next function so that every move is validated in one place instead of
// being scattered across boolean flags.
type State int

const (
	NotStarted State = iota
	Active
	Completed
	Submitting
	Submitted
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Active:
		return "active"
	case Completed:
		return "completed"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// event is a session input that may move the state machine.
type event int

const (
	evStart event = iota
	evAdvance  // an answer was committed, more questions remain
	evComplete // the last answer was committed
	evSubmit
	evSubmitOK
	evFail
)

func (e event) String() string {
	switch e {
	case evStart:
		return "start"
	case evAdvance:
		return "advance"
	case evComplete:
		return "complete"
	case evSubmit:
		return "submit"
	case evSubmitOK:
		return "submit_ok"
	case evFail:
		return "fail"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// next is the transition function. It has no side effects; the controller
// applies the returned state under its lock.
func next(s State, e event) (State, error) {
	switch s {
	case NotStarted:
		switch e {
		case evStart:
			return Active, nil
		case evFail:
			return Failed, nil
		}
	case Active:
		switch e {
		case evAdvance:
			return Active, nil
		case evComplete:
			return Completed, nil
		case evFail:
			return Failed, nil
		}
	case Completed:
		if e == evSubmit {
			return Submitting, nil
		}
	case Submitting:
		switch e {
		case evSubmitOK:
			return Submitted, nil
		case evFail:
			return Failed, nil
		}
	}
	return s, fmt.Errorf("session: %s not allowed in state %s", e, s)
}
