package credential

import (
	"fmt"

	"github.com/google/uuid"
)

// State is the position of one sign-in attempt.
//
//	Unauthenticated -> Validating -> Authenticated
//	                              -> Rejected
type State int

const (
	Unauthenticated State = iota
	Validating
	Authenticated
	Rejected
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Validating:
		return "validating"
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Authenticated || s == Rejected
}

var transitions = map[State][]State{
	Unauthenticated: {Validating},
	Validating:      {Authenticated, Rejected},
}

// InvalidTransitionError is a programming error: an attempt was moved along
// an edge the machine does not have.
type InvalidTransitionError struct {
	From, To State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid credential state transition %s -> %s", e.From, e.To)
}

// Result is the outcome of Authenticate. AccountID is set only when State is
// Authenticated; Err carries the rejection reason otherwise.
type Result struct {
	State     State
	AccountID uuid.UUID
	Email     string
	Err       error
}

// Authenticated reports whether the attempt succeeded.
func (r Result) Authenticated() bool {
	return r.State == Authenticated
}

// attempt walks the state machine for a single Authenticate call.
type attempt struct {
	state State
}

func (a *attempt) transition(to State) error {
	for _, allowed := range transitions[a.state] {
		if allowed == to {
			a.state = to
			return nil
		}
	}
	return &InvalidTransitionError{From: a.state, To: to}
}

func (a *attempt) accept(id uuid.UUID, email string) Result {
	if err := a.transition(Authenticated); err != nil {
		return Result{State: a.state, Err: err}
	}
	return Result{State: Authenticated, AccountID: id, Email: email}
}

func (a *attempt) reject(err error) Result {
	if tErr := a.transition(Rejected); tErr != nil {
		return Result{State: a.state, Err: tErr}
	}
	return Result{State: Rejected, Err: err}
}
