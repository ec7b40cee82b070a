package form

import (
	"context"
	"errors"

	"nuxo/internal/session"
)

// Terminal states shared by every flow.
const (
	StatePersisted  = "persisted"
	StateSummarized = "summarized"
	StateExported   = "exported"
	StateCancelled  = "cancelled"
	StateFailed     = "failed"
)

func IsTerminal(state string) bool {
	switch state {
	case StatePersisted, StateSummarized, StateExported, StateCancelled, StateFailed:
		return true
	}
	return false
}

// Transition moves the form to Next and emits Responses.
type Transition struct {
	Next      string
	Responses []Response
}

// Rejection keeps the form where it was and tells the user why.
type Rejection struct {
	Reason error
	Prompt []Response
}

func (r *Rejection) Error() string {
	if r.Reason == nil {
		return "input rejected"
	}
	return "input rejected: " + r.Reason.Error()
}

func (r *Rejection) Unwrap() error { return r.Reason }

// Reject is shorthand for returning a Rejection from Step.
func Reject(reason error, prompt ...Response) error {
	return &Rejection{Reason: reason, Prompt: prompt}
}

// Flow is one conversational form. Step receives a working copy of the
// context; it is committed only when Step succeeds.
type Flow interface {
	Kind() session.Kind
	Begin(ctx context.Context, fc *session.FormContext, ev Event) (Transition, error)
	Step(ctx context.Context, fc *session.FormContext, ev Event) (Transition, error)
}

// AsRejection unwraps err into a Rejection.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
