package sweep

import (
	"errors"
	"fmt"

	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
)

// State is a step of one stack's delete pipeline.
//
//	PENDING -> DELAYED -> DELETE_REQUESTED -> WAITING_FOR_COMPLETION -> DONE
//	any step after PENDING may end in FAILED
//
// Retries of the delete request happen inside DELETE_REQUESTED.
type State string

const (
	StatePending              State = "PENDING"
	StateDelayed              State = "DELAYED"
	StateDeleteRequested      State = "DELETE_REQUESTED"
	StateWaitingForCompletion State = "WAITING_FOR_COMPLETION"
	StateDone                 State = "DONE"
	StateFailed               State = "FAILED"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// FailurePolicy decides how pipeline failures affect the sweep.
type FailurePolicy string

const (
	// CollectAll lets every pipeline settle and reports each outcome.
	CollectAll FailurePolicy = "collect"
	// FailFast cancels the remaining pipelines after the first failure.
	FailFast FailurePolicy = "fail-fast"
)

// ParseFailurePolicy maps a name to a policy, defaulting to CollectAll.
func ParseFailurePolicy(name string) (FailurePolicy, error) {
	switch FailurePolicy(name) {
	case "", CollectAll:
		return CollectAll, nil
	case FailFast:
		return FailFast, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (want %q or %q)", name, CollectAll, FailFast)
	}
}

// Observer is notified of every state transition. Calls arrive from many
// goroutines at once.
type Observer interface {
	OnStateChange(stack cloud.Stack, batch int, state State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(stack cloud.Stack, batch int, state State)

func (f ObserverFunc) OnStateChange(stack cloud.Stack, batch int, state State) {
	f(stack, batch, state)
}

// Outcome is the settled result of one pipeline.
type Outcome struct {
	Stack    cloud.Stack
	Batch    int
	State    State
	Response cloud.DeleteResponse
	// FailedIn is the state the pipeline was in when it failed.
	FailedIn State
	Err      error
}

// Report collects the outcomes of a sweep in target order.
type Report struct {
	Outcomes []Outcome
}

// Succeeded counts the stacks that reached DONE.
func (r Report) Succeeded() int {
	return r.count(func(o Outcome) bool { return o.State == StateDone })
}

// Failed counts the stacks that ended in FAILED, wait timeouts included.
func (r Report) Failed() int {
	return r.count(func(o Outcome) bool { return o.State == StateFailed })
}

// TimedOut counts the failures caused by the completion wait ceiling.
func (r Report) TimedOut() int {
	return r.count(func(o Outcome) bool { return errors.Is(o.Err, cloud.ErrWaitTimeout) })
}

// Err joins every pipeline error, or returns nil when nothing failed.
func (r Report) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("stack %s: %w", o.Stack.Name, o.Err))
		}
	}
	return errors.Join(errs...)
}

func (r Report) count(match func(Outcome) bool) int {
	n := 0
	for _, o := range r.Outcomes {
		if match(o) {
			n++
		}
	}
	return n
}
