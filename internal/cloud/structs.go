package cloud

import (
	"context"
	"log/slog"
	"time"

	"github.com/aravindh-murugesan/stacksweep-go/internal/backoff"
	"github.com/coder/quartz"
)

// Stack identifies a remote infrastructure stack. Name is the sweep identifier;
// ID is kept because some control planes need both to address a stack.
type Stack struct {
	Name   string
	ID     string
	Status string
}

// StackPage is one page of a stack listing. An empty NextToken ends the listing.
type StackPage struct {
	Stacks    []Stack
	NextToken string
}

// DeleteResponse is the acknowledgement of an accepted delete request.
type DeleteResponse struct {
	StackName string
	RequestID string
}

// StackAPI is the remote stack-management control plane. Implementations must be
// safe for concurrent use; the sweep shares one client across every pipeline.
type StackAPI interface {
	// ListStacksPage returns the page addressed by token ("" for the first page),
	// restricted to stacks whose status is in statuses.
	ListStacksPage(ctx context.Context, statuses []string, token string) (StackPage, error)

	// RequestStackDelete asks the control plane to delete a stack. Completion is
	// tracked separately through AwaitStackDeletion.
	RequestStackDelete(ctx context.Context, stack Stack) (DeleteResponse, error)

	// AwaitStackDeletion blocks until the stack is gone or maxWait elapses. A timeout
	// is reported as an error matching ErrWaitTimeout.
	AwaitStackDeletion(ctx context.Context, stack Stack, maxWait time.Duration) error

	// StableStatuses lists the non-transitional states eligible for deletion.
	StableStatuses() []string

	// GetCloudProviderName returns the identifier for this provider.
	GetCloudProviderName() string
}

// RetryOptions defines the behaviour of one retry session.
type RetryOptions struct {
	backoff.Config `mapstructure:",squash"`

	// MaxAttempts is the total number of calls, including the first one.
	// A value of 1 disables retries.
	MaxAttempts int `mapstructure:"max-attempts"`

	// OperationName is used for logging only.
	OperationName string `mapstructure:"-"`

	// Logger receives a warning for every scheduled retry. Defaults to slog.Default().
	Logger *slog.Logger `mapstructure:"-"`

	// Clock drives the backoff waits. Defaults to the real clock.
	Clock quartz.Clock `mapstructure:"-"`

	// Random overrides the jitter source of the session's calculator.
	Random func() float64 `mapstructure:"-"`
}
