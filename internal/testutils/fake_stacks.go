// Package testutils provides an in-memory stack control plane for tests.
package testutils

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
)

// FakeStackAPI is a concurrency-safe, in-memory cloud.StackAPI.
//
// Listing is paginated with numeric tokens. Delete and wait failures can be queued
// per stack; queued errors are returned one per call before calls start succeeding.
type FakeStackAPI struct {
	Stacks   []cloud.Stack
	PageSize int
	Stable   []string

	// WaitDelay is how long a deletion takes to complete.
	WaitDelay time.Duration

	mu           sync.Mutex
	listErrors   []error
	deleteErrors map[string][]error
	waitErrors   map[string]error
	listCalls    int
	deleteCalls  map[string]int
	waitCalls    map[string]int
	deleted      map[string]bool
	inFlight     int
	maxInFlight  int
}

// NewFakeStackAPI returns a fake holding stacks, served pageSize at a time.
func NewFakeStackAPI(stacks []cloud.Stack, pageSize int) *FakeStackAPI {
	return &FakeStackAPI{
		Stacks:       stacks,
		PageSize:     pageSize,
		Stable:       []string{"CREATE_COMPLETE", "UPDATE_COMPLETE", "DELETE_FAILED"},
		deleteErrors: make(map[string][]error),
		waitErrors:   make(map[string]error),
		deleteCalls:  make(map[string]int),
		waitCalls:    make(map[string]int),
		deleted:      make(map[string]bool),
	}
}

// FailList queues errors for the next listing calls.
func (f *FakeStackAPI) FailList(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErrors = append(f.listErrors, errs...)
}

// FailDelete queues errors for the next delete requests of stack name.
func (f *FakeStackAPI) FailDelete(name string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteErrors[name] = append(f.deleteErrors[name], errs...)
}

// FailWait makes every wait on stack name return err.
func (f *FakeStackAPI) FailWait(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waitErrors[name] = err
}

func (f *FakeStackAPI) ListStacksPage(ctx context.Context, statuses []string, token string) (cloud.StackPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	if len(f.listErrors) > 0 {
		err := f.listErrors[0]
		f.listErrors = f.listErrors[1:]
		return cloud.StackPage{}, err
	}

	var matching []cloud.Stack
	for _, s := range f.Stacks {
		if len(statuses) == 0 || slices.Contains(statuses, s.Status) {
			matching = append(matching, s)
		}
	}

	start := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil || n < 0 || n > len(matching) {
			return cloud.StackPage{}, &cloud.APIError{Name: "ValidationError", Message: "invalid NextToken"}
		}
		start = n
	}

	size := f.PageSize
	if size <= 0 {
		size = len(matching)
	}
	end := min(start+size, len(matching))

	page := cloud.StackPage{Stacks: slices.Clone(matching[start:end])}
	if end < len(matching) {
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

func (f *FakeStackAPI) RequestStackDelete(ctx context.Context, stack cloud.Stack) (cloud.DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls[stack.Name]++

	if queued := f.deleteErrors[stack.Name]; len(queued) > 0 {
		f.deleteErrors[stack.Name] = queued[1:]
		return cloud.DeleteResponse{}, queued[0]
	}

	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	return cloud.DeleteResponse{
		StackName: stack.Name,
		RequestID: fmt.Sprintf("req-%s-%d", stack.Name, f.deleteCalls[stack.Name]),
	}, nil
}

func (f *FakeStackAPI) AwaitStackDeletion(ctx context.Context, stack cloud.Stack, maxWait time.Duration) error {
	f.mu.Lock()
	f.waitCalls[stack.Name]++
	waitErr := f.waitErrors[stack.Name]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	wait := f.WaitDelay
	timedOut := maxWait > 0 && wait > maxWait
	if timedOut {
		wait = maxWait
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if timedOut {
		return fmt.Errorf("stack %s: %w", stack.Name, cloud.ErrWaitTimeout)
	}
	if waitErr != nil {
		return waitErr
	}

	f.mu.Lock()
	f.deleted[stack.Name] = true
	f.mu.Unlock()
	return nil
}

func (f *FakeStackAPI) StableStatuses() []string {
	return f.Stable
}

func (f *FakeStackAPI) GetCloudProviderName() string {
	return "fake"
}

// ListCalls returns the number of listing calls made so far.
func (f *FakeStackAPI) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// DeleteCalls returns the number of delete requests made for stack name.
func (f *FakeStackAPI) DeleteCalls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteCalls[name]
}

// WaitCalls returns the number of completion waits made for stack name.
func (f *FakeStackAPI) WaitCalls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waitCalls[name]
}

// Deleted reports whether stack name finished deleting.
func (f *FakeStackAPI) Deleted(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleted[name]
}

// MaxInFlight is the highest number of stacks observed between an accepted delete
// request and the end of its completion wait.
func (f *FakeStackAPI) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// NamedStacks builds CREATE_COMPLETE stacks with the given names.
func NamedStacks(names ...string) []cloud.Stack {
	stacks := make([]cloud.Stack, 0, len(names))
	for i, name := range names {
		stacks = append(stacks, cloud.Stack{
			Name:   name,
			ID:     fmt.Sprintf("id-%03d", i),
			Status: "CREATE_COMPLETE",
		})
	}
	return stacks
}
