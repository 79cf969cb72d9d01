package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aravindh-murugesan/stacksweep-go/internal/backoff"
	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
	"github.com/aravindh-murugesan/stacksweep-go/internal/notifications"
	"github.com/aravindh-murugesan/stacksweep-go/internal/sweep"
	"github.com/aravindh-murugesan/stacksweep-go/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConfirmer struct {
	answer bool
	err    error
	calls  int
}

func (s *stubConfirmer) Confirm(context.Context, string, string) (bool, error) {
	s.calls++
	return s.answer, s.err
}

func testConfig() SweepConfig {
	cfg := DefaultSweepConfig()
	cfg.Prefix = "test-"
	cfg.Sweep.BatchSize = 3
	cfg.Sweep.WarmupDelay = time.Millisecond
	cfg.Sweep.MaxWait = time.Second
	cfg.Sweep.Retry = cloud.RetryOptions{
		Config: backoff.Config{
			Strategy:  backoff.Exponential,
			BaseDelay: time.Millisecond,
			MaxDelay:  4 * time.Millisecond,
		},
		MaxAttempts: 3,
	}
	return cfg
}

// twelveStacks returns five "test-" stacks among seven others.
func twelveStacks() []cloud.Stack {
	return testutils.NamedStacks(
		"prod-api", "test-1", "prod-db", "test-2", "staging-web", "test-3",
		"prod-cache", "test-4", "tester", "test-5", "prod-queue", "prod-auth",
	)
}

func newSession(confirmer Confirmer) (Session, *bytes.Buffer) {
	var out bytes.Buffer
	return Session{
		SweepID:   "req-test",
		Logger:    slog.New(slog.DiscardHandler),
		Out:       &out,
		Confirmer: confirmer,
	}, &out
}

func TestSweep_DeletesEveryMatchingStack(t *testing.T) {
	api := testutils.NewFakeStackAPI(twelveStacks(), 7)
	confirmer := &stubConfirmer{answer: true}
	session, out := newSession(confirmer)

	report, err := Sweep(context.Background(), api, testConfig(), session)

	require.NoError(t, err)
	assert.Equal(t, 2, api.ListCalls(), "listing spans two pages")
	assert.Equal(t, 1, confirmer.calls)
	require.Len(t, report.Outcomes, 5)
	assert.Equal(t, 5, report.Succeeded())

	batches := map[int]int{}
	for i, o := range report.Outcomes {
		assert.Equal(t, fmt.Sprintf("test-%d", i+1), o.Stack.Name)
		assert.Equal(t, sweep.StateDone, o.State)
		batches[o.Batch]++
	}
	assert.Equal(t, map[int]int{0: 3, 1: 2}, batches)

	for _, name := range []string{"prod-api", "tester", "staging-web"} {
		assert.Zero(t, api.DeleteCalls(name), "%s must not be touched", name)
	}
	assert.Contains(t, out.String(), "Deleted: 5  Failed: 0  Timed out: 0  Total: 5")
}

func TestSweep_NoMatchesIsNotAnError(t *testing.T) {
	api := testutils.NewFakeStackAPI(testutils.NamedStacks("prod-a", "prod-b"), 0)
	confirmer := &stubConfirmer{answer: true}
	session, _ := newSession(confirmer)

	report, err := Sweep(context.Background(), api, testConfig(), session)

	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	assert.Zero(t, confirmer.calls, "nothing to confirm")
}

func TestSweep_DryRunDeletesNothing(t *testing.T) {
	api := testutils.NewFakeStackAPI(twelveStacks(), 0)
	confirmer := &stubConfirmer{answer: true}
	session, out := newSession(confirmer)
	cfg := testConfig()
	cfg.DryRun = true

	_, err := Sweep(context.Background(), api, cfg, session)

	require.NoError(t, err)
	assert.Zero(t, confirmer.calls)
	for i := 1; i <= 5; i++ {
		name := fmt.Sprintf("test-%d", i)
		assert.Zero(t, api.DeleteCalls(name))
		assert.Contains(t, out.String(), name)
	}
}

func TestSweep_Declined(t *testing.T) {
	api := testutils.NewFakeStackAPI(twelveStacks(), 0)
	session, _ := newSession(&stubConfirmer{answer: false})

	_, err := Sweep(context.Background(), api, testConfig(), session)

	assert.ErrorIs(t, err, ErrAborted)
	assert.Zero(t, api.DeleteCalls("test-1"))
}

func TestSweep_ConfirmationError(t *testing.T) {
	api := testutils.NewFakeStackAPI(twelveStacks(), 0)
	noAnswer := errors.New("stdin closed")
	session, _ := newSession(&stubConfirmer{err: noAnswer})

	_, err := Sweep(context.Background(), api, testConfig(), session)

	assert.ErrorIs(t, err, noAnswer)
	assert.Zero(t, api.DeleteCalls("test-1"))
}

func TestSweep_AssumeYesSkipsPrompt(t *testing.T) {
	api := testutils.NewFakeStackAPI(twelveStacks(), 0)
	confirmer := &stubConfirmer{answer: false}
	session, _ := newSession(confirmer)
	cfg := testConfig()
	cfg.AssumeYes = true

	report, err := Sweep(context.Background(), api, cfg, session)

	require.NoError(t, err)
	assert.Zero(t, confirmer.calls)
	assert.Equal(t, 5, report.Succeeded())
}

func TestSweep_ListingFailure(t *testing.T) {
	api := testutils.NewFakeStackAPI(twelveStacks(), 0)
	denied := &cloud.APIError{Name: "AccessDenied"}
	api.FailList(denied)
	session, _ := newSession(&stubConfirmer{answer: true})

	_, err := Sweep(context.Background(), api, testConfig(), session)

	assert.ErrorIs(t, err, denied)
}

func TestSweep_FailuresAreReportedAndNotified(t *testing.T) {
	var (
		mu       sync.Mutex
		received []notifications.SweepFailure
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n notifications.SweepFailure
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&n))
		mu.Lock()
		received = append(received, n)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	api := testutils.NewFakeStackAPI(twelveStacks(), 0)
	denied := &cloud.APIError{Name: "ValidationError", Message: "TerminationProtection is enabled"}
	api.FailDelete("test-2", denied)

	cfg := testConfig()
	cfg.AssumeYes = true
	cfg.Webhook = notifications.Webhook{URL: srv.URL}
	session, out := newSession(nil)

	report, err := Sweep(context.Background(), api, cfg, session)

	require.Error(t, err)
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, 4, report.Succeeded())
	assert.Equal(t, 1, report.Failed())
	assert.Contains(t, out.String(), "Deleted: 4  Failed: 1  Timed out: 0  Total: 5")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "req-test", received[0].SweepID)
	assert.Equal(t, "fake", received[0].Provider)
	assert.Equal(t, 1, received[0].Failed)
	assert.Equal(t, 4, received[0].Succeeded)
	require.Len(t, received[0].Failures, 1)
	assert.Equal(t, "test-2", received[0].Failures[0].Stack)
	assert.Equal(t, string(sweep.StateDeleteRequested), received[0].Failures[0].State)
}

func TestSweep_NotifiesAfterContextExpires(t *testing.T) {
	var (
		mu       sync.Mutex
		received []notifications.SweepFailure
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n notifications.SweepFailure
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&n))
		mu.Lock()
		received = append(received, n)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	api := testutils.NewFakeStackAPI(testutils.NamedStacks("test-1", "test-2", "prod-1"), 0)
	api.WaitDelay = time.Hour

	cfg := testConfig()
	cfg.AssumeYes = true
	cfg.Sweep.MaxWait = time.Hour
	cfg.Webhook = notifications.Webhook{URL: srv.URL, Timeout: 5 * time.Second}
	session, _ := newSession(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	report, err := Sweep(ctx, api, cfg, session)

	require.Error(t, err)
	assert.Equal(t, 2, report.Failed())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1, "the alert must survive the expired sweep context")
	assert.Equal(t, 2, received[0].Failed)
	assert.Len(t, received[0].Failures, 2)
}

func TestSweep_ProgressBar(t *testing.T) {
	api := testutils.NewFakeStackAPI(twelveStacks(), 0)
	session, _ := newSession(&stubConfirmer{answer: true})
	var progress bytes.Buffer
	session.Progress = &progress

	_, err := Sweep(context.Background(), api, testConfig(), session)

	require.NoError(t, err)
	assert.Contains(t, progress.String(), "Deleting stacks")
}
