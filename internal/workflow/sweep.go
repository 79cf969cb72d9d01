package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
	"github.com/aravindh-murugesan/stacksweep-go/internal/notifications"
	"github.com/aravindh-murugesan/stacksweep-go/internal/sweep"
	"github.com/aravindh-murugesan/stacksweep-go/internal/ui"
	"github.com/google/uuid"
)

// ErrAborted is returned when the operator declines the confirmation prompt.
var ErrAborted = errors.New("sweep aborted by operator")

// Confirmer asks the operator to approve the deletion.
type Confirmer interface {
	Confirm(ctx context.Context, warning, question string) (bool, error)
}

// Session holds the per-run collaborators of Sweep.
type Session struct {
	SweepID string
	Logger  *slog.Logger
	// Out receives the target list and the final report.
	Out io.Writer
	// Progress receives the progress bar; nil disables it.
	Progress  io.Writer
	Confirmer Confirmer
}

// RunStackSweepWorkflow runs one sweep end to end against a real provider.
//
// Responsibilities:
//  1. Validation: Rejects unsafe or incomplete configuration before touching the cloud.
//  2. Context: Applies the optional global timeout and cancels on SIGINT/SIGTERM.
//  3. Connection: Initializes the provider client, retrying throttled authentication.
//  4. Sweep: Lists, confirms, deletes and reports (see Sweep).
func RunStackSweepWorkflow(cfg SweepConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// 1. Setup Logger & Run ID
	logger := setupLogger(cfg)
	sweepID := fmt.Sprintf("req-%s", uuid.New().String())
	logger = logger.With("sweep_id", sweepID, "prefix", cfg.Prefix)

	logger.Info("Initializing stack sweep workflow", "dry_run", cfg.DryRun)
	if cfg.Sweep.Retry.FlatDecorrelation() {
		logger.Warn("Decorrelated jitter will always wait the base delay; raise --jitter to at least 0.34 to spread retries",
			"jitter", cfg.Sweep.Retry.JitterFactor,
			"base_delay", cfg.Sweep.Retry.BaseDelay,
			"max_delay", cfg.Sweep.Retry.MaxDelay)
	}

	// 2. Setup Context (Optional Timeout)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
		defer cancel()
		logger.Debug("Global workflow timeout configured", "timeout_seconds", cfg.TimeoutSeconds)
	}

	// 3. Initialize Provider Client
	logger.Debug("Attempting to connect to provider")
	api, err := newStackAPI(ctx, cfg, logger)
	if err != nil {
		logger.Error("Client initialization failed", "error", err)
		return fmt.Errorf("client initialization failed: %w", err)
	}
	logger.Debug("Provider connection established")

	session := Session{
		SweepID:   sweepID,
		Logger:    logger,
		Out:       os.Stdout,
		Confirmer: ui.NewConfirmer(),
	}
	if !cfg.NoProgress {
		session.Progress = os.Stderr
	}

	_, err = Sweep(ctx, api, cfg, session)
	return err
}

// Sweep deletes every stable stack whose name starts with cfg.Prefix.
//
// An empty match is not an error. Under the collect policy a report with failures
// still yields a non-nil error after the report has been rendered.
func Sweep(ctx context.Context, api cloud.StackAPI, cfg SweepConfig, s Session) (sweep.Report, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := s.Out
	if out == nil {
		out = io.Discard
	}

	// 1. Discover Targets
	listRetry := cfg.Sweep.Retry
	listRetry.Logger = logger

	stacks, err := cloud.ListAllStacks(ctx, api, api.StableStatuses(), listRetry)
	if err != nil {
		logger.Error("Stack discovery failed", "error", err)
		return sweep.Report{}, fmt.Errorf("listing stacks failed: %w", err)
	}

	targets := sweep.SelectTargets(stacks, cfg.Prefix)
	logger.Info("Stack discovery completed", "stacks_listed", len(stacks), "targets", len(targets))

	if len(targets) == 0 {
		logger.Info("No stacks match the prefix; nothing to delete")
		return sweep.Report{}, nil
	}

	// 2. Present Targets
	fmt.Fprintf(out, "Stacks matching prefix %q:\n", cfg.Prefix)
	if err := sweep.RenderTargets(out, targets, cfg.Sweep.BatchSize); err != nil {
		return sweep.Report{}, fmt.Errorf("rendering targets failed: %w", err)
	}

	if cfg.DryRun {
		logger.Info("Dry run requested; no stacks were deleted", "targets", len(targets))
		return sweep.Report{}, nil
	}

	// 3. Confirm
	if !cfg.AssumeYes {
		confirmer := s.Confirmer
		if confirmer == nil {
			confirmer = ui.NewConfirmer()
		}

		warning := fmt.Sprintf("WARNING: %d stacks on %s will be permanently deleted.", len(targets), api.GetCloudProviderName())
		ok, err := confirmer.Confirm(ctx, warning, "Proceed with deletion?")
		if err != nil {
			return sweep.Report{}, fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			logger.Info("Sweep declined by operator")
			return sweep.Report{}, ErrAborted
		}
	}

	// 4. Delete
	observer, finish := newSweepObserver(s.Progress, len(targets), logger)
	orchestrator := sweep.NewOrchestrator(api, cfg.Sweep,
		sweep.WithLogger(logger),
		sweep.WithObserver(observer))

	report, runErr := orchestrator.Run(ctx, targets)
	finish()

	// 5. Summarise
	if err := report.Render(out); err != nil {
		logger.Warn("Rendering the sweep report failed", "error", err)
	}

	logger.Info("Stack sweep execution summary",
		"targets", len(targets),
		"success_count", report.Succeeded(),
		"error_count", report.Failed(),
		"timed_out_count", report.TimedOut())

	// 6. Notify
	if report.Failed() > 0 && cfg.Webhook.Enabled() {
		notification := failureNotification(s.SweepID, api.GetCloudProviderName(), cfg.Prefix, report)
		// Timeouts and signals are the failures worth alerting on, so the sweep
		// context is detached here; the webhook timeout still bounds the call.
		if err := cfg.Webhook.Notify(context.WithoutCancel(ctx), notification); err != nil {
			logger.Error("Failure notification could not be delivered", "error", err)
		} else {
			logger.Info("Failure notification delivered", "webhook", cfg.Webhook.URL)
		}
	}

	if runErr != nil {
		return report, fmt.Errorf("sweep stopped after a failure: %w", runErr)
	}
	if failed := report.Failed(); failed > 0 {
		return report, fmt.Errorf("%d of %d stacks failed to delete: %w", failed, len(targets), report.Err())
	}
	return report, nil
}

func failureNotification(sweepID, provider, prefix string, report sweep.Report) notifications.SweepFailure {
	notification := notifications.SweepFailure{
		Service:   "stacksweep",
		SweepID:   sweepID,
		Provider:  provider,
		Prefix:    prefix,
		Failed:    report.Failed(),
		Succeeded: report.Succeeded(),
	}
	for _, o := range report.Outcomes {
		if o.Err == nil {
			continue
		}
		notification.Failures = append(notification.Failures, notifications.StackFailure{
			Stack: o.Stack.Name,
			State: string(o.FailedIn),
			Error: o.Err.Error(),
		})
	}
	return notification
}
