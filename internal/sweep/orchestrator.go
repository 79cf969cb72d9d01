// Package sweep drives the deletion of many stacks at once.
//
// Targets are grouped into batches and every stack runs its own pipeline
// (warm-up delay, delete request with retry, wait for completion). All pipelines
// start immediately; batches only group them for warm-up staggering and reporting.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	DefaultBatchSize   = 10
	DefaultWarmupDelay = 1 * time.Second
	DefaultMaxWait     = 10 * time.Minute
)

// Options tune a sweep.
type Options struct {
	// BatchSize groups targets; it does not limit concurrency.
	BatchSize int `mapstructure:"batch-size"`

	// WarmupDelay is slept by every pipeline before its delete request.
	WarmupDelay time.Duration `mapstructure:"warmup"`

	// StaggerBatches multiplies the warm-up by the 1-based batch number.
	StaggerBatches bool `mapstructure:"stagger-batches"`

	// MaxWait is the ceiling for each stack's wait-for-completion.
	MaxWait time.Duration `mapstructure:"max-wait"`

	FailurePolicy FailurePolicy `mapstructure:"failure-policy"`

	// MaxConcurrency caps the pipelines between delete request and completion.
	// Zero leaves every pipeline unbounded.
	MaxConcurrency int64 `mapstructure:"max-concurrency"`

	// RequestsPerSecond throttles delete attempts locally. Zero disables it.
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`

	// Retry configures the session wrapped around each delete request.
	Retry cloud.RetryOptions `mapstructure:",squash"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		BatchSize:     DefaultBatchSize,
		WarmupDelay:   DefaultWarmupDelay,
		MaxWait:       DefaultMaxWait,
		FailurePolicy: CollectAll,
		Retry:         cloud.DefaultRetryOptions(),
	}
}

// Deleter is the part of cloud.StackAPI a sweep needs.
type Deleter interface {
	RequestStackDelete(ctx context.Context, stack cloud.Stack) (cloud.DeleteResponse, error)
	AwaitStackDeletion(ctx context.Context, stack cloud.Stack, maxWait time.Duration) error
}

// Orchestrator runs delete pipelines for a set of targets.
type Orchestrator struct {
	api      Deleter
	opts     Options
	logger   *slog.Logger
	clock    quartz.Clock
	observer Observer
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger every pipeline derives its stack-scoped logger from.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces the real clock used for warm-up and backoff waits.
func WithClock(clock quartz.Clock) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithObserver registers a callback for every state transition.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// NewOrchestrator builds an orchestrator over api. Non-positive MaxWait falls back
// to DefaultMaxWait so a completion wait can never hang.
func NewOrchestrator(api Deleter, opts Options, options ...Option) *Orchestrator {
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = CollectAll
	}

	o := &Orchestrator{
		api:    api,
		opts:   opts,
		logger: slog.Default(),
		clock:  quartz.NewReal(),
	}
	for _, option := range options {
		option(o)
	}

	if opts.MaxConcurrency > 0 {
		o.sem = semaphore.NewWeighted(opts.MaxConcurrency)
	}
	if opts.RequestsPerSecond > 0 {
		burst := max(1, int(math.Ceil(opts.RequestsPerSecond)))
		o.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return o
}

// Run launches one pipeline per target and returns once every pipeline has settled.
//
// Under CollectAll the returned error is always nil; failures are in the report.
// Under FailFast the first failure cancels the other pipelines and is returned.
// Outcomes are in target order either way.
func (o *Orchestrator) Run(ctx context.Context, targets []cloud.Stack) (Report, error) {
	report := Report{Outcomes: make([]Outcome, len(targets))}
	if len(targets) == 0 {
		return report, nil
	}

	batches := Partition(targets, o.opts.BatchSize)
	o.logger.Info("Launching delete pipelines",
		"targets", len(targets),
		"batches", len(batches),
		"batch_size", o.opts.BatchSize,
		"failure_policy", o.opts.FailurePolicy,
		"max_concurrency", o.opts.MaxConcurrency)

	if o.opts.FailurePolicy == FailFast {
		g, gctx := errgroup.WithContext(ctx)
		o.launch(batches, func(i, batch int, stack cloud.Stack) {
			g.Go(func() error {
				report.Outcomes[i] = o.runPipeline(gctx, batch, stack)
				return report.Outcomes[i].Err
			})
		})
		err := g.Wait()
		return report, err
	}

	var wg sync.WaitGroup
	o.launch(batches, func(i, batch int, stack cloud.Stack) {
		wg.Go(func() {
			report.Outcomes[i] = o.runPipeline(ctx, batch, stack)
		})
	})
	wg.Wait()
	return report, nil
}

// launch calls start for every target with its position and batch number.
func (o *Orchestrator) launch(batches [][]cloud.Stack, start func(i, batch int, stack cloud.Stack)) {
	i := 0
	for b, batch := range batches {
		for _, stack := range batch {
			start(i, b, stack)
			i++
		}
	}
}

func (o *Orchestrator) runPipeline(ctx context.Context, batch int, stack cloud.Stack) Outcome {
	out := Outcome{Stack: stack, Batch: batch, State: StatePending}
	log := o.logger.With("stack_name", stack.Name, "stack_id", stack.ID, "batch", batch+1)

	o.transition(&out, StateDelayed)
	if err := cloud.Sleep(ctx, o.clock, o.warmup(batch), "sweep", "warmup"); err != nil {
		return o.fail(out, log, err)
	}

	if o.sem != nil {
		if err := o.sem.Acquire(ctx, 1); err != nil {
			return o.fail(out, log, err)
		}
		defer o.sem.Release(1)
	}

	o.transition(&out, StateDeleteRequested)
	retry := o.opts.Retry
	retry.OperationName = "DeleteStack"
	retry.Logger = log
	if retry.Clock == nil {
		retry.Clock = o.clock
	}

	resp, err := cloud.WithRetry(ctx, o.requestDelete, stack, retry)
	if err != nil {
		return o.fail(out, log, err)
	}
	out.Response = resp
	log.Debug("Delete request accepted", "request_id", resp.RequestID)

	o.transition(&out, StateWaitingForCompletion)
	if err := o.api.AwaitStackDeletion(ctx, stack, o.opts.MaxWait); err != nil {
		return o.fail(out, log, err)
	}

	o.transition(&out, StateDone)
	log.Info("Stack deleted", "request_id", resp.RequestID)
	return out
}

func (o *Orchestrator) requestDelete(ctx context.Context, stack cloud.Stack) (cloud.DeleteResponse, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return cloud.DeleteResponse{}, err
		}
	}
	return o.api.RequestStackDelete(ctx, stack)
}

func (o *Orchestrator) warmup(batch int) time.Duration {
	if o.opts.StaggerBatches {
		return o.opts.WarmupDelay * time.Duration(batch+1)
	}
	return o.opts.WarmupDelay
}

func (o *Orchestrator) fail(out Outcome, log *slog.Logger, err error) Outcome {
	out.FailedIn = out.State
	out.Err = err
	o.transition(&out, StateFailed)

	log.Error("Stack deletion failed",
		"failed_in", out.FailedIn,
		"timed_out", errors.Is(err, cloud.ErrWaitTimeout),
		"error", err,
		"request_id", out.Response.RequestID)
	return out
}

func (o *Orchestrator) transition(out *Outcome, state State) {
	out.State = state
	if o.observer != nil {
		o.observer.OnStateChange(out.Stack, out.Batch, state)
	}
}
