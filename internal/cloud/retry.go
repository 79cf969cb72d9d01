package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aravindh-murugesan/stacksweep-go/internal/backoff"
	"github.com/coder/quartz"
)

// Default retry settings applied by DefaultRetryOptions and Resolve.
const (
	DefaultBaseDelay    = 1000 * time.Millisecond
	DefaultMaxDelay     = 20000 * time.Millisecond
	DefaultJitterFactor = 0.2
	DefaultMaxAttempts  = 3
)

// DefaultRetryOptions returns the standard throttling-tolerant configuration.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		Config: backoff.Config{
			Strategy:     backoff.Exponential,
			BaseDelay:    DefaultBaseDelay,
			MaxDelay:     DefaultMaxDelay,
			JitterFactor: DefaultJitterFactor,
		},
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Resolve fills every field whose zero value cannot be used. JitterFactor is kept
// as given: zero is a valid, deterministic setting.
func (o RetryOptions) Resolve() RetryOptions {
	o.Strategy = backoff.ParseStrategy(string(o.Strategy))
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.MaxDelay < o.BaseDelay {
		o.MaxDelay = o.BaseDelay
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.OperationName == "" {
		o.OperationName = "operation"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = quartz.NewReal()
	}
	return o
}

// WithRetry calls operation(ctx, input) until it succeeds, fails permanently, or
// opts.MaxAttempts calls have been made.
//
// Only throttling errors (see IsRetryable) are retried. Every call to WithRetry owns
// a fresh backoff calculator, so concurrent sessions never share backoff state.
// When attempts run out the last error is returned wrapped; errors.Is and errors.As
// still reach the original.
func WithRetry[I, O any](
	ctx context.Context,
	operation func(context.Context, I) (O, error),
	input I,
	opts RetryOptions,
) (O, error) {
	var zero O
	opts = opts.Resolve()

	var calcOpts []backoff.Option
	if opts.Random != nil {
		calcOpts = append(calcOpts, backoff.WithRandom(opts.Random))
	}
	calculator := backoff.New(opts.Config, calcOpts...)

	attempt := 0
	for {
		result, err := operation(ctx, input)
		if err == nil {
			return result, nil
		}
		attempt++

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt >= opts.MaxAttempts {
			return zero, fmt.Errorf("%s failed after %d attempts: %w", opts.OperationName, attempt, err)
		}

		delay := calculator.NextDelay(attempt)
		opts.Logger.Warn("Transient error detected, scheduling retry",
			"operation", opts.OperationName,
			"strategy", opts.Strategy,
			"error_name", ErrorName(err),
			"error", err,
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay)

		if err := Sleep(ctx, opts.Clock, delay, "retry", "backoff"); err != nil {
			return zero, fmt.Errorf("%s cancelled during backoff: %w", opts.OperationName, err)
		}
	}
}

// Sleep waits for d on clock, returning early with the context error if ctx ends first.
func Sleep(ctx context.Context, clock quartz.Clock, d time.Duration, tags ...string) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := clock.NewTimer(d, tags...)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
