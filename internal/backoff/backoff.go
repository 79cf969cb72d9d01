// Package backoff computes wait durations between retry attempts.
//
// Three strategies share the Calculator contract: exponential (with optional
// symmetric jitter), decorrelated jitter and full jitter. A Calculator belongs to
// exactly one retry session and must not be shared between goroutines.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Calculator computes the delay before the next retry attempt.
type Calculator interface {
	// NextDelay returns the wait before the retry that follows the given attempt (1-based).
	NextDelay(attempt int) time.Duration

	// Reset clears any history kept between calls.
	Reset()
}

// Option customises a Calculator built by New.
type Option func(*settings)

type settings struct {
	random func() float64
}

// WithRandom replaces the uniform [0,1) source. Tests use it to pin jitter.
func WithRandom(random func() float64) Option {
	return func(s *settings) {
		if random != nil {
			s.random = random
		}
	}
}

// New selects the calculator for cfg.Strategy. Unknown or empty strategies
// fall back to Exponential.
func New(cfg Config, opts ...Option) Calculator {
	s := settings{random: rand.Float64}
	for _, opt := range opts {
		opt(&s)
	}

	base := toMillis(cfg.BaseDelay)
	maxDelay := toMillis(cfg.MaxDelay)

	switch ParseStrategy(string(cfg.Strategy)) {
	case DecorrelatedJitter:
		return &DecorrelatedJitterBackoff{
			baseDelay:    base,
			maxDelay:     maxDelay,
			jitterFactor: cfg.JitterFactor,
			lastDelay:    base,
			random:       s.random,
		}
	case FullJitter:
		return &FullJitterBackoff{
			baseDelay: base,
			maxDelay:  maxDelay,
			random:    s.random,
		}
	default:
		return &ExponentialBackoff{
			baseDelay:    base,
			maxDelay:     maxDelay,
			jitterFactor: cfg.JitterFactor,
			random:       s.random,
		}
	}
}

// ExponentialBackoff doubles the base delay on every attempt, capped at maxDelay.
// A non-zero jitter factor spreads the result uniformly over delay ± delay*factor,
// which may land above maxDelay by up to the jitter amount.
type ExponentialBackoff struct {
	baseDelay    float64
	maxDelay     float64
	jitterFactor float64
	random       func() float64
}

// NextDelay returns min(base*2^(attempt-1), max) with symmetric jitter applied.
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := cappedExponential(b.baseDelay, b.maxDelay, attempt)
	if b.jitterFactor == 0 {
		return fromMillis(delay)
	}

	jitter := delay * b.jitterFactor
	return fromMillis(delay - jitter + b.random()*2*jitter)
}

// Reset is a no-op; exponential backoff keeps no history.
func (b *ExponentialBackoff) Reset() {}

// DecorrelatedJitterBackoff derives every delay from the previous one instead of
// the attempt number, so sibling sessions drift apart rather than retrying in step.
type DecorrelatedJitterBackoff struct {
	baseDelay    float64
	maxDelay     float64
	jitterFactor float64
	lastDelay    float64
	random       func() float64
}

// NextDelay ignores attempt. The upper bound min(max, factor*3*last) is never
// allowed below baseDelay, so results stay within [baseDelay, maxDelay].
func (b *DecorrelatedJitterBackoff) NextDelay(_ int) time.Duration {
	upper := math.Min(b.maxDelay, b.jitterFactor*3*b.lastDelay)
	if upper < b.baseDelay {
		upper = b.baseDelay
	}

	b.lastDelay = math.Floor(b.baseDelay + b.random()*(upper-b.baseDelay))
	return fromMillis(b.lastDelay)
}

// Reset restores the history to baseDelay.
func (b *DecorrelatedJitterBackoff) Reset() {
	b.lastDelay = b.baseDelay
}

// FullJitterBackoff draws uniformly from [0, min(base*2^(attempt-1), max)].
type FullJitterBackoff struct {
	baseDelay float64
	maxDelay  float64
	random    func() float64
}

// NextDelay draws uniformly from [0, min(BaseDelay*2^(attempt-1), MaxDelay)].
func (b *FullJitterBackoff) NextDelay(attempt int) time.Duration {
	return fromMillis(b.random() * cappedExponential(b.baseDelay, b.maxDelay, attempt))
}

// Reset is a no-op; full jitter keeps no history.
func (b *FullJitterBackoff) Reset() {}

func cappedExponential(base, maxDelay float64, attempt int) float64 {
	if attempt < 1 {
		attempt = 1
	}
	return math.Min(base*math.Pow(2, float64(attempt-1)), maxDelay)
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func fromMillis(ms float64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}
