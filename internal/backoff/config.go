package backoff

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Strategy names a backoff algorithm.
type Strategy string

const (
	Exponential        Strategy = "exponential"
	DecorrelatedJitter Strategy = "decorrelated-jitter"
	FullJitter         Strategy = "full-jitter"
)

// Config is the immutable input of a retry session's calculator.
type Config struct {
	Strategy Strategy `mapstructure:"strategy"`

	// BaseDelay is the first retry's delay and the floor for decorrelated jitter.
	BaseDelay time.Duration `mapstructure:"base-delay"`

	// MaxDelay caps the exponential growth. It must be >= BaseDelay.
	MaxDelay time.Duration `mapstructure:"max-delay"`

	// JitterFactor is a fraction in [0,1] for exponential and full jitter.
	// Decorrelated jitter uses it as a plain multiplier (> 0).
	JitterFactor float64 `mapstructure:"jitter"`
}

// FlatDecorrelation reports whether decorrelated jitter would return BaseDelay on
// every call. The upper bound JitterFactor*3*lastDelay never clears BaseDelay when
// the factor is below 1/3, and there is no room to vary when MaxDelay <= BaseDelay.
func (c Config) FlatDecorrelation() bool {
	if c.Strategy != DecorrelatedJitter {
		return false
	}
	return c.JitterFactor*3 < 1 || c.MaxDelay <= c.BaseDelay
}

// ParseStrategy maps a user supplied name to a Strategy. Matching ignores case
// and accepts both dashes and underscores. Anything unrecognised is Exponential.
func ParseStrategy(name string) Strategy {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	switch Strategy(normalized) {
	case DecorrelatedJitter:
		return DecorrelatedJitter
	case FullJitter:
		return FullJitter
	default:
		return Exponential
	}
}

// StringToStrategyHookFunc lets mapstructure decode strategy names from config
// files, flags and environment variables.
func StringToStrategyHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(Strategy("")) {
			return data, nil
		}
		return ParseStrategy(data.(string)), nil
	}
}
