package workflow

import (
	"errors"
	"fmt"

	"github.com/aravindh-murugesan/stacksweep-go/internal/notifications"
	"github.com/aravindh-murugesan/stacksweep-go/internal/sweep"
)

const (
	ProviderOpenStack = "openstack"
	ProviderAWS       = "aws"
)

// SweepConfig is everything a sweep run needs. Field tags match the CLI flag
// names so configuration files, environment variables and flags decode alike.
type SweepConfig struct {
	Prefix         string `mapstructure:"prefix"`
	Provider       string `mapstructure:"provider"`
	CloudProfile   string `mapstructure:"cloud"`
	Region         string `mapstructure:"region"`
	AssumeYes      bool   `mapstructure:"yes"`
	DryRun         bool   `mapstructure:"dry-run"`
	NoProgress     bool   `mapstructure:"no-progress"`
	TimeoutSeconds int    `mapstructure:"timeout"`
	LogLevel       string `mapstructure:"log-level"`

	Sweep   sweep.Options         `mapstructure:",squash"`
	Webhook notifications.Webhook `mapstructure:",squash"`
}

// DefaultSweepConfig returns the configuration used for unset values.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Provider: ProviderOpenStack,
		LogLevel: "info",
		Sweep:    sweep.DefaultOptions(),
	}
}

// Validate rejects configurations that cannot run safely.
func (c SweepConfig) Validate() error {
	var errs []error

	if c.Prefix == "" {
		errs = append(errs, errors.New("prefix must not be empty"))
	}

	switch c.Provider {
	case ProviderOpenStack:
		if c.CloudProfile == "" {
			errs = append(errs, errors.New(`required flag(s) "cloud" not set for the openstack provider`))
		}
	case ProviderAWS:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q (want %q or %q)", c.Provider, ProviderOpenStack, ProviderAWS))
	}

	if _, err := sweep.ParseFailurePolicy(string(c.Sweep.FailurePolicy)); err != nil {
		errs = append(errs, err)
	}
	if c.Sweep.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch-size must not be negative, got %d", c.Sweep.BatchSize))
	}
	if c.Sweep.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("max-concurrency must not be negative, got %d", c.Sweep.MaxConcurrency))
	}
	if c.Sweep.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests-per-second must not be negative, got %g", c.Sweep.RequestsPerSecond))
	}
	if c.Sweep.Retry.JitterFactor < 0 {
		errs = append(errs, fmt.Errorf("jitter must not be negative, got %g", c.Sweep.Retry.JitterFactor))
	}
	if c.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %d", c.TimeoutSeconds))
	}

	return errors.Join(errs...)
}
