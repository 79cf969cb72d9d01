package cli

import (
	"fmt"
	"strings"

	"github.com/aravindh-murugesan/stacksweep-go/internal/backoff"
	"github.com/aravindh-murugesan/stacksweep-go/internal/workflow"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "STACKSWEEP"

// registerSweepFlags declares every sweep flag with its default value.
func registerSweepFlags(fs *pflag.FlagSet) {
	d := workflow.DefaultSweepConfig()

	// Target selection
	fs.String("prefix", "", "Delete stacks whose name starts with this prefix (required)")
	fs.String("provider", d.Provider, "Stack provider (openstack, aws)")
	fs.String("cloud", "", "Cloud profile: clouds.yaml entry for openstack (required), shared config profile for aws")
	fs.String("region", "", "Region override; falls back to the cloud profile or AWS_REGION")

	// Safety
	fs.BoolP("yes", "y", false, "Skip the confirmation prompt")
	fs.Bool("dry-run", false, "List the stacks that would be deleted and exit")

	// Orchestration
	fs.Int("batch-size", d.Sweep.BatchSize, "Number of stacks grouped per batch")
	fs.Duration("warmup", d.Sweep.WarmupDelay, "Delay before each delete request")
	fs.Bool("stagger-batches", false, "Multiply the warm-up delay by the batch number")
	fs.Duration("max-wait", d.Sweep.MaxWait, "Maximum wait for each stack deletion to complete")
	fs.String("failure-policy", string(d.Sweep.FailurePolicy), "What a failed stack does to the sweep (collect, fail-fast)")
	fs.Int64("max-concurrency", 0, "Maximum stacks deleting at once (0 = unbounded)")
	fs.Float64("requests-per-second", 0, "Client-side limit on delete requests (0 = unlimited)")

	// Retry
	fs.String("strategy", string(d.Sweep.Retry.Strategy), "Backoff strategy (exponential, decorrelated-jitter, full-jitter)")
	fs.Duration("base-delay", d.Sweep.Retry.BaseDelay, "Backoff base delay")
	fs.Duration("max-delay", d.Sweep.Retry.MaxDelay, "Backoff delay cap")
	fs.Float64("jitter", d.Sweep.Retry.JitterFactor, "Backoff jitter factor; decorrelated-jitter treats it as a multiplier and needs at least 0.34 to vary")
	fs.Int("max-attempts", d.Sweep.Retry.MaxAttempts, "Total delete attempts per stack, including the first")

	// Runtime
	fs.Int("timeout", 0, "Global execution timeout in seconds (0 = run indefinitely)")
	fs.String("log-level", d.LogLevel, "Logging level (debug, info, warn, error)")
	fs.Bool("no-progress", false, "Disable the progress bar")

	// Notifications
	fs.String("webhook-url", "", "Webhook URL for failure alerting")
	fs.String("webhook-username", "", "Webhook username for alerting")
	fs.String("webhook-password", "", "Webhook password for alerting")
	fs.Bool("webhook-insecure", false, "Skip TLS verification of the webhook endpoint")

	// Sources
	fs.String("config", "", "Optional YAML/JSON/TOML configuration file")
	fs.String("env-file", "", "Optional dotenv file loaded before reading the environment")
}

// loadSweepConfig merges flags, STACKSWEEP_* environment variables and the
// optional configuration file, in that order of precedence.
func loadSweepConfig(v *viper.Viper, fs *pflag.FlagSet) (workflow.SweepConfig, error) {
	if err := v.BindPFlags(fs); err != nil {
		return workflow.SweepConfig{}, fmt.Errorf("binding flags failed: %w", err)
	}

	if envFile := v.GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return workflow.SweepConfig{}, fmt.Errorf("loading env file %s failed: %w", envFile, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return workflow.SweepConfig{}, fmt.Errorf("reading config file %s failed: %w", configFile, err)
		}
	}

	cfg := workflow.DefaultSweepConfig()
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		backoff.StringToStrategyHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return workflow.SweepConfig{}, fmt.Errorf("decoding configuration failed: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return cfg, nil
}
