package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud/aws"
	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud/openstack"
	"github.com/lmittmann/tint"
)

// setupLogger configures the application-wide logger.
// It uses "tint" for colorized, structured logging that is easy to read in terminals.
func setupLogger(cfg SweepConfig) *slog.Logger {
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevel,
	})

	logger := slog.New(handler).With("provider", cfg.Provider)
	if cfg.CloudProfile != "" {
		logger = logger.With("cloud_profile", cfg.CloudProfile)
	}
	if cfg.Region != "" {
		logger = logger.With("region", cfg.Region)
	}
	return logger
}

// newStackAPI builds and connects the client for the configured provider.
func newStackAPI(ctx context.Context, cfg SweepConfig, logger *slog.Logger) (cloud.StackAPI, error) {
	switch cfg.Provider {
	case ProviderOpenStack:
		client := &openstack.Client{
			ProfileName: cfg.CloudProfile,
			Region:      cfg.Region,
			Retry:       cfg.Sweep.Retry,
			Logger:      logger,
		}
		if err := client.NewClient(ctx); err != nil {
			return nil, err
		}
		return client, nil

	case ProviderAWS:
		client := &aws.Client{
			Region:  cfg.Region,
			Profile: cfg.CloudProfile,
			Logger:  logger,
		}
		if err := client.NewClient(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
}
