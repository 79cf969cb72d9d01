// Package aws implements cloud.StackAPI over AWS CloudFormation.
package aws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
)

// DefaultPollDelay is the shortest interval between completion polls.
const DefaultPollDelay = 5 * time.Second

// CloudFormationAPI is the subset of the CloudFormation client the sweep calls.
type CloudFormationAPI interface {
	ListStacks(ctx context.Context, params *cloudformation.ListStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error)
	DeleteStack(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// Client talks to CloudFormation in a single region.
type Client struct {
	// Region is required unless the shared config or environment provides one.
	Region string
	// Profile selects a shared config profile; empty uses the default chain.
	Profile string
	// PollDelay is the minimum delay between completion polls.
	PollDelay time.Duration
	Logger    *slog.Logger

	CloudFormation CloudFormationAPI
}

// GetCloudProviderName returns the identifier for this provider.
func (c *Client) GetCloudProviderName() string {
	return "aws"
}

// StableStatuses returns the CloudFormation states that are not in progress.
func (c *Client) StableStatuses() []string {
	return stableStatuses
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// NewClient loads the default credential chain and builds the CloudFormation client.
//
// SDK-level retries are disabled: throttling is retried by cloud.WithRetry, and a
// second retry layer underneath would multiply the attempt count.
func (c *Client) NewClient(ctx context.Context) error {
	c.logger().Debug("Initializing AWS client", "region", c.Region, "profile", c.Profile)

	opts := []func(*config.LoadOptions) error{
		config.WithRetryer(func() awssdk.Retryer { return awssdk.NopRetryer{} }),
	}
	if c.Region != "" {
		opts = append(opts, config.WithRegion(c.Region))
	}
	if c.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(c.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return fmt.Errorf("AWS provider requires a region (use --region or $AWS_REGION)")
	}

	c.Region = cfg.Region
	c.CloudFormation = cloudformation.NewFromConfig(cfg)
	return nil
}
