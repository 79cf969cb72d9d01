package openstack

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/gophercloud/utils/v2/openstack/clientconfig"
)

// DefaultPageSize is the number of stacks requested per listing page.
const DefaultPageSize = 100

// Client manages the connection to the OpenStack Orchestration (Heat) service.
// It satisfies cloud.StackAPI and is safe for concurrent use once NewClient has run.
type Client struct {
	// ProfileName corresponds to the entry in clouds.yaml
	ProfileName string
	// Region overrides the region_name of the clouds.yaml profile when set.
	Region string
	// PageSize is the listing page size; DefaultPageSize when zero.
	PageSize int
	// Retry configures the retry session around authentication.
	Retry cloud.RetryOptions
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	OrchestrationClient *gophercloud.ServiceClient
}

// GetCloudProviderName returns the identifier for this provider.
func (c *Client) GetCloudProviderName() string {
	return "openstack"
}

// StableStatuses returns the Heat stack states that are not in progress.
func (c *Client) StableStatuses() []string {
	return stableStatuses
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) pageSize() int {
	if c.PageSize > 0 {
		return c.PageSize
	}
	return DefaultPageSize
}

// NewClient authenticates with the configured profile and initializes the
// orchestration v1 service client. Throttled authentication attempts are retried.
func (c *Client) NewClient(ctx context.Context) error {
	c.logger().Debug("Initializing OpenStack client", "profile", c.ProfileName, "region", c.Region)

	opts := &clientconfig.ClientOpts{
		Cloud:      c.ProfileName,
		RegionName: c.Region,
	}

	authenticate := func(ctx context.Context, opts *clientconfig.ClientOpts) (*gophercloud.ProviderClient, error) {
		p, err := clientconfig.AuthenticatedClient(ctx, opts)
		return p, translateError(err)
	}

	retry := c.Retry
	retry.OperationName = "OpenStackAuthentication"
	retry.Logger = c.logger()

	provider, err := cloud.WithRetry(ctx, authenticate, opts, retry)
	if err != nil {
		return fmt.Errorf("authentication failed for profile '%s': %w", c.ProfileName, err)
	}

	cloudConfig, err := clientconfig.GetCloudFromYAML(opts)
	if err != nil {
		return fmt.Errorf("failed to parse cloud config: %w", err)
	}

	var availability gophercloud.Availability
	switch cloudConfig.EndpointType {
	case "internal", "internalURL":
		availability = gophercloud.AvailabilityInternal
	case "admin", "adminURL":
		availability = gophercloud.AvailabilityAdmin
	default:
		availability = gophercloud.AvailabilityPublic
	}

	region := cloudConfig.RegionName
	if c.Region != "" {
		region = c.Region
	}

	orchestration, err := openstack.NewOrchestrationV1(provider, gophercloud.EndpointOpts{
		Availability: availability,
		Region:       region,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Orchestration v1 client: %w", err)
	}

	c.OrchestrationClient = orchestration
	return nil
}
