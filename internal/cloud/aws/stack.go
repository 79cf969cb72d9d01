package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// waiterTimeoutMarker is how the SDK waiters report an exhausted max wait.
const waiterTimeoutMarker = "exceeded max wait time"

var stableStatuses = []string{
	string(types.StackStatusCreateComplete),
	string(types.StackStatusCreateFailed),
	string(types.StackStatusRollbackComplete),
	string(types.StackStatusRollbackFailed),
	string(types.StackStatusDeleteFailed),
	string(types.StackStatusUpdateComplete),
	string(types.StackStatusUpdateFailed),
	string(types.StackStatusUpdateRollbackComplete),
	string(types.StackStatusUpdateRollbackFailed),
	string(types.StackStatusImportComplete),
	string(types.StackStatusImportRollbackComplete),
	string(types.StackStatusImportRollbackFailed),
}

// ListStacksPage returns one page of ListStacks filtered server side by statuses.
func (c *Client) ListStacksPage(ctx context.Context, statuses []string, token string) (cloud.StackPage, error) {
	input := &cloudformation.ListStacksInput{}
	for _, s := range statuses {
		input.StackStatusFilter = append(input.StackStatusFilter, types.StackStatus(s))
	}
	if token != "" {
		input.NextToken = awssdk.String(token)
	}

	out, err := c.CloudFormation.ListStacks(ctx, input)
	if err != nil {
		return cloud.StackPage{}, translateError(err)
	}

	page := cloud.StackPage{NextToken: awssdk.ToString(out.NextToken)}
	for _, summary := range out.StackSummaries {
		page.Stacks = append(page.Stacks, cloud.Stack{
			Name:   awssdk.ToString(summary.StackName),
			ID:     awssdk.ToString(summary.StackId),
			Status: string(summary.StackStatus),
		})
	}
	return page, nil
}

// RequestStackDelete issues DeleteStack. The stack ID is preferred over the name
// so a recreated stack with the same name is never hit by a stale request.
func (c *Client) RequestStackDelete(ctx context.Context, stack cloud.Stack) (cloud.DeleteResponse, error) {
	out, err := c.CloudFormation.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName: awssdk.String(stackRef(stack)),
	})
	if err != nil {
		return cloud.DeleteResponse{}, translateError(err)
	}

	requestID, _ := awsmiddleware.GetRequestIDMetadata(out.ResultMetadata)
	return cloud.DeleteResponse{StackName: stack.Name, RequestID: requestID}, nil
}

// AwaitStackDeletion blocks on the StackDeleteComplete waiter for at most maxWait.
func (c *Client) AwaitStackDeletion(ctx context.Context, stack cloud.Stack, maxWait time.Duration) error {
	if maxWait <= 0 {
		return fmt.Errorf("stack %s: max wait must be positive, got %s", stack.Name, maxWait)
	}

	delay := c.PollDelay
	if delay <= 0 {
		delay = DefaultPollDelay
	}

	waiter := cloudformation.NewStackDeleteCompleteWaiter(c.CloudFormation, func(o *cloudformation.StackDeleteCompleteWaiterOptions) {
		o.MinDelay = delay
		o.MaxDelay = max(delay, 4*delay)
		o.LogWaitAttempts = false

		// SDK retries are off, so a throttled poll would otherwise end the wait.
		settled := o.Retryable
		o.Retryable = func(ctx context.Context, in *cloudformation.DescribeStacksInput, out *cloudformation.DescribeStacksOutput, err error) (bool, error) {
			if err != nil && cloud.IsRetryable(translateError(err)) {
				c.logger().Debug("Status poll throttled, polling again", "stack_name", stack.Name, "error", err)
				return true, nil
			}
			return settled(ctx, in, out, err)
		}
	})

	err := waiter.Wait(ctx, &cloudformation.DescribeStacksInput{StackName: awssdk.String(stackRef(stack))}, maxWait)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && strings.Contains(err.Error(), waiterTimeoutMarker) {
		return fmt.Errorf("stack %s still present after %s: %w", stack.Name, maxWait, cloud.ErrWaitTimeout)
	}
	return fmt.Errorf("stack %s: %w", stack.Name, translateError(err))
}

func stackRef(stack cloud.Stack) string {
	if stack.ID != "" {
		return stack.ID
	}
	return stack.Name
}
