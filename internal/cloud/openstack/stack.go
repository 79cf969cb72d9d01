package openstack

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/orchestration/v1/stacks"
	"github.com/gophercloud/gophercloud/v2/pagination"
)

// ListStacksPage fetches a single marker/limit page of stacks.
//
// Heat filters on one status per query, so filtering by statuses happens client
// side. The token is the ID of the last stack on the previous page; a short page
// ends the listing.
func (c *Client) ListStacksPage(ctx context.Context, statuses []string, token string) (cloud.StackPage, error) {
	limit := c.pageSize()
	opts := stacks.ListOpts{
		Limit:  limit,
		Marker: token,
	}

	var page cloud.StackPage
	err := stacks.List(c.OrchestrationClient, opts).EachPage(ctx, func(_ context.Context, p pagination.Page) (bool, error) {
		listed, err := stacks.ExtractStacks(p)
		if err != nil {
			return false, err
		}

		for _, s := range listed {
			if len(statuses) > 0 && !slices.Contains(statuses, s.Status) {
				continue
			}
			page.Stacks = append(page.Stacks, cloud.Stack{Name: s.Name, ID: s.ID, Status: s.Status})
		}
		if len(listed) >= limit {
			page.NextToken = listed[len(listed)-1].ID
		}

		// One page per call; the caller drives pagination.
		return false, nil
	})
	if err != nil {
		return cloud.StackPage{}, translateError(err)
	}
	return page, nil
}

// RequestStackDelete asks Heat to delete a stack. Heat answers 204 once the
// delete is accepted; completion is tracked by AwaitStackDeletion.
func (c *Client) RequestStackDelete(ctx context.Context, stack cloud.Stack) (cloud.DeleteResponse, error) {
	result := stacks.Delete(ctx, c.OrchestrationClient, stack.Name, stack.ID)
	requestID := result.Header.Get(requestIDHeader)

	if err := result.ExtractErr(); err != nil {
		return cloud.DeleteResponse{}, translateError(err)
	}

	return cloud.DeleteResponse{StackName: stack.Name, RequestID: requestID}, nil
}

// AwaitStackDeletion polls the stack until Heat reports it gone.
//
// A 404 or DELETE_COMPLETE ends the wait successfully and DELETE_FAILED ends it
// with an error. Throttled polls are skipped rather than failing the wait.
func (c *Client) AwaitStackDeletion(ctx context.Context, stack cloud.Stack, maxWait time.Duration) error {
	waitCtx := ctx
	if maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, maxWait)
		defer cancel()
	}

	log := c.logger().With("stack_name", stack.Name, "stack_id", stack.ID)

	err := gophercloud.WaitFor(waitCtx, func(ctx context.Context) (bool, error) {
		current, err := stacks.Get(ctx, c.OrchestrationClient, stack.Name, stack.ID).Extract()
		if err != nil {
			if isNotFound(err) {
				return true, nil
			}
			translated := translateError(err)
			if cloud.IsRetryable(translated) {
				log.Debug("Status poll throttled, polling again", "error", translated)
				return false, nil
			}
			return false, translated
		}

		switch current.Status {
		case statusDeleteComplete:
			return true, nil
		case statusDeleteFailed:
			return false, fmt.Errorf("stack %s entered %s: %s", stack.Name, current.Status, current.StatusReason)
		}
		return false, nil
	})

	if err != nil && ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("stack %s still present after %s: %w", stack.Name, maxWait, cloud.ErrWaitTimeout)
	}
	return err
}
