package cloud_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/aravindh-murugesan/stacksweep-go/internal/backoff"
	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
	"github.com/aravindh-murugesan/stacksweep-go/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quickRetry() cloud.RetryOptions {
	return cloud.RetryOptions{
		Config:      backoff.Config{BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		MaxAttempts: 3,
		Logger:      slog.New(slog.DiscardHandler),
	}
}

func stackNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("stack-%02d", i)
	}
	return names
}

func TestStackPages_FollowsTokens(t *testing.T) {
	api := testutils.NewFakeStackAPI(testutils.NamedStacks(stackNames(12)...), 5)

	var sizes []int
	for page, err := range cloud.StackPages(context.Background(), api, nil, quickRetry()) {
		require.NoError(t, err)
		sizes = append(sizes, len(page.Stacks))
	}

	assert.Equal(t, []int{5, 5, 2}, sizes)
	assert.Equal(t, 3, api.ListCalls())
}

func TestStackPages_RestartsFromFirstPage(t *testing.T) {
	api := testutils.NewFakeStackAPI(testutils.NamedStacks(stackNames(4)...), 3)
	pages := cloud.StackPages(context.Background(), api, nil, quickRetry())

	for _, err := range pages {
		require.NoError(t, err)
		break
	}

	var firstNames []string
	for page, err := range pages {
		require.NoError(t, err)
		for _, s := range page.Stacks {
			firstNames = append(firstNames, s.Name)
		}
	}

	assert.Equal(t, stackNames(4), firstNames)
	assert.Equal(t, 3, api.ListCalls(), "one call for the abandoned range, two for the full one")
}

func TestListAllStacks_FiltersByStatus(t *testing.T) {
	stacks := testutils.NamedStacks(stackNames(6)...)
	stacks[1].Status = "DELETE_IN_PROGRESS"
	stacks[4].Status = "UPDATE_IN_PROGRESS"
	api := testutils.NewFakeStackAPI(stacks, 2)

	got, err := cloud.ListAllStacks(context.Background(), api, api.StableStatuses(), quickRetry())

	require.NoError(t, err)
	var names []string
	for _, s := range got {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"stack-00", "stack-02", "stack-03", "stack-05"}, names)
}

func TestListAllStacks_RetriesThrottledPages(t *testing.T) {
	api := testutils.NewFakeStackAPI(testutils.NamedStacks(stackNames(3)...), 2)
	api.FailList(&cloud.APIError{Name: cloud.ThrottlingException}, &cloud.APIError{Name: cloud.ThrottlingException})

	got, err := cloud.ListAllStacks(context.Background(), api, nil, quickRetry())

	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 4, api.ListCalls())
}

func TestListAllStacks_PropagatesPermanentError(t *testing.T) {
	denied := &cloud.APIError{Name: "AccessDenied", Message: "not authorized"}
	api := testutils.NewFakeStackAPI(testutils.NamedStacks(stackNames(3)...), 2)
	api.FailList(denied)

	got, err := cloud.ListAllStacks(context.Background(), api, nil, quickRetry())

	assert.Nil(t, got)
	assert.True(t, errors.Is(err, denied))
	assert.Equal(t, 1, api.ListCalls())
}
