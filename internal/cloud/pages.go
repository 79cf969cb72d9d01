package cloud

import (
	"context"
	"iter"
)

type pageRequest struct {
	statuses []string
	token    string
}

// StackPages walks a listing page by page, following NextToken until it is empty.
// Each range over the returned sequence restarts from the first page. Page calls
// go through WithRetry so throttled listings are absorbed like delete requests.
// Iteration stops after the first error, which is yielded with a zero page.
func StackPages(ctx context.Context, api StackAPI, statuses []string, opts RetryOptions) iter.Seq2[StackPage, error] {
	opts.OperationName = "ListStacks"

	listPage := func(ctx context.Context, req pageRequest) (StackPage, error) {
		return api.ListStacksPage(ctx, req.statuses, req.token)
	}

	return func(yield func(StackPage, error) bool) {
		token := ""
		for {
			page, err := WithRetry(ctx, listPage, pageRequest{statuses: statuses, token: token}, opts)
			if err != nil {
				yield(StackPage{}, err)
				return
			}
			if !yield(page, nil) {
				return
			}
			if page.NextToken == "" || page.NextToken == token {
				return
			}
			token = page.NextToken
		}
	}
}

// ListAllStacks concatenates every page of the listing in order.
func ListAllStacks(ctx context.Context, api StackAPI, statuses []string, opts RetryOptions) ([]Stack, error) {
	var all []Stack
	for page, err := range StackPages(ctx, api, statuses, opts) {
		if err != nil {
			return nil, err
		}
		all = append(all, page.Stacks...)
	}
	return all, nil
}
