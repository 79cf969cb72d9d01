package sweep

import (
	"strings"

	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
)

// SelectTargets keeps the stacks whose name starts with prefix, in listing order.
// A name listed twice is only targeted once.
func SelectTargets(stacks []cloud.Stack, prefix string) []cloud.Stack {
	seen := make(map[string]struct{}, len(stacks))
	targets := make([]cloud.Stack, 0, len(stacks))

	for _, s := range stacks {
		if !strings.HasPrefix(s.Name, prefix) {
			continue
		}
		if _, dup := seen[s.Name]; dup {
			continue
		}
		seen[s.Name] = struct{}{}
		targets = append(targets, s)
	}
	return targets
}

// Partition splits items into consecutive groups of size; the last group may be
// shorter. A non-positive size yields a single group.
func Partition[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size > len(items) {
		size = len(items)
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches
}
