package workflow

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
	"github.com/aravindh-murugesan/stacksweep-go/internal/sweep"
	"github.com/schollz/progressbar/v3"
)

// newSweepObserver logs every transition at debug level and, when w is not nil,
// advances a progress bar each time a pipeline settles. The returned func
// finishes the bar.
func newSweepObserver(w io.Writer, total int, logger *slog.Logger) (sweep.Observer, func()) {
	var bar *progressbar.ProgressBar
	if w != nil {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Deleting stacks"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}

	observer := sweep.ObserverFunc(func(stack cloud.Stack, batch int, state sweep.State) {
		logger.Debug("Pipeline state changed", "stack_name", stack.Name, "batch", batch+1, "state", state)
		if bar != nil && state.Terminal() {
			_ = bar.Add(1)
		}
	})

	finish := func() {
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(w)
		}
	}
	return observer, finish
}
