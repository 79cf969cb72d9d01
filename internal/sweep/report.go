package sweep

import (
	"fmt"
	"io"
	"strconv"

	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
	"github.com/olekukonko/tablewriter"
)

// Render writes the per-stack outcome table followed by a one-line summary.
func (r Report) Render(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header("Stack", "Batch", "State", "Request ID", "Error")

	for _, o := range r.Outcomes {
		errText := ""
		if o.Err != nil {
			errText = fmt.Sprintf("[%s] %v", o.FailedIn, o.Err)
		}
		if err := table.Append(o.Stack.Name, strconv.Itoa(o.Batch+1), string(o.State), o.Response.RequestID, errText); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Deleted: %d  Failed: %d  Timed out: %d  Total: %d\n",
		r.Succeeded(), r.Failed(), r.TimedOut(), len(r.Outcomes))
	return err
}

// RenderTargets writes the stacks selected for deletion, numbered in batch order.
func RenderTargets(w io.Writer, targets []cloud.Stack, batchSize int) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Stack", "ID", "Status", "Batch")

	i := 0
	for b, batch := range Partition(targets, batchSize) {
		for _, s := range batch {
			i++
			if err := table.Append(strconv.Itoa(i), s.Name, s.ID, s.Status, strconv.Itoa(b+1)); err != nil {
				return err
			}
		}
	}
	return table.Render()
}
