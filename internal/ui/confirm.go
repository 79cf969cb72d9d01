// Package ui holds the interactive console pieces of a sweep.
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// ErrNoAnswer is returned when the input closes before a valid answer is read.
var ErrNoAnswer = errors.New("no answer received before end of input")

var (
	warnStyle  = color.New(color.FgYellow, color.Bold)
	errorStyle = color.New(color.FgRed)
)

// Confirmer asks yes/no questions on a line-based console.
type Confirmer struct {
	In  io.Reader
	Out io.Writer

	// MaxInvalid bounds how many unrecognised answers are tolerated before giving
	// up. Zero keeps asking until a valid answer or end of input.
	MaxInvalid int

	// One reader per Confirmer: a line read after a cancelled prompt is kept for
	// the next one instead of being dropped. The reader stays blocked on In until
	// the next line or end of input, which is harmless for a one-shot process.
	readOnce sync.Once
	lines    chan readResult
}

// NewConfirmer returns a Confirmer reading stdin and writing prompts to stderr.
func NewConfirmer() *Confirmer {
	return &Confirmer{In: os.Stdin, Out: os.Stderr}
}

type readResult struct {
	line string
	err  error
}

// Confirm shows warning once, then asks question until the operator answers
// y, yes, n or no (case-insensitive). It returns ctx.Err() if the context ends first.
func (c *Confirmer) Confirm(ctx context.Context, warning, question string) (bool, error) {
	if warning != "" {
		warnStyle.Fprintf(c.Out, "\n%s\n", warning)
	}

	lines := c.startReader()

	invalid := 0
	for {
		fmt.Fprintf(c.Out, "%s [y/n]: ", question)

		var res readResult
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.Out)
			return false, ctx.Err()
		case r, ok := <-lines:
			res = r
			if !ok {
				res.err = io.EOF
			}
		}

		if res.err != nil {
			fmt.Fprintln(c.Out)
			if errors.Is(res.err, io.EOF) {
				return false, ErrNoAnswer
			}
			return false, fmt.Errorf("failed to read input: %w", res.err)
		}

		switch strings.ToLower(strings.TrimSpace(res.line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}

		invalid++
		errorStyle.Fprintf(c.Out, "Please answer 'y' or 'n' (got %q).\n", strings.TrimSpace(res.line))
		if c.MaxInvalid > 0 && invalid >= c.MaxInvalid {
			return false, fmt.Errorf("no valid answer after %d attempts", invalid)
		}
	}
}

func (c *Confirmer) startReader() <-chan readResult {
	c.readOnce.Do(func() {
		c.lines = make(chan readResult)
		go func() {
			defer close(c.lines)
			scanner := bufio.NewScanner(c.In)
			for scanner.Scan() {
				c.lines <- readResult{line: scanner.Text()}
			}
			if err := scanner.Err(); err != nil {
				c.lines <- readResult{err: err}
			}
		}()
	})
	return c.lines
}
