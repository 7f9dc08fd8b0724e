package doctor

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// guardTerminal restores the terminal mode captured now and exits when ctx
// is canceled. Calling release stops the watch.
func guardTerminal(ctx context.Context, out io.Writer) (release func()) {
	fd := int(os.Stdin.Fd())
	var state *term.State
	if term.IsTerminal(fd) {
		state, _ = term.GetState(fd)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if state != nil {
				term.Restore(fd, state)
			}
			fmt.Fprintln(out, "\nInterrupted")
			os.Exit(1)
		case <-done:
		}
	}()
	return func() { close(done) }
}
