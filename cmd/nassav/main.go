// Command nassav is the CLI companion to nassavd. It talks to the daemon
// over the control socket to enqueue downloads, stop work, and inspect
// task state.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
