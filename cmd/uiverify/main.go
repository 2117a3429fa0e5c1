// Command uiverify drives a headless browser through scripted verification
// suites against a running dashboard and captures screenshots for review.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		var ee *exitError
		if !errors.As(err, &ee) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// exitError reports a failure that has already been shown to the user.
type exitError struct {
	msg string
}

func (e *exitError) Error() string { return e.msg }
