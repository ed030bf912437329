// Command animexport rebuilds the timeline animation shown in a browser
// vector editor as a standalone animated SVG.
//
// Usage:
//
//	animexport capture --url https://editor.example/anim -o anim.svg
//	animexport capture --attach --url-pattern 'editor\.example' --remote http://127.0.0.1:9222
//	animexport -c animexport.yaml --journal runs.db capture
//	animexport --journal runs.db runs
//	animexport --journal runs.db replay <run-id> -o -
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
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
