// Command gatectl drives a goGate engine against a file-backed session store.
//
// It is the control plane's operator tool: store or drop a session, ask the
// gate what a navigation would do, classify paths, and enter or leave an
// impersonation. State lives in a bbolt file so successive invocations see
// the same session.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
