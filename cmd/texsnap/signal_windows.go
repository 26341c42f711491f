//go:build windows

package main

import (
	"context"
	"os"
	"os/signal"
)

// shutdownSignals end a render or let serve drain. Windows only delivers
// os.Interrupt for Ctrl+C and Ctrl+Break.
var shutdownSignals = []os.Signal{os.Interrupt}

// notifyContext returns a context canceled on the first shutdown signal.
// Call stop to restore default signal handling.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}
