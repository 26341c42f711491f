package main

// Notes:
// - notifyContext: OS signal delivery is not exercised; it is asynchronous and
//   would stop the test binary on some platforms. We test cancellation through
//   stop and the parent.

import (
	"context"
	"os"
	"slices"
	"testing"
)

// ---------------------------------------------------------------------------
// TestNotifyContext - Cancellation sources
// ---------------------------------------------------------------------------

func TestNotifyContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cancel     func(stop, cancelParent context.CancelFunc)
		wantClosed bool
	}{
		{"open until signaled", func(context.CancelFunc, context.CancelFunc) {}, false},
		{"stop cancels", func(stop, _ context.CancelFunc) { stop() }, true},
		{"parent cancels", func(_, cancelParent context.CancelFunc) { cancelParent() }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			parent, cancelParent := context.WithCancel(context.Background())
			defer cancelParent()
			ctx, stop := notifyContext(parent)
			defer stop()

			tt.cancel(stop, cancelParent)

			select {
			case <-ctx.Done():
				if !tt.wantClosed {
					t.Fatal("context canceled without a signal")
				}
			default:
				if tt.wantClosed {
					t.Fatal("context still open")
				}
			}
		})
	}
}

func TestShutdownSignals_IncludeInterrupt(t *testing.T) {
	t.Parallel()

	if !slices.Contains(shutdownSignals, os.Interrupt) {
		t.Error("os.Interrupt must stop texsnap")
	}
}
