package osutil

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Returns a context derived from `parent` that will live until Ctrl+C is
// pressed (or SIGTERM is received)
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
