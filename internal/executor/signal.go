package executor

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

// NotifyContext returns a context cancelled when one of signals arrives,
// with a *SignalCause recording which one. With no signals it listens for
// SIGINT and SIGTERM. Calling stop releases the signals and restores their
// default behavior.
func NotifyContext(parent context.Context, signals ...os.Signal) (ctx context.Context, stop context.CancelFunc) {
	if len(signals) == 0 {
		signals = defaultSignals
	}
	ctx, cancel := context.WithCancelCause(parent)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			cancel(&SignalCause{Signal: sig})
		case <-ctx.Done():
		case <-done:
		}
	}()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
			cancel(context.Canceled)
		})
	}
	return ctx, stop
}

// signalOf extracts the signal recorded by NotifyContext.
func signalOf(ctx context.Context) os.Signal {
	if sc, ok := context.Cause(ctx).(*SignalCause); ok {
		return sc.Signal
	}
	return nil
}
