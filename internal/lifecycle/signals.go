// Package lifecycle wires OS signals onto the wakeup flags the event loop
// polls (spec.md §6.4, §9). Go cannot register a true async-signal-safe
// handler; os/signal already does the safe hand-off into a goroutine, so
// that goroutine's only job is to forward onto the eventfd — it never
// touches the connection map, the registrar, or the metrics counters
// (spec §5's "no other data may be touched from signal context").
package lifecycle

import (
	"os"
	"os/signal"
	"syscall"

	"netloop/internal/wakeup"
)

// WatchSignals starts forwarding SIGINT/SIGTERM (graceful shutdown) and
// SIGUSR1 (metrics dump request) onto w. The returned stop function
// unregisters the handlers; call it once the loop has exited.
func WatchSignals(w *wakeup.Wakeup) (stop func()) {
	sigc := make(chan os.Signal, 4)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigc:
				switch sig {
				case syscall.SIGINT, syscall.SIGTERM:
					w.RequestShutdown()
				case syscall.SIGUSR1:
					w.RequestMetricsDump()
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigc)
		close(done)
	}
}
