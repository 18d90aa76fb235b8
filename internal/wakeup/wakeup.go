// Package wakeup implements the self-pipe/event-fd hand-off spec.md §9
// recommends for the two flags that must cross from signal context into
// the loop thread: "running" and "metrics dump requested". An eventfd is
// registered with the poller for READABLE, so a signal wakes a blocked
// epoll_wait immediately instead of waiting for the next unrelated event.
package wakeup

import (
	"encoding/binary"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Wakeup owns one eventfd plus the two atomic flags from spec §5's
// "shared-resource policy". Every field but fd may be touched from any
// goroutine; fd itself is only ever read or written, never mutated.
type Wakeup struct {
	fd            int
	running       atomic.Bool
	dumpRequested atomic.Bool
}

// New creates a non-blocking, close-on-exec eventfd and marks the server
// running.
func New() (*Wakeup, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	w := &Wakeup{fd: fd}
	w.running.Store(true)
	return w, nil
}

// Fd is the descriptor to register with the poller for READABLE.
func (w *Wakeup) Fd() int { return w.fd }

// RequestShutdown clears the running flag and wakes the loop. Safe to
// call from a signal-handling goroutine or the loop thread itself
// (idempotent).
func (w *Wakeup) RequestShutdown() {
	w.running.Store(false)
	w.signal()
}

// RequestMetricsDump sets the dump-requested flag and wakes the loop.
func (w *Wakeup) RequestMetricsDump() {
	w.dumpRequested.Store(true)
	w.signal()
}

func (w *Wakeup) signal() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	// Best effort: writing 1 adds to the eventfd counter. The write only
	// fails (EAGAIN) when the counter is already at its maximum, in which
	// case the descriptor is already readable and the loop will still
	// wake up, so there is nothing more to do.
	_, _ = unix.Write(w.fd, buf[:])
}

// Drain reads and discards the eventfd counter after the loop observes a
// READABLE event on Fd().
func (w *Wakeup) Drain() {
	var buf [8]byte
	for {
		_, err := unix.Read(w.fd, buf[:])
		if err != nil {
			return
		}
	}
}

// Running reports the current run state (spec §5: atomic, relaxed order
// suffices — there is no other synchronized state riding on this flag).
func (w *Wakeup) Running() bool {
	return w.running.Load()
}

// TakeMetricsDumpRequest atomically clears and reports the dump-request
// flag (spec §4.1 step 2: "atomically clear it").
func (w *Wakeup) TakeMetricsDumpRequest() bool {
	return w.dumpRequested.CompareAndSwap(true, false)
}

func (w *Wakeup) Close() error {
	return unix.Close(w.fd)
}
