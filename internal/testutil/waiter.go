// Package testutil provides synchronization helpers for integration tests
// that drive netloop's server across real loopback TCP connections.
package testutil

import "sync"

// Waiter lets a test block until N concurrent goroutines report Done, while
// letting any of them short-circuit the wait by reporting an error.
type Waiter struct {
	wg    sync.WaitGroup
	endC  chan struct{}
	errC  chan error
}

func NewWaiter(n int) *Waiter {
	w := &Waiter{
		endC: make(chan struct{}),
		errC: make(chan error, 1),
	}
	w.wg.Add(n)
	go func() {
		w.wg.Wait()
		close(w.endC)
	}()
	return w
}

// SendError records err if it is non-nil. Only the first error is kept.
func (w *Waiter) SendError(err error) {
	if err == nil {
		return
	}
	select {
	case w.errC <- err:
	default:
	}
}

func (w *Waiter) Done() {
	w.wg.Done()
}

// Wait blocks until every participant calls Done, or returns the first
// error reported by SendError, whichever happens first.
func (w *Waiter) Wait() error {
	select {
	case err := <-w.errC:
		return err
	default:
	}

	select {
	case err := <-w.errC:
		return err
	case <-w.endC:
		return nil
	}
}
