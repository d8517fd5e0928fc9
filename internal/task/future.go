package task

import (
	"context"
	"errors"
	"sync"
)

// ErrAbandoned is the error a Future's Get/GetWithContext returns when its
// Thunk was destroyed without being invoked (pool torn down with the task
// still queued).
var ErrAbandoned = errors.New("task: abandoned without running")

// State is the terminal state a Future settles into. Every Future returned
// by Enqueue resolves to exactly one of these.
type State int

const (
	Pending State = iota
	Completed
	Failed
	Abandoned
)

// Future is the result channel a submitter polls or blocks on: Get,
// GetWithContext, and TryGet cover the blocking, cancellable, and
// non-blocking cases, and every Future settles into exactly one of three
// disjoint terminal states -- completed, failed, or abandoned.
type Future[R any] struct {
	done chan struct{}

	mu    sync.Mutex
	value R
	err   error
	state State
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

func (f *Future[R]) complete(v R, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Pending {
		return
	}
	f.value = v
	f.err = err
	if err != nil {
		f.state = Failed
	} else {
		f.state = Completed
	}
	close(f.done)
}

func (f *Future[R]) abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Pending {
		return
	}
	f.state = Abandoned
	f.err = ErrAbandoned
	close(f.done)
}

// Get blocks until the task completes, fails, or is abandoned.
func (f *Future[R]) Get() (R, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// GetWithContext blocks until the task settles or ctx is done, whichever
// comes first.
func (f *Future[R]) GetWithContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// TryGet returns immediately: (value, err, true) if the task has settled,
// or (zero, nil, false) if it is still pending.
func (f *Future[R]) TryGet() (R, error, bool) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err, true
	default:
		var zero R
		return zero, nil, false
	}
}

// State reports the current terminal state, or Pending if the task has not
// yet settled.
func (f *Future[R]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}
