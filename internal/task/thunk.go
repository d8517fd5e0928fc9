// Package task implements a move-only, one-shot nullary callable (Thunk)
// paired with a Future the submitter can poll or block on.
package task

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// Thunk is a heap-allocated, type-erased, one-shot nullary callable. Go has
// no move semantics, so "move-only" is enforced at runtime: Invoke panics
// if the Thunk was already invoked or abandoned, the idiomatic Go
// substitute for the C++ single-invocation contract. Abandon on an
// already-consumed Thunk does nothing.
type Thunk struct {
	invoked atomic.Bool
	run     func()
	abandon func()
}

// NewThunk wraps fn into a Thunk and returns the Future its result (or
// failure, or abandonment) will be delivered through. fn's arguments must
// already be bound by value into the closure; callers that want to share
// mutable state across a call boundary need to opt into that explicitly
// (a pointer, a channel), since a closure captures by reference otherwise.
func NewThunk[R any](fn func() (R, error)) (*Thunk, *Future[R]) {
	future := newFuture[R]()
	t := &Thunk{
		run: func() {
			defer func() {
				if r := recover(); r != nil {
					var zero R
					future.complete(zero, panicError(r))
				}
			}()
			v, err := fn()
			future.complete(v, err)
		},
		abandon: func() { future.abandon() },
	}
	return t, future
}

// NewDetachedThunk wraps a void callable with no associated Future. If fn
// panics, onPanic is invoked with the recovered value instead of
// propagating into the worker loop; pass nil to swallow it silently.
func NewDetachedThunk(fn func(), onPanic func(any)) *Thunk {
	return &Thunk{
		run: func() {
			defer func() {
				if r := recover(); r != nil && onPanic != nil {
					onPanic(r)
				}
			}()
			fn()
		},
		abandon: func() {},
	}
}

// Invoke consumes the Thunk, running its callable exactly once. Calling
// Invoke on a Thunk that was already invoked or abandoned panics.
func (t *Thunk) Invoke() {
	if !t.invoked.CompareAndSwap(false, true) {
		panic("task: Thunk invoked more than once")
	}
	t.run()
}

// Abandon consumes the Thunk without running it, resolving its associated
// Future (if any) to the Abandoned terminal state. Used when a pool is torn
// down with work still queued.
func (t *Thunk) Abandon() {
	if !t.invoked.CompareAndSwap(false, true) {
		return
	}
	t.abandon()
}

func panicError(r any) error {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return fmt.Errorf("task panicked: %v\n%s", r, buf[:n])
}
