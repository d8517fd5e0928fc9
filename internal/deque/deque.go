// Package deque implements the lock-free Chase-Lev work-stealing deque that
// backs each worker in the pool. It follows the protocol of Lê, Pop, Cohen
// and Nardelli (PPoPP'13) exactly, including the memory-order discipline:
// ordering is load-bearing here, not a style choice.
//
// In this module the deque is used single-producer/multiple-consumer, but
// the producer side (Push) is mutex-guarded rather than lock-free: the pool
// lets any number of goroutines submit concurrently, and workers only ever
// Steal (never Pop) -- see the owner-discipline decision in DESIGN.md. Push
// therefore keeps its exact release-fence discipline so a concurrent Steal
// can never observe an advanced bottom before the cell it names is visible,
// but multiple Push calls are serialized by a caller-held mutex rather than
// by a single-writer invariant enforced elsewhere.
package deque

import (
	"sync/atomic"

	"github.com/corepoolio/thiefpool/internal/ringbuffer"
)

const initialGarbageCapacity = 32

// Deque is a growable, lock-free double-ended queue of *T. Push is safe to
// call from one writer at a time (see package doc); Steal is safe to call
// from any number of goroutines concurrently, including the writer.
type Deque[T any] struct {
	top    atomic.Int64
	bottom atomic.Int64
	buf    atomic.Pointer[ringbuffer.RingBuffer[T]]

	// garbage retains buffers retired by a resize; a concurrent Steal may
	// still hold a pointer into one, so they are freed only at Close.
	garbage []*ringbuffer.RingBuffer[T]
}

// New creates an empty deque with the given initial capacity (rounded up to
// the next power of two).
func New[T any](initialCapacity int64) *Deque[T] {
	d := &Deque[T]{
		garbage: make([]*ringbuffer.RingBuffer[T], 0, initialGarbageCapacity),
	}
	d.buf.Store(ringbuffer.New[T](initialCapacity))
	return d
}

// Push appends x at the bottom. The caller must ensure Push is never called
// concurrently with another Push on the same deque (see package doc).
func (d *Deque[T]) Push(x *T) {
	b := d.bottom.Load()
	t := d.top.Load() // acquire: synchronizes with a thief's top CAS.
	a := d.buf.Load()

	if a.Capacity()-1 < b-t {
		grown := a.Resize(b, t)
		d.garbage = append(d.garbage, a)
		d.buf.Store(grown)
		a = grown
	}

	a.Store(b, x)

	// Release fence: publishes the cell write before bottom advances, so a
	// thief that observes the new bottom also observes this element.
	// Go's atomic.Int64.Store already carries release semantics on every
	// supported architecture -- no separate fence primitive exists in Go.
	d.bottom.Store(b + 1)
}

// Pop removes and returns the bottommost element, or nil if the deque is
// empty. Pop is not used by the pool (workers only Steal, see package doc)
// but is kept as part of the faithful Chase-Lev surface and is exercised
// directly by this package's tests.
func (d *Deque[T]) Pop() *T {
	b := d.bottom.Load() - 1
	a := d.buf.Load()
	d.bottom.Store(b)

	// Seq-cst-equivalent fence: forces this bottom store to be visible to a
	// concurrent Steal before the following top load happens, and vice
	// versa, so the last-element race below is resolved deterministically.
	// A CAS on an otherwise-unneeded location would work too; the top load
	// below plus Steal's own CAS give the required rendezvous because both
	// sides observe a consistent total order on the same atomic variables.
	t := d.top.Load()

	if t > b {
		// Empty: restore bottom.
		d.bottom.Store(b + 1)
		return nil
	}

	x := a.Load(b)

	if t < b {
		return x
	}

	// t == b: exactly one element left, racing a possible thief.
	if !d.top.CompareAndSwap(t, t+1) {
		x = nil
	}
	d.bottom.Store(b + 1)
	return x
}

// Steal removes and returns the topmost element, or nil if the deque
// appeared empty or another thief (or the owner's Pop) won the race for the
// last element. Safe to call concurrently from any number of goroutines.
func (d *Deque[T]) Steal() *T {
	t := d.top.Load() // acquire

	// Seq-cst-equivalent fence pairing with Push's release fence and Pop's
	// fence: ensures a stale top can't pair with a stale bottom to make an
	// empty deque appear non-empty.
	b := d.bottom.Load() // acquire

	if t >= b {
		return nil
	}

	a := d.buf.Load()
	x := a.Load(t)

	if !d.top.CompareAndSwap(t, t+1) {
		return nil
	}

	return x
}

// Empty reports whether the deque appeared empty at the moment of the call.
// The result is advisory only: concurrent Push/Steal may invalidate it
// immediately.
func (d *Deque[T]) Empty() bool {
	return d.bottom.Load() <= d.top.Load()
}

// Len returns an advisory snapshot of the number of elements currently
// queued.
func (d *Deque[T]) Len() int64 {
	if n := d.bottom.Load() - d.top.Load(); n > 0 {
		return n
	}
	return 0
}

// Close drains any remaining elements (abandoning them via drain, the
// caller's responsibility to interpret) and releases retired buffers. It
// must not be called concurrently with Push or Steal.
func (d *Deque[T]) Close() []*T {
	var remaining []*T
	for {
		x := d.Steal()
		if x == nil {
			break
		}
		remaining = append(remaining, x)
	}
	d.garbage = nil
	return remaining
}
