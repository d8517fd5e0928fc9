// Package semaphore implements the lightweight counting semaphore each
// worker blocks on between bursts of work: an atomic fast path over a
// blocking OS primitive, so the common case of an already-available count
// never touches the kernel.
package semaphore

import "sync/atomic"

const spinLimit = 10_000

// kernelSem is the blocking OS-level primitive the fast path falls back to.
// Linux gets a real futex (semaphore_linux.go); every other OS gets a
// sync.Cond-backed equivalent (semaphore_other.go) behind the same
// wait/signal(n) contract.
type kernelSem interface {
	wait()
	signal(n int)
}

// Semaphore is a counting semaphore whose count may go negative to
// represent pending blocked waiters.
type Semaphore struct {
	count  atomic.Int64
	kernel kernelSem
}

// New creates a semaphore with the given non-negative initial count.
func New(initial int64) *Semaphore {
	s := &Semaphore{kernel: newKernelSem()}
	s.count.Store(initial)
	return s
}

// Release adds n to the count and wakes up to n blocked waiters, or as
// many as are blocked if that is fewer. A non-positive n does nothing.
func (s *Semaphore) Release(n int64) {
	if n <= 0 {
		return
	}
	newVal := s.count.Add(n)
	old := newVal - n
	toWake := -old
	if toWake > n {
		toWake = n
	}
	if toWake > 0 {
		s.kernel.signal(int(toWake))
	}
}

// Acquire consumes a single count, spinning briefly before blocking.
func (s *Semaphore) Acquire() {
	if s.trySpinAcquireOne() {
		return
	}
	old := s.count.Add(-1) + 1
	if old <= 0 {
		s.kernel.wait()
	}
}

// trySpinAcquireOne spins up to spinLimit iterations attempting to claim a
// single count, without ever touching the kernel primitive.
func (s *Semaphore) trySpinAcquireOne() bool {
	for i := 0; i < spinLimit; i++ {
		old := s.count.Load()
		if old > 0 && s.count.CompareAndSwap(old, old-1) {
			return true
		}
	}
	return false
}

// AcquireMany consumes every count present at some point during the call,
// blocking if necessary, and always consumes at least one. Used by workers
// to drain a burst of Release calls with a single wakeup.
//
// The blocking path first stakes a claim with a single fetch_sub(1): the
// resulting negative excursion is what tells a concurrent Release how many
// blocked waiters it must wake. Once woken, a final drain loop
// opportunistically claims whatever has accumulated since, so a waiter that
// blocked on one permit still walks away with every permit released in the
// meantime instead of looping back through the kernel one at a time.
func (s *Semaphore) AcquireMany() {
	for i := 0; i < spinLimit; i++ {
		old := s.count.Load()
		if old > 0 && s.count.CompareAndSwap(old, 0) {
			return
		}
	}

	old := s.count.Add(-1) + 1
	if old <= 0 {
		s.kernel.wait()
	}

	for {
		cur := s.count.Load()
		if cur <= 0 {
			return
		}
		if s.count.CompareAndSwap(cur, 0) {
			return
		}
	}
}
