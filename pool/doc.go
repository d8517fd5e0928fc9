// Package pool provides a fixed-size work-stealing thread pool for
// fire-and-forget and result-bearing computations.
//
// A Pool owns N worker goroutines, each backed by its own lock-free
// Chase-Lev deque (internal/deque) and lightweight semaphore
// (internal/semaphore). Submitters wrap a callable into a Thunk
// (internal/task), push it onto a round-robin-selected worker's deque, and
// wake every worker so that idle peers can steal it. An idle worker prefers
// its own deque; once it runs dry
// it steals from a uniformly random peer, chosen by a per-worker
// xoroshiro128** generator (internal/xoroshiro) seeded into disjoint
// subsequences.
//
// # Basic usage
//
//	p, err := pool.New(4)
//	if err != nil {
//	    // ...
//	}
//	defer p.Close()
//
//	future, err := pool.Enqueue(p, func() (int, error) {
//	    return 21 * 2, nil
//	})
//	v, err := future.Get()
//
// # Fire-and-forget
//
//	err := p.EnqueueDetached(func() {
//	    counter.Add(1)
//	})
//
// # Shutdown
//
// Close blocks until every task submitted before it was called has run to
// completion, then joins all worker goroutines. A Pool with no submissions
// closes immediately. Tasks cannot be cancelled once submitted; Close is the
// only form of cancellation the pool offers, and it never discards queued
// work -- it waits for it.
package pool
