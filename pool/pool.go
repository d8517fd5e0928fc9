package pool

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/corepoolio/thiefpool/internal/task"
)

// Pool is a fixed-size work-stealing thread pool. It is the package's sole
// public surface; everything else is an implementation detail of the
// worker/deque/semaphore wiring.
type Pool struct {
	workers []*workerState
	logger  *slog.Logger

	inFlight      atomic.Int64
	submitCounter atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a Pool with n worker goroutines, started immediately and
// blocked on their semaphores until work arrives. n must be >= 1.
func New(n int, opts ...Option) (*Pool, error) {
	if n < 1 {
		return nil, fmt.Errorf("pool: worker count must be >= 1, got %d", n)
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	p := &Pool{
		workers: make([]*workerState, n),
		logger:  cfg.logger,
	}
	for i := range p.workers {
		p.workers[i] = newWorkerState(i, cfg.dequeCapacity)
	}

	p.wg.Add(n)
	for i := range p.workers {
		p.logger.Debug("worker starting", "worker", i)
		go p.workerLoop(i)
	}

	return p, nil
}

// Enqueue wraps fn into a Thunk, submits it to the pool, and returns a
// Future the caller can use to retrieve its result. Enqueue is a
// package-level function, not a method, because Go methods cannot introduce
// a type parameter beyond their receiver's.
func Enqueue[R any](p *Pool, fn func() (R, error)) (*task.Future[R], error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	thunk, future := task.NewThunk(fn)
	p.submit(thunk)
	return future, nil
}

// EnqueueDetached submits fn for fire-and-forget execution; no Future is
// produced and a panic inside fn is logged rather than propagated.
func (p *Pool) EnqueueDetached(fn func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	thunk := task.NewDetachedThunk(fn, func(recovered any) {
		p.logger.Warn("detached task panicked", "recovered", recovered)
	})
	p.submit(thunk)
	return nil
}

// submit performs the round-robin worker selection, the quiescence
// accounting, and the push+wake handoff: inFlight is incremented before the
// semaphore release so a worker can never observe a release without the
// corresponding count already visible.
func (p *Pool) submit(t *task.Thunk) {
	i := p.submitCounter.Add(1) % uint64(len(p.workers))
	p.submitTo(int(i), t)
}

// submitTo pushes t onto worker i's deque and wakes every worker, not just
// i: a push only ever targets one deque, but any idle peer is a potential
// thief, and a peer blocked on its own semaphore never gets to look unless
// something releases it too. Without this, a worker that never receives a
// direct push can starve forever next to a deque piled high with stealable
// work.
func (p *Pool) submitTo(i int, t *task.Thunk) {
	p.inFlight.Add(1)
	p.workers[i].push(t)
	p.wakeIdlePeers(i)
}

// wakeIdlePeers releases one permit on every worker other than pushed, so
// each gets a chance to run its spin-then-steal loop and notice the new
// work even though it wasn't the one pushed to.
func (p *Pool) wakeIdlePeers(pushed int) {
	for i, w := range p.workers {
		if i == pushed {
			continue
		}
		w.sem.Release(1)
	}
}

// Close signals every worker to stop, wakes any that are blocked, and
// blocks until all submitted-but-unfinished tasks have run and every worker
// goroutine has exited. It is safe to call more than once; only the first
// call has effect. A Pool with zero submissions closes immediately.
//
// Callers must stop submitting before calling Close; a submission racing
// Close itself is not guaranteed to run.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)

		for _, w := range p.workers {
			w.stop.Store(true)
		}
		for _, w := range p.workers {
			w.sem.Release(1)
		}

		p.wg.Wait()

		for _, w := range p.workers {
			for _, abandoned := range w.dq.Close() {
				abandoned.Abandon()
			}
			p.logger.Debug("worker stopped", "worker", w.id)
		}
	})
}
