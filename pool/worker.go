package pool

import (
	"sync"
	"sync/atomic"

	"github.com/corepoolio/thiefpool/internal/deque"
	"github.com/corepoolio/thiefpool/internal/semaphore"
	"github.com/corepoolio/thiefpool/internal/task"
	"github.com/corepoolio/thiefpool/internal/xoroshiro"
)

// spinBias is the number of consecutive empty-own-deque checks a worker
// tolerates before it starts stealing from a random peer instead of
// rechecking its own deque, avoiding pathological cross-worker stealing
// under tiny task granularity.
const spinBias = 64

// workerState is the per-worker slice of Pool: a deque, the semaphore that
// wakes its owner, the owner's steal-victim PRNG, and the push-side mutex
// that serializes the many submitting goroutines that may target this
// worker concurrently (see DESIGN.md for the owner-discipline rationale).
type workerState struct {
	id int

	sem    *semaphore.Semaphore
	dq     *deque.Deque[task.Thunk]
	rng    *xoroshiro.State
	pushMu sync.Mutex

	stop atomic.Bool

	// executed counts tasks this worker itself invoked, whether stolen from
	// its own deque or a peer's. Read by tests to confirm stolen work
	// actually reaches idle workers.
	executed atomic.Int64
}

func newWorkerState(id int, dequeCapacity int64) *workerState {
	rng := xoroshiro.New()
	rng.Jump(uint64(id)) // disjoint subsequence per worker, so steal-victim picks don't correlate
	return &workerState{
		id:  id,
		sem: semaphore.New(0),
		dq:  deque.New[task.Thunk](dequeCapacity),
		rng: rng,
	}
}

// push adds t to this worker's deque and wakes it. Safe to call from any
// number of goroutines concurrently: pushMu serializes the otherwise
// single-writer-only Deque.Push.
func (w *workerState) push(t *task.Thunk) {
	w.pushMu.Lock()
	w.dq.Push(t)
	w.pushMu.Unlock()
	w.sem.Release(1)
}

// workerLoop is the main loop of worker id: block for a burst of signals,
// then prefer the home deque while it looks non-empty or the spin bias
// hasn't expired, otherwise steal from a uniformly random peer; decrement
// inFlight before invoking, and keep draining until both the stop flag is
// set and inFlight is zero.
func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()

	w := p.workers[id]
	spinCounter := 0

	for {
		if w.stop.Load() && p.inFlight.Load() == 0 {
			return
		}

		w.sem.AcquireMany()

		for {
			victim := id
			if spinCounter >= spinBias && w.dq.Empty() {
				victim = w.rng.Intn(len(p.workers))
			}

			if stolen := p.workers[victim].dq.Steal(); stolen != nil {
				spinCounter = 0
				p.inFlight.Add(-1)
				stolen.Invoke()
				w.executed.Add(1)
			} else {
				spinCounter++
			}

			if p.inFlight.Load() == 0 {
				break
			}
		}
	}
}
