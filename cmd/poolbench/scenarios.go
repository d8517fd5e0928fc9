package main

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/corepoolio/thiefpool/internal/task"
	"github.com/corepoolio/thiefpool/pool"
)

// scenarioResult is one row of the final report: a scenario run against a
// specific worker count.
type scenarioResult struct {
	Scenario   string
	Workers    int
	TaskCount  int
	Elapsed    time.Duration
	TasksPerS  float64
	FailureMsg string
}

// scenario is a named workload run against the pool at a given worker
// count; each mirrors a property already exercised by pool/pool_test.go,
// just run at a size big enough to show up in a throughput table rather
// than prove correctness.
type scenario struct {
	name string
	run  func(workers int) (taskCount int, elapsed time.Duration, err error)
}

func scenarios() []scenario {
	return []scenario{
		{name: "null-jobs", run: runNullJobs},
		{name: "detached-counter", run: runDetachedCounter},
		{name: "identity-echo", run: runIdentityEcho},
		{name: "waiting-jobs", run: runWaitingJobs},
		{name: "heterogeneous-sleeps", run: runHeterogeneousSleeps},
		{name: "heavy-cpu-primality", run: runHeavyCPU},
	}
}

func runNullJobs(workers int) (int, time.Duration, error) {
	const count = 200_000
	p, err := pool.New(workers)
	if err != nil {
		return 0, 0, err
	}
	defer p.Close()

	start := time.Now()
	futures := make([]*task.Future[struct{}], count)
	for i := range futures {
		f, err := pool.Enqueue(p, func() (struct{}, error) { return struct{}{}, nil })
		if err != nil {
			return 0, 0, err
		}
		futures[i] = f
	}
	for i, f := range futures {
		if _, err := f.Get(); err != nil {
			return 0, 0, fmt.Errorf("task %d: %w", i, err)
		}
	}
	return count, time.Since(start), nil
}

func runDetachedCounter(workers int) (int, time.Duration, error) {
	const count = 200_000
	p, err := pool.New(workers)
	if err != nil {
		return 0, 0, err
	}

	var counter atomic.Int64
	start := time.Now()
	for i := 0; i < count; i++ {
		if err := p.EnqueueDetached(func() { counter.Add(1) }); err != nil {
			return 0, 0, err
		}
	}
	p.Close()
	elapsed := time.Since(start)

	if got := counter.Load(); got != count {
		return 0, 0, fmt.Errorf("counter = %d, want %d", got, count)
	}
	return count, elapsed, nil
}

func runIdentityEcho(workers int) (int, time.Duration, error) {
	const count = 50_000
	p, err := pool.New(workers)
	if err != nil {
		return 0, 0, err
	}
	defer p.Close()

	start := time.Now()
	futures := make([]*task.Future[int], count)
	for i := range futures {
		i := i
		f, err := pool.Enqueue(p, func() (int, error) { return i, nil })
		if err != nil {
			return 0, 0, err
		}
		futures[i] = f
	}
	for i, f := range futures {
		v, err := f.Get()
		if err != nil {
			return 0, 0, err
		}
		if v != i {
			return 0, 0, fmt.Errorf("future %d returned %d", i, v)
		}
	}
	return count, time.Since(start), nil
}

// runWaitingJobs submits short-sleeping jobs throttled by an x/time/rate
// limiter, demonstrating that wall-clock time tracks parallel occupancy
// rather than job count.
func runWaitingJobs(workers int) (int, time.Duration, error) {
	const count = 500
	const perJob = 2 * time.Millisecond

	p, err := pool.New(workers)
	if err != nil {
		return 0, 0, err
	}
	defer p.Close()

	limiter := rate.NewLimiter(rate.Limit(2000), workers)
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(count)
	for i := 0; i < count; i++ {
		if err := limiter.Wait(noCancelCtx{}); err != nil {
			return 0, 0, err
		}
		if err := p.EnqueueDetached(func() {
			defer wg.Done()
			time.Sleep(perJob)
		}); err != nil {
			return 0, 0, err
		}
	}
	wg.Wait()
	return count, time.Since(start), nil
}

func runHeterogeneousSleeps(workers int) (int, time.Duration, error) {
	const count = 200
	p, err := pool.New(workers)
	if err != nil {
		return 0, 0, err
	}
	defer p.Close()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(count)
	for i := 0; i < count; i++ {
		i := i
		if err := p.EnqueueDetached(func() {
			defer wg.Done()
			time.Sleep(time.Duration(i%10) * time.Millisecond)
		}); err != nil {
			return 0, 0, err
		}
	}
	wg.Wait()
	return count, time.Since(start), nil
}

// runHeavyCPU drives a CPU-bound primality-check workload; the caller
// advances a progressbar.ProgressBar alongside each call.
func runHeavyCPU(workers int) (int, time.Duration, error) {
	const count = 4000
	const base = 900_001 // odd, large enough that trial division takes real work

	p, err := pool.New(workers)
	if err != nil {
		return 0, 0, err
	}
	defer p.Close()

	start := time.Now()
	futures := make([]*task.Future[bool], count)
	for i := range futures {
		n := base + 2*i
		f, err := pool.Enqueue(p, func() (bool, error) { return isPrime(n), nil })
		if err != nil {
			return 0, 0, err
		}
		futures[i] = f
	}
	for _, f := range futures {
		if _, err := f.Get(); err != nil {
			return 0, 0, err
		}
	}
	return count, time.Since(start), nil
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	limit := int(math.Sqrt(float64(n)))
	for d := 3; d <= limit; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// noCancelCtx is a minimal context.Context satisfying rate.Limiter.Wait
// without pulling in a cancellation story the benchmark CLI doesn't need.
type noCancelCtx struct{}

func (noCancelCtx) Deadline() (time.Time, bool) { return time.Time{}, false }
func (noCancelCtx) Done() <-chan struct{}       { return nil }
func (noCancelCtx) Err() error                  { return nil }
func (noCancelCtx) Value(key any) any           { return nil }
