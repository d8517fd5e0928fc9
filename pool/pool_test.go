package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corepoolio/thiefpool/internal/task"
)

func TestNewRejectsZeroWorkers(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for n=0")
	}
}

func TestCloseWithNoSubmissionsReturnsPromptly(t *testing.T) {
	p, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close on an empty pool did not return promptly")
	}
}

func TestIdentityEcho(t *testing.T) {
	for _, n := range []int{1, 2, 4, 12} {
		n := n
		t.Run(workerLabel(n), func(t *testing.T) {
			p, err := New(n)
			if err != nil {
				t.Fatal(err)
			}
			defer p.Close()

			const count = 2000
			futures := make([]*task.Future[int], count)
			for i := 0; i < count; i++ {
				i := i
				f, err := Enqueue(p, func() (int, error) {
					return i, nil
				})
				if err != nil {
					t.Fatal(err)
				}
				futures[i] = f
			}

			for i, f := range futures {
				v, err := f.Get()
				if err != nil {
					t.Fatalf("future %d: unexpected error %v", i, err)
				}
				if v != i {
					t.Fatalf("future %d yielded %d, want %d", i, v, i)
				}
			}
		})
	}
}

func TestDetachedCounter(t *testing.T) {
	for _, n := range []int{1, 2, 4, 12} {
		n := n
		t.Run(workerLabel(n), func(t *testing.T) {
			p, err := New(n)
			if err != nil {
				t.Fatal(err)
			}

			const count = 20_000
			var counter atomic.Int64
			for i := 0; i < count; i++ {
				if err := p.EnqueueDetached(func() { counter.Add(1) }); err != nil {
					t.Fatal(err)
				}
			}
			p.Close()

			if got := counter.Load(); got != count {
				t.Fatalf("counter = %d, want %d", got, count)
			}
		})
	}
}

func TestNullJobs(t *testing.T) {
	for _, n := range []int{1, 2, 4} {
		n := n
		t.Run(workerLabel(n), func(t *testing.T) {
			p, err := New(n)
			if err != nil {
				t.Fatal(err)
			}
			defer p.Close()

			const count = 5000
			futures := make([]*task.Future[struct{}], count)
			for i := 0; i < count; i++ {
				f, err := Enqueue(p, func() (struct{}, error) {
					return struct{}{}, nil
				})
				if err != nil {
					t.Fatal(err)
				}
				futures[i] = f
			}
			for i, f := range futures {
				if _, err := f.Get(); err != nil {
					t.Fatalf("future %d: %v", i, err)
				}
			}
		})
	}
}

func TestHeterogeneousSleepsCompleteAfterLongest(t *testing.T) {
	p, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	const n = 20
	var wg sync.WaitGroup
	start := time.Now()
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		if err := p.EnqueueDetached(func() {
			defer wg.Done()
			time.Sleep(time.Duration(i) * 5 * time.Millisecond)
		}); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()

	longest := time.Duration(n-1) * 5 * time.Millisecond
	if elapsed := time.Since(start); elapsed < longest {
		t.Fatalf("completed in %v, expected at least %v (the longest single sleep)", elapsed, longest)
	}
}

func TestHeavyCPUPrimalityCheck(t *testing.T) {
	p, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	candidates := []int{999983, 1299709, 1299721, 104729, 100003, 7919}
	futures := make([]*task.Future[bool], len(candidates))
	for i, c := range candidates {
		c := c
		f, err := Enqueue(p, func() (bool, error) {
			return isPrime(c), nil
		})
		if err != nil {
			t.Fatal(err)
		}
		futures[i] = f
	}

	want := []bool{true, true, true, true, true, true}
	for i, f := range futures {
		got, err := f.Get()
		if err != nil {
			t.Fatalf("candidate %d: %v", i, err)
		}
		if got != want[i] {
			t.Fatalf("isPrime(%d) = %v, want %v", candidates[i], got, want[i])
		}
	}
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for i := 2; i*i <= n; i++ {
		if n%i == 0 {
			return false
		}
	}
	return true
}

// TestNonStarvationUnderSustainedBursts submits far more tasks than fit in a
// worker's initial deque capacity and checks every task still completes
// exactly once, exercising the spec's quiescence and steal-to-drain path
// under load skewed toward a single submitting goroutine.
func TestNonStarvationUnderSustainedBursts(t *testing.T) {
	const n = 4
	p, err := New(n)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	const count = 8000
	var executed atomic.Int64
	var wg sync.WaitGroup
	wg.Add(count)

	for i := 0; i < count; i++ {
		if err := p.EnqueueDetached(func() {
			defer wg.Done()
			executed.Add(1)
		}); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()

	if got := executed.Load(); got != count {
		t.Fatalf("executed = %d, want %d", got, count)
	}
}

// TestStolenWorkReachesEveryWorker pushes a sustained stream of tasks
// directly onto worker 0's deque, never touching submit's round robin, and
// checks that every other worker's executed counter eventually moves off
// zero. A pool where only the pushed-to worker ever wakes would leave this
// work piled on worker 0 forever while its siblings sit idle.
func TestStolenWorkReachesEveryWorker(t *testing.T) {
	const n = 4
	p, err := New(n)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	const count = 20_000
	var wg sync.WaitGroup
	wg.Add(count)
	for i := 0; i < count; i++ {
		thunk := task.NewDetachedThunk(func() { wg.Done() }, nil)
		p.submitTo(0, thunk)
	}
	wg.Wait()

	for i, w := range p.workers {
		if i == 0 {
			continue
		}
		if got := w.executed.Load(); got == 0 {
			t.Fatalf("worker %d never executed a task; stolen work never reached it", i)
		}
	}
}

// TestWaitingJobsRunInParallel submits a batch of jobs that each sleep the
// same fixed duration and checks the batch finishes in well under the
// fully-serial sum, proving the jobs actually overlap rather than just
// eventually completing one after another.
func TestWaitingJobsRunInParallel(t *testing.T) {
	const n = 8
	p, err := New(n)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	const count = 100
	const perJob = 20 * time.Millisecond
	serial := count * perJob

	var wg sync.WaitGroup
	wg.Add(count)
	start := time.Now()
	for i := 0; i < count; i++ {
		if err := p.EnqueueDetached(func() {
			defer wg.Done()
			time.Sleep(perJob)
		}); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
	elapsed := time.Since(start)

	if elapsed >= serial/2 {
		t.Fatalf("completed in %v, want well under half the serial sum %v (n=%d workers)", elapsed, serial, n)
	}
}

func TestConstructDestructStress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress loop in -short mode")
	}
	for i := 0; i < 500; i++ {
		p, err := New(2)
		if err != nil {
			t.Fatal(err)
		}
		p.Close()
	}
}

func TestEnqueueAfterCloseReturnsErrPoolClosed(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	p.Close()

	if _, err := Enqueue(p, func() (int, error) { return 1, nil }); err != ErrPoolClosed {
		t.Fatalf("Enqueue after Close: err = %v, want ErrPoolClosed", err)
	}
	if err := p.EnqueueDetached(func() {}); err != ErrPoolClosed {
		t.Fatalf("EnqueueDetached after Close: err = %v, want ErrPoolClosed", err)
	}
}

func TestDequeGrowsPastInitialCapacityUnderBurst(t *testing.T) {
	p, err := New(1, WithDequeCapacity(2))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	const count = 10_000
	futures := make([]*task.Future[int], count)
	for i := 0; i < count; i++ {
		i := i
		f, err := Enqueue(p, func() (int, error) { return i, nil })
		if err != nil {
			t.Fatal(err)
		}
		futures[i] = f
	}
	for i, f := range futures {
		v, err := f.Get()
		if err != nil || v != i {
			t.Fatalf("future %d = (%d, %v), want (%d, nil)", i, v, err, i)
		}
	}
}

func workerLabel(n int) string {
	switch n {
	case 1:
		return "workers=1"
	case 2:
		return "workers=2"
	case 3:
		return "workers=3"
	case 4:
		return "workers=4"
	case 12:
		return "workers=12"
	default:
		return "workers=?"
	}
}
