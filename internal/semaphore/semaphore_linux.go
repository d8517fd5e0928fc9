//go:build linux

package semaphore

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex operation codes. golang.org/x/sys/unix exposes the futex
// syscall number (unix.SYS_FUTEX) but not these op-code constants, so they
// are defined here with their fixed values from <linux/futex.h>.
const (
	futexWait        = 0
	futexWake        = 1
	futexPrivateFlag = 128
)

// futexSem is a Linux futex used as the blocking word behind Semaphore. The
// futex word counts signals not yet consumed by a waiter: signal(n) adds n
// before waking, and wait() takes one unit when any is present, blocking
// only while the word is still zero. A signal that lands before the waiter
// reaches the syscall therefore stays in the word instead of being dropped
// -- the kernel re-checks the word atomically with entering the wait queue.
type futexSem struct {
	word atomic.Int32
}

func newKernelSem() kernelSem {
	return &futexSem{}
}

func (f *futexSem) wait() {
	for {
		if v := f.word.Load(); v > 0 {
			if f.word.CompareAndSwap(v, v-1) {
				return
			}
			continue
		}
		_, _, errno := unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(&f.word)),
			uintptr(futexWait|futexPrivateFlag),
			0,
			0, 0, 0,
		)
		switch errno {
		case 0, unix.EAGAIN, unix.EINTR:
			// Woken, word already non-zero, or interrupted: re-check the word.
			continue
		default:
			return
		}
	}
}

func (f *futexSem) signal(n int) {
	f.word.Add(int32(n))
	unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(&f.word)),
		uintptr(futexWake|futexPrivateFlag),
		uintptr(n),
		0, 0, 0,
	)
}
