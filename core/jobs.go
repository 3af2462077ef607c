package core

import (
	"errors"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrJobSlotsBusy is returned when every background slot is occupied.
var ErrJobSlotsBusy = errors.New("too many background jobs")

// JobTracker records the session's background jobs and the aggregate
// CPU time consumed by its terminated foreground children.
//
// The slot table has a fixed capacity; a request while every slot is
// occupied is rejected rather than evicting the running job.
type JobTracker struct {
	mu      sync.Mutex
	slots   []bgJob
	userSec int64
	sysSec  int64
}

type bgJob struct {
	pid  int // 0 when the slot is free
	argv []string
}

// NewJobTracker creates a tracker with the given slot capacity.
func NewJobTracker(capacity int) *JobTracker {
	if capacity < 1 {
		capacity = 1
	}
	return &JobTracker{slots: make([]bgJob, capacity)}
}

// Full reports whether every background slot is occupied.
func (t *JobTracker) Full() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, slot := range t.slots {
		if slot.pid == 0 {
			return false
		}
	}
	return true
}

// Register stores a started background job in a free slot.
func (t *JobTracker) Register(pid int, argv []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, slot := range t.slots {
		if slot.pid == 0 {
			t.slots[i] = bgJob{pid: pid, argv: argv}
			return nil
		}
	}
	return ErrJobSlotsBusy
}

// Release frees the slot held by pid, reporting whether it was held.
func (t *JobTracker) Release(pid int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, slot := range t.slots {
		if slot.pid == pid {
			t.slots[i] = bgJob{}
			return true
		}
	}
	return false
}

// Running returns the pids currently holding a slot.
func (t *JobTracker) Running() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var pids []int
	for _, slot := range t.slots {
		if slot.pid != 0 {
			pids = append(pids, slot.pid)
		}
	}
	return pids
}

// AddUsage folds a terminated foreground child's CPU time into the
// aggregate. Background jobs are deliberately not accounted.
func (t *JobTracker) AddUsage(ru *syscall.Rusage) {
	if ru == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.userSec += int64(ru.Utime.Sec)
	t.sysSec += int64(ru.Stime.Sec)
}

// Totals returns the aggregate user and system CPU seconds consumed by
// terminated foreground children.
func (t *JobTracker) Totals() (user, sys int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.userSec, t.sysSec
}

// Terminate sends SIGTERM to every background job still holding a
// slot and returns the pids signaled.
func (t *JobTracker) Terminate() []int {
	pids := t.Running()
	for _, pid := range pids {
		_ = unix.Kill(pid, unix.SIGTERM)
	}
	return pids
}

// childRusage extracts the resource usage of a reaped child.
func childRusage(state *os.ProcessState) *syscall.Rusage {
	if state == nil {
		return nil
	}
	ru, _ := state.SysUsage().(*syscall.Rusage)
	return ru
}
