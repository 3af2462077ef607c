package core

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobTrackerSlots(t *testing.T) {
	tracker := NewJobTracker(1)

	assert.False(t, tracker.Full())
	assert.Empty(t, tracker.Running())

	require.NoError(t, tracker.Register(100, []string{"sleep", "5"}))
	assert.True(t, tracker.Full())
	assert.Equal(t, []int{100}, tracker.Running())

	assert.ErrorIs(t, tracker.Register(200, []string{"sleep", "5"}), ErrJobSlotsBusy)
	assert.Equal(t, []int{100}, tracker.Running(), "rejection must not evict the running job")

	assert.True(t, tracker.Release(100))
	assert.False(t, tracker.Release(100), "double release")
	assert.False(t, tracker.Full())
}

func TestJobTrackerCapacity(t *testing.T) {
	tracker := NewJobTracker(2)

	require.NoError(t, tracker.Register(100, nil))
	require.NoError(t, tracker.Register(200, nil))
	assert.ErrorIs(t, tracker.Register(300, nil), ErrJobSlotsBusy)
	assert.ElementsMatch(t, []int{100, 200}, tracker.Running())

	// A bogus capacity still leaves one usable slot.
	assert.False(t, NewJobTracker(0).Full())
}

func TestJobTrackerUsage(t *testing.T) {
	tracker := NewJobTracker(1)

	user, sys := tracker.Totals()
	assert.Zero(t, user)
	assert.Zero(t, sys)

	tracker.AddUsage(&syscall.Rusage{
		Utime: syscall.Timeval{Sec: 2},
		Stime: syscall.Timeval{Sec: 1},
	})
	tracker.AddUsage(&syscall.Rusage{
		Utime: syscall.Timeval{Sec: 3},
	})
	tracker.AddUsage(nil) // children without usage are skipped

	user, sys = tracker.Totals()
	assert.Equal(t, int64(5), user)
	assert.Equal(t, int64(1), sys)
}
