package quote

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebounceScheduler_BurstFiresOnceWithLastSnapshot(t *testing.T) {
	d := NewDebounceScheduler[int](0)
	fired := make(chan int, 10)
	onFire := func(v int) { fired <- v }

	require.False(t, d.Schedule(1, 30*time.Millisecond, onFire))
	require.True(t, d.Schedule(2, 30*time.Millisecond, onFire))
	require.True(t, d.Schedule(3, 30*time.Millisecond, onFire))
	require.True(t, d.Pending())

	select {
	case got := <-fired:
		require.Equal(t, 3, got)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for debounce trigger")
	}

	select {
	case got := <-fired:
		t.Fatalf("expected a single trigger for the burst, got extra %d", got)
	case <-time.After(80 * time.Millisecond):
		// ok
	}
	require.False(t, d.Pending())
}

func TestDebounceScheduler_CancelPreventsFire(t *testing.T) {
	d := NewDebounceScheduler[string](0)
	var calls atomic.Int32

	d.Schedule("a", 20*time.Millisecond, func(string) { calls.Add(1) })
	require.True(t, d.Cancel())
	require.False(t, d.Cancel(), "second cancel has nothing pending")

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(0), calls.Load())
}

func TestDebounceScheduler_CancelWithNothingPending(t *testing.T) {
	d := NewDebounceScheduler[int](0)
	require.False(t, d.Cancel())
	require.False(t, d.Pending())
}

func TestDebounceScheduler_StopRefusesSchedule(t *testing.T) {
	d := NewDebounceScheduler[int](0)
	var calls atomic.Int32

	d.Schedule(1, 20*time.Millisecond, func(int) { calls.Add(1) })
	d.Stop()
	require.False(t, d.Schedule(2, time.Millisecond, func(int) { calls.Add(1) }))

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(0), calls.Load())
	require.False(t, d.Pending())
}

func TestDebounceScheduler_MaxWaitBoundsBurst(t *testing.T) {
	d := NewDebounceScheduler[int](60 * time.Millisecond)
	fired := make(chan int, 10)
	onFire := func(v int) { fired <- v }

	start := time.Now()
	deadline := time.After(500 * time.Millisecond)
	for i := 0; ; i++ {
		d.Schedule(i, 40*time.Millisecond, onFire)
		select {
		case <-fired:
			require.Less(t, time.Since(start), 300*time.Millisecond)
			return
		case <-deadline:
			t.Fatal("continuous burst postponed the trigger past max wait")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDebounceScheduler_RearmsAfterFire(t *testing.T) {
	d := NewDebounceScheduler[int](0)
	fired := make(chan int, 2)
	onFire := func(v int) { fired <- v }

	d.Schedule(1, 10*time.Millisecond, onFire)
	select {
	case got := <-fired:
		require.Equal(t, 1, got)
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timed out waiting for first trigger")
	}

	require.False(t, d.Schedule(2, 10*time.Millisecond, onFire), "nothing pending after fire")
	select {
	case got := <-fired:
		require.Equal(t, 2, got)
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timed out waiting for second trigger")
	}
}
