package dispatch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistryTryMarkSingleWinner(t *testing.T) {
	r := NewRegistry()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.TryMark(7) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, StateQueued, r.State(7))
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	h := Handle{ChatID: 7, MessageID: 99}

	require.False(t, r.Attach(7, h), "attach needs an in-flight entry")
	require.False(t, r.Begin(7))

	require.True(t, r.TryMark(7))
	require.True(t, r.Attach(7, h))
	require.True(t, r.Begin(7))
	require.Equal(t, StateProcessing, r.State(7))
	require.False(t, r.TryMark(7))

	got, ok := r.Clear(7)
	require.True(t, ok)
	require.Equal(t, h, got)
	requireIdle(t, r, 7)

	_, ok = r.Clear(7)
	require.False(t, ok, "second clear is a no-op")
}

func TestRegistryDeferRefusedWhileInFlight(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.TryMark(7))
	require.False(t, r.Defer(7, PendingRequest{Origin: origin(7), Locator: testLocator}))
	require.Equal(t, StateQueued, r.State(7))

	_, ok := r.Pending(7)
	require.False(t, ok)
}

func TestRegistryDeferOverwrites(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Defer(7, PendingRequest{Origin: origin(7), Locator: "first"}))
	require.True(t, r.Defer(7, PendingRequest{Origin: origin(7), Locator: "second"}))
	require.Equal(t, StatePending, r.State(7))

	p, ok := r.TakePending(7)
	require.True(t, ok)
	require.Equal(t, "second", p.Locator)
	requireIdle(t, r, 7)

	_, ok = r.TakePending(7)
	require.False(t, ok)
}

func TestRegistryTryMarkSupersedesPending(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Defer(7, PendingRequest{Origin: origin(7), Locator: testLocator}))
	require.True(t, r.TryMark(7))
	require.Equal(t, StateQueued, r.State(7))

	_, ok := r.TakePending(7)
	require.False(t, ok, "in-flight wins over the pending request")

	// Clear does not touch pending users.
	r2 := NewRegistry()
	r2.Defer(8, PendingRequest{Origin: origin(8)})
	_, ok = r2.Clear(8)
	require.False(t, ok)
	require.Equal(t, StatePending, r2.State(8))
}

func TestRegistryPostpone(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Postpone(7, PendingRequest{})
	require.False(t, ok)

	require.True(t, r.TryMark(7))
	req := PendingRequest{Origin: origin(7), Locator: testLocator, CreatedAt: time.Now()}
	_, ok = r.Postpone(7, req)
	require.True(t, ok)
	require.Equal(t, StatePending, r.State(7))

	got, ok := r.Pending(7)
	require.True(t, ok)
	require.Equal(t, req, got)
}

func TestRegistryCounts(t *testing.T) {
	r := NewRegistry()
	r.TryMark(1)
	r.TryMark(2)
	r.Begin(2)
	r.Defer(3, PendingRequest{})
	r.Defer(4, PendingRequest{})

	counts := r.Counts()
	require.Equal(t, 1, counts[StateQueued])
	require.Equal(t, 1, counts[StateProcessing])
	require.Equal(t, 2, counts[StatePending])
}

func TestRegistryConcurrentMarkAndClear(t *testing.T) {
	r := NewRegistry()
	var inFlight, violations atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if !r.TryMark(1) {
					continue
				}
				if inFlight.Add(1) != 1 {
					violations.Add(1)
				}
				inFlight.Add(-1)
				_, ok := r.Clear(1)
				if !ok {
					violations.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	require.Zero(t, violations.Load())
	requireIdle(t, r, 1)
}
