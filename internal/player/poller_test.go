package player

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerImmediateFirstTick(t *testing.T) {
	published := make(chan State, 1)
	p := NewPoller(time.Hour,
		func(ctx context.Context) State { return State{Available: true} },
		func(s State) { published <- s },
		testLogger())

	p.Start()
	defer p.Stop()

	select {
	case state := <-published:
		if !state.Available {
			t.Error("Expected the fetched state to be published")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected an immediate first tick, got none")
	}
}

func TestPollerStopWaitsForInFlightTick(t *testing.T) {
	var mu sync.Mutex
	var afterStop bool
	var published int

	release := make(chan struct{})
	p := NewPoller(time.Hour,
		func(ctx context.Context) State {
			<-release
			return State{}
		},
		func(State) {
			mu.Lock()
			if afterStop {
				published++
			}
			mu.Unlock()
		},
		testLogger())

	p.Start()
	close(release)
	p.Stop()

	mu.Lock()
	afterStop = true
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if published != 0 {
		t.Error("No publish callback may fire after Stop returns")
	}
}

func TestPollerStopCancelsSlowFetch(t *testing.T) {
	started := make(chan struct{})
	p := NewPoller(time.Hour,
		func(ctx context.Context) State {
			close(started)
			<-ctx.Done()
			return State{}
		},
		func(State) {
			t.Error("A canceled tick must not publish")
		},
		testLogger())

	p.Start()
	<-started
	p.Stop()
}

func TestPollerIdempotentStart(t *testing.T) {
	var fetches atomic.Int64
	p := NewPoller(30*time.Millisecond,
		func(ctx context.Context) State {
			fetches.Add(1)
			return State{}
		},
		func(State) {},
		testLogger())

	// A second Start replaces the first loop instead of stacking a second
	// timer next to it.
	p.Start()
	p.Start()
	defer p.Stop()

	time.Sleep(320 * time.Millisecond)
	p.Stop()

	// Two loops would roughly double this; allow generous scheduling slack.
	got := fetches.Load()
	if got > 14 {
		t.Errorf("Fetch count %d suggests more than one active timer", got)
	}
	if got < 2 {
		t.Errorf("Expected periodic fetches, got %d", got)
	}
}

func TestPollerRunning(t *testing.T) {
	p := NewPoller(time.Hour,
		func(ctx context.Context) State { return State{} },
		func(State) {},
		testLogger())

	if p.Running() {
		t.Error("A fresh poller must not report running")
	}
	p.Start()
	if !p.Running() {
		t.Error("Expected running after Start")
	}
	p.Stop()
	if p.Running() {
		t.Error("Expected stopped after Stop")
	}
	// Stop on a stopped poller is a no-op.
	p.Stop()
}

func TestPollerTicksDoNotOverlap(t *testing.T) {
	var active atomic.Int64
	var overlapped atomic.Bool

	p := NewPoller(10*time.Millisecond,
		func(ctx context.Context) State {
			if active.Add(1) > 1 {
				overlapped.Store(true)
			}
			time.Sleep(35 * time.Millisecond)
			active.Add(-1)
			return State{}
		},
		func(State) {},
		testLogger())

	p.Start()
	time.Sleep(200 * time.Millisecond)
	p.Stop()

	if overlapped.Load() {
		t.Error("Fetches must never run concurrently")
	}
}
