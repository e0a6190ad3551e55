package player

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Poller drives the fetch loop: one FetchState round trip per tick,
// republished to the consumer. Ticks never overlap; a fetch that outlives its
// tick simply absorbs the queued tick, because two concurrent fetches double
// the process-spawn cost against the bridge and risk rate limiting against
// the remote API.
type Poller struct {
	fetch   func(ctx context.Context) State
	publish func(State)
	logger  *logrus.Entry

	mu     sync.Mutex
	period time.Duration
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a stopped poller. The publish callback must not call
// back into Start or Stop.
func NewPoller(period time.Duration, fetch func(ctx context.Context) State, publish func(State), logger *logrus.Logger) *Poller {
	return &Poller{
		period:  period,
		fetch:   fetch,
		publish: publish,
		logger:  logger.WithField("component", "poller"),
	}
}

// Start begins the polling loop. Idempotent: calling Start while running
// clears the previous loop first, so there is never more than one timer.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go p.loop(ctx, done, p.period)
}

// Stop halts the loop. When Stop returns, no further publish callback will
// fire; a tick in flight is waited out, not abandoned.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Running reports whether the loop is active
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// SetPeriod changes the tick period. Takes effect on the next Start.
func (p *Poller) SetPeriod(period time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.period = period
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}

// loop runs ticks until the context is canceled. The fetch runs synchronously
// in the loop goroutine, so a slow backend delays the next tick's effect
// rather than stacking fetches; queued ticks are drained afterwards so a long
// fetch is followed by one tick, not a burst.
func (p *Poller) loop(ctx context.Context, done chan struct{}, period time.Duration) {
	defer close(done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	// Immediate first fetch so consumers are not blank for a full period.
	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
			// Coalesce any tick that queued up while fetching.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

// tick performs one fetch-and-publish round trip. The fetch contract
// guarantees a well-formed State even on failure, so the consumer callback
// always receives a renderable value.
func (p *Poller) tick(ctx context.Context) {
	state := p.fetch(ctx)

	select {
	case <-ctx.Done():
		return
	default:
	}

	p.publish(state)
}
