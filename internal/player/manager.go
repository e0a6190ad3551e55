package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Mode selects the active backend. Exactly one backend is active at a time.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// ParseMode parses a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLocal, ModeRemote:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown backend mode: %q", s)
}

// Manager owns both backends, the active mode and the polling lifecycle.
// Switching modes tears the poller down before swapping the backend and
// restarts it afterwards, so an in-flight fetch never races a fresh poll
// against a different backend.
type Manager struct {
	local  Backend
	remote Backend
	logger *logrus.Entry
	poller *Poller

	mu        sync.RWMutex
	mode      Mode
	running   bool
	last      State
	listeners []func(State)
}

// NewManager creates a manager with the given backends and initial mode
func NewManager(local, remote Backend, mode Mode, period time.Duration, logger *logrus.Logger) *Manager {
	m := &Manager{
		local:  local,
		remote: remote,
		mode:   mode,
		logger: logger.WithField("component", "player"),
	}
	m.poller = NewPoller(period, m.fetchActive, m.publish, logger)
	return m
}

// Backend returns the currently active backend
func (m *Manager) Backend() Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backendLocked()
}

func (m *Manager) backendLocked() Backend {
	if m.mode == ModeRemote {
		return m.remote
	}
	return m.local
}

// Mode returns the active mode
func (m *Manager) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// SetMode switches the active backend. The poller is stopped first and
// restarted after the swap; switching to the current mode is a no-op.
func (m *Manager) SetMode(mode Mode) {
	m.mu.Lock()
	if m.mode == mode {
		m.mu.Unlock()
		return
	}
	running := m.running
	m.mu.Unlock()

	if running {
		m.poller.Stop()
	}

	m.mu.Lock()
	m.mode = mode
	m.last = State{}
	m.mu.Unlock()

	m.logger.WithField("mode", mode).Info("Switched player backend")

	if running {
		m.poller.Start()
	}
}

// SetPollInterval changes the poll period, restarting the poller if running
func (m *Manager) SetPollInterval(period time.Duration) {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()

	if running {
		m.poller.Stop()
	}
	m.poller.SetPeriod(period)
	if running {
		m.poller.Start()
	}

	m.logger.WithField("period", period).Info("Poll interval updated")
}

// Start begins polling
func (m *Manager) Start() {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
	m.poller.Start()
}

// Stop halts polling; no listener fires after Stop returns
func (m *Manager) Stop() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	m.poller.Stop()
}

// State returns the most recently published state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// FetchNow performs one synchronous fetch against the active backend,
// outside the poll cadence (used by the status endpoint for fresh reads).
func (m *Manager) FetchNow(ctx context.Context) State {
	state := m.fetchActive(ctx)
	m.publish(state)
	return state
}

// Subscribe registers a state listener. Listeners must be registered before
// Start and are invoked from the poll goroutine, so they must not block.
func (m *Manager) Subscribe(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// fetchActive captures the active backend once per tick. SetMode stops the
// poller before swapping, so the captured backend stays valid for the whole
// fetch.
func (m *Manager) fetchActive(ctx context.Context) State {
	return m.Backend().FetchState(ctx)
}

// publish stores and fans out a freshly fetched state
func (m *Manager) publish(state State) {
	m.mu.Lock()
	m.last = state
	listeners := m.listeners
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}
