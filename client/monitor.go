package client

import (
	"sync"
	"time"
)

// Monitor defaults mirror the server's session policy. They are
// advisory: the server recomputes expiry from its stored timestamps on
// every request, so a drifted monitor can warn early or late but never
// changes what the server decides.
const (
	DefaultIdleTimeout      = 30 * time.Minute
	DefaultWarningThreshold = 2 * time.Minute
	DefaultTickInterval     = time.Minute
)

// Monitor tracks local activity against the idle timeout and fires
// callbacks as the session approaches and reaches expiry. It runs a
// single goroutine between Start and Stop.
type Monitor struct {
	idleTimeout      time.Duration
	warningThreshold time.Duration
	tickInterval     time.Duration

	// OnWarning fires once per tick while the remaining idle time is at
	// or below the warning threshold, with the whole seconds remaining.
	OnWarning func(secondsRemaining int)
	// OnExpired fires once when the idle window is exhausted; the
	// monitor stops itself afterwards.
	OnExpired func()

	now func() time.Time

	mu           sync.Mutex
	lastActivity time.Time
	running      bool
	stop         chan struct{}
	done         chan struct{}
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithIdleTimeout overrides the mirrored idle timeout.
func WithIdleTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.idleTimeout = d }
}

// WithWarningThreshold overrides the warning threshold.
func WithWarningThreshold(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.warningThreshold = d }
}

// WithTickInterval overrides the check interval.
func WithTickInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.tickInterval = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates a stopped monitor with the default policy.
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{
		idleTimeout:      DefaultIdleTimeout,
		warningThreshold: DefaultWarningThreshold,
		tickInterval:     DefaultTickInterval,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins monitoring from a fresh activity mark. Calling Start on
// a running monitor is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.lastActivity = m.now()
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(m.stop, m.done)
}

// Stop halts monitoring and waits for the goroutine to exit. Calling
// Stop on a stopped monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stop, m.done
	m.mu.Unlock()

	close(stop)
	<-done
}

// Running reports whether the monitor goroutine is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// RecordActivity resets the local idle clock. Call it whenever the user
// does something that produces a server request.
func (m *Monitor) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = m.now()
}

// ExtendSession resets the local idle clock after the caller has made
// an authenticated request; the server-side extension already happened
// through that request's activity touch.
func (m *Monitor) ExtendSession() {
	m.RecordActivity()
}

// Remaining returns the idle time left before local expiry.
func (m *Monitor) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idleTimeout - m.now().Sub(m.lastActivity)
}

func (m *Monitor) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if m.check() {
				return
			}
		}
	}
}

// check evaluates the idle window once. It returns true when the
// session expired and the monitor should stop.
func (m *Monitor) check() bool {
	m.mu.Lock()
	remaining := m.idleTimeout - m.now().Sub(m.lastActivity)
	m.mu.Unlock()

	if remaining <= 0 {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		if m.OnExpired != nil {
			m.OnExpired()
		}
		return true
	}

	if remaining <= m.warningThreshold && m.OnWarning != nil {
		m.OnWarning(int(remaining.Seconds()))
	}
	return false
}
