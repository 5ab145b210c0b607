package client_test

import (
	"sync"
	"testing"
	"time"

	"projectgoat/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a mutable time source shared with the monitor.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMonitor(clock *fakeClock) *client.Monitor {
	return client.NewMonitor(
		client.WithClock(clock.Now),
		client.WithTickInterval(5*time.Millisecond),
	)
}

func waitFor(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal(msg)
	}
}

func TestMonitor_StartStopIdempotent(t *testing.T) {
	m := newTestMonitor(newFakeClock())

	m.Start()
	m.Start()
	assert.True(t, m.Running())

	m.Stop()
	m.Stop()
	assert.False(t, m.Running())

	// Restartable after a stop.
	m.Start()
	assert.True(t, m.Running())
	m.Stop()
}

func TestMonitor_NoCallbacksWhileActive(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock)

	var mu sync.Mutex
	fired := false
	m.OnWarning = func(int) { mu.Lock(); fired = true; mu.Unlock() }
	m.OnExpired = func() { mu.Lock(); fired = true; mu.Unlock() }

	m.Start()
	defer m.Stop()

	// 27 minutes idle: still more than the 2 minute warning threshold away.
	clock.Advance(27 * time.Minute)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, fired)
}

func TestMonitor_WarnsInsideThreshold(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock)

	warned := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	var got int
	m.OnWarning = func(secondsRemaining int) {
		mu.Lock()
		got = secondsRemaining
		mu.Unlock()
		once.Do(func() { close(warned) })
	}

	m.Start()
	defer m.Stop()

	// 29 minutes idle: one minute remains, inside the warning band.
	clock.Advance(29 * time.Minute)
	waitFor(t, warned, "expected a warning callback")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 60, got)
}

func TestMonitor_ExpiresAndStopsItself(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock)

	expired := make(chan struct{})
	m.OnExpired = func() { close(expired) }

	m.Start()

	clock.Advance(30 * time.Minute)
	waitFor(t, expired, "expected an expiry callback")

	assert.False(t, m.Running())
	assert.LessOrEqual(t, m.Remaining(), time.Duration(0))
}

func TestMonitor_ActivityResetsIdleClock(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock)

	expired := make(chan struct{})
	m.OnExpired = func() { close(expired) }

	m.Start()
	defer m.Stop()

	// 29 minutes in, the user does something.
	clock.Advance(29 * time.Minute)
	m.RecordActivity()

	// 29 more minutes: without the reset this would be 58 idle minutes.
	clock.Advance(29 * time.Minute)
	time.Sleep(50 * time.Millisecond)

	select {
	case <-expired:
		t.Fatal("monitor expired despite recorded activity")
	default:
	}
	assert.True(t, m.Running())
	assert.Equal(t, time.Minute, m.Remaining())
}

func TestMonitor_ExtendSessionResetsIdleClock(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock)

	m.Start()
	defer m.Stop()

	clock.Advance(25 * time.Minute)
	require.Equal(t, 5*time.Minute, m.Remaining())

	m.ExtendSession()
	assert.Equal(t, 30*time.Minute, m.Remaining())
}
