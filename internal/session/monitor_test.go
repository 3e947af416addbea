package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/meshconsole/internal/auth"
	"github.com/dropDatabas3/meshconsole/internal/clock/clocktest"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var testMonitorConfig = MonitorConfig{
	PollInterval:      time.Second,
	CountdownInterval: time.Second,
	WarningThreshold:  30 * time.Second,
	ExtensionLength:   time.Hour,
}

type monitorProbe struct {
	mu      sync.Mutex
	expired []auth.Session
	states  []MonitorState
}

func (p *monitorProbe) onExpire(s auth.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = append(p.expired, s)
}

func (p *monitorProbe) onChange(st MonitorState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, st)
}

func (p *monitorProbe) last() MonitorState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.states) == 0 {
		return MonitorState{}
	}
	return p.states[len(p.states)-1]
}

func newTestMonitor() (*Monitor, *clocktest.FakeClock, *monitorProbe) {
	clock := clocktest.NewFakeClock(t0)
	p := &monitorProbe{}
	return NewMonitor(testMonitorConfig, clock, p.onExpire, p.onChange), clock, p
}

func TestMonitorExpiresExactlyOnce(t *testing.T) {
	m, clock, p := newTestMonitor()
	s := auth.Session{Username: "alice", ExpiresOn: t0.Add(10 * time.Second)}
	m.Start(s)

	clock.Advance(10 * time.Second)
	require.Len(t, p.expired, 1)
	assert.Equal(t, "alice", p.expired[0].Username)

	// ticks posteriores no vuelven a disparar
	clock.Advance(time.Minute)
	m.Tick()
	assert.Len(t, p.expired, 1)
	assert.False(t, m.State().Active)
	assert.Equal(t, 0, clock.Pending())
}

func TestMonitorShowsWarningInsideThreshold(t *testing.T) {
	m, clock, p := newTestMonitor()
	m.Start(auth.Session{Username: "alice", ExpiresOn: t0.Add(time.Minute)})

	clock.Advance(20 * time.Second)
	assert.False(t, p.last().ShowDialog)

	clock.Advance(11 * time.Second)
	st := p.last()
	assert.True(t, st.ShowDialog)
	assert.Equal(t, 29*time.Second, st.TimeRemaining)
}

func TestMonitorDismissKeepsExpiryCheck(t *testing.T) {
	m, clock, p := newTestMonitor()
	m.Start(auth.Session{Username: "alice", ExpiresOn: t0.Add(40 * time.Second)})

	clock.Advance(15 * time.Second)
	require.True(t, m.State().ShowDialog)

	m.Dismiss()
	clock.Advance(5 * time.Second)
	assert.False(t, m.State().ShowDialog)

	clock.Advance(30 * time.Second)
	assert.Len(t, p.expired, 1)
}

func TestMonitorExtendReplacesExpiry(t *testing.T) {
	m, clock, p := newTestMonitor()
	m.Start(auth.Session{Username: "alice", ExpiresOn: t0.Add(20 * time.Second)})
	clock.Advance(15 * time.Second)
	require.True(t, m.State().ShowDialog)

	ext, ok := m.Extend()
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(time.Hour), ext.ExpiresOn)
	assert.False(t, m.State().ShowDialog)

	clock.Advance(10 * time.Second)
	assert.Empty(t, p.expired)
}

func TestMonitorExtendWithoutSession(t *testing.T) {
	m, _, _ := newTestMonitor()
	_, ok := m.Extend()
	assert.False(t, ok)
}

func TestMonitorStopHaltsTimers(t *testing.T) {
	m, clock, p := newTestMonitor()
	m.Start(auth.Session{Username: "alice", ExpiresOn: t0.Add(5 * time.Second)})
	m.Stop()

	clock.Advance(time.Minute)
	assert.Empty(t, p.expired)
	assert.Equal(t, 0, clock.Pending())
}

func TestMonitorCountdownUpdatesRemaining(t *testing.T) {
	m, clock, p := newTestMonitor()
	m.Start(auth.Session{Username: "alice", ExpiresOn: t0.Add(time.Hour)})

	clock.Advance(3 * time.Second)
	assert.Equal(t, time.Hour-3*time.Second, p.last().TimeRemaining)
	assert.True(t, p.last().Active)
}
