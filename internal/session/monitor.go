package session

import (
	"sync"
	"time"

	"github.com/dropDatabas3/meshconsole/internal/auth"
	"github.com/dropDatabas3/meshconsole/internal/clock"
)

// MonitorConfig son los tiempos del monitor de sesión.
type MonitorConfig struct {
	PollInterval      time.Duration
	CountdownInterval time.Duration
	WarningThreshold  time.Duration
	ExtensionLength   time.Duration
}

// MonitorState es lo que el monitor publica hacia la UI.
type MonitorState struct {
	Active        bool
	TimeRemaining time.Duration
	ShowDialog    bool
}

// Monitor vigila el vencimiento de la sesión con dos timers independientes:
// el poll (warning + logout forzado) y el countdown (tiempo restante).
type Monitor struct {
	cfg      MonitorConfig
	clock    clock.Clock
	onExpire func(auth.Session)
	onChange func(MonitorState)

	mu         sync.Mutex
	session    *auth.Session
	remaining  time.Duration
	showDialog bool
	dismissed  bool
	gen        uint64
	poll       clock.Timer
	countdown  clock.Timer
}

// NewMonitor crea un monitor detenido. onExpire se llama exactamente una vez
// por sesión vencida; onChange cuando cambia el estado visible.
func NewMonitor(cfg MonitorConfig, clk clock.Clock, onExpire func(auth.Session), onChange func(MonitorState)) *Monitor {
	if onExpire == nil {
		onExpire = func(auth.Session) {}
	}
	if onChange == nil {
		onChange = func(MonitorState) {}
	}
	return &Monitor{cfg: cfg, clock: clk, onExpire: onExpire, onChange: onChange}
}

// Start empieza a vigilar s, reemplazando cualquier sesión previa.
func (m *Monitor) Start(s auth.Session) {
	m.mu.Lock()
	m.stopTimersLocked()
	m.gen++
	m.session = &s
	m.remaining = clampRemaining(s.Remaining(m.clock.Now()))
	m.showDialog = false
	m.dismissed = false
	gen := m.gen
	m.schedulePollLocked(gen)
	m.scheduleCountdownLocked(gen)
	m.mu.Unlock()
}

// Stop detiene ambos timers y olvida la sesión.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.stopTimersLocked()
	m.gen++
	m.session = nil
	m.showDialog = false
	m.remaining = 0
	m.mu.Unlock()
}

// Tick es una pasada del poll. Vencida la sesión dispara onExpire y deja al
// monitor sin sesión, por lo que ticks posteriores no hacen nada.
func (m *Monitor) Tick() {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return
	}
	remaining := m.session.Remaining(m.clock.Now())
	m.remaining = clampRemaining(remaining)

	if remaining <= 0 {
		expired := *m.session
		m.session = nil
		m.showDialog = false
		m.stopTimersLocked()
		m.gen++
		st := m.stateLocked()
		m.mu.Unlock()

		m.onExpire(expired)
		m.onChange(st)
		return
	}

	// descartar el diálogo no frena el chequeo de vencimiento de arriba
	show := remaining <= m.cfg.WarningThreshold && !m.dismissed
	if remaining > m.cfg.WarningThreshold {
		m.dismissed = false
	}
	changed := show != m.showDialog
	m.showDialog = show
	st := m.stateLocked()
	m.mu.Unlock()

	if changed {
		m.onChange(st)
	}
}

func (m *Monitor) countdownTick() {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return
	}
	m.remaining = clampRemaining(m.session.Remaining(m.clock.Now()))
	st := m.stateLocked()
	m.mu.Unlock()
	m.onChange(st)
}

// Dismiss oculta el diálogo hasta que la sesión se extienda o vuelva a
// estar fuera del umbral.
func (m *Monitor) Dismiss() {
	m.mu.Lock()
	m.dismissed = true
	m.showDialog = false
	st := m.stateLocked()
	m.mu.Unlock()
	m.onChange(st)
}

// Extend reemplaza la sesión por una que vence en now+ExtensionLength.
func (m *Monitor) Extend() (auth.Session, bool) {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return auth.Session{}, false
	}
	now := m.clock.Now()
	ext := m.session.ExtendedFrom(now, m.cfg.ExtensionLength)
	m.session = &ext
	m.remaining = clampRemaining(ext.Remaining(now))
	m.showDialog = false
	m.dismissed = false
	st := m.stateLocked()
	m.mu.Unlock()

	m.onChange(st)
	return ext, true
}

func (m *Monitor) State() MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Monitor) stateLocked() MonitorState {
	return MonitorState{
		Active:        m.session != nil,
		TimeRemaining: m.remaining,
		ShowDialog:    m.showDialog,
	}
}

func (m *Monitor) schedulePollLocked(gen uint64) {
	m.poll = m.clock.AfterFunc(m.cfg.PollInterval, func() {
		m.Tick()
		m.mu.Lock()
		if m.gen == gen && m.session != nil {
			m.schedulePollLocked(gen)
		}
		m.mu.Unlock()
	})
}

func (m *Monitor) scheduleCountdownLocked(gen uint64) {
	m.countdown = m.clock.AfterFunc(m.cfg.CountdownInterval, func() {
		m.countdownTick()
		m.mu.Lock()
		if m.gen == gen && m.session != nil {
			m.scheduleCountdownLocked(gen)
		}
		m.mu.Unlock()
	})
}

func (m *Monitor) stopTimersLocked() {
	if m.poll != nil {
		m.poll.Stop()
		m.poll = nil
	}
	if m.countdown != nil {
		m.countdown.Stop()
		m.countdown = nil
	}
}

func clampRemaining(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
