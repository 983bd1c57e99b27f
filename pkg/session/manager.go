// Package session runs one tracking session: location filter, geofence
// state machine and event bus wired into a serialised pipeline.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"tourguide/pkg/catalog"
	"tourguide/pkg/geo"
	"tourguide/pkg/geofence"
	"tourguide/pkg/location"
	"tourguide/pkg/logging"
	"tourguide/pkg/model"
	"tourguide/pkg/report"
)

// Status describes the session lifecycle.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusActive      Status = "active"
	StatusUnavailable Status = "unavailable"
	StatusStopped     Status = "stopped"
)

// Config wires the session components.
type Config struct {
	Filter      location.Config
	Geofence    geofence.Config
	HistorySize int // events kept for Events()
	TrackWindow int // positions used for the heading
}

// Position is the last accepted sample.
type Position struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a read-only view taken between pipeline cycles.
type Snapshot struct {
	ID          string          `json:"id"`
	Status      Status          `json:"status"`
	Position    *Position       `json:"position"`
	Heading     *float64        `json:"heading"`
	Inside      *model.Region   `json:"inside"`
	Approaching *geofence.Match `json:"approaching"`
	LastError   string          `json:"last_error,omitempty"`
	ErrorCount  int             `json:"error_count"`
	EventCount  int             `json:"event_count"`
	Catalog     CatalogInfo     `json:"catalog"`
}

// CatalogInfo summarises the active catalog.
type CatalogInfo struct {
	Source   string    `json:"source"`
	Regions  int       `json:"regions"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock replaces time.Now for cooldown bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithErrorHandler receives every non-fatal source error.
func WithErrorHandler(fn func(error)) Option {
	return func(m *Manager) { m.onError = fn }
}

// Manager owns one tracking session.
type Manager struct {
	id          string
	filter      *location.Filter
	machine     *geofence.Machine
	bus         *geofence.Bus
	track       *geo.TrackBuffer
	catalog     atomic.Pointer[catalog.Catalog]
	now         func() time.Time
	onError     func(error)
	historySize int

	// deliverMu serialises sample processing so events leave in acceptance order.
	deliverMu  sync.Mutex
	stopped    atomic.Bool
	inListener atomic.Bool
	// epoch counts Start calls; samples carry the epoch they were subscribed under.
	epoch atomic.Uint64

	mu         sync.RWMutex
	status     Status
	position   *Position
	heading    *float64
	events     []model.Event
	eventCount int
	lastError  string
	errorCount int
}

// NewManager creates an idle session reading from src.
func NewManager(src location.Source, cat *catalog.Catalog, cfg Config, opts ...Option) *Manager {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	if cfg.TrackWindow <= 0 {
		cfg.TrackWindow = 5
	}
	if cat == nil {
		cat = catalog.Empty()
	}
	m := &Manager{
		id:          uuid.New().String(),
		filter:      location.NewFilter(src, cfg.Filter),
		machine:     geofence.NewMachine(cfg.Geofence),
		bus:         geofence.NewBus(),
		track:       geo.NewTrackBuffer(cfg.TrackWindow),
		now:         time.Now,
		historySize: cfg.HistorySize,
		status:      StatusIdle,
	}
	m.catalog.Store(cat)
	for _, o := range opts {
		o(m)
	}
	return m
}

// ID returns the session identifier.
func (m *Manager) ID() string { return m.id }

// Start begins tracking with fresh engine state. Calling Start on a running
// session restarts it. It waits for an in-flight cycle, so it must not be
// called from an event listener.
func (m *Manager) Start() error {
	m.deliverMu.Lock()
	epoch := m.epoch.Add(1)
	m.stopped.Store(false)
	m.machine.Reset()
	m.track.Reset()
	m.mu.Lock()
	m.heading = nil
	m.mu.Unlock()
	m.deliverMu.Unlock()

	onSample := func(s location.Sample) { m.handleSample(epoch, s) }
	if err := m.filter.Start(onSample, m.handleError); err != nil {
		m.setStatus(StatusUnavailable)
		if errors.Is(err, location.ErrUnavailable) {
			slog.Warn("Session: location source unavailable", "session", m.id)
		} else {
			slog.Error("Session: failed to start location source", "session", m.id, "error", err)
		}
		report.ReportError(err, sentry.LevelWarning)
		return err
	}
	m.setStatus(StatusActive)
	slog.Info("Session: tracking started", "session", m.id, "regions", m.Catalog().Len())
	return nil
}

// Stop releases the location subscription and discards the engine state.
// No evaluation starts and no listener is called after it returns. It may be
// called from an event listener. A listener already running on another
// goroutine is not interrupted, but the rest of its round is dropped.
func (m *Manager) Stop() {
	if m.stopped.Swap(true) {
		return
	}
	m.filter.Stop()
	if !m.inListener.Load() {
		// Wait for an in-flight cycle to finish.
		m.deliverMu.Lock()
		m.deliverMu.Unlock()
	}
	m.machine.Reset()
	m.setStatus(StatusStopped)
	slog.Info("Session: tracking stopped", "session", m.id)
}

func (m *Manager) handleSample(epoch uint64, s location.Sample) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	if m.stopped.Load() || m.epoch.Load() != epoch {
		return
	}

	pos := s.Point()
	course, hasCourse := m.track.Push(pos)
	m.mu.Lock()
	m.position = &Position{Lat: s.Lat, Lon: s.Lon, Accuracy: s.Accuracy, Timestamp: s.Timestamp}
	if hasCourse {
		m.heading = &course
	}
	m.mu.Unlock()

	ev, ok := m.machine.Step(pos, m.Catalog().Regions(), m.now())
	if !ok {
		return
	}
	m.record(ev)
	if m.stopped.Load() {
		return
	}

	m.inListener.Store(true)
	defer m.inListener.Store(false)
	m.bus.PublishWhile(ev, func() bool { return !m.stopped.Load() })
}

func (m *Manager) record(ev model.Event) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	if len(m.events) > m.historySize {
		m.events = m.events[len(m.events)-m.historySize:]
	}
	m.eventCount++
	m.mu.Unlock()

	logging.LogEvent(&ev)
}

func (m *Manager) handleError(err error) {
	m.mu.Lock()
	m.lastError = err.Error()
	m.errorCount++
	m.mu.Unlock()

	if errors.Is(err, location.ErrTimeout) {
		slog.Debug("Session: no location sample within timeout", "session", m.id)
	} else {
		slog.Warn("Session: location source error", "session", m.id, "error", err)
		report.ReportErrorWithOptions(err, report.Options{
			Level: sentry.LevelWarning,
			Tags:  map[string]string{"session": m.id},
		})
	}
	if m.onError != nil {
		m.onError(err)
	}
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// Subscribe registers an event listener and returns its unsubscribe func.
func (m *Manager) Subscribe(l geofence.Listener) func() {
	return m.bus.Subscribe(l)
}

// UpdateCatalog swaps the region catalog. The next sample is evaluated
// against it.
func (m *Manager) UpdateCatalog(c *catalog.Catalog) {
	if c == nil {
		c = catalog.Empty()
	}
	m.catalog.Store(c)
	slog.Info("Session: catalog updated", "session", m.id, "source", c.Source(), "regions", c.Len())
}

// Catalog returns the active catalog.
func (m *Manager) Catalog() *catalog.Catalog {
	return m.catalog.Load()
}

// Events returns up to n of the most recent events, oldest first.
// n <= 0 returns the whole history.
func (m *Manager) Events(n int) []model.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start := 0
	if n > 0 && n < len(m.events) {
		start = len(m.events) - n
	}
	out := make([]model.Event, len(m.events)-start)
	copy(out, m.events[start:])
	return out
}

// Snapshot returns the current session view.
func (m *Manager) Snapshot() Snapshot {
	st := m.machine.State()
	c := m.Catalog()

	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{
		ID:          m.id,
		Status:      m.status,
		Inside:      st.Inside,
		Approaching: st.Approaching,
		LastError:   m.lastError,
		ErrorCount:  m.errorCount,
		EventCount:  m.eventCount,
		Catalog: CatalogInfo{
			Source:   c.Source(),
			Regions:  c.Len(),
			LoadedAt: c.LoadedAt(),
		},
	}
	if m.position != nil {
		p := *m.position
		snap.Position = &p
	}
	if m.heading != nil {
		h := *m.heading
		snap.Heading = &h
	}
	return snap
}
