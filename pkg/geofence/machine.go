package geofence

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"tourguide/pkg/geo"
	"tourguide/pkg/metrics"
	"tourguide/pkg/model"
)

// Config holds the state machine tuning.
type Config struct {
	RadiusDefault float64
	// Cooldown is the minimum time between two enter events without an exit
	// in between. It also spaces repeated approaching events per region.
	Cooldown           time.Duration
	ApproachEnabled    bool
	ApproachDistance   float64
	ApproachHysteresis float64
}

// DefaultConfig matches the configuration file defaults.
func DefaultConfig() Config {
	return Config{
		RadiusDefault:      model.DefaultRadius,
		Cooldown:           15 * time.Second,
		ApproachEnabled:    true,
		ApproachDistance:   300,
		ApproachHysteresis: 50,
	}
}

// State is a snapshot of the machine.
type State struct {
	Inside      *model.Region `json:"inside"`
	Approaching *Match        `json:"approaching"`
	// LastReported is the distance carried by the last approaching event.
	LastReported       float64             `json:"last_reported"`
	EnterCooldownUntil time.Time           `json:"enter_cooldown_until"`
	ApproachCooldowns  map[int64]time.Time `json:"approach_cooldowns,omitempty"`
}

// Machine tracks which region the observer is in and emits at most one
// transition per position. It is safe for concurrent use, though the
// session feeds it one sample at a time.
type Machine struct {
	cfg Config

	mu                sync.Mutex
	inside            *model.Region
	approaching       *Match
	lastReported      float64
	enterCooldown     time.Time
	approachCooldowns map[int64]time.Time
}

// NewMachine creates a machine with empty state.
func NewMachine(cfg Config) *Machine {
	if cfg.RadiusDefault <= 0 {
		cfg.RadiusDefault = model.DefaultRadius
	}
	return &Machine{cfg: cfg, approachCooldowns: make(map[int64]time.Time)}
}

func (m *Machine) params() Params {
	p := Params{RadiusDefault: m.cfg.RadiusDefault}
	if m.cfg.ApproachEnabled {
		p.ApproachDistance = m.cfg.ApproachDistance
	}
	return p
}

// Step evaluates pos against regions and advances the state. It returns the
// emitted event, if any.
func (m *Machine) Step(pos geo.Point, regions []model.Region, now time.Time) (model.Event, bool) {
	out := Evaluate(pos, regions, m.params())

	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.advance(out, now)
	if ok {
		metrics.GeofenceEvents.WithLabelValues(string(ev.Type)).Inc()
		slog.Debug("Geofence transition", "type", ev.Type, "region", ev.Region.ID, "distance_m", ev.Distance)
	}
	return ev, ok
}

func (m *Machine) advance(out Outcome, now time.Time) (model.Event, bool) {
	// Exit: the region we were in is no longer the nearest contained one.
	if m.inside != nil && (out.Contained == nil || out.Contained.Region.ID != m.inside.ID) {
		left := *m.inside
		m.inside = nil
		m.approaching = nil
		return model.Event{Type: model.EventExit, Region: left, Distance: math.Inf(1), Timestamp: now}, true
	}

	if out.Contained != nil {
		m.approaching = nil
		wasInside := m.inside != nil
		r := out.Contained.Region
		m.inside = &r
		if wasInside {
			return model.Event{}, false
		}
		if now.Before(m.enterCooldown) {
			slog.Debug("Geofence enter suppressed by cooldown", "region", r.ID, "until", m.enterCooldown)
			return model.Event{}, false
		}
		m.enterCooldown = now.Add(m.cfg.Cooldown)
		return model.Event{Type: model.EventEnter, Region: r, Distance: out.Contained.Distance, Timestamp: now}, true
	}

	if out.Approaching == nil {
		m.approaching = nil
		return model.Event{}, false
	}

	cand := *out.Approaching
	id := cand.Region.ID
	sameRegion := m.approaching != nil && m.approaching.Region.ID == id
	moved := math.Abs(cand.Distance-m.lastReported) > m.cfg.ApproachHysteresis
	cooled := !now.Before(m.approachCooldowns[id])

	m.approaching = &cand
	if sameRegion && !(cooled && moved) {
		return model.Event{}, false
	}
	m.lastReported = cand.Distance
	m.approachCooldowns[id] = now.Add(m.cfg.Cooldown)
	return model.Event{Type: model.EventApproaching, Region: cand.Region, Distance: cand.Distance, Timestamp: now}, true
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := State{
		LastReported:       m.lastReported,
		EnterCooldownUntil: m.enterCooldown,
	}
	if m.inside != nil {
		r := *m.inside
		s.Inside = &r
	}
	if m.approaching != nil {
		a := *m.approaching
		s.Approaching = &a
	}
	if len(m.approachCooldowns) > 0 {
		s.ApproachCooldowns = make(map[int64]time.Time, len(m.approachCooldowns))
		for id, t := range m.approachCooldowns {
			s.ApproachCooldowns[id] = t
		}
	}
	return s
}

// Reset discards all state, as at the start of a new session.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inside = nil
	m.approaching = nil
	m.lastReported = 0
	m.enterCooldown = time.Time{}
	m.approachCooldowns = make(map[int64]time.Time)
}
