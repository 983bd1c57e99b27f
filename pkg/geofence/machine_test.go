package geofence

import (
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tourguide/pkg/geo"
	"tourguide/pkg/metrics"
	"tourguide/pkg/model"
)

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type step struct {
	pos  geo.Point
	at   time.Duration
	want model.EventType // "" = no event
	id   int64
}

func run(t *testing.T, m *Machine, regions []model.Region, steps []step) {
	t.Helper()
	for i, s := range steps {
		ev, ok := m.Step(s.pos, regions, t0.Add(s.at))
		switch {
		case s.want == "" && ok:
			t.Errorf("sample %d: unexpected %s(%d)", i+1, ev.Type, ev.Region.ID)
		case s.want != "" && !ok:
			t.Errorf("sample %d: expected %s(%d), got nothing", i+1, s.want, s.id)
		case s.want != "" && (ev.Type != s.want || ev.Region.ID != s.id):
			t.Errorf("sample %d: got %s(%d), want %s(%d)", i+1, ev.Type, ev.Region.ID, s.want, s.id)
		}
	}
}

func TestMachine_EnterExitOnce(t *testing.T) {
	m := NewMachine(DefaultConfig())
	regions := []model.Region{region(1, center, 150)}

	run(t, m, regions, []step{
		{north(center, 500), 0, "", 0},
		{north(center, 80), time.Second, model.EventEnter, 1},
		{north(center, 80), 2 * time.Second, "", 0},
		{north(center, 500), 3 * time.Second, model.EventExit, 1},
	})
}

func TestMachine_EventFields(t *testing.T) {
	m := NewMachine(DefaultConfig())
	regions := []model.Region{region(1, center, 150)}

	ev, ok := m.Step(north(center, 80), regions, t0)
	if !ok || math.Abs(ev.Distance-80) > 0.01 || !ev.Timestamp.Equal(t0) {
		t.Fatalf("enter = %+v", ev)
	}
	ev, ok = m.Step(north(center, 900), regions, t0.Add(time.Second))
	if !ok || !math.IsInf(ev.Distance, 1) {
		t.Errorf("exit distance = %v, want +Inf", ev.Distance)
	}
}

func TestMachine_EnterCooldown(t *testing.T) {
	m := NewMachine(DefaultConfig())
	regions := []model.Region{region(1, center, 150)}

	run(t, m, regions, []step{
		{north(center, 50), 0, model.EventEnter, 1},
		{north(center, 300), 2 * time.Second, model.EventExit, 1},
		// Back inside before the cooldown ran out: adopted silently.
		{north(center, 50), 4 * time.Second, "", 0},
		{north(center, 60), 20 * time.Second, "", 0},
		{north(center, 300), 21 * time.Second, model.EventExit, 1},
		{north(center, 50), 22 * time.Second, model.EventEnter, 1},
	})

	if s := m.State(); s.Inside == nil || s.Inside.ID != 1 {
		t.Errorf("state inside = %+v", s.Inside)
	}
}

func TestMachine_OverlapAndCatalogRemoval(t *testing.T) {
	east := geo.DestinationPoint(center, 100, 90)
	a := region(1, center, 150)
	b := region(2, east, 150)
	pos := geo.DestinationPoint(center, 80, 90)

	t.Run("Within Cooldown", func(t *testing.T) {
		m := NewMachine(DefaultConfig())
		run(t, m, []model.Region{a, b}, []step{{pos, 0, model.EventEnter, 2}})
		run(t, m, []model.Region{a}, []step{
			{pos, time.Second, model.EventExit, 2},
			{pos, 2 * time.Second, "", 0},
		})
		if s := m.State(); s.Inside == nil || s.Inside.ID != 1 {
			t.Errorf("remaining region should be adopted silently, inside = %+v", s.Inside)
		}
	})

	t.Run("After Cooldown", func(t *testing.T) {
		m := NewMachine(DefaultConfig())
		run(t, m, []model.Region{a, b}, []step{{pos, 0, model.EventEnter, 2}})
		run(t, m, []model.Region{a}, []step{
			{pos, 20 * time.Second, model.EventExit, 2},
			{pos, 21 * time.Second, model.EventEnter, 1},
		})
	})
}

func TestMachine_ApproachHysteresis(t *testing.T) {
	m := NewMachine(DefaultConfig())
	regions := []model.Region{region(1, center, 150)}

	run(t, m, regions, []step{
		{north(center, 280), 0, model.EventApproaching, 1},
		{north(center, 275), time.Second, "", 0},
		{north(center, 260), 2 * time.Second, "", 0},
	})
	if s := m.State(); s.Approaching == nil || math.Abs(s.Approaching.Distance-260) > 0.01 {
		t.Errorf("approaching not refreshed: %+v", s.Approaching)
	}
	if s := m.State(); math.Abs(s.LastReported-280) > 0.01 {
		t.Errorf("last reported = %v, want 280", s.LastReported)
	}
}

func TestMachine_ApproachRepeat(t *testing.T) {
	m := NewMachine(DefaultConfig())
	regions := []model.Region{region(1, center, 150)}

	run(t, m, regions, []step{
		{north(center, 290), 0, model.EventApproaching, 1},
		// Moved more than 50 m but the region's cooldown is still running.
		{north(center, 220), time.Second, "", 0},
		{north(center, 220), 16 * time.Second, model.EventApproaching, 1},
		// Cooled down, but not moved enough.
		{north(center, 200), 40 * time.Second, "", 0},
	})
}

func TestMachine_ApproachRegionChange(t *testing.T) {
	m := NewMachine(DefaultConfig())
	far := north(center, 1000)
	regions := []model.Region{region(1, center, 150), region(2, far, 150)}

	run(t, m, regions, []step{
		{north(center, 250), 0, model.EventApproaching, 1},
		{north(far, 250), time.Second, model.EventApproaching, 2},
		// Out of every band: cleared silently.
		{north(center, 600), 2 * time.Second, "", 0},
	})
	if s := m.State(); s.Approaching != nil {
		t.Errorf("approaching should be cleared, got %+v", s.Approaching)
	}
}

func TestMachine_NeverInsideAndApproaching(t *testing.T) {
	m := NewMachine(DefaultConfig())
	regions := []model.Region{region(1, center, 150), region(2, north(center, 520), 100)}

	run(t, m, regions, []step{
		{north(center, 250), 0, model.EventApproaching, 1},
		{north(center, 100), time.Second, model.EventEnter, 1},
	})
	s := m.State()
	if s.Inside == nil || s.Approaching != nil {
		t.Errorf("state = inside %+v approaching %+v", s.Inside, s.Approaching)
	}

	// Exit resets approach tracking as well.
	run(t, m, regions, []step{{north(center, 700), 2 * time.Second, model.EventExit, 1}})
	if s := m.State(); s.Inside != nil || s.Approaching != nil {
		t.Errorf("state after exit = %+v", s)
	}
}

func TestMachine_ApproachDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApproachEnabled = false
	m := NewMachine(cfg)
	regions := []model.Region{region(1, center, 150)}

	run(t, m, regions, []step{
		{north(center, 250), 0, "", 0},
		{north(center, 100), time.Second, model.EventEnter, 1},
	})
}

func TestMachine_EmptyCatalogAndBadInput(t *testing.T) {
	m := NewMachine(DefaultConfig())
	run(t, m, nil, []step{{center, 0, "", 0}})
	run(t, m, []model.Region{{ID: 1, Lat: math.NaN(), Lon: math.Inf(1)}}, []step{
		{center, time.Second, "", 0},
		{geo.Point{Lat: math.NaN(), Lon: 0}, 2 * time.Second, "", 0},
	})
}

func TestMachine_ResetAndMetrics(t *testing.T) {
	m := NewMachine(DefaultConfig())
	regions := []model.Region{region(1, center, 150)}
	counter := metrics.GeofenceEvents.WithLabelValues(string(model.EventEnter))
	before := testutil.ToFloat64(counter)

	run(t, m, regions, []step{{north(center, 10), 0, model.EventEnter, 1}})
	m.Reset()
	if s := m.State(); s.Inside != nil || !s.EnterCooldownUntil.IsZero() {
		t.Fatalf("state after reset = %+v", s)
	}
	// A fresh state enters again immediately.
	run(t, m, regions, []step{{north(center, 10), time.Second, model.EventEnter, 1}})

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("enter counter moved by %v, want 2", got)
	}
}

func TestMachine_StateIsCopy(t *testing.T) {
	m := NewMachine(DefaultConfig())
	regions := []model.Region{region(1, center, 150)}
	m.Step(north(center, 250), regions, t0)

	s := m.State()
	s.Approaching.Region.Name = "changed"
	s.ApproachCooldowns[1] = time.Time{}

	again := m.State()
	if again.Approaching.Region.Name == "changed" || again.ApproachCooldowns[1].IsZero() {
		t.Error("State() leaked internal state")
	}
}
