// Package mockwalk simulates a pedestrian walking a waypoint route, with GPS
// jitter and occasional poor fixes. It implements location.Source for demos
// and manual testing.
package mockwalk

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"tourguide/pkg/geo"
	"tourguide/pkg/location"
)

// badFixAccuracy is reported for simulated poor fixes; above any sane accuracy_max.
const badFixAccuracy = 5000.0

// ErrNoRoute is returned by Watch when fewer than one waypoint is configured.
var ErrNoRoute = errors.New("mock walk needs at least one waypoint")

// Config holds the walk parameters.
type Config struct {
	Waypoints []geo.Point
	Speed     float64 // m/s
	Interval  time.Duration
	Jitter    float64 // max random offset in meters
	Accuracy  float64 // reported accuracy for good fixes
	BadFixPct float64 // 0..1
	Loop      bool
	Seed      int64 // 0 picks a time-based seed
}

// Walker advances along the route one interval at a time. Not safe for concurrent use.
type Walker struct {
	cfg  Config
	rng  *rand.Rand
	pos  geo.Point
	leg  int // index of the waypoint being walked towards
	done bool
	now  func() time.Time
}

// NewWalker starts at the first waypoint.
func NewWalker(cfg Config) *Walker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.4
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	w := &Walker{cfg: cfg, rng: rand.New(rand.NewSource(seed)), leg: 1, now: time.Now}
	if len(cfg.Waypoints) > 0 {
		w.pos = cfg.Waypoints[0]
	}
	if len(cfg.Waypoints) < 2 {
		w.done = true
	}
	return w
}

// Position returns the true (unjittered) position.
func (w *Walker) Position() geo.Point { return w.pos }

// Done reports whether a non-looping route has been completed.
func (w *Walker) Done() bool { return w.done && !w.cfg.Loop }

// Next moves one interval along the route and returns the reported sample.
func (w *Walker) Next() location.Sample {
	if !w.done {
		w.advance(w.cfg.Speed * w.cfg.Interval.Seconds())
	}
	return w.observe()
}

func (w *Walker) advance(dist float64) {
	for dist > 0 && !w.done {
		target := w.cfg.Waypoints[w.leg]
		remaining := geo.Distance(w.pos, target)
		if dist < remaining {
			w.pos = geo.DestinationPoint(w.pos, dist, geo.Bearing(w.pos, target))
			return
		}
		dist -= remaining
		w.pos = target
		w.leg++
		if w.leg >= len(w.cfg.Waypoints) {
			if !w.cfg.Loop {
				w.done = true
				return
			}
			w.leg = 0
		}
	}
}

func (w *Walker) observe() location.Sample {
	p := w.pos
	if w.cfg.Jitter > 0 {
		p = geo.DestinationPoint(p, w.rng.Float64()*w.cfg.Jitter, w.rng.Float64()*360)
	}
	acc := w.cfg.Accuracy
	if w.cfg.BadFixPct > 0 && w.rng.Float64() < w.cfg.BadFixPct {
		acc = badFixAccuracy
	}
	return location.Sample{Lat: p.Lat, Lon: p.Lon, Accuracy: acc, Timestamp: w.now()}
}

// Source runs a Walker per watch on its own ticker.
type Source struct {
	cfg Config
}

// New creates a mock walk source.
func New(cfg Config) *Source {
	return &Source{cfg: cfg}
}

// Watch starts walking. Samples are delivered from a background goroutine
// every Interval until the subscription is stopped or the route ends.
func (s *Source) Watch(_ location.Options, onSample func(location.Sample), _ func(error)) (location.Subscription, error) {
	if len(s.cfg.Waypoints) == 0 {
		return nil, ErrNoRoute
	}
	w := NewWalker(s.cfg)

	stopCh := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(w.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				sample := w.Next()
				select {
				case <-stopCh:
					return
				default:
				}
				onSample(sample)
				if w.Done() {
					return
				}
			}
		}
	}()

	// Stop does not wait for the loop: it may be called from onSample.
	return location.SubscriptionFunc(func() {
		once.Do(func() { close(stopCh) })
	}), nil
}
