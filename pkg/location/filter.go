package location

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"tourguide/pkg/geo"
	"tourguide/pkg/metrics"
)

// Config configures a Filter.
type Config struct {
	HighAccuracy bool
	// AccuracyMax drops samples reporting a worse accuracy. Zero disables the check.
	AccuracyMax float64
	// MaximumAge drops samples older than this. Zero disables the check.
	MaximumAge time.Duration
	Timeout    time.Duration
}

// Verdict is the filter's decision for one sample.
type Verdict string

const (
	Accepted   Verdict = metrics.SampleAccepted
	Inaccurate Verdict = metrics.SampleInaccurate
	Stale      Verdict = metrics.SampleStale
	Invalid    Verdict = metrics.SampleInvalid
)

// Filter holds at most one source subscription and republishes the samples
// that pass the accuracy, age and validity checks.
type Filter struct {
	src Source
	cfg Config
	now func() time.Time

	mu  sync.Mutex // guards sub; never held while calling into the source
	sub Subscription
	gen atomic.Uint64 // bumped on every Start/Stop; callbacks from older generations are dropped
}

// NewFilter creates a filter over src. A nil src behaves as Unavailable.
func NewFilter(src Source, cfg Config) *Filter {
	if src == nil {
		src = Unavailable()
	}
	return &Filter{src: src, cfg: cfg, now: time.Now}
}

// Check classifies a sample without side effects.
func (f *Filter) Check(s Sample) Verdict {
	if !geo.Valid(s.Point()) {
		return Invalid
	}
	if math.IsNaN(s.Accuracy) || s.Accuracy < 0 {
		return Invalid
	}
	if f.cfg.AccuracyMax > 0 && s.Accuracy > f.cfg.AccuracyMax {
		return Inaccurate
	}
	if f.cfg.MaximumAge > 0 && !s.Timestamp.IsZero() && f.now().Sub(s.Timestamp) > f.cfg.MaximumAge {
		return Stale
	}
	return Accepted
}

// Start subscribes to the source, replacing any running subscription.
// onAccept receives accepted samples; onError receives source errors, which
// never end the subscription.
func (f *Filter) Start(onAccept func(Sample), onError func(error)) error {
	f.mu.Lock()
	old := f.sub
	f.sub = nil
	gen := f.gen.Add(1)
	f.mu.Unlock()
	if old != nil {
		old.Stop()
	}

	sub, err := f.src.Watch(Options{
		HighAccuracy: f.cfg.HighAccuracy,
		Timeout:      f.cfg.Timeout,
		MaximumAge:   f.cfg.MaximumAge,
	}, func(s Sample) {
		if f.gen.Load() != gen {
			return
		}
		v := f.Check(s)
		metrics.LocationSamples.WithLabelValues(string(v)).Inc()
		if v != Accepted {
			slog.Debug("Location sample dropped", "verdict", v, "accuracy", s.Accuracy)
			return
		}
		onAccept(s)
	}, func(err error) {
		if f.gen.Load() != gen {
			return
		}
		metrics.LocationErrors.Inc()
		if onError != nil {
			onError(err)
		}
	})
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.gen.Load() != gen {
		// Stopped or restarted while Watch ran.
		f.mu.Unlock()
		sub.Stop()
		return nil
	}
	f.sub = sub
	f.mu.Unlock()
	return nil
}

// Stop releases the subscription. Safe to call repeatedly and from a callback.
func (f *Filter) Stop() {
	f.mu.Lock()
	f.gen.Add(1)
	sub := f.sub
	f.sub = nil
	f.mu.Unlock()
	if sub != nil {
		sub.Stop()
	}
}

// Active reports whether a subscription is held.
func (f *Filter) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sub != nil
}
