// Package location delivers filtered position samples from a push-based
// location source.
package location

import (
	"errors"
	"time"

	"tourguide/pkg/geo"
)

var (
	// ErrUnavailable is returned when no location capability exists at all.
	ErrUnavailable = errors.New("location source unavailable")
	// ErrTimeout is reported (non-fatally) when no sample arrived within Options.Timeout.
	ErrTimeout = errors.New("location timeout")
)

// Sample is a single position report.
type Sample struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	// Accuracy radius in meters. Zero means the source did not report one.
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Point returns the sample coordinate.
func (s *Sample) Point() geo.Point {
	return geo.Point{Lat: s.Lat, Lon: s.Lon}
}

// Options are passed through to the source.
type Options struct {
	HighAccuracy bool
	// Timeout is how long the source may stay silent before reporting ErrTimeout. Zero disables.
	Timeout time.Duration
	// MaximumAge is the oldest cached fix the source may hand out. Zero means no limit.
	MaximumAge time.Duration
}

// Subscription is a running watch. Stop is idempotent and no callbacks
// start after it returns.
type Subscription interface {
	Stop()
}

// Source is a continuous, push-based position provider.
type Source interface {
	Watch(opts Options, onSample func(Sample), onError func(error)) (Subscription, error)
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Stop() { f() }

// unavailable is a Source with no capability behind it.
type unavailable struct{}

// Unavailable returns a source whose Watch always fails with ErrUnavailable.
func Unavailable() Source { return unavailable{} }

func (unavailable) Watch(Options, func(Sample), func(error)) (Subscription, error) {
	return nil, ErrUnavailable
}
