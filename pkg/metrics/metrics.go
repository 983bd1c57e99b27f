// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GeofenceEvents counts emitted transitions by type (enter, exit, approaching).
	GeofenceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourguide_geofence_events_total",
		Help: "Number of geofence transition events emitted",
	}, []string{"type"})

	// LocationSamples counts raw samples by filter outcome.
	LocationSamples = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourguide_location_samples_total",
		Help: "Location samples by filter result (accepted, inaccurate, stale, invalid)",
	}, []string{"result"})

	LocationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tourguide_location_errors_total",
		Help: "Errors reported by the location source",
	})
)

var (
	CatalogRegions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tourguide_catalog_regions",
		Help: "Number of valid regions in the active catalog",
	})

	CatalogRejected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tourguide_catalog_rejected",
		Help: "Number of regions rejected while building the active catalog",
	})

	CatalogFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourguide_catalog_fetch_total",
		Help: "Catalog fetch attempts by result (ok, cached, error)",
	}, []string{"result"})
)

var PlaybackQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "tourguide_playback_queue_depth",
	Help: "Number of narration cues waiting to be played",
})

// Filter outcomes used as LocationSamples labels.
const (
	SampleAccepted   = "accepted"
	SampleInaccurate = "inaccurate"
	SampleStale      = "stale"
	SampleInvalid    = "invalid"
)

// Catalog fetch outcomes used as CatalogFetches labels.
const (
	FetchOK     = "ok"
	FetchCached = "cached"
	FetchError  = "error"
)
