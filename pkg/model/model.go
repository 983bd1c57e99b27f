// Package model holds the data types shared between the catalog, the geofence core and its consumers.
package model

import (
	"fmt"

	"tourguide/pkg/geo"
)

// DefaultRadius is the region radius in meters used when a region does not carry its own.
const DefaultRadius = 150.0

// Region represents a named circular point of interest.
type Region struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// Coordinates
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`

	// Radius in meters. Zero means "not set" and the evaluator applies its default.
	Radius float64 `json:"radius,omitempty" yaml:"radius,omitempty"`

	Payload Payload `json:"payload" yaml:"payload"`
}

// Payload is opaque to the geofence core and consumed by playback and UI.
type Payload struct {
	AudioURL string `json:"audio_url,omitempty" yaml:"audio_url,omitempty"`
	TTSText  string `json:"tts_text,omitempty" yaml:"tts_text,omitempty"`
	Slug     string `json:"slug,omitempty" yaml:"slug,omitempty"`
}

// Center returns the region center as a geo.Point.
func (r *Region) Center() geo.Point {
	return geo.Point{Lat: r.Lat, Lon: r.Lon}
}

// RadiusOr returns the region radius, or def when the region has none.
func (r *Region) RadiusOr(def float64) float64 {
	if r.Radius > 0 {
		return r.Radius
	}
	return def
}

// DisplayName returns the best available name for the region.
func (r *Region) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.Payload.Slug != "" {
		return r.Payload.Slug
	}
	return fmt.Sprintf("region-%d", r.ID)
}
