// Package geofence turns positions into enter, exit and approaching
// transitions against a list of circular regions.
package geofence

import (
	"math"

	"tourguide/pkg/geo"
	"tourguide/pkg/logging"
	"tourguide/pkg/model"
)

// Params controls a single evaluation.
type Params struct {
	RadiusDefault    float64 // applied to regions without a radius
	ApproachDistance float64 // outer edge of the approach band, 0 disables
}

// Match is a region together with the observer's distance to its center.
type Match struct {
	Region   model.Region `json:"region"`
	Distance float64      `json:"distance"`
}

// Outcome is the result of one evaluation. Either field may be nil.
type Outcome struct {
	Contained   *Match
	Approaching *Match
}

// Evaluate finds the nearest region containing pos and, independently, the
// nearest region whose approach band holds pos. Equal distances keep the
// region listed first. Regions with unusable geometry are skipped.
func Evaluate(pos geo.Point, regions []model.Region, p Params) Outcome {
	var out Outcome
	if !geo.Valid(pos) {
		return out
	}

	for i := range regions {
		r := &regions[i]
		radius := r.RadiusOr(p.RadiusDefault)
		if math.IsNaN(radius) || math.IsInf(radius, 0) {
			continue
		}
		d := geo.Distance(pos, r.Center())
		if math.IsNaN(d) {
			continue
		}
		logging.TraceDefault("Geofence: region distance", "region", r.ID, "distance_m", d, "radius_m", radius)

		if d <= radius {
			if out.Contained == nil || d < out.Contained.Distance {
				out.Contained = &Match{Region: *r, Distance: d}
			}
			continue
		}
		if d <= p.ApproachDistance {
			if out.Approaching == nil || d < out.Approaching.Distance {
				out.Approaching = &Match{Region: *r, Distance: d}
			}
		}
	}
	return out
}
