package geo

import (
	"github.com/paulmach/orb"
)

// defaultCircleSegments is the number of vertices used to approximate a circle.
const defaultCircleSegments = 48

// ToOrb converts a Point to an orb.Point (lon, lat order).
func ToOrb(p Point) orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// FromOrb converts an orb.Point (lon, lat order) to a Point.
func FromOrb(p orb.Point) Point {
	return Point{Lat: p.Lat(), Lon: p.Lon()}
}

// Circle approximates a circle of radiusMeters around center as a closed polygon.
// segments below 8 fall back to the default resolution.
func Circle(center Point, radiusMeters float64, segments int) orb.Polygon {
	if segments < 8 {
		segments = defaultCircleSegments
	}

	ring := make(orb.Ring, 0, segments+1)
	step := 360.0 / float64(segments)
	for i := 0; i < segments; i++ {
		ring = append(ring, ToOrb(DestinationPoint(center, radiusMeters, float64(i)*step)))
	}
	// GeoJSON rings must be closed.
	ring = append(ring, ring[0])

	return orb.Polygon{ring}
}
