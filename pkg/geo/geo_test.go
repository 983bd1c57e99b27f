package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		p1   Point
		p2   Point
		want float64
	}{
		{
			name: "Same Point",
			p1:   Point{Lat: 47.497, Lon: 19.040},
			p2:   Point{Lat: 47.497, Lon: 19.040},
			want: 0,
		},
		{
			name: "London to Paris",
			p1:   Point{Lat: 51.5074, Lon: -0.1278},
			p2:   Point{Lat: 48.8566, Lon: 2.3522},
			want: 343500, // Approx 344km
		},
		{
			name: "Equator 1 degree",
			p1:   Point{Lat: 0, Lon: 0},
			p2:   Point{Lat: 0, Lon: 1},
			want: 111195, // R * pi / 180
		},
		{
			name: "Across Antimeridian",
			p1:   Point{Lat: 0, Lon: 179.5},
			p2:   Point{Lat: 0, Lon: -179.5},
			want: 111195,
		},
		{
			name: "Pole to Pole",
			p1:   Point{Lat: 90, Lon: 0},
			p2:   Point{Lat: -90, Lon: 0},
			want: math.Pi * EarthRadius,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.p1, tt.p2)
			if tt.want == 0 {
				if got != 0 {
					t.Errorf("Distance() = %v, want 0", got)
				}
				return
			}
			margin := tt.want * 0.005
			if math.Abs(got-tt.want) > margin {
				t.Errorf("Distance() = %v, want %v (+/- %v)", got, tt.want, margin)
			}
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	points := []Point{
		{Lat: 47.497, Lon: 19.040},
		{Lat: 47.4979, Lon: 19.0402},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 89.9999, Lon: 45},
		{Lat: -89.9999, Lon: -135},
		{Lat: 0, Lon: 180},
		{Lat: 0, Lon: -180},
	}

	for _, a := range points {
		for _, b := range points {
			ab, ba := Distance(a, b), Distance(b, a)
			if ab != ba {
				t.Errorf("Distance(%v,%v)=%v but reverse=%v", a, b, ab, ba)
			}
			if math.IsNaN(ab) || ab < 0 {
				t.Errorf("Distance(%v,%v)=%v, want finite non-negative", a, b, ab)
			}
		}
		if d := Distance(a, a); d != 0 {
			t.Errorf("Distance(%v,%v)=%v, want 0", a, a, d)
		}
	}
}

func TestDistance_SmallOffsets(t *testing.T) {
	// One meter north must still resolve at sub-meter precision.
	origin := Point{Lat: 47.497, Lon: 19.040}
	for _, m := range []float64{0.5, 1, 10, 80, 150, 500} {
		p := DestinationPoint(origin, m, 0)
		got := Distance(origin, p)
		if math.Abs(got-m) > 0.01 {
			t.Errorf("offset %vm: Distance() = %v", m, got)
		}
	}
}

func TestDestinationPoint(t *testing.T) {
	start := Point{Lat: 0, Lon: 0}
	got := DestinationPoint(start, 111195, 90)
	if math.Abs(got.Lat) > 0.001 || math.Abs(got.Lon-1) > 0.001 {
		t.Errorf("DestinationPoint() = %+v, want ~{0 1}", got)
	}

	wrapped := DestinationPoint(Point{Lat: 0, Lon: 179.9}, 50000, 90)
	if wrapped.Lon > 180 || wrapped.Lon < -180 {
		t.Errorf("longitude not normalized: %v", wrapped.Lon)
	}
}

func TestBearing(t *testing.T) {
	tests := []struct {
		name string
		p1   Point
		p2   Point
		want float64
	}{
		{"North", Point{0, 0}, Point{1, 0}, 0},
		{"East", Point{0, 0}, Point{0, 1}, 90},
		{"South", Point{1, 0}, Point{0, 0}, 180},
		{"West", Point{0, 1}, Point{0, 0}, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bearing(tt.p1, tt.p2); math.Abs(got-tt.want) > 0.01 {
				t.Errorf("Bearing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{190, -170},
		{-190, 170},
		{540, 180},
		{180, 180},
	}
	for _, tt := range tests {
		if got := NormalizeAngle(tt.in); got != tt.want {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"Budapest", Point{47.497, 19.040}, true},
		{"Near North Pole", Point{89.9999, 0}, true},
		{"Near Antimeridian", Point{0, -179.9999}, true},
		{"Latitude Overflow", Point{90.5, 0}, false},
		{"Longitude Overflow", Point{0, 181}, false},
		{"NaN", Point{math.NaN(), 0}, false},
		{"Inf", Point{0, math.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.p); got != tt.want {
				t.Errorf("Valid(%+v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestCircle(t *testing.T) {
	center := Point{Lat: 47.497, Lon: 19.040}
	poly := Circle(center, 150, 0)
	if len(poly) != 1 {
		t.Fatalf("expected a single ring, got %d", len(poly))
	}
	ring := poly[0]
	if len(ring) != defaultCircleSegments+1 {
		t.Fatalf("ring has %d vertices, want %d", len(ring), defaultCircleSegments+1)
	}
	if !ring.Closed() {
		t.Error("ring is not closed")
	}
	for i, v := range ring {
		if d := Distance(center, FromOrb(v)); math.Abs(d-150) > 0.01 {
			t.Errorf("vertex %d is %vm from center, want 150", i, d)
		}
	}
}
