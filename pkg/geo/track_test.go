package geo

import (
	"math"
	"testing"
)

func TestTrackBuffer(t *testing.T) {
	tests := []struct {
		name       string
		windowSize int
		points     []Point
		wantOK     []bool
		wantTracks []float64 // Expected course after EACH push (ignored when !ok)
	}{
		{
			name:       "Standard 3-Sample Window",
			windowSize: 3,
			points: []Point{
				{Lat: 10, Lon: 20},
				{Lat: 11, Lon: 20},
				{Lat: 11, Lon: 21},
				{Lat: 10, Lon: 21},
			},
			wantOK:     []bool{false, true, true, true},
			wantTracks: []float64{0, 0, 45, 135},
		},
		{
			name:       "Stationary Jitter",
			windowSize: 4,
			points: []Point{
				{Lat: 47.4979, Lon: 19.0402},
				{Lat: 47.49791, Lon: 19.04021},
				{Lat: 47.49790, Lon: 19.04019},
			},
			wantOK:     []bool{false, false, false},
			wantTracks: []float64{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewTrackBuffer(tt.windowSize)
			for i, p := range tt.points {
				got, ok := b.Push(p)
				if ok != tt.wantOK[i] {
					t.Fatalf("Step %d: ok = %v, want %v", i, ok, tt.wantOK[i])
				}
				if ok && math.Abs(got-tt.wantTracks[i]) > 1.0 {
					t.Errorf("Step %d: Push() = %v, want approx %v", i, got, tt.wantTracks[i])
				}
			}
		})
	}
}

func TestTrackBuffer_Reset(t *testing.T) {
	b := NewTrackBuffer(5)
	b.Push(Point{10, 20})
	b.Push(Point{11, 20})

	if b.Len() != 2 {
		t.Errorf("Expected 2 samples, got %d", b.Len())
	}

	b.Reset()
	if b.Len() != 0 {
		t.Errorf("Expected 0 samples after reset, got %d", b.Len())
	}
}

func TestTrackBuffer_MinimumWindow(t *testing.T) {
	b := NewTrackBuffer(0)
	b.Push(Point{0, 0})
	b.Push(Point{1, 0})
	b.Push(Point{2, 0})
	if b.Len() != 2 {
		t.Errorf("window should be clamped to 2, got %d samples", b.Len())
	}
}
