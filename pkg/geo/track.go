package geo

import "sync"

// minTrackMeters is the displacement needed across the window before a course is reported.
// Standing still with GPS jitter would otherwise produce a random heading.
const minTrackMeters = 5.0

// TrackBuffer maintains a rolling window of coordinates and derives the course over ground.
type TrackBuffer struct {
	mu         sync.RWMutex
	samples    []Point
	windowSize int
}

// NewTrackBuffer creates a new buffer with the specified sample window size.
func NewTrackBuffer(windowSize int) *TrackBuffer {
	if windowSize < 2 {
		windowSize = 2
	}
	return &TrackBuffer{
		windowSize: windowSize,
	}
}

// Push adds a new point to the buffer and returns the course (bearing) from the oldest
// to the newest point in the window. ok is false while the window holds fewer than
// two points or the observer has not moved far enough for a meaningful course.
func (b *TrackBuffer) Push(p Point) (course float64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = append(b.samples, p)
	if len(b.samples) > b.windowSize {
		b.samples = b.samples[1:]
	}

	if len(b.samples) < 2 {
		return 0, false
	}

	first, last := b.samples[0], b.samples[len(b.samples)-1]
	if Distance(first, last) < minTrackMeters {
		return 0, false
	}
	return Bearing(first, last), true
}

// Len returns the number of points currently in the window.
func (b *TrackBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// Reset clears the buffer history.
func (b *TrackBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = nil
}
