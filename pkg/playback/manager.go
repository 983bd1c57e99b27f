// Package playback queues narration cues for regions the observer enters.
// Players pull cues over the API and play the audio, falling back to speech.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"tourguide/pkg/metrics"
)

// DefaultQueueMax bounds the queue for non-priority cues.
const DefaultQueueMax = 5

// Kind tells the player what to try first.
type Kind string

const (
	KindAudio Kind = "audio"
	KindTTS   Kind = "tts"
)

// Cue is one narration request.
type Cue struct {
	ID         string    `json:"id"`
	RegionID   int64     `json:"region_id"`
	RegionName string    `json:"region_name"`
	Kind       Kind      `json:"kind"`
	AudioURL   string    `json:"audio_url,omitempty"`
	TTSText    string    `json:"tts_text,omitempty"`
	Language   string    `json:"language"`
	Manual     bool      `json:"manual"`
	CreatedAt  time.Time `json:"created_at"`
}

// Manager manages the playback queue.
type Manager struct {
	mu    sync.RWMutex
	queue []*Cue
	max   int
}

// NewManager creates a queue holding at most limit non-priority cues.
func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultQueueMax
	}
	return &Manager{
		queue: make([]*Cue, 0),
		max:   limit,
	}
}

// Enqueue adds a cue. Priority cues go to the front and are never dropped;
// other cues are dropped when the queue is full. It reports whether the cue
// was queued.
func (m *Manager) Enqueue(c *Cue, priority bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enqueueLocked(c, priority)
}

// EnqueueIfAbsent is Enqueue, unless a cue for the same region is already
// queued.
func (m *Manager) EnqueueIfAbsent(c *Cue, priority bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexLocked(c.RegionID) >= 0 {
		return false
	}
	return m.enqueueLocked(c, priority)
}

// PromoteOrInsert moves the queued cue for c's region to the front, or puts
// c there if none is queued. It returns the cue now at the head.
func (m *Manager) PromoteOrInsert(c *Cue) *Cue {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(c.RegionID); i >= 0 {
		m.promoteLocked(i)
	} else {
		m.enqueueLocked(c, true)
	}
	return m.queue[0]
}

func (m *Manager) enqueueLocked(c *Cue, priority bool) bool {
	if len(m.queue) >= m.max && !priority {
		slog.Info("PlaybackQueue: Queue full, dropping cue", "region", c.RegionName)
		return false
	}

	if priority {
		m.queue = append([]*Cue{c}, m.queue...)
	} else {
		m.queue = append(m.queue, c)
	}
	metrics.PlaybackQueueDepth.Set(float64(len(m.queue)))
	slog.Debug("PlaybackQueue: Enqueued cue", "region", c.RegionName, "kind", c.Kind, "priority", priority, "queue_len", len(m.queue))
	return true
}

// Pop retrieves and removes the next cue from the queue.
func (m *Manager) Pop() *Cue {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil
	}
	c := m.queue[0]
	m.queue = m.queue[1:]
	metrics.PlaybackQueueDepth.Set(float64(len(m.queue)))
	return c
}

// Peek returns the head of the queue without removing it.
func (m *Manager) Peek() *Cue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.queue) == 0 {
		return nil
	}
	return m.queue[0]
}

// Count returns the number of queued cues.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queue)
}

// Clear empties the queue.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = make([]*Cue, 0)
	metrics.PlaybackQueueDepth.Set(0)
}

// Promote moves the cue for regionID to the front of the queue.
// Returns true if found and promoted.
func (m *Manager) Promote(regionID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(regionID)
	if i < 0 {
		return false
	}
	m.promoteLocked(i)
	return true
}

func (m *Manager) promoteLocked(i int) {
	c := m.queue[i]
	m.queue = append(m.queue[:i], m.queue[i+1:]...)
	m.queue = append([]*Cue{c}, m.queue...)
}

// HasRegion checks if a cue for regionID is queued.
func (m *Manager) HasRegion(regionID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexLocked(regionID) >= 0
}

func (m *Manager) indexLocked(regionID int64) int {
	for i, c := range m.queue {
		if c.RegionID == regionID {
			return i
		}
	}
	return -1
}

// List returns a copy of the queue, head first.
func (m *Manager) List() []Cue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Cue, len(m.queue))
	for i, c := range m.queue {
		out[i] = *c
	}
	return out
}
