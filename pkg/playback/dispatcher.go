package playback

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tourguide/pkg/model"
)

// Dispatcher turns enter events into queued cues.
type Dispatcher struct {
	queue    *Manager
	language string
	now      func() time.Time
}

// NewDispatcher creates a dispatcher speaking language (e.g. "hu-HU") for
// text cues.
func NewDispatcher(queue *Manager, language string) *Dispatcher {
	return &Dispatcher{queue: queue, language: language, now: time.Now}
}

// CueFor builds the cue for a region, preferring recorded audio over text.
// ok is false when the region has nothing to play.
func (d *Dispatcher) CueFor(r *model.Region) (cue *Cue, ok bool) {
	c := &Cue{
		ID:         uuid.New().String(),
		RegionID:   r.ID,
		RegionName: r.DisplayName(),
		AudioURL:   r.Payload.AudioURL,
		TTSText:    r.Payload.TTSText,
		Language:   d.language,
		CreatedAt:  d.now(),
	}
	switch {
	case c.AudioURL != "":
		c.Kind = KindAudio
	case c.TTSText != "":
		c.Kind = KindTTS
	default:
		return nil, false
	}
	return c, true
}

// HandleEvent is a geofence listener. Only enter events produce cues.
func (d *Dispatcher) HandleEvent(ev model.Event) {
	if ev.Type != model.EventEnter {
		return
	}
	c, ok := d.CueFor(&ev.Region)
	if !ok {
		slog.Debug("Playback: region has no audio or text", "region", ev.Region.ID)
		return
	}
	if !d.queue.EnqueueIfAbsent(c, false) {
		slog.Debug("Playback: cue not queued", "region", ev.Region.ID)
	}
}

// Replay queues the region's narration at the front, for a manual "play
// again" request.
func (d *Dispatcher) Replay(r *model.Region) (*Cue, bool) {
	c, ok := d.CueFor(r)
	if !ok {
		return nil, false
	}
	c.Manual = true
	return d.queue.PromoteOrInsert(c), true
}
