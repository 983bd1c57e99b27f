package store

import (
	"context"
	"log/slog"
	"sync"

	"tourguide/pkg/model"
)

// EventRecorder persists events off the caller's goroutine. Record never
// blocks; when the buffer is full the event is dropped and logged.
type EventRecorder struct {
	es        EventStore
	sessionID func() string
	ch        chan model.Event
	wg        sync.WaitGroup
}

// NewEventRecorder creates a recorder. sessionID is read at record time.
func NewEventRecorder(es EventStore, sessionID func() string, buffer int) *EventRecorder {
	if buffer <= 0 {
		buffer = 64
	}
	return &EventRecorder{es: es, sessionID: sessionID, ch: make(chan model.Event, buffer)}
}

// Record queues ev. It matches the geofence listener signature.
func (r *EventRecorder) Record(ev model.Event) {
	select {
	case r.ch <- ev:
	default:
		slog.Warn("Event history buffer full, dropping event", "type", ev.Type, "region", ev.Region.ID)
	}
}

// Start writes queued events on a goroutine until ctx ends, then drains
// what is left.
func (r *EventRecorder) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
}

func (r *EventRecorder) run(ctx context.Context) {
	for {
		select {
		case ev := <-r.ch:
			r.save(ctx, &ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-r.ch:
					r.save(context.Background(), &ev)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until the writer started by Start has returned.
func (r *EventRecorder) Wait() { r.wg.Wait() }

func (r *EventRecorder) save(ctx context.Context, ev *model.Event) {
	if err := r.es.SaveEvent(ctx, r.sessionID(), ev); err != nil {
		slog.Error("Failed to record event", "type", ev.Type, "region", ev.Region.ID, "error", err)
	}
}
