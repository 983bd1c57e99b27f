package geofence

import (
	"fmt"
	"log/slog"
	"sync"

	"tourguide/pkg/model"
	"tourguide/pkg/report"
)

// Listener receives emitted events. It runs on the publishing goroutine
// and should hand long work off.
type Listener func(model.Event)

// Bus fans events out to listeners in subscription order.
type Bus struct {
	mu        sync.Mutex
	next      uint64
	listeners []subscriber
}

type subscriber struct {
	id uint64
	fn Listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers l and returns a function removing it again.
// The returned function may be called any number of times.
func (b *Bus) Subscribe(l Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	b.listeners = append(b.listeners, subscriber{id: id, fn: l})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.listeners {
		if s.id == id {
			// Copy so a snapshot taken by a running Publish stays intact.
			next := make([]subscriber, 0, len(b.listeners)-1)
			next = append(next, b.listeners[:i]...)
			b.listeners = append(next, b.listeners[i+1:]...)
			return
		}
	}
}

// Len returns the number of listeners.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Publish delivers ev to the listeners registered when the call started.
// A panicking listener is logged and skipped.
func (b *Bus) Publish(ev model.Event) {
	b.PublishWhile(ev, nil)
}

// PublishWhile is Publish, but checks proceed before each listener and
// abandons the round once it returns false. A nil proceed always continues.
// It returns the number of listeners called.
func (b *Bus) PublishWhile(ev model.Event, proceed func() bool) int {
	b.mu.Lock()
	snapshot := b.listeners
	b.mu.Unlock()

	n := 0
	for _, s := range snapshot {
		if proceed != nil && !proceed() {
			break
		}
		b.deliver(s, ev)
		n++
	}
	return n
}

func (b *Bus) deliver(s subscriber, ev model.Event) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("geofence listener %d panicked: %v", s.id, r)
			slog.Error("Listener panic", "listener", s.id, "event", ev.Type, "error", err)
			report.ReportError(err)
		}
	}()
	s.fn(ev)
}
