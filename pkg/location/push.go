package location

import (
	"sort"
	"sync"
	"time"
)

// PushSource is fed from outside (HTTP, websocket) and fans samples out to
// its watchers on the pushing goroutine.
type PushSource struct {
	mu       sync.Mutex
	watchers map[uint64]*pushWatch
	next     uint64
	now      func() time.Time
}

type pushWatch struct {
	onSample func(Sample)
	onError  func(error)
	timeout  time.Duration
	timer    *time.Timer
}

// NewPushSource creates an empty push source.
func NewPushSource() *PushSource {
	return &PushSource{watchers: make(map[uint64]*pushWatch), now: time.Now}
}

// Watch registers callbacks. With a Timeout, ErrTimeout is reported each
// time the source stays silent that long.
func (p *PushSource) Watch(opts Options, onSample func(Sample), onError func(error)) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.next++
	id := p.next
	w := &pushWatch{onSample: onSample, onError: onError, timeout: opts.Timeout}
	if w.timeout > 0 {
		w.timer = time.AfterFunc(w.timeout, func() { p.timedOut(id) })
	}
	p.watchers[id] = w

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if w.timer != nil {
				w.timer.Stop()
			}
			delete(p.watchers, id)
		})
	}), nil
}

// Push delivers a sample to every watcher. A zero timestamp is set to now.
func (p *PushSource) Push(s Sample) {
	if s.Timestamp.IsZero() {
		s.Timestamp = p.now()
	}
	for _, w := range p.snapshot(true) {
		w.onSample(s)
	}
}

// Fail reports a source error to every watcher.
func (p *PushSource) Fail(err error) {
	for _, w := range p.snapshot(false) {
		if w.onError != nil {
			w.onError(err)
		}
	}
}

// Watchers returns the number of active watches.
func (p *PushSource) Watchers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watchers)
}

func (p *PushSource) snapshot(resetTimers bool) []*pushWatch {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]uint64, 0, len(p.watchers))
	for id := range p.watchers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*pushWatch, 0, len(ids))
	for _, id := range ids {
		w := p.watchers[id]
		if resetTimers && w.timer != nil {
			w.timer.Reset(w.timeout)
		}
		out = append(out, w)
	}
	return out
}

func (p *PushSource) timedOut(id uint64) {
	p.mu.Lock()
	w, ok := p.watchers[id]
	if ok {
		w.timer.Reset(w.timeout)
	}
	p.mu.Unlock()
	if ok && w.onError != nil {
		w.onError(ErrTimeout)
	}
}
