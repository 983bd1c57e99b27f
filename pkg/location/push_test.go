package location

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPushSource_FanOutInOrder(t *testing.T) {
	src := NewPushSource()
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		if _, err := src.Watch(Options{}, func(Sample) { order = append(order, i) }, nil); err != nil {
			t.Fatal(err)
		}
	}
	src.Push(Sample{Lat: 1, Lon: 1})
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("delivery order = %v", order)
	}
}

func TestPushSource_KeepsTimestamp(t *testing.T) {
	src := NewPushSource()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var got time.Time
	_, _ = src.Watch(Options{}, func(s Sample) { got = s.Timestamp }, nil)
	src.Push(Sample{Lat: 1, Lon: 1, Timestamp: ts})
	if !got.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", got, ts)
	}
}

func TestPushSource_Timeout(t *testing.T) {
	src := NewPushSource()

	var mu sync.Mutex
	var errs []error
	sub, _ := src.Watch(Options{Timeout: 20 * time.Millisecond}, func(Sample) {}, func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	})

	time.Sleep(70 * time.Millisecond)
	sub.Stop()

	mu.Lock()
	n := len(errs)
	for _, err := range errs {
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("unexpected error %v", err)
		}
	}
	mu.Unlock()
	if n < 1 {
		t.Fatal("expected at least one timeout")
	}

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(errs) != n {
		t.Errorf("timeouts reported after Stop: %d -> %d", n, len(errs))
	}
}

func TestPushSource_SampleResetsTimeout(t *testing.T) {
	src := NewPushSource()

	var mu sync.Mutex
	var timeouts int
	sub, _ := src.Watch(Options{Timeout: 60 * time.Millisecond}, func(Sample) {}, func(error) {
		mu.Lock()
		timeouts++
		mu.Unlock()
	})
	defer sub.Stop()

	for i := 0; i < 5; i++ {
		time.Sleep(15 * time.Millisecond)
		src.Push(Sample{Lat: 1, Lon: 1})
	}
	mu.Lock()
	defer mu.Unlock()
	if timeouts != 0 {
		t.Errorf("got %d timeouts while samples kept arriving", timeouts)
	}
}

func TestPushSource_StopIdempotent(t *testing.T) {
	src := NewPushSource()
	sub, _ := src.Watch(Options{}, func(Sample) {}, nil)
	sub.Stop()
	sub.Stop()
	if src.Watchers() != 0 {
		t.Errorf("watchers = %d", src.Watchers())
	}
	src.Fail(errors.New("nobody listening"))
}
