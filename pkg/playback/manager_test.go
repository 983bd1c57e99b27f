package playback

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tourguide/pkg/metrics"
)

func TestManager_Enqueue(t *testing.T) {
	m := NewManager(5)

	m.Enqueue(&Cue{ID: "1", RegionID: 1}, false)
	if m.Count() != 1 {
		t.Errorf("expected count 1, got %d", m.Count())
	}

	m.Enqueue(&Cue{ID: "2", RegionID: 2}, false)
	if m.Peek().ID != "1" {
		t.Errorf("expected 1 at head")
	}

	// Priority
	m.Enqueue(&Cue{ID: "3", RegionID: 3}, true)
	if m.Peek().ID != "3" {
		t.Errorf("expected priority cue at head")
	}
	if got := testutil.ToFloat64(metrics.PlaybackQueueDepth); got != 3 {
		t.Errorf("queue depth gauge = %v, want 3", got)
	}
}

func TestManager_Pop(t *testing.T) {
	m := NewManager(5)
	m.Enqueue(&Cue{ID: "1"}, false)
	m.Enqueue(&Cue{ID: "2"}, false)

	c := m.Pop()
	if c.ID != "1" {
		t.Errorf("expected 1, got %s", c.ID)
	}
	if m.Count() != 1 {
		t.Errorf("expected count 1, got %d", m.Count())
	}
	c = m.Pop()
	if c.ID != "2" {
		t.Errorf("expected 2, got %s", c.ID)
	}
	if m.Pop() != nil {
		t.Errorf("expected nil from empty queue")
	}
}

func TestManager_Bounded(t *testing.T) {
	m := NewManager(2)
	if !m.Enqueue(&Cue{ID: "1"}, false) || !m.Enqueue(&Cue{ID: "2"}, false) {
		t.Fatal("queue should accept up to its limit")
	}
	if m.Enqueue(&Cue{ID: "3"}, false) {
		t.Error("full queue accepted a normal cue")
	}
	if !m.Enqueue(&Cue{ID: "4"}, true) {
		t.Error("priority cue must not be dropped")
	}
	if m.Count() != 3 {
		t.Errorf("count = %d, want 3", m.Count())
	}
}

func TestManager_Promote(t *testing.T) {
	m := NewManager(5)
	m.Enqueue(&Cue{ID: "a", RegionID: 10}, false)
	m.Enqueue(&Cue{ID: "b", RegionID: 20}, false)
	m.Enqueue(&Cue{ID: "c", RegionID: 30}, false)

	if !m.Promote(30) {
		t.Fatal("Promote(30) returned false")
	}
	list := m.List()
	if list[0].ID != "c" || list[1].ID != "a" || list[2].ID != "b" {
		t.Errorf("order after promote: %v", list)
	}
	if m.Promote(99) {
		t.Error("Promote of unknown region should fail")
	}
	if !m.HasRegion(20) || m.HasRegion(99) {
		t.Error("HasRegion mismatch")
	}

	m.Clear()
	if m.Count() != 0 || m.Peek() != nil {
		t.Error("Clear left cues behind")
	}
}

func TestManager_EnqueueIfAbsent(t *testing.T) {
	m := NewManager(5)
	if !m.EnqueueIfAbsent(&Cue{ID: "a", RegionID: 10}, false) {
		t.Fatal("first cue for a region should be queued")
	}
	if m.EnqueueIfAbsent(&Cue{ID: "b", RegionID: 10}, true) {
		t.Error("second cue for a queued region was accepted")
	}
	if !m.EnqueueIfAbsent(&Cue{ID: "c", RegionID: 20}, false) {
		t.Error("cue for another region was refused")
	}
	if m.Count() != 2 {
		t.Errorf("count = %d, want 2", m.Count())
	}

	m.Pop()
	if !m.EnqueueIfAbsent(&Cue{ID: "d", RegionID: 10}, false) {
		t.Error("region should queue again once played")
	}
}

func TestManager_PromoteOrInsert(t *testing.T) {
	m := NewManager(5)
	m.Enqueue(&Cue{ID: "a", RegionID: 10}, false)
	m.Enqueue(&Cue{ID: "b", RegionID: 20}, false)

	if head := m.PromoteOrInsert(&Cue{ID: "x", RegionID: 20}); head.ID != "b" {
		t.Errorf("head = %s, want the queued cue b", head.ID)
	}
	if head := m.PromoteOrInsert(&Cue{ID: "y", RegionID: 30}); head.ID != "y" {
		t.Errorf("head = %s, want inserted cue y", head.ID)
	}
	if m.Count() != 3 {
		t.Errorf("count = %d, want 3", m.Count())
	}
}
