package registry

import (
	"fmt"
	"testing"
	"time"
)

type fakeRoom struct {
	id         string
	empty      bool
	ended      bool
	lastActive time.Time
}

func (f *fakeRoom) RoomID() string { return f.id }

func (f *fakeRoom) SweepInfo() (bool, bool, time.Time) {
	return f.empty, f.ended, f.lastActive
}

func TestAddGetDelete(t *testing.T) {
	reg := New[*fakeRoom](5*time.Minute, 15*time.Minute)
	room := &fakeRoom{id: NewID(), lastActive: time.Now()}
	reg.Add(room)

	got, ok := reg.Get(room.id)
	if !ok || got != room {
		t.Fatalf("expected to find room %s", room.id)
	}
	if _, ok := reg.Get("missing"); ok {
		t.Fatalf("expected miss for unknown id")
	}
	reg.Delete(room.id)
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry after delete")
	}
}

func TestListFilter(t *testing.T) {
	reg := New[*fakeRoom](5*time.Minute, 15*time.Minute)
	reg.Add(&fakeRoom{id: "a", ended: true})
	reg.Add(&fakeRoom{id: "b"})
	reg.Add(&fakeRoom{id: "c"})

	open := reg.List(func(r *fakeRoom) bool { return !r.ended })
	if len(open) != 2 {
		t.Fatalf("expected 2 open rooms, got %d", len(open))
	}
	if open[0].id != "b" || open[1].id != "c" {
		t.Fatalf("expected sorted ids, got %s %s", open[0].id, open[1].id)
	}
	if all := reg.List(nil); len(all) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(all))
	}
}

func TestSweepThresholds(t *testing.T) {
	now := time.Now()
	reg := New[*fakeRoom](5*time.Minute, 15*time.Minute)
	reg.Add(&fakeRoom{id: "empty-old", empty: true, lastActive: now.Add(-6 * time.Minute)})
	reg.Add(&fakeRoom{id: "empty-new", empty: true, lastActive: now.Add(-1 * time.Minute)})
	reg.Add(&fakeRoom{id: "ended-old", ended: true, lastActive: now.Add(-16 * time.Minute)})
	reg.Add(&fakeRoom{id: "ended-new", ended: true, lastActive: now.Add(-6 * time.Minute)})
	reg.Add(&fakeRoom{id: "active", lastActive: now.Add(-30 * time.Minute)})

	removed := reg.Sweep(now)
	if len(removed) != 2 {
		t.Fatalf("expected 2 swept rooms, got %v", removed)
	}
	if _, ok := reg.Get("empty-old"); ok {
		t.Fatalf("empty-old should have been swept")
	}
	if _, ok := reg.Get("ended-old"); ok {
		t.Fatalf("ended-old should have been swept")
	}
	if _, ok := reg.Get("active"); !ok {
		t.Fatalf("active room must survive sweeps")
	}
}

func TestNewIDShape(t *testing.T) {
	id := NewID()
	var millis int64
	var suffix int
	if _, err := fmt.Sscanf(id, "%d-%d", &millis, &suffix); err != nil {
		t.Fatalf("unexpected id shape %q: %v", id, err)
	}
	if millis <= 0 || suffix < 0 {
		t.Fatalf("unexpected id parts in %q", id)
	}
}
