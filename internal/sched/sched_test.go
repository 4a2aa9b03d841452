package sched

import (
	"testing"
	"time"
)

func TestManualFiresInScheduleOrder(t *testing.T) {
	m := NewManual()
	var order []string
	m.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	m.AfterFunc(time.Second, func() { order = append(order, "a") })
	m.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	m.Advance(5 * time.Second)

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("expected callbacks in schedule order, got %v", order)
	}
}

func TestManualDoesNotFireEarly(t *testing.T) {
	m := NewManual()
	fired := false
	m.AfterFunc(10*time.Second, func() { fired = true })

	m.Advance(9 * time.Second)
	if fired {
		t.Fatalf("callback fired before its deadline")
	}
	if m.Pending() != 1 {
		t.Fatalf("expected 1 pending callback, got %d", m.Pending())
	}

	m.Advance(time.Second)
	if !fired {
		t.Fatalf("callback did not fire at its deadline")
	}
	if m.Pending() != 0 {
		t.Fatalf("expected no pending callbacks, got %d", m.Pending())
	}
}

func TestManualCancel(t *testing.T) {
	m := NewManual()
	fired := false
	cancel := m.AfterFunc(time.Second, func() { fired = true })

	if !cancel() {
		t.Fatalf("expected cancel to report success")
	}
	m.Advance(5 * time.Second)
	if fired {
		t.Fatalf("cancelled callback fired")
	}
	if cancel() {
		t.Fatalf("expected second cancel to report failure")
	}
}

func TestManualCancelAfterFire(t *testing.T) {
	m := NewManual()
	cancel := m.AfterFunc(time.Second, func() {})

	m.Advance(time.Second)
	if cancel() {
		t.Fatalf("expected cancel after fire to report failure")
	}
}

func TestManualChainedTimersFireWithinOneAdvance(t *testing.T) {
	m := NewManual()
	var order []string
	m.AfterFunc(time.Second, func() {
		order = append(order, "first")
		m.AfterFunc(time.Second, func() { order = append(order, "second") })
	})

	m.Advance(2 * time.Second)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected chained timer to fire in the same advance, got %v", order)
	}
}
