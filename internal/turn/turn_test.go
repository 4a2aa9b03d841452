package turn

import "testing"

func TestNextWrapsAround(t *testing.T) {
	connected := []bool{true, true, true, true}
	if got := Next(connected, 3, 1); got != 0 {
		t.Fatalf("expected wrap to 0, got %d", got)
	}
	if got := Next(connected, 0, -1); got != 3 {
		t.Fatalf("expected wrap to 3, got %d", got)
	}
}

func TestNextSkipsDisconnected(t *testing.T) {
	connected := []bool{true, false, true, true}
	if got := Next(connected, 0, 1); got != 2 {
		t.Fatalf("expected seat 2, got %d", got)
	}
}

func TestNextReverseWithSkip(t *testing.T) {
	// Four players, direction -1, an 8 played from seat 0: two steps land
	// on seat 2.
	connected := []bool{true, true, true, true}
	index := Next(connected, 0, -1)
	if index != 3 {
		t.Fatalf("expected seat 3 after first step, got %d", index)
	}
	index = Next(connected, index, -1)
	if index != 2 {
		t.Fatalf("expected seat 2 after skip, got %d", index)
	}
}

func TestNextNoConnectedSeats(t *testing.T) {
	connected := []bool{false, false, false}
	if got := Next(connected, 0, 1); got != -1 {
		t.Fatalf("expected -1, got %d", got)
	}
	if got := Next(nil, 0, 1); got != -1 {
		t.Fatalf("expected -1 for empty seats, got %d", got)
	}
}

func TestReverse(t *testing.T) {
	if Reverse(1) != -1 || Reverse(-1) != 1 {
		t.Fatalf("reverse should flip direction")
	}
}
