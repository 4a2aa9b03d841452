// Package turn implements the shared seat-rotation arithmetic for turn-based
// rooms. All functions are pure; the room owns the seat list and the cursor.
package turn

// Next steps the cursor one seat in the given direction, then keeps stepping
// past disconnected seats. It makes at most len(connected) attempts and
// returns -1 when no connected seat exists; callers must treat -1 as
// "nobody left to play", not as a seat.
func Next(connected []bool, current, direction int) int {
	n := len(connected)
	if n == 0 {
		return -1
	}
	index := current
	for i := 0; i < n; i++ {
		index = ((index+direction)%n + n) % n
		if connected[index] {
			return index
		}
	}
	return -1
}

// Reverse flips the rotation direction.
func Reverse(direction int) int {
	return -direction
}
