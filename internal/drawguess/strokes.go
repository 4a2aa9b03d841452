package drawguess

import (
	"errors"
	"time"
)

func (r *Room) canDrawLocked(playerID string) error {
	if r.state != StatePlaying {
		return errors.New("no round in progress")
	}
	if playerID != r.currentDrawerIDLocked() {
		return errors.New("only the drawer can draw")
	}
	return nil
}

// AddStroke appends a stroke to the canvas history. The history is capped;
// the oldest stroke drops off. A new stroke clears the redo stack.
func (r *Room) AddStroke(playerID string, stroke Stroke) error {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if err := r.canDrawLocked(playerID); err != nil {
		return err
	}
	if stroke.Kind == "" {
		stroke.Kind = "stroke"
	}
	stroke.At = time.Now().UTC()
	r.strokes = append(r.strokes, stroke)
	if len(r.strokes) > maxStrokes {
		r.strokes = r.strokes[len(r.strokes)-maxStrokes:]
	}
	r.redoStack = nil
	r.queue("canvas_stroke", map[string]any{"stroke": stroke}, playerID)
	return nil
}

// FloodFill records a fill as a special stroke.
func (r *Room) FloodFill(playerID, color string, x, y int) error {
	return r.AddStroke(playerID, Stroke{Kind: "fill", Color: color, Points: [][2]int{{x, y}}})
}

// Undo moves the latest stroke onto the redo stack.
func (r *Room) Undo(playerID string) error {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if err := r.canDrawLocked(playerID); err != nil {
		return err
	}
	if len(r.strokes) == 0 {
		return errors.New("nothing to undo")
	}
	last := r.strokes[len(r.strokes)-1]
	r.strokes = r.strokes[:len(r.strokes)-1]
	r.redoStack = append(r.redoStack, last)
	r.queue("canvas_undo", map[string]any{"strokes": len(r.strokes)}, "")
	return nil
}

// Redo restores the latest undone stroke.
func (r *Room) Redo(playerID string) error {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if err := r.canDrawLocked(playerID); err != nil {
		return err
	}
	if len(r.redoStack) == 0 {
		return errors.New("nothing to redo")
	}
	last := r.redoStack[len(r.redoStack)-1]
	r.redoStack = r.redoStack[:len(r.redoStack)-1]
	r.strokes = append(r.strokes, last)
	r.queue("canvas_redo", map[string]any{"stroke": last}, "")
	return nil
}

// ClearCanvas wipes the stroke history and the redo stack.
func (r *Room) ClearCanvas(playerID string) error {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if err := r.canDrawLocked(playerID); err != nil {
		return err
	}
	r.strokes = nil
	r.redoStack = nil
	r.queue("canvas_clear", map[string]any{}, "")
	return nil
}
