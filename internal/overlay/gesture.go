package overlay

import "math"

// Outcome is the classification of a completed pointer sequence.
type Outcome int

const (
	// OutcomeNone means no pointer sequence was in progress.
	OutcomeNone Outcome = iota
	// OutcomeTap is a press-and-release that never left the threshold
	// radius around the touch-down point.
	OutcomeTap
	// OutcomeDrag is a sequence whose displacement exceeded the threshold
	// at some point, even if it returned near the origin before release.
	OutcomeDrag
)

// Classifier separates taps from drags on the indicator window. The
// decision is based on displacement from the touch-down point: within the
// threshold the sequence is still a potential tap and produces no
// movement, beyond it the sequence is a drag for good and every move
// yields a window delta.
type Classifier struct {
	threshold float64
	active    bool
	dragging  bool
	start     Position
	last      Position
}

// NewClassifier creates a classifier with the given drag threshold in
// device-independent pixels.
func NewClassifier(threshold float64) *Classifier {
	return &Classifier{threshold: threshold}
}

// Down begins a pointer sequence at p.
func (c *Classifier) Down(p Position) {
	c.active = true
	c.dragging = false
	c.start = p
	c.last = p
}

// Move advances the pointer to p. Once the sequence becomes a drag the
// returned delta is the window movement to apply; the first dragging move
// covers the full displacement from the touch-down point so the window
// catches up with the pointer.
func (c *Classifier) Move(p Position) (delta Position, dragging bool) {
	if !c.active {
		return Position{}, false
	}
	if !c.dragging {
		disp := math.Hypot(p.X-c.start.X, p.Y-c.start.Y)
		if disp <= c.threshold {
			c.last = p
			return Position{}, false
		}
		c.dragging = true
		c.last = c.start
	}
	delta = Position{X: p.X - c.last.X, Y: p.Y - c.last.Y}
	c.last = p
	return delta, true
}

// Up ends the sequence and returns its classification.
func (c *Classifier) Up() Outcome {
	if !c.active {
		return OutcomeNone
	}
	dragging := c.dragging
	c.active = false
	c.dragging = false
	if dragging {
		return OutcomeDrag
	}
	return OutcomeTap
}
