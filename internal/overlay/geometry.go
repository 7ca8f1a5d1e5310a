// Package overlay drives the floating indicator window: its dock/float
// geometry, tap-versus-drag gesture classification, and the layout pushed
// to the platform window host on every state change.
package overlay

// Position is a window origin in device-independent pixels.
type Position struct {
	X float64
	Y float64
}

// Geometry is the dock/float state machine for the indicator window. A
// floating window moves freely; docking snaps it to the configured anchor
// and remembers where it was, so undocking restores the exact pre-dock
// position across any number of cycles.
type Geometry struct {
	anchor   Position
	pos      Position
	docked   bool
	saved    Position
	hasSaved bool
}

// NewGeometry creates a floating geometry at initial.
func NewGeometry(anchor, initial Position) *Geometry {
	return &Geometry{anchor: anchor, pos: initial}
}

// Position returns the current window origin.
func (g *Geometry) Position() Position { return g.pos }

// Docked reports whether the window is snapped to the anchor.
func (g *Geometry) Docked() bool { return g.docked }

// Dock snaps the window to the anchor, saving the floating position.
// Docking an already docked window is a no-op and does not overwrite the
// saved position.
func (g *Geometry) Dock() {
	if g.docked {
		return
	}
	g.saved = g.pos
	g.hasSaved = true
	g.pos = g.anchor
	g.docked = true
}

// Undock returns the window to its pre-dock position. A window that was
// never docked from a floating position stays at the anchor. Undocking a
// floating window is a no-op.
func (g *Geometry) Undock() {
	if !g.docked {
		return
	}
	g.docked = false
	if g.hasSaved {
		g.pos = g.saved
	}
}

// MoveBy offsets a floating window. Docked windows do not move; it
// reports whether the move was applied.
func (g *Geometry) MoveBy(dx, dy float64) bool {
	if g.docked {
		return false
	}
	g.pos.X += dx
	g.pos.Y += dy
	return true
}
