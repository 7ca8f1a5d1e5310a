package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/nearwatch/internal/config"
	"git.home.luguber.info/inful/nearwatch/internal/logfields"
	"git.home.luguber.info/inful/nearwatch/internal/state"
)

// Layout is everything the platform window host needs to draw the
// indicator. It is computed from a single state snapshot so it can never
// mix fields from two commits.
type Layout struct {
	Visible      bool
	Position     Position
	Width        float64
	Height       float64
	Shape        state.WindowShape
	TintHue      float64
	Transparency float64
	FontColor    uint32
	Label        string
	// Alert is set while the live distance is below the target.
	Alert bool
}

// WindowHost is the platform surface the indicator renders to. Apply
// replaces the whole window appearance; hosts hide the window when
// Visible is false rather than receiving a separate call.
type WindowHost interface {
	Apply(Layout) error
}

// Controller owns the indicator window: it renders every state snapshot
// into a Layout, routes pointer events through the tap/drag classifier,
// and keeps the dock/float geometry in sync with the Docked flag in the
// live state.
type Controller struct {
	store *state.Store
	host  WindowHost
	cfg   config.OverlayConfig
	onTap func()

	mu      sync.Mutex
	geom    *Geometry
	gesture *Classifier
	snap    state.Settings
}

// NewController creates an overlay controller. onTap is invoked for a
// press-and-release that stays within the drag threshold; it may be nil.
func NewController(store *state.Store, host WindowHost, cfg config.OverlayConfig, onTap func()) *Controller {
	anchor := Position{X: cfg.DockAnchorX, Y: cfg.DockAnchorY}
	return &Controller{
		store:   store,
		host:    host,
		cfg:     cfg,
		onTap:   onTap,
		geom:    NewGeometry(anchor, anchor),
		gesture: NewClassifier(cfg.DragThreshold),
		snap:    store.Current(),
	}
}

// Run renders state snapshots until ctx is done or the store closes.
func (c *Controller) Run(ctx context.Context) {
	sub := c.store.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			c.render(snap)
		}
	}
}

// render reconciles geometry with the snapshot's Docked flag and pushes
// the resulting layout to the host.
func (c *Controller) render(snap state.Settings) {
	c.mu.Lock()
	c.snap = snap
	if snap.Docked != c.geom.Docked() {
		if snap.Docked {
			c.geom.Dock()
		} else {
			c.geom.Undock()
		}
	}
	layout := c.layoutLocked()
	c.mu.Unlock()

	c.apply(layout)
}

// Dock snaps the indicator to its anchor. The geometry change flows
// through the state store so every observer sees it.
func (c *Controller) Dock() {
	c.store.Update(func(s state.Settings) state.Settings {
		s.Docked = true
		return s
	})
}

// Undock restores the indicator to its pre-dock position.
func (c *Controller) Undock() {
	c.store.Update(func(s state.Settings) state.Settings {
		s.Docked = false
		return s
	})
}

// PointerDown begins a pointer sequence on the indicator.
func (c *Controller) PointerDown(p Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gesture.Down(p)
}

// PointerMove advances the pointer. Once the sequence is classified as a
// drag the floating window follows it; docked windows stay anchored.
func (c *Controller) PointerMove(p Position) {
	c.mu.Lock()
	delta, dragging := c.gesture.Move(p)
	moved := dragging && c.geom.MoveBy(delta.X, delta.Y)
	var layout Layout
	if moved {
		layout = c.layoutLocked()
	}
	c.mu.Unlock()

	if moved {
		c.apply(layout)
	}
}

// PointerUp ends the sequence. Taps trigger the foreground action; drags
// leave the window where it was released.
func (c *Controller) PointerUp() {
	c.mu.Lock()
	outcome := c.gesture.Up()
	c.mu.Unlock()

	if outcome == OutcomeTap && c.onTap != nil {
		c.onTap()
	}
}

// Position returns the current window origin.
func (c *Controller) Position() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.geom.Position()
}

func (c *Controller) layoutLocked() Layout {
	snap := c.snap
	return Layout{
		Visible:      snap.OverlayEnabled,
		Position:     c.geom.Position(),
		Width:        lerp(c.cfg.MinWidth, c.cfg.MaxWidth, c.cfg.SizeFraction),
		Height:       lerp(c.cfg.MinHeight, c.cfg.MaxHeight, c.cfg.SizeFraction),
		Shape:        snap.WindowShape,
		TintHue:      snap.WindowTintHue,
		Transparency: snap.WindowTransparency,
		FontColor:    snap.FontColor,
		Label:        FormatLabel(snap),
		Alert:        snap.DistanceAvailable() && snap.LiveDistanceCm < float64(snap.DistanceTargetCm),
	}
}

func (c *Controller) apply(layout Layout) {
	if err := c.host.Apply(layout); err != nil {
		slog.Warn("Overlay apply failed",
			logfields.Component("overlay"), logfields.Error(err))
	}
}

// FormatLabel renders the indicator text: elapsed screen time, and the
// live distance when a reading exists.
func FormatLabel(snap state.Settings) string {
	h := snap.AccumulatedSeconds / 3600
	m := snap.AccumulatedSeconds % 3600 / 60
	if !snap.DistanceAvailable() {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dh %02dm | %.0f cm", h, m, snap.LiveDistanceCm)
}

func lerp(min, max, fraction float64) float64 {
	return min + (max-min)*fraction
}
