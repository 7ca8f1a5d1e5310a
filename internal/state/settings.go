// Package state holds the shared live-state aggregate for the monitor and
// the store that publishes it. The store is the single serialization point
// between the accumulator, the sensor sampler, the rollover scheduler and
// every observer (renderer, persister, HTTP status handler).
package state

import "time"

// DistanceUnavailable is the sentinel written to LiveDistanceCm when no
// usable sample exists (no face, missing landmarks, sampler paused).
const DistanceUnavailable float64 = -1

// WindowShape enumerates the indicator outline variants.
type WindowShape string

const (
	ShapeRectangle WindowShape = "rectangle"
	ShapeRounded   WindowShape = "rounded"
	ShapePill      WindowShape = "pill"
	ShapeCircle    WindowShape = "circle"
)

// Settings is one immutable whole-value snapshot of the monitor's live
// state. It is only ever replaced as a whole via Store.Update, so a reader
// never observes fields from two different commits.
type Settings struct {
	OverlayEnabled  bool
	LiveFeedEnabled bool

	// AccumulatedSeconds is monotone within a day and reset only by the
	// day-boundary rollover.
	AccumulatedSeconds uint64

	TargetHours      uint8
	TargetMinutes    uint8
	DistanceTargetCm uint16

	// LiveDistanceCm is the latest estimated viewing distance, or
	// DistanceUnavailable.
	LiveDistanceCm float64

	TrackerActive bool

	WindowTintHue      float64 // [0,360)
	WindowTransparency float64 // [0,1]
	FontColor          uint32  // ARGB
	WindowShape        WindowShape

	Docked bool
}

// Defaults returns the snapshot used before persisted settings are loaded.
func Defaults() Settings {
	return Settings{
		LiveFeedEnabled:    true,
		TargetMinutes:      30,
		DistanceTargetCm:   25,
		LiveDistanceCm:     DistanceUnavailable,
		WindowTintHue:      200,
		WindowTransparency: 0.7,
		FontColor:          0xFFFFFFFF,
		WindowShape:        ShapeRounded,
	}
}

// DistanceAvailable reports whether LiveDistanceCm holds a real reading.
func (s Settings) DistanceAvailable() bool {
	return s.LiveDistanceCm >= 0
}

// TargetDuration returns the configured daily screen-time target.
func (s Settings) TargetDuration() time.Duration {
	return time.Duration(s.TargetHours)*time.Hour + time.Duration(s.TargetMinutes)*time.Minute
}
