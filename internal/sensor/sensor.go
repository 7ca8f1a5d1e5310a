// Package sensor owns the camera sampling pipeline: a lifecycle state
// machine decoupled from any UI lifetime, a throttle gate in front of the
// detector, and an epoch guard so detection results that complete after
// stop or destroy can never resurrect a stale distance.
package sensor

import "time"

// Point is a 2D pixel position reported by the landmark detector.
type Point struct {
	X float64
	Y float64
}

// Frame is one camera frame with its rotation metadata. The pixel payload
// is opaque to this package; only the detector interprets it.
type Frame struct {
	Timestamp       time.Time
	RotationDegrees int
	Width           int
	Height          int
	Data            []byte
}

// Face is a detected face with optional eye landmarks. Either eye may be
// nil when the detector could not place the landmark.
type Face struct {
	LeftEye  *Point
	RightEye *Point
}

// Detector is the external face-landmark provider. Detect is asynchronous:
// it must invoke done exactly once, from any goroutine, with zero or one
// face (nil means no face) or an error. Failures are "no usable sample",
// never fatal.
type Detector interface {
	Detect(frame Frame, done func(face *Face, err error))
	Close() error
}

// FrameSource is the external camera collaborator. It delivers frames at
// an uncontrolled rate (keep-only-latest backpressure is its concern) and
// stops delivering after Unbind returns.
type FrameSource interface {
	Bind(handler func(Frame)) error
	Unbind()
}
