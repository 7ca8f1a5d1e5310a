package sensor

import (
	"math"

	"git.home.luguber.info/inful/nearwatch/internal/state"
)

// Default projection constants. The focal length equivalent is a
// calibration constant (focal length × physical distance / pixel
// distance); 550 is typical for front cameras at 640x480. The interocular
// distance is the adult average.
const (
	DefaultFocalLengthPx = 550.0
	DefaultInterocularCm = 6.3
)

// EstimateDistanceCm projects the pixel distance between two eye landmarks
// into an estimated viewing distance:
//
//	distance = (focalLengthPx × interocularCm) / pixelDistance
//
// Coincident landmarks (zero pixel distance) and non-positive calibration
// inputs return state.DistanceUnavailable rather than propagating
// infinity or NaN.
func EstimateDistanceCm(p1, p2 Point, focalLengthPx, interocularCm float64) float64 {
	if focalLengthPx <= 0 || interocularCm <= 0 {
		return state.DistanceUnavailable
	}
	pixelDist := math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
	if pixelDist == 0 {
		return state.DistanceUnavailable
	}
	return focalLengthPx * interocularCm / pixelDist
}
