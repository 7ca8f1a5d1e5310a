// Package metrics defines observability hooks for the monitor. The
// Prometheus implementation is optional; components accept the Recorder
// interface and work with the Noop recorder when metrics are disabled.
package metrics

// SampleResult enumerates sensor sample outcomes for counters.
type SampleResult string

const (
	SampleAccepted SampleResult = "accepted"
	SampleDropped  SampleResult = "dropped" // throttle gate discarded the frame
	SampleNoFace   SampleResult = "no_face"
	SampleStale    SampleResult = "stale" // result discarded by epoch guard
	SampleError    SampleResult = "error"
)

// Recorder defines observability hooks for the monitor's producers. All
// methods must be safe on the NoopRecorder so injection stays optional.
type Recorder interface {
	IncStateCommit(producer string)
	IncSampleResult(result SampleResult)
	ObserveDistance(cm float64)
	IncViolation()
	IncRollover(success bool)
	SetAccumulatedSeconds(n uint64)
	IncPersistFailure(store string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are
// not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncStateCommit(string)        {}
func (NoopRecorder) IncSampleResult(SampleResult) {}
func (NoopRecorder) ObserveDistance(float64)      {}
func (NoopRecorder) IncViolation()                {}
func (NoopRecorder) IncRollover(bool)             {}
func (NoopRecorder) SetAccumulatedSeconds(uint64) {}
func (NoopRecorder) IncPersistFailure(string)     {}
