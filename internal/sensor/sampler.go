package sensor

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/nearwatch/internal/config"
	"git.home.luguber.info/inful/nearwatch/internal/logfields"
	"git.home.luguber.info/inful/nearwatch/internal/metrics"
	"git.home.luguber.info/inful/nearwatch/internal/state"
)

// ErrDestroyed is returned by Start after Destroy. A torn-down pipeline is
// never silently resurrected.
var ErrDestroyed = errors.New("sensor: sampler destroyed")

// Phase is the sampler lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBound
	PhaseRunning
	PhasePaused
	PhaseDestroyed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBound:
		return "bound"
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	case PhaseDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Sampler drives the camera pipeline. Its lifecycle is owned by the
// background service, not by any UI surface: Stop pauses sampling but
// keeps the detector warm for instant restart, and only Destroy releases
// resources.
//
// The mutex is held across every state-store write originating here, so a
// detection result racing Stop/Destroy is either discarded by the epoch
// guard or strictly ordered before the teardown's unavailable-write.
type Sampler struct {
	store    *state.Store
	source   FrameSource
	detector Detector
	recorder metrics.Recorder
	cfg      config.SensorConfig
	now      func() time.Time

	mu           sync.Mutex
	phase        Phase
	epoch        uint64 // bumped on every Start/Stop/Destroy; guards async results
	lastAccepted time.Time
	misses       int // consecutive no-detection samples, for the hold policy
}

// NewSampler creates a sampler in the Idle phase.
func NewSampler(store *state.Store, source FrameSource, detector Detector, recorder metrics.Recorder, cfg config.SensorConfig) *Sampler {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Sampler{
		store:    store,
		source:   source,
		detector: detector,
		recorder: recorder,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Phase returns the current lifecycle phase.
func (s *Sampler) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Start binds the camera pipeline and begins sampling. Starting from
// Running is a no-op; starting after Destroy returns ErrDestroyed. A bind
// failure leaves the sampler where it was and reports trackerActive=false,
// which is not fatal to the host process.
func (s *Sampler) Start() error {
	s.mu.Lock()
	switch s.phase {
	case PhaseDestroyed:
		s.mu.Unlock()
		return ErrDestroyed
	case PhaseRunning, PhaseBound:
		s.mu.Unlock()
		return nil
	}
	prev := s.phase
	s.phase = PhaseBound
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	// Bind without the mutex: a source may deliver the first frame
	// synchronously from Bind.
	err := s.source.Bind(func(frame Frame) { s.handleFrame(epoch, frame) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseBound || s.epoch != epoch {
		// Torn down while binding; the pipeline owner already moved on.
		return nil
	}
	if err != nil {
		s.phase = prev
		s.store.Update(func(st state.Settings) state.Settings {
			st.TrackerActive = false
			return st
		})
		slog.Warn("Camera pipeline bind failed",
			logfields.Component("sensor"), logfields.Error(err))
		return err
	}

	s.phase = PhaseRunning
	s.misses = 0
	s.lastAccepted = time.Time{}
	s.store.Update(func(st state.Settings) state.Settings {
		st.TrackerActive = true
		return st
	})
	slog.Info("Sensor sampling started",
		logfields.Component("sensor"), logfields.Epoch(epoch))
	return nil
}

// Stop pauses sampling: the pipeline is unbound but the detector stays
// warm for instant restart. The live distance is immediately reported
// unavailable so the indicator never shows a frozen reading.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if s.phase != PhaseRunning && s.phase != PhaseBound {
		s.mu.Unlock()
		return
	}
	s.epoch++ // in-flight detections must not land after this point
	s.phase = PhasePaused
	s.store.Update(func(st state.Settings) state.Settings {
		st.TrackerActive = false
		st.LiveDistanceCm = state.DistanceUnavailable
		return st
	})
	s.mu.Unlock()

	s.source.Unbind()
	slog.Info("Sensor sampling paused", logfields.Component("sensor"))
}

// Destroy releases the detector and makes the sampler terminal. Any
// detection callback completing afterwards is discarded by the epoch
// guard.
func (s *Sampler) Destroy() {
	s.mu.Lock()
	if s.phase == PhaseDestroyed {
		s.mu.Unlock()
		return
	}
	wasRunning := s.phase == PhaseRunning || s.phase == PhaseBound
	s.epoch++
	s.phase = PhaseDestroyed
	s.store.Update(func(st state.Settings) state.Settings {
		st.TrackerActive = false
		st.LiveDistanceCm = state.DistanceUnavailable
		return st
	})
	s.mu.Unlock()

	if wasRunning {
		s.source.Unbind()
	}
	if err := s.detector.Close(); err != nil {
		slog.Warn("Detector close failed",
			logfields.Component("sensor"), logfields.Error(err))
	}
	slog.Info("Sensor sampler destroyed", logfields.Component("sensor"))
}

// handleFrame is the frame-source callback. It implements the throttle
// gate: frames arriving before the minimum interval has elapsed since the
// last accepted frame began processing are discarded without invoking
// detection.
func (s *Sampler) handleFrame(epoch uint64, frame Frame) {
	s.mu.Lock()
	if s.phase != PhaseRunning || s.epoch != epoch {
		s.mu.Unlock()
		s.recorder.IncSampleResult(metrics.SampleStale)
		return
	}
	now := s.now()
	if !s.lastAccepted.IsZero() && now.Sub(s.lastAccepted) < s.cfg.MinSampleInterval {
		s.mu.Unlock()
		s.recorder.IncSampleResult(metrics.SampleDropped)
		return
	}
	s.lastAccepted = now
	s.mu.Unlock()

	s.recorder.IncSampleResult(metrics.SampleAccepted)
	s.detector.Detect(frame, func(face *Face, err error) {
		s.handleResult(epoch, face, err)
	})
}

// handleResult consumes an asynchronous detection completion. The epoch
// captured at invocation time must still be current, otherwise the result
// raced a Stop/Destroy and is dropped. The store write happens under the
// sampler mutex so it can never follow a teardown's unavailable-write.
func (s *Sampler) handleResult(epoch uint64, face *Face, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRunning || s.epoch != epoch {
		s.recorder.IncSampleResult(metrics.SampleStale)
		return
	}

	if err != nil {
		s.recorder.IncSampleResult(metrics.SampleError)
		s.missLocked()
		return
	}
	if face == nil || face.LeftEye == nil || face.RightEye == nil {
		s.recorder.IncSampleResult(metrics.SampleNoFace)
		s.missLocked()
		return
	}

	dist := EstimateDistanceCm(*face.LeftEye, *face.RightEye, s.cfg.FocalLengthPx, s.cfg.InterocularCm)
	if dist == state.DistanceUnavailable {
		s.recorder.IncSampleResult(metrics.SampleNoFace)
		s.missLocked()
		return
	}

	s.misses = 0
	s.recorder.ObserveDistance(dist)
	s.recorder.IncStateCommit("sensor")
	s.store.Update(func(st state.Settings) state.Settings {
		st.LiveDistanceCm = dist
		return st
	})
}

// missLocked applies the stale policy to a no-detection sample. Called
// with s.mu held.
func (s *Sampler) missLocked() {
	s.misses++
	if config.StalePolicy(s.cfg.StalePolicy) == config.StaleHold && s.misses < s.cfg.HoldSamples {
		return
	}
	s.recorder.IncStateCommit("sensor")
	s.store.Update(func(st state.Settings) state.Settings {
		st.LiveDistanceCm = state.DistanceUnavailable
		return st
	})
}
