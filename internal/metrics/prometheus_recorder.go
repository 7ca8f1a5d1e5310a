package metrics

import (
	"net/http"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	registry        *prom.Registry
	stateCommits    *prom.CounterVec
	sampleResults   *prom.CounterVec
	distance        prom.Histogram
	violations      prom.Counter
	rollovers       *prom.CounterVec
	accumulatedSecs prom.Gauge
	persistFailures *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.stateCommits = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nearwatch",
			Name:      "state_commits_total",
			Help:      "State store commits by producer",
		}, []string{"producer"})
		pr.sampleResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nearwatch",
			Name:      "sensor_samples_total",
			Help:      "Sensor sample outcomes",
		}, []string{"result"})
		pr.distance = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "nearwatch",
			Name:      "viewing_distance_cm",
			Help:      "Estimated viewing distance per accepted sample",
			Buckets:   []float64{10, 20, 25, 30, 40, 50, 70, 100},
		})
		pr.violations = prom.NewCounter(prom.CounterOpts{
			Namespace: "nearwatch",
			Name:      "distance_violations_total",
			Help:      "Times the viewing distance dropped below the target",
		})
		pr.rollovers = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nearwatch",
			Name:      "rollovers_total",
			Help:      "Day-boundary rollover executions by result",
		}, []string{"result"})
		pr.accumulatedSecs = prom.NewGauge(prom.GaugeOpts{
			Namespace: "nearwatch",
			Name:      "accumulated_seconds",
			Help:      "Live accumulated screen-time seconds for the current day",
		})
		pr.persistFailures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nearwatch",
			Name:      "persist_failures_total",
			Help:      "Best-effort persistence failures by store",
		}, []string{"store"})
		reg.MustRegister(pr.stateCommits, pr.sampleResults, pr.distance,
			pr.violations, pr.rollovers, pr.accumulatedSecs, pr.persistFailures)
	})
	return pr
}

// Handler returns the /metrics HTTP handler for this recorder's registry.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusRecorder) IncStateCommit(producer string) {
	if p == nil || p.stateCommits == nil {
		return
	}
	p.stateCommits.WithLabelValues(producer).Inc()
}

func (p *PrometheusRecorder) IncSampleResult(result SampleResult) {
	if p == nil || p.sampleResults == nil {
		return
	}
	p.sampleResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveDistance(cm float64) {
	if p == nil || p.distance == nil {
		return
	}
	p.distance.Observe(cm)
}

func (p *PrometheusRecorder) IncViolation() {
	if p == nil || p.violations == nil {
		return
	}
	p.violations.Inc()
}

func (p *PrometheusRecorder) IncRollover(success bool) {
	if p == nil || p.rollovers == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.rollovers.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) SetAccumulatedSeconds(n uint64) {
	if p == nil || p.accumulatedSecs == nil {
		return
	}
	p.accumulatedSecs.Set(float64(n))
}

func (p *PrometheusRecorder) IncPersistFailure(store string) {
	if p == nil || p.persistFailures == nil {
		return
	}
	p.persistFailures.WithLabelValues(store).Inc()
}
