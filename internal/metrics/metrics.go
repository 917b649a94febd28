// Package metrics exports pipeline events as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shpitdev/packing-pipeline/internal/packing"
)

const namespace = "packer"

// Observer records pipeline events. It implements packing.Observer.
type Observer struct {
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	stageDuration *prometheus.HistogramVec
	fallbacks     *prometheus.CounterVec
}

var _ packing.Observer = (*Observer)(nil)

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Pipeline runs by outcome.",
			},
			[]string{"outcome"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "End-to-end pipeline run duration.",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
			},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage.",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"stage", "outcome"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Defaults substituted for unusable model output.",
			},
			[]string{"stage", "reason"},
		),
	}
	for _, c := range []prometheus.Collector{o.runs, o.runDuration, o.stageDuration, o.fallbacks} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Observer) StageDone(e packing.StageEvent) {
	o.stageDuration.WithLabelValues(e.Stage.String(), outcome(e.Err)).Observe(e.Duration.Seconds())
}

func (o *Observer) Fallback(e packing.FallbackEvent) {
	o.fallbacks.WithLabelValues(e.Stage.String(), string(e.Reason)).Inc()
}

func (o *Observer) RunDone(e packing.RunEvent) {
	o.runs.WithLabelValues(outcome(e.Err)).Inc()
	o.runDuration.Observe(e.Duration.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
