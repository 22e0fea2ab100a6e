// Package metrics collects Prometheus metrics for playlist generation runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics sink used by the pipeline.
type Recorder interface {
	RecordRun(status string, duration time.Duration)
	RecordStep(step string, duration time.Duration)
	RecordStepFailure(step, kind string)
	RecordTracks(stage string, count int)
	RecordCurationFlag(flag string)
}

// Collector is the Prometheus implementation of [Recorder].
type Collector struct {
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	stepDuration  *prometheus.HistogramVec
	stepFailures  *prometheus.CounterVec
	tracks        *prometheus.CounterVec
	curationFlags *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aux_runs_total",
			Help: "Playlist generation runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aux_run_duration_seconds",
			Help:    "Wall time of a full playlist generation run.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aux_step_duration_seconds",
			Help:    "Wall time of each pipeline step.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aux_step_failures_total",
			Help: "Upstream failures by pipeline step and failure kind.",
		}, []string{"step", "kind"}),
		tracks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aux_tracks_total",
			Help: "Tracks flowing through each pipeline stage.",
		}, []string{"stage"}),
		curationFlags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aux_curation_flags_total",
			Help: "Curation responses that deviated from the requested shape.",
		}, []string{"flag"}),
	}

	reg.MustRegister(
		c.runs,
		c.runDuration,
		c.stepDuration,
		c.stepFailures,
		c.tracks,
		c.curationFlags,
	)

	return c
}

// RecordRun counts a finished run and observes its duration.
func (c *Collector) RecordRun(status string, duration time.Duration) {
	c.runs.WithLabelValues(status).Inc()
	c.runDuration.Observe(duration.Seconds())
}

// RecordStep observes how long a step took.
func (c *Collector) RecordStep(step string, duration time.Duration) {
	c.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordStepFailure counts a degraded or failed upstream call.
func (c *Collector) RecordStepFailure(step, kind string) {
	c.stepFailures.WithLabelValues(step, kind).Inc()
}

// RecordTracks adds count to the stage's track counter.
func (c *Collector) RecordTracks(stage string, count int) {
	c.tracks.WithLabelValues(stage).Add(float64(count))
}

// RecordCurationFlag counts a shape deviation in a curation response.
func (c *Collector) RecordCurationFlag(flag string) {
	c.curationFlags.WithLabelValues(flag).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRun(string, time.Duration)  {}
func (Nop) RecordStep(string, time.Duration) {}
func (Nop) RecordStepFailure(string, string) {}
func (Nop) RecordTracks(string, int)         {}
func (Nop) RecordCurationFlag(string)        {}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
