// Package metrics provides Prometheus metrics for code runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/michaelbrown/opencompiler/internal/events"
)

// Outcome labels for opencompiler_runs_total.
const (
	OutcomeStarted       = "started"
	OutcomeNotSupported  = "not_supported"
	OutcomeSetupError    = "setup_error"
	OutcomeCompileFailed = "compile_failed"
	OutcomeToolNotFound  = "tool_not_found"
	OutcomeExecError     = "execution_error"
)

// Collector records run, build, session and stream metrics. A nil
// *Collector is valid and records nothing.
type Collector struct {
	runs          *prometheus.CounterVec
	buildSeconds  *prometheus.HistogramVec
	sessionEnds   *prometheus.CounterVec
	sessionTime   *prometheus.HistogramVec
	activeSession prometheus.Gauge
	outputBytes   prometheus.Counter
	inputs        *prometheus.CounterVec
}

// NewCollector creates a Collector registered with the default registry.
func NewCollector() *Collector {
	return NewCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a Collector registered with registry.
func NewCollectorWithRegistry(registry prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opencompiler_runs_total",
				Help: "Run requests by language and outcome",
			},
			[]string{"language", "outcome"},
		),
		buildSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opencompiler_build_duration_seconds",
				Help:    "Compiler wall time",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"language"},
		),
		sessionEnds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opencompiler_sessions_ended_total",
				Help: "Finished sessions by language and how they ended (exited, killed)",
			},
			[]string{"language", "reason"},
		),
		sessionTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opencompiler_session_duration_seconds",
				Help:    "Time from spawn to term_stop",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"language"},
		),
		activeSession: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opencompiler_active_session",
				Help: "Child processes spawned and not yet reaped",
			},
		),
		outputBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "opencompiler_output_bytes_total",
				Help: "Bytes relayed in term_output events",
			},
		),
		inputs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opencompiler_inputs_total",
				Help: "send_input requests by result (delivered, dropped)",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		c.runs,
		c.buildSeconds,
		c.sessionEnds,
		c.sessionTime,
		c.activeSession,
		c.outputBytes,
		c.inputs,
	)
	return c
}

// RecordRun counts a run request with its outcome.
func (c *Collector) RecordRun(language, outcome string) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(language, outcome).Inc()
}

// RecordSessionStart marks a spawned child as live.
func (c *Collector) RecordSessionStart() {
	if c == nil {
		return
	}
	c.activeSession.Inc()
}

// RecordBuild observes a compiler invocation.
func (c *Collector) RecordBuild(language string, d time.Duration) {
	if c == nil {
		return
	}
	c.buildSeconds.WithLabelValues(language).Observe(d.Seconds())
}

// RecordSessionEnd counts a finished session.
func (c *Collector) RecordSessionEnd(language string, killed bool, d time.Duration) {
	if c == nil {
		return
	}
	reason := "exited"
	if killed {
		reason = "killed"
	}
	c.sessionEnds.WithLabelValues(language, reason).Inc()
	c.sessionTime.WithLabelValues(language).Observe(d.Seconds())
	c.activeSession.Dec()
}

// RecordInput counts a send_input request.
func (c *Collector) RecordInput(delivered bool) {
	if c == nil {
		return
	}
	result := "dropped"
	if delivered {
		result = "delivered"
	}
	c.inputs.WithLabelValues(result).Inc()
}

// Wrap returns an Emitter that counts term_output bytes before passing
// each event to next.
func (c *Collector) Wrap(next events.Emitter) events.Emitter {
	if c == nil {
		return next
	}
	return events.EmitterFunc(func(e events.Event) {
		if e.Type == events.TypeOutput {
			c.outputBytes.Add(float64(len(e.Data)))
		}
		next.Emit(e)
	})
}
