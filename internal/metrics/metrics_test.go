package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/michaelbrown/opencompiler/internal/events"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	return NewCollectorWithRegistry(registry), registry
}

// metricValue finds a counter or gauge sample by name and label values.
func metricValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !labelsMatch(m, labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string)
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestRecordRun(t *testing.T) {
	c, reg := newTestCollector(t)

	c.RecordRun("python", OutcomeStarted)
	c.RecordRun("python", OutcomeStarted)
	c.RecordRun("cpp", OutcomeCompileFailed)

	if v := metricValue(t, reg, "opencompiler_runs_total", map[string]string{"language": "python", "outcome": "started"}); v != 2 {
		t.Errorf("python started = %v, want 2", v)
	}
	if v := metricValue(t, reg, "opencompiler_runs_total", map[string]string{"language": "cpp", "outcome": "compile_failed"}); v != 1 {
		t.Errorf("cpp compile_failed = %v, want 1", v)
	}
	if v := metricValue(t, reg, "opencompiler_active_session", nil); v != 0 {
		t.Errorf("run requests alone should not mark a session active, got %v", v)
	}

	c.RecordSessionStart()
	if v := metricValue(t, reg, "opencompiler_active_session", nil); v != 1 {
		t.Errorf("active = %v, want 1", v)
	}

	c.RecordSessionEnd("python", true, time.Second)
	if v := metricValue(t, reg, "opencompiler_active_session", nil); v != 0 {
		t.Errorf("active after end = %v, want 0", v)
	}
	if v := metricValue(t, reg, "opencompiler_sessions_ended_total", map[string]string{"reason": "killed"}); v != 1 {
		t.Errorf("killed = %v, want 1", v)
	}
}

func TestRecordBuildAndInput(t *testing.T) {
	c, reg := newTestCollector(t)

	c.RecordBuild("java", 1500*time.Millisecond)
	c.RecordInput(true)
	c.RecordInput(false)
	c.RecordInput(false)

	if v := metricValue(t, reg, "opencompiler_build_duration_seconds", map[string]string{"language": "java"}); v != 1 {
		t.Errorf("build samples = %v, want 1", v)
	}
	if v := metricValue(t, reg, "opencompiler_inputs_total", map[string]string{"result": "dropped"}); v != 2 {
		t.Errorf("dropped = %v, want 2", v)
	}
}

func TestWrapCountsOutputBytes(t *testing.T) {
	c, reg := newTestCollector(t)
	rec := events.NewRecorder()
	e := c.Wrap(rec)

	e.Emit(events.Output("hello"))
	e.Emit(events.Stop(events.FinishedMarker))

	if v := metricValue(t, reg, "opencompiler_output_bytes_total", nil); v != 5 {
		t.Errorf("output bytes = %v, want 5", v)
	}
	if len(rec.Events()) != 2 {
		t.Errorf("wrapped emitter should forward every event")
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.RecordRun("python", OutcomeStarted)
	c.RecordBuild("python", time.Second)
	c.RecordSessionStart()
	c.RecordSessionEnd("python", false, time.Second)
	c.RecordInput(true)

	rec := events.NewRecorder()
	if c.Wrap(rec) != events.Emitter(rec) {
		t.Error("nil collector should return the emitter unchanged")
	}
}
