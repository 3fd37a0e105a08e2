package exporter

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/tickscope/perf/analysis"
	"github.com/wesleyorama2/tickscope/perf/metrics"
	"github.com/wesleyorama2/tickscope/perf/report"
)

func newProfiler() *metrics.Profiler {
	opts := metrics.DefaultOptions()
	opts.Accumulator.Windows = []int{4}
	opts.Accumulator.BucketsMs = []float64{0, 10, 50}
	return metrics.NewProfiler(opts)
}

func gather(t *testing.T, c *Collector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out
}

// find returns the metric of a family whose labels include every given pair.
func find(mf *dto.MetricFamily, labels ...string) *dto.Metric {
	if mf == nil {
		return nil
	}
	for _, m := range mf.GetMetric() {
		got := map[string]string{}
		for _, lp := range m.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		match := true
		for i := 0; i+1 < len(labels); i += 2 {
			if got[labels[i]] != labels[i+1] {
				match = false
			}
		}
		if match {
			return m
		}
	}
	return nil
}

func TestCollector_Empty(t *testing.T) {
	c := New("tickscope", newProfiler())
	families := gather(t, c)

	require.Contains(t, families, "tickscope_samples_total")
	assert.Equal(t, 0.0, families["tickscope_samples_total"].GetMetric()[0].GetCounter().GetValue())
	assert.NotContains(t, families, "tickscope_point_calls_total")
	assert.NotContains(t, families, "tickscope_bottleneck_priority")
	assert.InDelta(t, metrics.DefaultSpikeThresholdMs,
		families["tickscope_spike_threshold_milliseconds"].GetMetric()[0].GetGauge().GetValue(), 1e-9)
}

func TestCollector_Points(t *testing.T) {
	prof := newProfiler()
	prof.AddSample(metrics.PointPhysics, 5_000, "rigid")
	prof.AddSample(metrics.PointPhysics, 20_000, "cloth")
	prof.AddSample(metrics.PointPhysics, 60_000, "")
	prof.AddSample(metrics.PointPhysics, -1, "")

	families := gather(t, New("tickscope", prof))

	calls := find(families["tickscope_point_calls_total"], "point", "PHYSICS")
	require.NotNil(t, calls)
	assert.Equal(t, 4.0, calls.GetCounter().GetValue())

	assert.Equal(t, 1.0, families["tickscope_clamped_samples_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 2.0, find(families["tickscope_point_labels"], "point", "PHYSICS").GetGauge().GetValue())
	assert.Equal(t, 60_000.0, find(families["tickscope_point_duration_max_microseconds"], "point", "PHYSICS").GetGauge().GetValue())

	win := find(families["tickscope_point_window_avg_milliseconds"], "point", "PHYSICS", "window", "4")
	require.NotNil(t, win)
	assert.InDelta(t, 21.25, win.GetGauge().GetValue(), 1e-9)

	hist := find(families["tickscope_point_duration_seconds"], "point", "PHYSICS").GetHistogram()
	require.NotNil(t, hist)
	assert.Equal(t, uint64(4), hist.GetSampleCount())
	assert.InDelta(t, 0.085, hist.GetSampleSum(), 1e-9)

	cumulative := map[float64]uint64{}
	for _, b := range hist.GetBucket() {
		cumulative[b.GetUpperBound()] = b.GetCumulativeCount()
	}
	assert.Equal(t, uint64(2), cumulative[0.01])
	assert.Equal(t, uint64(3), cumulative[0.05])

	assert.Equal(t, 1.0, families["tickscope_spikes_total"].GetMetric()[0].GetCounter().GetValue())
	assert.InDelta(t, 60.0, families["tickscope_spike_worst_milliseconds"].GetMetric()[0].GetGauge().GetValue(), 1e-9)
}

func TestCollector_Observe(t *testing.T) {
	prof := newProfiler()
	for i := 0; i < 10; i++ {
		prof.AddSample(metrics.PointTick, 40_000, "")
		prof.AddSample(metrics.PointPhysics, 20_000, "")
	}
	det := analysis.NewDetector(prof, analysis.DetectorOptions{})
	doc, err := report.Build(report.Inputs{Profiler: prof, Detector: det, Cycle: 7})
	require.NoError(t, err)

	c := New("game", prof)
	c.Observe(doc)
	families := gather(t, c)

	prio := find(families["game_bottleneck_priority"], "bottleneck", "PHYSICS", "module", "ENGINE")
	require.NotNil(t, prio)
	assert.Equal(t, 90.0, prio.GetGauge().GetValue())

	assert.Equal(t, 7.0, families["game_analysis_cycles_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 1.0, find(families["game_anomalies"], "severity", "CRITICAL").GetGauge().GetValue())
	assert.Equal(t, 0.0, find(families["game_anomalies"], "severity", "INFO").GetGauge().GetValue())
}

func TestCollector_HistogramBoundary(t *testing.T) {
	prof := newProfiler()
	prof.AddSample(metrics.PointPhysics, 9_999, "")
	prof.AddSample(metrics.PointPhysics, 10_000, "") // exactly on the 10ms bound
	prof.AddSample(metrics.PointPhysics, 10_001, "")

	families := gather(t, New("tickscope", prof))
	m := find(families["tickscope_point_duration_seconds"], "point", "PHYSICS")
	require.NotNil(t, m)

	got := map[float64]uint64{}
	for _, b := range m.GetHistogram().GetBucket() {
		got[b.GetUpperBound()] = b.GetCumulativeCount()
	}
	assert.Equal(t, uint64(1), got[0.01], "a sample on a bound counts under the next le")
	assert.Equal(t, uint64(3), got[0.05])
	assert.Equal(t, uint64(3), m.GetHistogram().GetSampleCount())
}
