package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/tickscope/perf/metrics"
)

func newProfiler() *metrics.Profiler {
	return metrics.NewProfiler(metrics.Options{
		Accumulator: metrics.AccumulatorOptions{Windows: []int{1, 10}},
	})
}

// record adds n samples of ms milliseconds to point.
func record(p *metrics.Profiler, point metrics.Point, ms float64, n int) {
	for i := 0; i < n; i++ {
		p.AddSample(point, int64(ms*1000), "")
	}
}

func TestDetector_EmptyRoot(t *testing.T) {
	p := newProfiler()
	record(p, metrics.PointPhysics, 10, 5)
	d := NewDetector(p, DetectorOptions{}, PathfindingCost{}, DefaultAICost)

	for _, n := range []int{0, 1, 10, 100} {
		got := d.Identify(n, Facts{FactPathfindingMs: 50, FactAICount: 1000})
		assert.NotNil(t, got)
		assert.Empty(t, got, "n=%d", n)
	}
	assert.Empty(t, NewDetector(nil, DetectorOptions{}).Identify(5, nil))
}

func TestDetector_Identify(t *testing.T) {
	p := newProfiler()
	record(p, metrics.PointTick, 20, 10)
	record(p, metrics.PointPhysics, 10, 10) // 50%
	record(p, metrics.PointNetwork, 4, 10)  // 20%
	record(p, metrics.PointRender, 1, 10)   // 5%, not significant
	record(p, metrics.PointScriptEvent, 15, 10)

	d := NewDetector(p, DetectorOptions{})
	got := d.Identify(10, nil)

	require.Len(t, got, 2)
	assert.Equal(t, Bottleneck{
		Name:        "PHYSICS",
		DisplayName: "Physics",
		AvgMs:       10,
		Ratio:       0.5,
		Type:        metrics.CPUBound,
		Target:      metrics.ModuleEngine,
		Priority:    70,
	}, got[0])
	assert.Equal(t, "NETWORK", got[1].Name)
	assert.Equal(t, metrics.IOBound, got[1].Type)
	assert.Equal(t, metrics.ModuleIO, got[1].Target)
	assert.Equal(t, 20, got[1].Priority)

	top := d.Identify(1, nil)
	require.Len(t, top, 1)
	assert.Equal(t, "PHYSICS", top[0].Name)
}

func TestDetector_ExternalCosts(t *testing.T) {
	p := newProfiler()
	record(p, metrics.PointTick, 20, 10)

	d := NewDetector(p, DetectorOptions{}, PathfindingCost{}, DefaultAICost)

	got := d.Identify(10, Facts{FactPathfindingMs: 5, FactAICount: 200})
	require.Len(t, got, 2)
	assert.Equal(t, "AI_PROCESSING", got[0].Name)
	assert.Equal(t, "AI Processing (200)", got[0].DisplayName)
	assert.InDelta(t, 10.0, got[0].AvgMs, 1e-9)
	assert.Equal(t, 70, got[0].Priority)
	assert.Equal(t, "PATHFINDING_DEEP", got[1].Name)
	assert.Equal(t, 25, got[1].Priority)

	got = d.Identify(10, Facts{FactPathfindingMs: 1, FactAICount: 50})
	assert.Empty(t, got, "below the external cost floors")
}

func TestDetector_PriorityClamp(t *testing.T) {
	d := NewDetector(nil, DetectorOptions{})

	tests := []struct {
		name  string
		ratio float64
		avgMs float64
		want  int
	}{
		{"small", 0.1, 1, 10},
		{"slow", 0.2, 20, 40},
		{"very slow critical", 0.4, 40, 100},
		{"huge", 1e9, 1e9, 100},
		{"infinite", math.Inf(1), math.Inf(1), 100},
		{"nan", math.NaN(), 0, 0},
		{"negative", -3, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Priority(tt.ratio, tt.avgMs)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestDetector_SuggestTarget(t *testing.T) {
	p := newProfiler()
	d := NewDetector(p, DetectorOptions{})

	none := d.SuggestTarget(metrics.ModuleEngine, nil)
	assert.True(t, none.IsNone())
	assert.Equal(t, 0, none.Priority)
	assert.Equal(t, NoBottleneck, none)

	record(p, metrics.PointTick, 20, 10)
	record(p, metrics.PointPhysics, 3, 10)
	record(p, metrics.PointEntityAI, 8, 10)
	record(p, metrics.PointChunkIO, 5, 10)

	got := d.SuggestTarget(metrics.ModuleEngine, nil)
	assert.Equal(t, "ENTITY_AI", got.Name)

	got = d.SuggestTarget(metrics.ModuleWorld, nil)
	assert.Equal(t, "CHUNK_IO", got.Name)

	got = d.SuggestTarget(metrics.ModuleMemory, nil)
	assert.Equal(t, NoneName, got.Name)
	assert.Equal(t, 0, got.Priority)
}

func TestDetector_TopN(t *testing.T) {
	d := NewDetector(nil, DetectorOptions{})
	assert.Equal(t, DefaultTopN, d.TopN())

	assert.Equal(t, 1, d.SetTopN(0))
	assert.Equal(t, 100, d.SetTopN(1000))
	assert.Equal(t, 7, d.SetTopN(7))
	assert.Equal(t, 7, d.Options().TopN)

	assert.Equal(t, 1, NewDetector(nil, DetectorOptions{TopN: -4}).TopN())
}

func TestDetector_Anomalies(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		d := NewDetector(newProfiler(), DetectorOptions{})
		rep := d.DetectAnomalies(nil)
		assert.Zero(t, rep.Count)
		assert.False(t, rep.HasCritical)
		assert.NotNil(t, rep.Items)
		assert.Empty(t, rep.Items)
	})

	t.Run("critical", func(t *testing.T) {
		p := newProfiler()
		record(p, metrics.PointTick, 40, 10)
		d := NewDetector(p, DetectorOptions{})

		rep := d.DetectAnomalies(Facts{FactHeapUsagePercent: 95})
		require.Equal(t, 2, rep.Count)
		assert.True(t, rep.HasCritical)
		assert.Equal(t, Anomaly{SeverityCritical, CodeTickOverload, "Average tick time (40.00ms) is 2x over target"}, rep.Items[0])
		assert.Equal(t, Anomaly{SeverityCritical, CodeMemoryCritical, "Heap usage at 95.0%"}, rep.Items[1])
	})

	t.Run("warnings fire independently", func(t *testing.T) {
		p := newProfiler()
		record(p, metrics.PointTick, 10, 9)
		record(p, metrics.PointTick, 110, 1)
		d := NewDetector(p, DetectorOptions{})

		rep := d.DetectAnomalies(Facts{FactHeapUsagePercent: 80})
		require.Equal(t, 3, rep.Count)
		assert.False(t, rep.HasCritical)

		codes := []string{rep.Items[0].Code, rep.Items[1].Code, rep.Items[2].Code}
		assert.Equal(t, []string{CodeTickSlow, CodeSpikeDetected, CodeMemoryHigh}, codes)
		for _, a := range rep.Items {
			assert.Equal(t, SeverityWarning, a.Severity)
		}
	})
}
