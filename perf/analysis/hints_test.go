package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/tickscope/perf/metrics"
)

func TestRecommend(t *testing.T) {
	target := Bottleneck{Name: "PHYSICS", DisplayName: "Physics", AvgMs: 10.04, Ratio: 0.5, Priority: 70}
	assert.Equal(t, "Optimize Physics: 10.0ms (50%)", Recommend(metrics.ModuleEngine, target))
	assert.Equal(t, "No bottleneck identified for MEMORY", Recommend(metrics.ModuleMemory, NoBottleneck))
}

func TestHints_Cache(t *testing.T) {
	p := newProfiler()
	h, err := NewHints(NewDetector(p, DetectorOptions{}), 0)
	require.NoError(t, err)

	s := h.Suggest(metrics.ModuleEngine, nil)
	assert.True(t, s.Target.IsNone())
	assert.Equal(t, 1, h.Cached())

	record(p, metrics.PointTick, 20, 10)
	record(p, metrics.PointPhysics, 10, 10)

	s = h.Suggest(metrics.ModuleEngine, nil)
	assert.True(t, s.Target.IsNone(), "served from cache")

	h.Invalidate()
	assert.Zero(t, h.Cached())

	s = h.Suggest(metrics.ModuleEngine, nil)
	assert.Equal(t, "PHYSICS", s.Target.Name)
	assert.Equal(t, "Optimize Physics: 10.0ms (50%)", s.Recommendation)
}

func TestHints_Lifetime(t *testing.T) {
	p := newProfiler()
	h, err := NewHints(NewDetector(p, DetectorOptions{}), 20*time.Millisecond)
	require.NoError(t, err)

	assert.True(t, h.Suggest(metrics.ModuleRender, nil).Target.IsNone())

	record(p, metrics.PointTick, 20, 10)
	record(p, metrics.PointRender, 12, 10)
	time.Sleep(50 * time.Millisecond)

	s := h.Suggest(metrics.ModuleRender, nil)
	assert.Equal(t, "RENDER", s.Target.Name)
	assert.Equal(t, metrics.GPUBound, s.Target.Type)
}

func TestHints_All(t *testing.T) {
	p := newProfiler()
	record(p, metrics.PointTick, 20, 10)
	record(p, metrics.PointNetwork, 6, 10)

	h, err := NewHints(NewDetector(p, DetectorOptions{}), time.Minute)
	require.NoError(t, err)

	all := h.All(nil)
	require.Len(t, all, len(Modules))
	for _, s := range all {
		if s.Module == metrics.ModuleIO {
			assert.Equal(t, "NETWORK", s.Target.Name)
			continue
		}
		assert.True(t, s.Target.IsNone(), s.Module)
	}
}
