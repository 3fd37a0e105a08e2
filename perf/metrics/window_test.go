package metrics

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingWindow_Basic(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		values   []int64
		wantAvg  int64
		wantMax  int64
		wantSize int
	}{
		{"empty", 3, nil, 0, 0, 0},
		{"partial", 3, []int64{4, 8}, 6, 8, 2},
		{"wraps", 3, []int64{5, 2, 9, 1}, 4, 9, 3},
		{"max evicted", 3, []int64{10, 1, 2, 3}, 2, 3, 3},
		{"max evicted twice", 2, []int64{9, 8, 1, 2}, 1, 2, 2},
		{"duplicate max evicted", 3, []int64{7, 7, 1, 2}, 3, 7, 3},
		{"zero capacity treated as one", 0, []int64{3, 4}, 4, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewRollingWindow(tt.capacity)
			for _, v := range tt.values {
				w.Add(v)
			}
			assert.Equal(t, tt.wantAvg, w.Average(), "average")
			assert.Equal(t, tt.wantMax, w.Max(), "max")
			assert.Equal(t, tt.wantSize, w.SampleCount(), "size")
		})
	}
}

func TestRollingWindow_MaxRescanOnlyWhenMaxEvicted(t *testing.T) {
	w := NewRollingWindow(3)
	for _, v := range []int64{1, 2, 3, 4, 5, 6} {
		w.Add(v)
	}
	// Increasing input never evicts the max.
	assert.Zero(t, w.Rescans())
	assert.Equal(t, int64(6), w.Max())

	w.Add(0) // evicts 4
	w.Add(0) // evicts 5
	w.Add(0) // evicts 6, the max
	assert.Equal(t, int64(1), w.Rescans())
	assert.Equal(t, int64(0), w.Max())
}

func TestRollingWindow_Confidence(t *testing.T) {
	w := NewRollingWindow(10)
	assert.Equal(t, 0.0, w.Confidence())
	assert.False(t, w.IsStatisticallyMeaningful())

	for i := 0; i < 4; i++ {
		w.Add(1)
	}
	assert.InDelta(t, 0.4, w.Confidence(), 1e-9)
	assert.False(t, w.IsStatisticallyMeaningful())

	w.Add(1)
	assert.True(t, w.IsStatisticallyMeaningful())

	for i := 0; i < 20; i++ {
		w.Add(1)
	}
	assert.Equal(t, 1.0, w.Confidence())
}

func TestRollingWindow_NegativeValues(t *testing.T) {
	w := NewRollingWindow(2)
	w.Add(-5)
	w.Add(-3)
	assert.Equal(t, int64(-3), w.Max())
	assert.Equal(t, int64(-4), w.Average())

	w.Add(-10) // evicts -5
	assert.Equal(t, int64(-3), w.Max())
	w.Add(-10) // evicts -3, the max
	assert.Equal(t, int64(-10), w.Max())
}

func TestRollingWindow_Reset(t *testing.T) {
	w := NewRollingWindow(4)
	for _, v := range []int64{3, 1, 4, 1, 5} {
		w.Add(v)
	}
	w.Reset()

	assert.Equal(t, 0, w.SampleCount())
	assert.Equal(t, int64(0), w.Average())
	assert.Equal(t, int64(0), w.Max())
	assert.Equal(t, 4, w.Capacity())

	w.Reset()
	assert.Equal(t, 0, w.SampleCount())

	w.Add(2)
	assert.Equal(t, int64(2), w.Max())
	assert.Equal(t, int64(2), w.Average())
}

// windowContents scans the slots of a quiescent window.
func windowContents(w *RollingWindow) (sum, max int64, n int) {
	max = math.MinInt64
	for i := range w.slots {
		if w.slots[i].gen.Load() == 0 {
			continue
		}
		v := w.slots[i].val.Load()
		sum += v
		if v > max {
			max = v
		}
		n++
	}
	return sum, max, n
}

func TestRollingWindow_ConcurrentAdd(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		writers   int
		perWriter int
	}{
		{"fewer slots than writers", 4, 8, 2000},
		{"more slots than writers", 100, 8, 5000},
		{"single slot", 1, 4, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for trial := 0; trial < 20; trial++ {
				w := NewRollingWindow(tt.capacity)

				var wg sync.WaitGroup
				for i := 0; i < tt.writers; i++ {
					wg.Add(1)
					go func(seed int64) {
						defer wg.Done()
						rng := rand.New(rand.NewSource(seed))
						for j := 0; j < tt.perWriter; j++ {
							w.Add(rng.Int63n(3000) - 500)
						}
					}(int64(trial*tt.writers + i))
				}
				wg.Wait()

				sum, max, n := windowContents(w)
				require.Equal(t, tt.capacity, n)
				require.Equal(t, tt.capacity, w.SampleCount())
				require.Equal(t, sum, w.sum.Load(), "trial %d: running sum", trial)
				require.Equal(t, sum/int64(n), w.Average(), "trial %d: average", trial)
				require.Equal(t, max, w.Max(), "trial %d: max", trial)
			}
		})
	}
}

func TestRollingWindow_EmptyIsNotMeaningful(t *testing.T) {
	w := NewRollingWindow(1)
	assert.False(t, w.IsStatisticallyMeaningful())
	w.Add(3)
	assert.True(t, w.IsStatisticallyMeaningful())
}
