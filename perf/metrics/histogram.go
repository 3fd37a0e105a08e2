package metrics

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// DefaultBucketsMs are the histogram lower bounds used when none are given.
// 16.67 and 33.33 are one frame at 60 and 30 fps.
var DefaultBucketsMs = []float64{0, 5, 10, 16.67, 20, 33.33, 50, 100, 200}

// DefaultRecentSamples is the size of the recent-sample ring kept next to the
// buckets for precise percentiles.
const DefaultRecentSamples = 1000

const (
	jank60Micros = 16_667
	jank30Micros = 33_333

	// Range of the read-side HDR histogram, in microseconds.
	preciseMinMicros = 1
	preciseMaxMicros = MaxSampleMicros
	preciseSigFigs   = 3
)

// Histogram counts duration samples into fixed buckets and estimates
// percentiles from the cumulative counts.
//
// Buckets are given as ascending lower bounds in milliseconds. A sample lands
// in the last bucket whose lower bound is <= its value; values below the first
// bound land in bucket 0. The last bucket is open-ended.
//
// Writes only touch atomic counters and a fixed recent-sample ring, so Add
// never blocks or allocates. PrecisePercentiles replays the recent ring into
// an HDR histogram owned by the reader side.
type Histogram struct {
	bounds []float64
	counts []atomic.Int64

	total     atomic.Int64
	sumMicros atomic.Int64
	jank60    atomic.Int64
	jank30    atomic.Int64

	recent       []atomic.Int64
	recentWrites atomic.Int64

	preciseMu sync.Mutex
	precise   *hdrhistogram.Histogram
}

// NewHistogram creates a histogram with the given lower bounds (ms).
// Nil or empty bounds select DefaultBucketsMs.
func NewHistogram(boundsMs []float64) *Histogram {
	return NewHistogramWithRecent(boundsMs, DefaultRecentSamples)
}

// NewHistogramWithRecent is NewHistogram with a custom recent-sample ring size.
func NewHistogramWithRecent(boundsMs []float64, recentSamples int) *Histogram {
	if len(boundsMs) == 0 {
		boundsMs = DefaultBucketsMs
	}
	bounds := make([]float64, len(boundsMs))
	copy(bounds, boundsMs)
	sort.Float64s(bounds)

	if recentSamples <= 0 {
		recentSamples = DefaultRecentSamples
	}

	return &Histogram{
		bounds:  bounds,
		counts:  make([]atomic.Int64, len(bounds)),
		recent:  make([]atomic.Int64, recentSamples),
		precise: hdrhistogram.New(preciseMinMicros, preciseMaxMicros, preciseSigFigs),
	}
}

// Add records one sample. Negative durations count as zero.
func (h *Histogram) Add(durationMicros int64) {
	if durationMicros < 0 {
		durationMicros = 0
	}

	h.counts[h.BucketFor(float64(durationMicros)/1000.0)].Add(1)
	h.total.Add(1)
	h.sumMicros.Add(durationMicros)

	if durationMicros > jank60Micros {
		h.jank60.Add(1)
	}
	if durationMicros > jank30Micros {
		h.jank30.Add(1)
	}

	slot := (h.recentWrites.Add(1) - 1) % int64(len(h.recent))
	h.recent[slot].Store(durationMicros)
}

// BucketFor returns the index of the bucket a value (ms) belongs to.
func (h *Histogram) BucketFor(valueMs float64) int {
	for i := len(h.bounds) - 1; i >= 0; i-- {
		if valueMs >= h.bounds[i] {
			return i
		}
	}
	return 0
}

// Percentile estimates the p-th percentile (0-100) in milliseconds.
//
// It walks the buckets until the cumulative count reaches floor(total*p/100)
// and returns the midpoint of that bucket. The open-ended last bucket reports
// 1.5x its lower bound. An empty histogram returns 0.
func (h *Histogram) Percentile(p float64) float64 {
	total := h.total.Load()
	if total == 0 {
		return 0
	}
	p = math.Max(0, math.Min(100, p))
	target := int64(math.Floor(float64(total) * p / 100))

	var cumulative int64
	for i := range h.counts {
		cumulative += h.counts[i].Load()
		if cumulative >= target {
			return h.midpoint(i)
		}
	}
	// Counters are read without a lock; a racing writer can leave the sum
	// of counts briefly below total.
	return h.midpoint(len(h.bounds) - 1)
}

func (h *Histogram) midpoint(i int) float64 {
	if i == len(h.bounds)-1 {
		return h.bounds[i] * 1.5
	}
	return (h.bounds[i] + h.bounds[i+1]) / 2
}

// P50 is Percentile(50).
func (h *Histogram) P50() float64 { return h.Percentile(50) }

// P95 is Percentile(95).
func (h *Histogram) P95() float64 { return h.Percentile(95) }

// P99 is Percentile(99).
func (h *Histogram) P99() float64 { return h.Percentile(99) }

// Average returns the mean sample in milliseconds, or 0 when empty.
func (h *Histogram) Average() float64 {
	total := h.total.Load()
	if total == 0 {
		return 0
	}
	return float64(h.sumMicros.Load()) / 1000.0 / float64(total)
}

// TotalSamples returns the number of samples recorded since the last reset.
func (h *Histogram) TotalSamples() int64 {
	return h.total.Load()
}

// Counts returns a copy of the per-bucket counts.
func (h *Histogram) Counts() []int64 {
	out := make([]int64, len(h.counts))
	for i := range h.counts {
		out[i] = h.counts[i].Load()
	}
	return out
}

// Bounds returns a copy of the bucket lower bounds (ms).
func (h *Histogram) Bounds() []float64 {
	out := make([]float64, len(h.bounds))
	copy(out, h.bounds)
	return out
}

// Labels returns a human readable span for every bucket.
func (h *Histogram) Labels() []string {
	labels := make([]string, len(h.bounds))
	for i, b := range h.bounds {
		if i == len(h.bounds)-1 {
			labels[i] = fmt.Sprintf(">=%.1fms", b)
		} else {
			labels[i] = fmt.Sprintf("%.1f-%.1fms", b, h.bounds[i+1])
		}
	}
	return labels
}

// JankPercent60 is the share of samples above one 60 fps frame (0-100).
func (h *Histogram) JankPercent60() float64 {
	return percentOf(h.jank60.Load(), h.total.Load())
}

// JankPercent30 is the share of samples above one 30 fps frame (0-100).
func (h *Histogram) JankPercent30() float64 {
	return percentOf(h.jank30.Load(), h.total.Load())
}

// JankCounts returns the raw counts behind the jank percentages.
func (h *Histogram) JankCounts() (over60fps, over30fps int64) {
	return h.jank60.Load(), h.jank30.Load()
}

// PrecisePercentiles computes P50/P95/P99 (ms) over the recent-sample ring.
// It is a read-side operation and serializes concurrent readers.
func (h *Histogram) PrecisePercentiles() LatencyPercentiles {
	n := h.recentWrites.Load()
	if n > int64(len(h.recent)) {
		n = int64(len(h.recent))
	}
	if n == 0 {
		return LatencyPercentiles{}
	}

	h.preciseMu.Lock()
	defer h.preciseMu.Unlock()

	h.precise.Reset()
	for i := int64(0); i < n; i++ {
		v := h.recent[i].Load()
		if v < preciseMinMicros {
			v = preciseMinMicros
		}
		if v > preciseMaxMicros {
			v = preciseMaxMicros
		}
		_ = h.precise.RecordValue(v)
	}

	return LatencyPercentiles{
		P50: float64(h.precise.ValueAtQuantile(50)) / 1000.0,
		P95: float64(h.precise.ValueAtQuantile(95)) / 1000.0,
		P99: float64(h.precise.ValueAtQuantile(99)) / 1000.0,
		Max: float64(h.precise.Max()) / 1000.0,
	}
}

// Snapshot returns a serializable view of the histogram.
func (h *Histogram) Snapshot() HistogramSnapshot {
	precise := h.PrecisePercentiles()
	return HistogramSnapshot{
		BucketsMs:     h.Bounds(),
		Labels:        h.Labels(),
		Counts:        h.Counts(),
		TotalSamples:  h.TotalSamples(),
		AverageMs:     Round(h.Average(), 2),
		P50Ms:         Round(h.P50(), 2),
		P95Ms:         Round(h.P95(), 2),
		P99Ms:         Round(h.P99(), 2),
		Precise:       precise.rounded(2),
		JankPercent60: Round(h.JankPercent60(), 2),
		JankPercent30: Round(h.JankPercent30(), 2),
	}
}

// Reset zeroes every counter and the recent ring.
func (h *Histogram) Reset() {
	for i := range h.counts {
		h.counts[i].Store(0)
	}
	for i := range h.recent {
		h.recent[i].Store(0)
	}
	h.total.Store(0)
	h.sumMicros.Store(0)
	h.jank60.Store(0)
	h.jank30.Store(0)
	h.recentWrites.Store(0)

	h.preciseMu.Lock()
	h.precise.Reset()
	h.preciseMu.Unlock()
}

func percentOf(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100.0 / float64(total)
}
