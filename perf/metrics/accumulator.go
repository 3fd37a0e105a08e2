package metrics

import (
	"math"
	"sync/atomic"
)

// DefaultWindows are the rolling window capacities, in samples, kept by every
// accumulator: short, medium and long horizon.
var DefaultWindows = []int{60, 300, 3600}

// AccumulatorOptions configures a TimingAccumulator.
type AccumulatorOptions struct {
	// Windows are the rolling window capacities in samples (default: DefaultWindows)
	Windows []int

	// BucketsMs are the histogram lower bounds (default: DefaultBucketsMs)
	BucketsMs []float64

	// RecentSamples sizes the histogram's recent-sample ring (default: 1000)
	RecentSamples int

	// MaxLabels caps distinct labels before folding into OtherLabel (default: 1024)
	MaxLabels int

	// LabelShards is the number of label map shards (default: 16)
	LabelShards int
}

// TimingAccumulator aggregates every sample of one Point: lifetime counters,
// a rolling window per horizon, a histogram and per-label sub-aggregates.
//
// # Thread Safety
//
// Add is safe for concurrent use and does not block. A label seen for the
// first time allocates its SubAccumulator once; every later sample is
// allocation free. Reset must not run concurrently with Add.
type TimingAccumulator struct {
	point Point

	calls atomic.Int64
	total atomic.Int64
	max   atomic.Int64
	min   atomic.Int64

	windows []*RollingWindow
	hist    *Histogram
	labels  *labelMap
}

// NewTimingAccumulator creates the accumulator of point p.
func NewTimingAccumulator(p Point, opts AccumulatorOptions) *TimingAccumulator {
	caps := opts.Windows
	if len(caps) == 0 {
		caps = DefaultWindows
	}

	a := &TimingAccumulator{
		point:   p,
		windows: make([]*RollingWindow, len(caps)),
		hist:    NewHistogramWithRecent(opts.BucketsMs, opts.RecentSamples),
		labels:  newLabelMap(opts.MaxLabels, opts.LabelShards),
	}
	for i, c := range caps {
		a.windows[i] = NewRollingWindow(c)
	}
	a.min.Store(math.MaxInt64)
	return a
}

// Add records one sample. An empty label records no label aggregate.
func (a *TimingAccumulator) Add(durationMicros int64, label string) {
	a.calls.Add(1)
	a.total.Add(durationMicros)
	storeMax(&a.max, durationMicros)
	storeMin(&a.min, durationMicros)

	for _, w := range a.windows {
		w.Add(durationMicros)
	}
	a.hist.Add(durationMicros)

	if label != "" {
		a.labels.get(label).add(durationMicros)
	}
}

// Point returns the point this accumulator belongs to.
func (a *TimingAccumulator) Point() Point { return a.point }

// Calls returns the number of samples since the last reset.
func (a *TimingAccumulator) Calls() int64 { return a.calls.Load() }

// TotalMicros returns the summed duration since the last reset.
func (a *TimingAccumulator) TotalMicros() int64 { return a.total.Load() }

// MaxMicros returns the longest sample, or 0 when empty.
func (a *TimingAccumulator) MaxMicros() int64 { return a.max.Load() }

// MinMicros returns the shortest sample, or 0 when empty.
func (a *TimingAccumulator) MinMicros() int64 {
	v := a.min.Load()
	if v == math.MaxInt64 {
		return 0
	}
	return v
}

// AvgMs returns the lifetime mean in milliseconds, or 0 when empty.
func (a *TimingAccumulator) AvgMs() float64 {
	calls := a.calls.Load()
	if calls == 0 {
		return 0
	}
	return microsToMs(a.total.Load()) / float64(calls)
}

// Windows returns the rolling windows, shortest horizon first.
func (a *TimingAccumulator) Windows() []*RollingWindow {
	return a.windows
}

// Window returns the i-th rolling window, or nil when out of range.
func (a *TimingAccumulator) Window(i int) *RollingWindow {
	if i < 0 || i >= len(a.windows) {
		return nil
	}
	return a.windows[i]
}

// ShortWindowAvgMs is the average of the shortest window in milliseconds.
// Detectors use it as the "current" value of the point.
func (a *TimingAccumulator) ShortWindowAvgMs() float64 {
	if len(a.windows) == 0 {
		return a.AvgMs()
	}
	return microsToMs(a.windows[0].Average())
}

// Histogram returns the accumulator's histogram.
func (a *TimingAccumulator) Histogram() *Histogram { return a.hist }

// Label returns the aggregate of one label.
func (a *TimingAccumulator) Label(label string) (*SubAccumulator, bool) {
	return a.labels.lookup(label)
}

// LabelCount returns the number of distinct labels recorded.
func (a *TimingAccumulator) LabelCount() int { return a.labels.len() }

// TopLabelsByTotal returns the n labels with the largest summed duration.
func (a *TimingAccumulator) TopLabelsByTotal(n int) []LabelStat {
	return topLabels(a.labels.stats(), n, func(s LabelStat) float64 { return s.TotalMs })
}

// TopLabelsByMax returns the n labels with the longest single sample.
func (a *TimingAccumulator) TopLabelsByMax(n int) []LabelStat {
	return topLabels(a.labels.stats(), n, func(s LabelStat) float64 { return s.MaxMs })
}

// TopLabelsByCalls returns the n most frequent labels.
func (a *TimingAccumulator) TopLabelsByCalls(n int) []LabelStat {
	return topLabels(a.labels.stats(), n, func(s LabelStat) float64 { return float64(s.Calls) })
}

// Snapshot returns a serializable view with label rankings of length topN.
func (a *TimingAccumulator) Snapshot(topN int) AccumulatorSnapshot {
	info := a.point.Info()
	stats := a.labels.stats()

	snap := AccumulatorSnapshot{
		Point:       info.Name,
		DisplayName: info.DisplayName,
		Category:    info.Category,
		Calls:       a.Calls(),
		TotalMs:     Round(microsToMs(a.TotalMicros()), 3),
		AvgMs:       Round(a.AvgMs(), 3),
		MaxMs:       Round(microsToMs(a.MaxMicros()), 3),
		MinMs:       Round(microsToMs(a.MinMicros()), 3),
		Windows:     make([]WindowSnapshot, len(a.windows)),
		Histogram:   a.hist.Snapshot(),
		Labels: LabelTopN{
			ByTotal: topLabels(stats, topN, func(s LabelStat) float64 { return s.TotalMs }),
			ByMax:   topLabels(stats, topN, func(s LabelStat) float64 { return s.MaxMs }),
			ByCalls: topLabels(stats, topN, func(s LabelStat) float64 { return float64(s.Calls) }),
		},
		LabelCount: len(stats),
	}
	for i, w := range a.windows {
		snap.Windows[i] = WindowSnapshot{
			Capacity:   w.Capacity(),
			Samples:    w.SampleCount(),
			AvgMs:      Round(microsToMs(w.Average()), 3),
			MaxMs:      Round(microsToMs(w.Max()), 3),
			Confidence: Round(w.Confidence(), 3),
			Meaningful: w.IsStatisticallyMeaningful(),
			MaxRescans: w.Rescans(),
		}
	}
	return snap
}

// Reset returns the accumulator to its initial state. Buffers are reused.
func (a *TimingAccumulator) Reset() {
	a.calls.Store(0)
	a.total.Store(0)
	a.max.Store(0)
	a.min.Store(math.MaxInt64)
	for _, w := range a.windows {
		w.Reset()
	}
	a.hist.Reset()
	a.labels.reset()
}
