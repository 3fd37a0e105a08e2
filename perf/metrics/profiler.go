package metrics

import (
	"sync/atomic"
	"time"

	uatomic "go.uber.org/atomic"
)

// MaxSampleMicros is the largest duration a sample may carry: one hour.
// Longer samples are clamped to it.
const MaxSampleMicros int64 = 3_600_000_000

// Options configures a Profiler.
type Options struct {
	// SpikeThresholdMs is the initial spike threshold (default: 33.33)
	SpikeThresholdMs float64

	// SpikeCapacity is the number of retained spikes (default: 100)
	SpikeCapacity int

	// Accumulator configures every per-point accumulator
	Accumulator AccumulatorOptions
}

// DefaultOptions returns the options used by NewProfiler when given a zero
// value.
func DefaultOptions() Options {
	return Options{
		SpikeThresholdMs: DefaultSpikeThresholdMs,
		SpikeCapacity:    DefaultSpikeCapacity,
		Accumulator: AccumulatorOptions{
			Windows:       DefaultWindows,
			BucketsMs:     DefaultBucketsMs,
			RecentSamples: DefaultRecentSamples,
			MaxLabels:     DefaultMaxLabels,
			LabelShards:   DefaultLabelShards,
		},
	}
}

// Profiler is the write entry point of the engine. It owns one
// TimingAccumulator per Point and the SpikeLog they share.
//
// Samples outside [0, MaxSampleMicros] are clamped into range and counted in
// ClampedSamples. Samples for undefined points are ignored.
//
// # Thread Safety
//
// AddSample, Record and Scope.Stop are safe for concurrent use from any number
// of goroutines; they never block and never allocate once every label has
// been seen. Snapshot may run concurrently with writers and returns an
// eventually consistent view. Reset must not run concurrently with writers.
type Profiler struct {
	accs   [numPoints]*TimingAccumulator
	spikes *SpikeLog

	enabled *uatomic.Bool
	samples atomic.Int64
	clamped atomic.Int64
}

// NewProfiler creates a profiler. Zero fields in opts take their defaults.
func NewProfiler(opts Options) *Profiler {
	if opts.SpikeThresholdMs == 0 {
		opts.SpikeThresholdMs = DefaultSpikeThresholdMs
	}
	p := &Profiler{
		spikes:  NewSpikeLog(opts.SpikeThresholdMs, opts.SpikeCapacity),
		enabled: uatomic.NewBool(true),
	}
	for i := range p.accs {
		p.accs[i] = NewTimingAccumulator(Point(i), opts.Accumulator)
	}
	return p
}

// AddSample records a duration in microseconds for point.
func (p *Profiler) AddSample(point Point, durationMicros int64, label string) {
	if !p.enabled.Load() || !point.Valid() {
		return
	}

	switch {
	case durationMicros < 0:
		durationMicros = 0
		p.clamped.Add(1)
	case durationMicros > MaxSampleMicros:
		durationMicros = MaxSampleMicros
		p.clamped.Add(1)
	}

	p.samples.Add(1)
	p.accs[point].Add(durationMicros, label)
	p.spikes.Log(durationMicros, point, label)
}

// Record is AddSample for a time.Duration.
func (p *Profiler) Record(point Point, d time.Duration, label string) {
	p.AddSample(point, d.Microseconds(), label)
}

// Scope measures one region of code. It is a value type so starting and
// stopping a scope does not allocate.
type Scope struct {
	profiler *Profiler
	point    Point
	label    string
	start    time.Time
}

// Start opens a scope on point. Call Stop on the returned value when the
// region ends.
func (p *Profiler) Start(point Point, label string) Scope {
	return Scope{profiler: p, point: point, label: label, start: time.Now()}
}

// Stop records the time elapsed since Start and returns it. Stopping a zero
// Scope is a no-op.
func (s Scope) Stop() time.Duration {
	if s.profiler == nil {
		return 0
	}
	d := time.Since(s.start)
	s.profiler.Record(s.point, d, s.label)
	return d
}

// Accumulator returns the accumulator of point, or nil for undefined points.
func (p *Profiler) Accumulator(point Point) *TimingAccumulator {
	if !point.Valid() {
		return nil
	}
	return p.accs[point]
}

// Spikes returns the shared spike log.
func (p *Profiler) Spikes() *SpikeLog { return p.spikes }

// Enabled reports whether samples are being recorded.
func (p *Profiler) Enabled() bool { return p.enabled.Load() }

// SetEnabled turns recording on or off. A disabled profiler drops samples.
func (p *Profiler) SetEnabled(on bool) { p.enabled.Store(on) }

// TotalSamples is the number of samples accepted since the last reset.
func (p *Profiler) TotalSamples() int64 { return p.samples.Load() }

// ClampedSamples is the number of samples whose duration was out of range.
func (p *Profiler) ClampedSamples() int64 { return p.clamped.Load() }

// Snapshot returns the state of every point that has samples, in point
// order, with label rankings of length topN and the topN most recent spikes.
func (p *Profiler) Snapshot(topN int) ProfilerSnapshot {
	snap := ProfilerSnapshot{
		Enabled:        p.Enabled(),
		TotalSamples:   p.TotalSamples(),
		ClampedSamples: p.ClampedSamples(),
		Points:         make([]AccumulatorSnapshot, 0, len(p.accs)),
		Spikes:         p.spikes.Snapshot(topN),
		Timestamp:      time.Now(),
	}
	for _, acc := range p.accs {
		if acc.Calls() == 0 {
			continue
		}
		snap.Points = append(snap.Points, acc.Snapshot(topN))
	}
	return snap
}

// Reset clears every accumulator and the spike log. The enabled flag and the
// spike threshold are kept.
func (p *Profiler) Reset() {
	for _, acc := range p.accs {
		acc.Reset()
	}
	p.spikes.Reset()
	p.samples.Store(0)
	p.clamped.Store(0)
}
