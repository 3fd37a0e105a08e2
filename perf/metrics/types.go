package metrics

import (
	"math"
	"time"
)

// LatencyPercentiles holds percentile values in milliseconds.
type LatencyPercentiles struct {
	P50 float64 `json:"p50_ms"`
	P95 float64 `json:"p95_ms"`
	P99 float64 `json:"p99_ms"`
	Max float64 `json:"max_ms"`
}

func (l LatencyPercentiles) rounded(places int) LatencyPercentiles {
	return LatencyPercentiles{
		P50: Round(l.P50, places),
		P95: Round(l.P95, places),
		P99: Round(l.P99, places),
		Max: Round(l.Max, places),
	}
}

// HistogramSnapshot is a point-in-time view of a Histogram.
type HistogramSnapshot struct {
	BucketsMs     []float64          `json:"buckets_ms"`
	Labels        []string           `json:"labels"`
	Counts        []int64            `json:"counts"`
	TotalSamples  int64              `json:"total_samples"`
	AverageMs     float64            `json:"average_ms"`
	P50Ms         float64            `json:"p50_ms"`
	P95Ms         float64            `json:"p95_ms"`
	P99Ms         float64            `json:"p99_ms"`
	Precise       LatencyPercentiles `json:"precise"`
	JankPercent60 float64            `json:"jank_percent_60fps"`
	JankPercent30 float64            `json:"jank_percent_30fps"`
}

// WindowSnapshot is the state of one rolling window.
type WindowSnapshot struct {
	Capacity   int     `json:"capacity"`
	Samples    int     `json:"samples"`
	AvgMs      float64 `json:"avg_ms"`
	MaxMs      float64 `json:"max_ms"`
	Confidence float64 `json:"confidence"`
	Meaningful bool    `json:"meaningful"`
	MaxRescans int64   `json:"max_rescans"`
}

// LabelStat is the aggregate of one label under a point.
type LabelStat struct {
	Label   string  `json:"label"`
	Calls   int64   `json:"calls"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
}

// LabelTopN ranks the labels of a point three ways.
type LabelTopN struct {
	ByTotal []LabelStat `json:"by_total"`
	ByMax   []LabelStat `json:"by_max"`
	ByCalls []LabelStat `json:"by_calls"`
}

// AccumulatorSnapshot is the exported state of one point.
type AccumulatorSnapshot struct {
	Point       string            `json:"point"`
	DisplayName string            `json:"display_name"`
	Category    Category          `json:"category"`
	Calls       int64             `json:"calls"`
	TotalMs     float64           `json:"total_ms"`
	AvgMs       float64           `json:"avg_ms"`
	MaxMs       float64           `json:"max_ms"`
	MinMs       float64           `json:"min_ms"`
	Windows     []WindowSnapshot  `json:"windows"`
	Histogram   HistogramSnapshot `json:"histogram"`
	Labels      LabelTopN         `json:"labels"`
	LabelCount  int               `json:"label_count"`
}

// SpikeEntrySnapshot is one retained spike.
type SpikeEntrySnapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	Point      string    `json:"point"`
	Label      string    `json:"label,omitempty"`
	DurationMs float64   `json:"duration_ms"`
}

// SpikeSnapshot is the exported state of a SpikeLog.
type SpikeSnapshot struct {
	ThresholdMs float64              `json:"threshold_ms"`
	TotalSpikes int64                `json:"total_spikes"`
	Retained    int                  `json:"retained"`
	WorstMs     float64              `json:"worst_ms"`
	WorstPoint  string               `json:"worst_point,omitempty"`
	WorstLabel  string               `json:"worst_label,omitempty"`
	ByPoint     map[string]int       `json:"by_point"`
	Recent      []SpikeEntrySnapshot `json:"recent"`
}

// ProfilerSnapshot is the exported state of a Profiler.
type ProfilerSnapshot struct {
	Enabled        bool                  `json:"enabled"`
	TotalSamples   int64                 `json:"total_samples"`
	ClampedSamples int64                 `json:"clamped_samples"`
	Points         []AccumulatorSnapshot `json:"points"`
	Spikes         SpikeSnapshot         `json:"spikes"`
	Timestamp      time.Time             `json:"timestamp"`
}

// Round rounds v to the given number of decimal places. NaN and infinities
// become 0 so snapshots always serialize.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func microsToMs(v int64) float64 {
	return float64(v) / 1000.0
}
