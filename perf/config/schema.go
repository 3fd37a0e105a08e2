package config

import (
	"fmt"
	"time"

	"github.com/wesleyorama2/tickscope/perf/analysis"
	"github.com/wesleyorama2/tickscope/perf/metrics"
)

// Config is the complete engine configuration.
type Config struct {
	// Spike configures the spike log
	Spike SpikeConfig `json:"spike" yaml:"spike"`

	// Histogram configures every per-point histogram
	Histogram HistogramConfig `json:"histogram" yaml:"histogram"`

	// Windows are the rolling window capacities in samples, shortest first
	Windows []int `json:"windows,omitempty" yaml:"windows,omitempty"`

	// Labels bounds per-point label aggregation
	Labels LabelConfig `json:"labels" yaml:"labels"`

	// Correlation sizes the correlation buffers
	Correlation CorrelationConfig `json:"correlation" yaml:"correlation"`

	// Analysis configures the periodic analysis pass
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`

	// Logging configures the logger
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Metrics configures the Prometheus exporter
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// SpikeConfig configures the spike log.
type SpikeConfig struct {
	// ThresholdMs is the initial spike threshold (default: 33.33)
	ThresholdMs float64 `json:"thresholdMs,omitempty" yaml:"thresholdMs,omitempty"`

	// Capacity is the number of retained spikes (default: 100)
	Capacity int `json:"capacity,omitempty" yaml:"capacity,omitempty"`
}

// HistogramConfig configures the histograms.
type HistogramConfig struct {
	// BucketsMs are the ascending bucket lower bounds, starting at 0
	BucketsMs []float64 `json:"bucketsMs,omitempty" yaml:"bucketsMs,omitempty"`

	// RecentSamples sizes the ring used for precise percentiles (default: 1000)
	RecentSamples int `json:"recentSamples,omitempty" yaml:"recentSamples,omitempty"`
}

// LabelConfig bounds label aggregation.
type LabelConfig struct {
	// MaxLabels is the distinct label limit per point (default: 1024)
	MaxLabels int `json:"maxLabels,omitempty" yaml:"maxLabels,omitempty"`

	// Shards is the number of label map shards (default: 16)
	Shards int `json:"shards,omitempty" yaml:"shards,omitempty"`
}

// CorrelationConfig sizes the correlation analyzer.
type CorrelationConfig struct {
	// Capacity is the number of pairs kept per correlation (default: 100)
	Capacity int `json:"capacity,omitempty" yaml:"capacity,omitempty"`

	// HistoryCapacity is the length of every named history series (default: 1000)
	HistoryCapacity int `json:"historyCapacity,omitempty" yaml:"historyCapacity,omitempty"`
}

// AnalysisConfig configures the analysis pass and the bottleneck detector.
type AnalysisConfig struct {
	// Interval is the time between analysis cycles (default: 5s)
	Interval Duration `json:"interval,omitempty" yaml:"interval,omitempty"`

	// TopN is the bottleneck ranking length, 1 to 100 (default: 10)
	TopN int `json:"topN,omitempty" yaml:"topN,omitempty"`

	// TickThresholdMs is the tick budget (default: 16.67)
	TickThresholdMs float64 `json:"tickThresholdMs,omitempty" yaml:"tickThresholdMs,omitempty"`

	// SignificanceRatio is the share of the tick a point needs to be ranked (default: 0.10)
	SignificanceRatio float64 `json:"significanceRatio,omitempty" yaml:"significanceRatio,omitempty"`

	// CriticalRatio is the share of the tick that earns the critical bonus (default: 0.30)
	CriticalRatio float64 `json:"criticalRatio,omitempty" yaml:"criticalRatio,omitempty"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is logfmt or json (default: logfmt)
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	// Namespace prefixes every exported metric (default: tickscope)
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// ProfilerOptions converts the configuration into metrics.Options.
func (c *Config) ProfilerOptions() metrics.Options {
	return metrics.Options{
		SpikeThresholdMs: c.Spike.ThresholdMs,
		SpikeCapacity:    c.Spike.Capacity,
		Accumulator: metrics.AccumulatorOptions{
			Windows:       c.Windows,
			BucketsMs:     c.Histogram.BucketsMs,
			RecentSamples: c.Histogram.RecentSamples,
			MaxLabels:     c.Labels.MaxLabels,
			LabelShards:   c.Labels.Shards,
		},
	}
}

// DetectorOptions converts the configuration into analysis.DetectorOptions.
func (c *Config) DetectorOptions() analysis.DetectorOptions {
	return analysis.DetectorOptions{
		TickThresholdMs:   c.Analysis.TickThresholdMs,
		SignificanceRatio: c.Analysis.SignificanceRatio,
		CriticalRatio:     c.Analysis.CriticalRatio,
		TopN:              c.Analysis.TopN,
	}
}

// Duration is a time.Duration that can be unmarshaled from JSON/YAML strings.
type Duration time.Duration

// GetDuration returns the duration or a default if empty.
func (d Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == 0 {
		return defaultValue
	}
	return time.Duration(d)
}

// String returns the duration in time.Duration notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes if present
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if s == "" || s == "null" {
		*d = 0
		return nil
	}

	dur, err := ParseDurationString(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	if s == "" {
		*d = 0
		return nil
	}

	dur, err := ParseDurationString(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}
