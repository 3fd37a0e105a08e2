package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/tickscope/perf/analysis"
	"github.com/wesleyorama2/tickscope/perf/metrics"
)

const (
	DefaultInterval  = 5 * time.Second
	DefaultLogLevel  = "info"
	DefaultLogFormat = "logfmt"
	DefaultNamespace = "tickscope"
)

// Default returns a configuration with every default filled in.
func Default() *Config {
	c := &Config{}
	ApplyDefaults(c)
	return c
}

// LoadConfig loads a configuration from a file, applies defaults and
// validates it.
//
// The file format is determined by extension:
//   - .yaml, .yml -> YAML
//   - .json -> JSON
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseConfig(data, path)
	if err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is LoadConfig, or Default when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadConfig(path)
}

// ParseConfig parses configuration data without applying defaults.
//
// The format is determined by the file extension in path, or defaults to YAML
// if the path is empty or has an unknown extension.
func ParseConfig(data []byte, path string) (*Config, error) {
	var config Config

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		// Try YAML by default
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config (unknown format %s): %w", ext, err)
		}
	}

	return &config, nil
}

// ParseDurationString parses a duration string with support for common formats.
//
// Supported formats:
//   - Standard Go duration: "30s", "2m", "1h30m", "500ms"
//   - Seconds as integer: "30" (treated as 30 seconds)
func ParseDurationString(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	// Try standard Go duration parsing first
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	// Try parsing as integer seconds
	var seconds int
	var rest string
	if n, _ := fmt.Sscanf(s, "%d%s", &seconds, &rest); n == 1 {
		return time.Duration(seconds) * time.Second, nil
	}

	return 0, fmt.Errorf("invalid duration format: %s", s)
}

// ApplyDefaults fills every zero field with its default.
func ApplyDefaults(config *Config) {
	if config.Spike.ThresholdMs == 0 {
		config.Spike.ThresholdMs = metrics.DefaultSpikeThresholdMs
	}
	if config.Spike.Capacity == 0 {
		config.Spike.Capacity = metrics.DefaultSpikeCapacity
	}

	if len(config.Histogram.BucketsMs) == 0 {
		config.Histogram.BucketsMs = append([]float64(nil), metrics.DefaultBucketsMs...)
	}
	if config.Histogram.RecentSamples == 0 {
		config.Histogram.RecentSamples = metrics.DefaultRecentSamples
	}

	if len(config.Windows) == 0 {
		config.Windows = append([]int(nil), metrics.DefaultWindows...)
	}

	if config.Labels.MaxLabels == 0 {
		config.Labels.MaxLabels = metrics.DefaultMaxLabels
	}
	if config.Labels.Shards == 0 {
		config.Labels.Shards = metrics.DefaultLabelShards
	}

	if config.Correlation.Capacity == 0 {
		config.Correlation.Capacity = analysis.DefaultCorrelationCapacity
	}
	if config.Correlation.HistoryCapacity == 0 {
		config.Correlation.HistoryCapacity = analysis.DefaultHistoryCapacity
	}

	applyAnalysisDefaults(&config.Analysis)

	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.Format == "" {
		config.Logging.Format = DefaultLogFormat
	}
	if config.Metrics.Namespace == "" {
		config.Metrics.Namespace = DefaultNamespace
	}
}

func applyAnalysisDefaults(a *AnalysisConfig) {
	if a.Interval == 0 {
		a.Interval = Duration(DefaultInterval)
	}
	if a.TopN == 0 {
		a.TopN = analysis.DefaultTopN
	}
	if a.TickThresholdMs == 0 {
		a.TickThresholdMs = analysis.DefaultTickThresholdMs
	}
	if a.SignificanceRatio == 0 {
		a.SignificanceRatio = analysis.DefaultSignificanceRatio
	}
	if a.CriticalRatio == 0 {
		a.CriticalRatio = analysis.DefaultCriticalRatio
	}
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}
