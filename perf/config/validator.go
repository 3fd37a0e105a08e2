package config

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/wesleyorama2/tickscope/perf/analysis"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"logfmt": true, "json": true}

	namespacePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Validate checks a configuration with defaults applied.
//
// Returns nil if valid, or a ValidationErrors containing all validation errors.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if c.Spike.ThresholdMs < 0 || !finite(c.Spike.ThresholdMs) {
		errs.Add("spike.thresholdMs", "must be a non-negative number")
	}
	if c.Spike.Capacity <= 0 {
		errs.Add("spike.capacity", "must be positive")
	}

	validateBuckets(c.Histogram.BucketsMs, errs)
	if c.Histogram.RecentSamples <= 0 {
		errs.Add("histogram.recentSamples", "must be positive")
	}

	if len(c.Windows) == 0 {
		errs.Add("windows", "at least one window is required")
	}
	for i, w := range c.Windows {
		if w <= 0 {
			errs.Add(fmt.Sprintf("windows[%d]", i), "window capacity must be positive")
		}
	}

	if c.Labels.MaxLabels <= 0 {
		errs.Add("labels.maxLabels", "must be positive")
	}
	if c.Labels.Shards <= 0 {
		errs.Add("labels.shards", "must be positive")
	}

	if c.Correlation.Capacity < analysis.MinCorrelatePoints {
		errs.Add("correlation.capacity", fmt.Sprintf("must be at least %d", analysis.MinCorrelatePoints))
	}
	if c.Correlation.HistoryCapacity <= 0 {
		errs.Add("correlation.historyCapacity", "must be positive")
	}

	validateAnalysis(&c.Analysis, errs)

	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs.Add("logging.level", fmt.Sprintf("unknown level %q (debug, info, warn, error)", c.Logging.Level))
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs.Add("logging.format", fmt.Sprintf("unknown format %q (logfmt, json)", c.Logging.Format))
	}
	if !namespacePattern.MatchString(c.Metrics.Namespace) {
		errs.Add("metrics.namespace", fmt.Sprintf("invalid metric namespace %q", c.Metrics.Namespace))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateBuckets(buckets []float64, errs *ValidationErrors) {
	if len(buckets) == 0 {
		errs.Add("histogram.bucketsMs", "at least one bucket is required")
		return
	}
	if buckets[0] != 0 {
		errs.Add("histogram.bucketsMs", "first bucket must start at 0")
	}
	for i := 1; i < len(buckets); i++ {
		if !finite(buckets[i]) || buckets[i] <= buckets[i-1] {
			errs.Add("histogram.bucketsMs", fmt.Sprintf("bucket %d (%v) must be greater than bucket %d", i, buckets[i], i-1))
		}
	}
}

func validateAnalysis(a *AnalysisConfig, errs *ValidationErrors) {
	if a.Interval <= 0 {
		errs.Add("analysis.interval", "must be positive")
	}
	if a.TopN < 1 || a.TopN > analysis.MaxTopN {
		errs.Add("analysis.topN", fmt.Sprintf("must be between 1 and %d", analysis.MaxTopN))
	}
	if a.TickThresholdMs <= 0 || !finite(a.TickThresholdMs) {
		errs.Add("analysis.tickThresholdMs", "must be positive")
	}
	if a.SignificanceRatio <= 0 || a.SignificanceRatio > 1 {
		errs.Add("analysis.significanceRatio", "must be in (0, 1]")
	}
	if a.CriticalRatio <= 0 || a.CriticalRatio > 1 {
		errs.Add("analysis.criticalRatio", "must be in (0, 1]")
	} else if a.CriticalRatio < a.SignificanceRatio {
		errs.Add("analysis.criticalRatio", "must not be below significanceRatio")
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
