package config

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidate_Defaults(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Validate() returned error for default config: %v", err)
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"negative threshold", func(c *Config) { c.Spike.ThresholdMs = -1 }, "spike.thresholdMs"},
		{"NaN threshold", func(c *Config) { c.Spike.ThresholdMs = math.NaN() }, "spike.thresholdMs"},
		{"zero spike capacity", func(c *Config) { c.Spike.Capacity = -5 }, "spike.capacity"},
		{"buckets not starting at zero", func(c *Config) { c.Histogram.BucketsMs = []float64{1, 2} }, "histogram.bucketsMs"},
		{"buckets not ascending", func(c *Config) { c.Histogram.BucketsMs = []float64{0, 5, 5} }, "histogram.bucketsMs"},
		{"empty windows", func(c *Config) { c.Windows = nil }, "windows"},
		{"zero window", func(c *Config) { c.Windows = []int{60, 0} }, "windows[1]"},
		{"zero max labels", func(c *Config) { c.Labels.MaxLabels = -1 }, "labels.maxLabels"},
		{"small correlation capacity", func(c *Config) { c.Correlation.Capacity = 4 }, "correlation.capacity"},
		{"zero interval", func(c *Config) { c.Analysis.Interval = -1 }, "analysis.interval"},
		{"topN too large", func(c *Config) { c.Analysis.TopN = 101 }, "analysis.topN"},
		{"significance above one", func(c *Config) { c.Analysis.SignificanceRatio = 1.5 }, "analysis.significanceRatio"},
		{"critical below significance", func(c *Config) { c.Analysis.CriticalRatio = 0.05 }, "analysis.criticalRatio"},
		{"unknown level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad namespace", func(c *Config) { c.Metrics.Namespace = "tick-scope" }, "metrics.namespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should return an error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error should mention %q, got: %v", tt.field, err)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Spike.Capacity = -1
	cfg.Analysis.TopN = 0
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	var verrs *ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Validate() error type = %T, want *ValidationErrors", err)
	}
	if len(verrs.Errors) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(verrs.Errors), err)
	}
	if !strings.HasPrefix(err.Error(), "3 validation errors") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestValidationError_Error(t *testing.T) {
	e := &ValidationError{Field: "spike.capacity", Message: "must be positive"}
	if got := e.Error(); got != "validation error on field 'spike.capacity': must be positive" {
		t.Errorf("Error() = %q", got)
	}
	e = &ValidationError{Message: "broken"}
	if got := e.Error(); got != "validation error: broken" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&ValidationErrors{}).Error(); got != "no validation errors" {
		t.Errorf("Error() = %q", got)
	}
}
