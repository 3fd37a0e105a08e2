package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/wesleyorama2/tickscope/perf/analysis"
	"github.com/wesleyorama2/tickscope/perf/metrics"
	"github.com/wesleyorama2/tickscope/perf/report"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m 30s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 02m 03s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatMs(t *testing.T) {
	tests := []struct {
		ms   float64
		want string
	}{
		{0, "0ms"},
		{0.25, "250µs"},
		{12.345, "12.35ms"},
		{250, "250ms"},
	}
	for _, tt := range tests {
		if got := formatMs(tt.ms); got != tt.want {
			t.Errorf("formatMs(%v) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.n); got != tt.want {
			t.Errorf("formatNumber(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestBar(t *testing.T) {
	if got := bar(0.5, 10); got != "█████░░░░░" {
		t.Errorf("bar(0.5) = %q", got)
	}
	if got := bar(-1, 4); got != "░░░░" {
		t.Errorf("bar(-1) = %q", got)
	}
	if got := bar(2, 4); got != "████" {
		t.Errorf("bar(2) = %q", got)
	}
}

func sampleDocument() report.Document {
	return report.Document{
		Version: report.Version,
		Session: report.Session{DurationSeconds: 12.5, Cycle: 3, TotalSamples: 1200},
		Points: []metrics.AccumulatorSnapshot{
			{Point: "TICK", Calls: 250, AvgMs: 40, MaxMs: 80, Histogram: metrics.HistogramSnapshot{JankPercent60: 90}},
			{Point: "PHYSICS", Calls: 250, AvgMs: 20, MaxMs: 30},
		},
		Spikes: metrics.SpikeSnapshot{ThresholdMs: 33.33, TotalSpikes: 4, WorstMs: 80, WorstPoint: "TICK"},
		Bottlenecks: report.Bottlenecks{
			Top: []report.BottleneckEntry{
				{Name: "PHYSICS", DisplayName: "Physics", AvgMs: 20, RatioPercent: 50, Target: metrics.ModuleEngine, Priority: 90},
			},
			Anomalies: analysis.AnomalyReport{
				Count:       1,
				HasCritical: true,
				Items: []analysis.Anomaly{
					{Severity: analysis.SeverityCritical, Code: analysis.CodeTickOverload, Message: "Average tick time (40.00ms) is 2x over target"},
				},
			},
		},
		Correlations: analysis.CorrelationReport{
			Entries: []analysis.CorrelationEntry{
				{Name: "entities_vs_tick", Correlation: 0.91, Samples: 10, Strength: analysis.StrengthVeryStrong, Interpretation: "Strong Positive"},
				{Name: "chunks_vs_tick", Correlation: 0.5, Samples: 2},
			},
		},
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf, NoColor: true})
	c.PrintSummary("Session Summary", sampleDocument())
	out := buf.String()

	for _, want := range []string{
		"Session Summary",
		"Samples:       1,200",
		"TICK",
		"Physics",
		"ENGINE",
		"CRITICAL",
		"is 2x over target",
		"entities_vs_tick",
		"Strong Positive",
		"80.00ms TICK",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "chunks_vs_tick") {
		t.Error("correlations with too few samples should be hidden")
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("NoColor output should not contain escape codes")
	}
}

func TestPrintSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf, NoColor: true})
	c.PrintSummary("Empty", report.Document{})
	out := buf.String()

	if !strings.Contains(out, "No samples recorded.") {
		t.Errorf("expected empty point notice\n%s", out)
	}
	if !strings.Contains(out, "none above the significance ratio") {
		t.Errorf("expected empty bottleneck notice\n%s", out)
	}
	if strings.Contains(out, "Correlations:") || strings.Contains(out, "Suggestions:") {
		t.Errorf("empty sections should be omitted\n%s", out)
	}
}

func TestPrintSummaryMaxPoints(t *testing.T) {
	doc := sampleDocument()
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf, NoColor: true, MaxPoints: 1})
	c.PrintSummary("Limited", doc)
	if !strings.Contains(buf.String(), "... 1 more") {
		t.Errorf("expected truncation marker\n%s", buf.String())
	}
}

func TestForceColors(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(ConsoleConfig{Writer: &buf, ForceColors: true})
	c.PrintSummary("Colored", sampleDocument())
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Error("ForceColors output should contain escape codes")
	}
}
