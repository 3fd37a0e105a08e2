// Package output renders analysis documents for the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/wesleyorama2/tickscope/perf/analysis"
	"github.com/wesleyorama2/tickscope/perf/metrics"
	"github.com/wesleyorama2/tickscope/perf/report"
)

const (
	ruleWidth = 64
	barWidth  = 20
)

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Writer      io.Writer
	NoColor     bool
	ForceColors bool

	// MaxPoints limits the point table (default: 12)
	MaxPoints int
}

// Console prints human readable summaries of report documents.
type Console struct {
	w         io.Writer
	scheme    *ColorScheme
	noColor   bool
	maxPoints int
}

// NewConsole creates a console writer. Colors are used when the writer is a
// terminal that supports them, unless NoColor is set or ForceColors overrides
// the detection.
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = 12
	}

	useColors := cfg.ForceColors || (!cfg.NoColor && IsTerminal(cfg.Writer) && supportsColors())
	scheme := NoColorScheme()
	if useColors {
		scheme = ForceColorScheme()
	}
	return &Console{
		w:         cfg.Writer,
		scheme:    scheme,
		noColor:   !useColors,
		maxPoints: cfg.MaxPoints,
	}
}

// PrintSummary writes the session, point, bottleneck, anomaly, spike and
// correlation sections of doc.
func (c *Console) PrintSummary(title string, doc report.Document) {
	s := c.scheme
	line := strings.Repeat("━", ruleWidth)

	c.writeln("")
	c.writeln(s.Title.Sprint(line))
	c.writeln(s.Title.Sprint(title))
	c.writeln(s.Title.Sprint(line))
	c.writeln("")

	elapsed := time.Duration(doc.Session.DurationSeconds * float64(time.Second))
	c.writeln(fmt.Sprintf("Duration:      %s", s.Value.Sprint(formatDuration(elapsed))))
	c.writeln(fmt.Sprintf("Samples:       %s", s.Value.Sprint(formatNumber(doc.Session.TotalSamples))))
	if doc.Session.ClampedSamples > 0 {
		c.writeln(fmt.Sprintf("Clamped:       %s", s.Warn.Sprint(formatNumber(doc.Session.ClampedSamples))))
	}
	c.writeln(fmt.Sprintf("Cycles:        %s", s.Value.Sprint(doc.Session.Cycle)))
	c.writeln("")

	c.printPoints(doc.Points)
	c.printBottlenecks(doc.Bottlenecks.Top)
	c.printAnomalies(doc.Bottlenecks.Anomalies)
	c.printSpikes(doc.Spikes)
	c.printCorrelations(doc.Correlations)
	c.printSuggestions(doc.Bottlenecks.Suggestions)
}

func (c *Console) printPoints(points []metrics.AccumulatorSnapshot) {
	if len(points) == 0 {
		c.writeln(c.scheme.Dim.Sprint("No samples recorded."))
		c.writeln("")
		return
	}

	c.writeln(c.scheme.Section.Sprint("Timing Points:"))
	c.writeln(c.scheme.Dim.Sprintf("  %-20s %10s %10s %10s %10s %8s", "point", "calls", "avg", "p95", "max", "jank60"))
	for i, p := range points {
		if i == c.maxPoints {
			c.writeln(c.scheme.Dim.Sprintf("  ... %d more", len(points)-c.maxPoints))
			break
		}
		jank := fmt.Sprintf("%7.1f%%", p.Histogram.JankPercent60)
		if p.Histogram.JankPercent60 >= 5 {
			jank = c.scheme.Warn.Sprint(jank)
		}
		c.writeln(fmt.Sprintf("  %-20s %10s %10s %10s %10s %8s",
			p.Point,
			formatNumber(p.Calls),
			formatMs(p.AvgMs),
			formatMs(p.Histogram.Precise.P95),
			formatMs(p.MaxMs),
			jank))
	}
	c.writeln("")
}

func (c *Console) printBottlenecks(top []report.BottleneckEntry) {
	c.writeln(c.scheme.Section.Sprint("Top Bottlenecks:"))
	if len(top) == 0 {
		c.writeln(fmt.Sprintf("  %s none above the significance ratio", SuccessIcon(c.noColor)))
		c.writeln("")
		return
	}
	for i, b := range top {
		prio := c.scheme.PriorityColor(b.Priority).Sprintf("%3d", b.Priority)
		c.writeln(fmt.Sprintf("  %2d. %s %-24s %s %6.1f%% %10s  → %s",
			i+1, prio, b.DisplayName, bar(b.RatioPercent/100, barWidth), b.RatioPercent, formatMs(b.AvgMs), b.Target))
	}
	c.writeln("")
}

func (c *Console) printAnomalies(rep analysis.AnomalyReport) {
	c.writeln(c.scheme.Section.Sprint("Anomalies:"))
	if rep.Count == 0 {
		c.writeln(fmt.Sprintf("  %s none", SuccessIcon(c.noColor)))
		c.writeln("")
		return
	}
	for _, a := range rep.Items {
		icon := WarningIcon(c.noColor)
		if a.Severity == analysis.SeverityCritical {
			icon = ErrorIcon(c.noColor)
		}
		sev := c.scheme.SeverityColor(string(a.Severity)).Sprintf("%-8s", a.Severity)
		c.writeln(fmt.Sprintf("  %s %s %s", icon, sev, a.Message))
	}
	c.writeln("")
}

func (c *Console) printSpikes(sp metrics.SpikeSnapshot) {
	c.writeln(c.scheme.Section.Sprint("Spikes:"))
	c.writeln(fmt.Sprintf("  Threshold:   %s", formatMs(sp.ThresholdMs)))
	c.writeln(fmt.Sprintf("  Total:       %s", c.scheme.Value.Sprint(formatNumber(sp.TotalSpikes))))
	if sp.TotalSpikes > 0 {
		worst := sp.WorstPoint
		if sp.WorstLabel != "" {
			worst += " (" + sp.WorstLabel + ")"
		}
		c.writeln(fmt.Sprintf("  Worst:       %s %s", c.scheme.Bad.Sprint(formatMs(sp.WorstMs)), worst))
	}
	c.writeln("")
}

func (c *Console) printCorrelations(rep analysis.CorrelationReport) {
	var rows []analysis.CorrelationEntry
	for _, e := range rep.Entries {
		if e.Samples >= analysis.MinCorrelatePoints {
			rows = append(rows, e)
		}
	}
	if len(rows) == 0 {
		return
	}

	c.writeln(c.scheme.Section.Sprint("Correlations:"))
	for _, e := range rows {
		r := fmt.Sprintf("%+.2f", e.Correlation)
		if e.Strength == analysis.StrengthStrong || e.Strength == analysis.StrengthVeryStrong {
			r = c.scheme.Highlight.Sprint(r)
		}
		c.writeln(fmt.Sprintf("  %-22s %s  %-24s %s", e.Name, r, e.Interpretation, c.scheme.Dim.Sprintf("n=%d", e.Samples)))
	}
	c.writeln("")
}

func (c *Console) printSuggestions(suggestions []analysis.Suggestion) {
	var shown bool
	for _, sg := range suggestions {
		if sg.Target.IsNone() {
			continue
		}
		if !shown {
			c.writeln(c.scheme.Section.Sprint("Suggestions:"))
			shown = true
		}
		c.writeln(fmt.Sprintf("  %-8s %s", sg.Module, sg.Recommendation))
	}
	if shown {
		c.writeln("")
	}
}

func (c *Console) writeln(s string) {
	fmt.Fprintln(c.w, s)
}
