package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wesleyorama2/tickscope/perf/analysis"
	"github.com/wesleyorama2/tickscope/perf/metrics"
)

// Version is the document format version.
const Version = "1"

// Document is the serializable result of one analysis cycle.
type Document struct {
	Version      string                        `json:"version"`
	GeneratedAt  time.Time                     `json:"generated_at"`
	Session      Session                       `json:"session"`
	Points       []metrics.AccumulatorSnapshot `json:"points"`
	Spikes       metrics.SpikeSnapshot         `json:"spikes"`
	Bottlenecks  Bottlenecks                   `json:"bottlenecks"`
	Correlations analysis.CorrelationReport    `json:"correlations"`
	Facts        map[string]float64            `json:"facts"`
}

// Session describes the profiling session a document belongs to.
type Session struct {
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Cycle           int64     `json:"cycle"`
	Enabled         bool      `json:"enabled"`
	TotalSamples    int64     `json:"total_samples"`
	ClampedSamples  int64     `json:"clamped_samples"`
}

// Bottlenecks groups the detector output.
type Bottlenecks struct {
	Top         []BottleneckEntry      `json:"top_bottlenecks"`
	Suggestions []analysis.Suggestion  `json:"suggestions"`
	Anomalies   analysis.AnomalyReport `json:"anomalies"`
}

// BottleneckEntry is a ranked bottleneck with rounded values.
type BottleneckEntry struct {
	Name         string                 `json:"name"`
	DisplayName  string                 `json:"display_name"`
	AvgMs        float64                `json:"avg_ms"`
	RatioPercent float64                `json:"ratio_percent"`
	Type         metrics.BottleneckType `json:"type"`
	Target       metrics.Module         `json:"suggested_target"`
	Priority     int                    `json:"priority"`
}

// Inputs are the components a Document is built from. Only Profiler is
// required; missing analysis components leave their sections empty.
type Inputs struct {
	Profiler *metrics.Profiler
	Detector *analysis.Detector
	Analyzer *analysis.Analyzer
	Hints    *analysis.Hints
	Facts    analysis.Facts

	// TopN is the ranking length (default: the detector's TopN)
	TopN int

	StartedAt time.Time
	Now       time.Time
	Cycle     int64
}

// Build reads every component once and assembles a Document.
func Build(in Inputs) (Document, error) {
	if in.Profiler == nil {
		return Document{}, fmt.Errorf("report: profiler is required")
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	topN := in.TopN
	if topN <= 0 && in.Detector != nil {
		topN = in.Detector.TopN()
	}
	topN = analysis.ClampTopN(topN)

	snap := in.Profiler.Snapshot(topN)
	doc := Document{
		Version:     Version,
		GeneratedAt: in.Now,
		Session: Session{
			StartedAt:      in.StartedAt,
			Cycle:          in.Cycle,
			Enabled:        snap.Enabled,
			TotalSamples:   snap.TotalSamples,
			ClampedSamples: snap.ClampedSamples,
		},
		Points: snap.Points,
		Spikes: snap.Spikes,
		Bottlenecks: Bottlenecks{
			Top:         []BottleneckEntry{},
			Suggestions: []analysis.Suggestion{},
			Anomalies:   analysis.AnomalyReport{Items: []analysis.Anomaly{}},
		},
		Correlations: analysis.CorrelationReport{
			Entries: []analysis.CorrelationEntry{},
			Summary: analysis.CorrelationSummary{Strongest: "none"},
		},
		Facts: make(map[string]float64, len(in.Facts)),
	}
	if !in.StartedAt.IsZero() {
		doc.Session.DurationSeconds = metrics.Round(in.Now.Sub(in.StartedAt).Seconds(), 3)
	}

	if in.Detector != nil {
		for _, b := range in.Detector.Identify(topN, in.Facts) {
			doc.Bottlenecks.Top = append(doc.Bottlenecks.Top, entryOf(b))
		}
		doc.Bottlenecks.Anomalies = in.Detector.DetectAnomalies(in.Facts)
	}
	if in.Hints != nil {
		doc.Bottlenecks.Suggestions = in.Hints.All(in.Facts)
	}
	if in.Analyzer != nil {
		doc.Correlations = in.Analyzer.Analyze()
	}
	for k, v := range in.Facts {
		doc.Facts[string(k)] = metrics.Round(v, 3)
	}
	return doc, nil
}

func entryOf(b analysis.Bottleneck) BottleneckEntry {
	return BottleneckEntry{
		Name:         b.Name,
		DisplayName:  b.DisplayName,
		AvgMs:        metrics.Round(b.AvgMs, 2),
		RatioPercent: metrics.Round(b.Ratio*100, 2),
		Type:         b.Type,
		Target:       b.Target,
		Priority:     b.Priority,
	}
}

// Point returns the snapshot of a point by name, if it has samples.
func (d Document) Point(name string) (metrics.AccumulatorSnapshot, bool) {
	for _, p := range d.Points {
		if p.Point == name {
			return p, true
		}
	}
	return metrics.AccumulatorSnapshot{}, false
}

// JSON encodes the document, indented when pretty is set.
func (d Document) JSON(pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(d, "", "  ")
	}
	return json.Marshal(d)
}
