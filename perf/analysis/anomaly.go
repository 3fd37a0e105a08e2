package analysis

import (
	"fmt"

	"github.com/wesleyorama2/tickscope/perf/metrics"
)

// Severity grades an anomaly.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Anomaly codes.
const (
	CodeTickOverload   = "TICK_OVERLOAD"
	CodeTickSlow       = "TICK_SLOW"
	CodeSpikeDetected  = "SPIKE_DETECTED"
	CodeMemoryCritical = "MEMORY_CRITICAL"
	CodeMemoryHigh     = "MEMORY_HIGH"
)

const (
	spikeFactor         = 5
	heapCriticalPercent = 90
	heapWarningPercent  = 75
)

// Anomaly is one finding of DetectAnomalies.
type Anomaly struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// AnomalyReport collects every rule that fired.
type AnomalyReport struct {
	Count       int       `json:"count"`
	HasCritical bool      `json:"has_critical"`
	Items       []Anomaly `json:"items"`
}

func (r *AnomalyReport) add(sev Severity, code, format string, args ...any) {
	r.Items = append(r.Items, Anomaly{Severity: sev, Code: code, Message: fmt.Sprintf(format, args...)})
	r.Count = len(r.Items)
	if sev == SeverityCritical {
		r.HasCritical = true
	}
}

// DetectAnomalies evaluates every rule independently:
//
//   - average tick above 2x / 1x the threshold: Critical / Warning
//   - max tick above 5x the average tick: Warning
//   - FactHeapUsagePercent above 90 / 75: Critical / Warning
//
// Rules whose input is missing do not fire.
func (d *Detector) DetectAnomalies(facts Facts) AnomalyReport {
	rep := AnomalyReport{Items: []Anomaly{}}

	if d.timings != nil {
		if acc := d.timings.Accumulator(metrics.RootPoint); acc != nil && acc.Calls() > 0 {
			avg := acc.AvgMs()
			maxMs := float64(acc.MaxMicros()) / 1000.0
			thr := d.opts.TickThresholdMs

			switch {
			case avg > 2*thr:
				rep.add(SeverityCritical, CodeTickOverload, "Average tick time (%.2fms) is 2x over target", avg)
			case avg > thr:
				rep.add(SeverityWarning, CodeTickSlow, "Average tick time (%.2fms) exceeds target", avg)
			}
			if maxMs > avg*spikeFactor {
				rep.add(SeverityWarning, CodeSpikeDetected, "Max spike (%.2fms) is 5x average", maxMs)
			}
		}
	}

	if heap, ok := facts.Get(FactHeapUsagePercent); ok {
		switch {
		case heap > heapCriticalPercent:
			rep.add(SeverityCritical, CodeMemoryCritical, "Heap usage at %.1f%%", heap)
		case heap > heapWarningPercent:
			rep.add(SeverityWarning, CodeMemoryHigh, "Heap usage at %.1f%%", heap)
		}
	}
	return rep
}
