// Package metrics provides the write path of the telemetry engine: rolling
// windows, histograms, the spike log and the per-point accumulators that own
// them.
//
// Every instrumentation point is a Point from a closed enumeration. A
// Profiler creates one TimingAccumulator per Point at construction, so the
// write path never creates structures on the fly except for the first sample
// of a new label.
//
// # Basic Usage
//
//	prof := metrics.NewProfiler(metrics.DefaultOptions())
//
//	// Record a duration directly
//	prof.AddSample(metrics.PointPhysics, 1250, "")
//
//	// Or time a region
//	scope := prof.Start(metrics.PointEntityAI, "zombie")
//	// ... work ...
//	scope.Stop()
//
//	snap := prof.Snapshot(10)
//	for _, p := range snap.Points {
//	    fmt.Printf("%s avg=%.2fms p99=%.2fms\n", p.Point, p.AvgMs, p.Histogram.P99Ms)
//	}
//
// # Windows
//
// Each accumulator keeps rolling windows over the last 60, 300 and 3600
// samples by default. Windows count samples, not time; at a fixed 20 tick per
// second loop they cover 3 s, 15 s and 3 min.
//
// # Thread Safety
//
// All write operations use atomic counters and compare-and-swap loops and
// never block. Reads are eventually consistent with concurrent writers.
// Reset methods are session boundary operations and must not race writers.
package metrics
