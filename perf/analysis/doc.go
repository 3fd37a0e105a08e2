// Package analysis derives insights from the accumulators of a
// metrics.Profiler: ranked bottlenecks, anomalies, cross-metric correlations
// and per-module optimization hints.
//
// Everything in this package is read-only with respect to the profiler and is
// meant to run on a single goroutine every few seconds. Missing data is never
// an error: empty accumulators produce empty rankings, zero correlations and
// the NoBottleneck sentinel.
//
// Facts the profiler cannot measure itself, like heap usage or entity counts,
// are passed in as Facts, usually collected from a FactSource.
//
//	det := analysis.NewDetector(prof, analysis.DetectorOptions{}, analysis.PathfindingCost{})
//	for _, b := range det.Identify(5, facts) {
//	    fmt.Printf("%-20s %5.1fms prio=%d\n", b.DisplayName, b.AvgMs, b.Priority)
//	}
package analysis
