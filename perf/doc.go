// Package perf provides an in-process performance telemetry engine for
// fixed-rate loops such as game servers and simulations.
//
// Hot code records durations on named instrumentation points. A background
// analysis pass turns the recorded samples into rankings of bottlenecks,
// anomalies and correlations with host facts. The subpackages can be used
// separately:
//
//   - perf/metrics: the lock-free write path (windows, histograms, spikes)
//   - perf/analysis: correlation, bottleneck detection, anomalies, hints
//   - perf/driver: the periodic analysis loop
//   - perf/report: the JSON document of one analysis cycle
//   - perf/exporter: Prometheus metrics
//   - perf/config: YAML/JSON configuration
//
// # Quick Start
//
//	eng, _ := perf.New(nil, nil, nil)
//	go eng.Run(ctx)
//
//	for tick := range ticks {
//	    scope := eng.Profiler.Start(metrics.PointTick, "")
//	    runTick(tick)
//	    scope.Stop()
//	}
//
//	doc, _ := eng.Analyze()
//	for _, b := range doc.Bottlenecks.Top {
//	    fmt.Printf("%s %.2fms priority=%d\n", b.Name, b.AvgMs, b.Priority)
//	}
//
// # Host Facts
//
// Correlations and some bottlenecks need values the engine cannot measure
// itself, like heap usage or the number of AI agents. Pass a FactSource to
// New or push facts with Engine.PushFacts. Engine.TryPushFacts does the same
// without waiting, for callers on a frame budget.
package perf
