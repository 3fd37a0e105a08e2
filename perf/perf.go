package perf

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wesleyorama2/tickscope/perf/analysis"
	"github.com/wesleyorama2/tickscope/perf/config"
	"github.com/wesleyorama2/tickscope/perf/driver"
	"github.com/wesleyorama2/tickscope/perf/exporter"
	"github.com/wesleyorama2/tickscope/perf/metrics"
	"github.com/wesleyorama2/tickscope/perf/report"
)

// Engine wires every part of the telemetry engine from one configuration.
//
// For programmatic use, create an Engine, record samples on its Profiler and
// run its driver loop:
//
//	cfg, _ := config.LoadConfig("tickscope.yaml")
//	eng, _ := perf.New(cfg, logger, nil)
//	go eng.Run(ctx)
//
//	scope := eng.Profiler.Start(metrics.PointPhysics, "")
//	// ... work ...
//	scope.Stop()
type Engine struct {
	Profiler *metrics.Profiler
	Detector *analysis.Detector
	Analyzer *analysis.Analyzer
	Hints    *analysis.Hints
	Driver   *driver.Driver
	Exporter *exporter.Collector

	config  *config.Config
	logger  log.Logger
	release driver.Release
}

// New creates an engine. A nil cfg selects config.Default(); a nil logger
// discards logs; facts is optional and polled once per analysis cycle.
func New(cfg *config.Config, logger log.Logger, facts analysis.FactSource) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	} else {
		config.ApplyDefaults(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	prof := metrics.NewProfiler(cfg.ProfilerOptions())
	det := analysis.NewDetector(prof, cfg.DetectorOptions(), analysis.PathfindingCost{}, analysis.DefaultAICost)
	interval := cfg.Analysis.Interval.GetDuration(config.DefaultInterval)
	hints, err := analysis.NewHints(det, interval)
	if err != nil {
		return nil, err
	}
	an := analysis.NewAnalyzer(prof, cfg.Correlation.Capacity, cfg.Correlation.HistoryCapacity)

	drv, err := driver.New(driver.Components{
		Profiler: prof,
		Detector: det,
		Analyzer: an,
		Hints:    hints,
	}, driver.Options{
		Interval: interval,
		Source:   facts,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	exp := exporter.New(cfg.Metrics.Namespace, prof)
	e := &Engine{
		Profiler: prof,
		Detector: det,
		Analyzer: an,
		Hints:    hints,
		Driver:   drv,
		Exporter: exp,
		config:   cfg,
		logger:   logger,
	}
	e.release = drv.Register(exp.Observe)
	return e, nil
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config { return e.config }

// Run runs the analysis loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	return e.Driver.Run(ctx)
}

// Analyze runs one analysis cycle now and returns its document.
func (e *Engine) Analyze() (report.Document, error) {
	return e.Driver.RunOnce()
}

// PushFacts forwards host facts to the next analysis cycle.
func (e *Engine) PushFacts(ctx context.Context, facts analysis.Facts) error {
	return e.Driver.PushFacts(ctx, facts)
}

// TryPushFacts forwards host facts if the driver has room for them now.
func (e *Engine) TryPushFacts(facts analysis.Facts) bool {
	return e.Driver.TryPushFacts(facts)
}

// SetSpikeThreshold changes the spike threshold for future samples.
func (e *Engine) SetSpikeThreshold(ms float64) {
	old := e.Profiler.Spikes().ThresholdMs()
	e.Profiler.Spikes().SetThresholdMs(ms)
	level.Info(e.logger).Log("msg", "spike threshold changed", "old_ms", old, "new_ms", e.Profiler.Spikes().ThresholdMs())
}

// SetTopN changes the bottleneck ranking length, clamped to [1, 100].
func (e *Engine) SetTopN(n int) int {
	got := e.Detector.SetTopN(n)
	e.Hints.Invalidate()
	level.Info(e.logger).Log("msg", "bottleneck ranking length changed", "requested", n, "top_n", got)
	return got
}

// SetEnabled turns sample recording on or off.
func (e *Engine) SetEnabled(on bool) {
	e.Profiler.SetEnabled(on)
	level.Info(e.logger).Log("msg", "profiling toggled", "enabled", on)
}

// Register adds the Prometheus collector to reg.
func (e *Engine) Register(reg prometheus.Registerer) error {
	if err := reg.Register(e.Exporter); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}
	return nil
}

// Reset clears every sample, spike and correlation. It must not race
// writers.
func (e *Engine) Reset() {
	e.Profiler.Reset()
	e.Analyzer.Reset()
	e.Hints.Invalidate()
	level.Info(e.logger).Log("msg", "profiler reset", "at", time.Now().Format(time.RFC3339))
}

// Close detaches the exporter and stops accepting facts.
func (e *Engine) Close() {
	if e.release != nil {
		e.release()
	}
	e.Driver.Close()
}
