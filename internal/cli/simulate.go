package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/tickscope/internal/logging"
	"github.com/wesleyorama2/tickscope/internal/output"
	"github.com/wesleyorama2/tickscope/internal/workload"
	"github.com/wesleyorama2/tickscope/perf"
	"github.com/wesleyorama2/tickscope/perf/config"
	"github.com/wesleyorama2/tickscope/perf/report"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a synthetic game loop through the telemetry engine",
		Long: `Run a synthetic fixed-rate game loop, record its timings and host facts,
and print the analysis of the session.

  tickscope simulate --duration 30s --tps 20
  tickscope simulate --duration 1m --metrics-addr :9090
  tickscope simulate --ticks 2000 --fast --json
  tickscope simulate --duration 10s --select "$.bottlenecks.top_bottlenecks[0].name"`,
		Args: cobra.NoArgs,
		RunE: runSimulate,
	}

	cmd.Flags().StringP("config", "c", "", "Configuration file")
	cmd.Flags().Duration("duration", 10*time.Second, "How long to run the loop (0 runs until interrupted)")
	cmd.Flags().Int64("ticks", 0, "Stop after this many ticks (0 means no limit)")
	cmd.Flags().Float64("tps", workload.DefaultTPS, "Ticks per second")
	cmd.Flags().Bool("fast", false, "Run ticks back to back instead of pacing them")
	cmd.Flags().Float64("spike-rate", workload.DefaultSpikeRate, "Probability that a tick carries an injected spike")
	cmd.Flags().Int("entities", workload.DefaultEntities, "Mean simulated entity count")
	cmd.Flags().Int64("seed", 1, "Random seed")
	cmd.Flags().Duration("interval", 0, "Analysis interval (overrides the configuration)")
	cmd.Flags().Bool("json", false, "Output the final document as JSON")
	cmd.Flags().String("select", "", "Print one value of the final document, e.g. $.spikes.total_spikes")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	cmd.Flags().String("log-level", "", "Log level: debug, info, warn, error (overrides the configuration)")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	duration, _ := cmd.Flags().GetDuration("duration")
	maxTicks, _ := cmd.Flags().GetInt64("ticks")
	tps, _ := cmd.Flags().GetFloat64("tps")
	fast, _ := cmd.Flags().GetBool("fast")
	spikeRate, _ := cmd.Flags().GetFloat64("spike-rate")
	entities, _ := cmd.Flags().GetInt("entities")
	seed, _ := cmd.Flags().GetInt64("seed")
	interval, _ := cmd.Flags().GetDuration("interval")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	selectPath, _ := cmd.Flags().GetString("select")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	logLevel, _ := cmd.Flags().GetString("log-level")
	noColor, _ := cmd.Flags().GetBool("no-color")

	if tps <= 0 {
		return fmt.Errorf("--tps must be positive, got %v", tps)
	}

	cfg, err := config.LoadOrDefault(configFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if interval > 0 {
		cfg.Analysis.Interval = config.Duration(interval)
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		return err
	}

	eng, err := perf.New(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		shutdown, err := serveMetrics(eng, metricsAddr, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	loop := workload.NewLoop(eng.Profiler, eng, workload.Options{
		TPS:       tps,
		Duration:  duration,
		MaxTicks:  maxTicks,
		Unpaced:   fast,
		SpikeRate: spikeRate,
		Entities:  entities,
		Seed:      seed,
		Logger:    logger,
	})

	driverCtx, stopDriver := context.WithCancel(ctx)
	driverDone := make(chan error, 1)
	go func() {
		driverDone <- eng.Run(driverCtx)
	}()

	stats, runErr := loop.Run(ctx)

	// The driver runs one last cycle when it stops, so Latest covers every tick.
	stopDriver()
	if err := <-driverDone; err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	doc, ok := eng.Driver.Latest()
	if !ok {
		if doc, err = eng.Analyze(); err != nil {
			return err
		}
	}

	return writeResult(cmd, doc, stats, jsonOutput, selectPath, noColor)
}

func writeResult(cmd *cobra.Command, doc report.Document, stats workload.Stats, jsonOutput bool, selectPath string, noColor bool) error {
	out := cmd.OutOrStdout()

	switch {
	case selectPath != "":
		data, err := doc.JSON(false)
		if err != nil {
			return err
		}
		value, err := report.SelectString(data, selectPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, value)
	case jsonOutput:
		data, err := doc.JSON(true)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	default:
		console := output.NewConsole(output.ConsoleConfig{Writer: out, NoColor: noColor})
		console.PrintSummary("Simulation Summary", doc)
		fmt.Fprintf(out, "Ticks: %d  Injected spikes: %d  Late ticks: %d  Skipped fact batches: %d\n",
			stats.Ticks, stats.Spikes, stats.Late, stats.SkippedFacts)
	}
	return nil
}

// serveMetrics exposes the engine's collector on addr until the returned
// function is called.
func serveMetrics(eng *perf.Engine, addr string, logger log.Logger) (func(), error) {
	reg := prometheus.NewRegistry()
	if err := eng.Register(reg); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(logger).Log("msg", "metrics server failed", "addr", addr, "err", err)
		}
	}()
	level.Info(logger).Log("msg", "serving metrics", "addr", addr, "path", "/metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
