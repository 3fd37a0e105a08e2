package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	uatomic "go.uber.org/atomic"

	"github.com/wesleyorama2/tickscope/perf/analysis"
	"github.com/wesleyorama2/tickscope/perf/metrics"
	"github.com/wesleyorama2/tickscope/perf/report"
)

const (
	// DefaultInterval is the time between two analysis cycles.
	DefaultInterval = 5 * time.Second

	// DefaultMailboxCapacity bounds the fact mailbox.
	DefaultMailboxCapacity = 128
)

// ErrRunning is returned by Run when the driver loop is already running.
var ErrRunning = errors.New("driver is already running")

// Options configures a Driver.
type Options struct {
	// Interval is the analysis period (default: 5s)
	Interval time.Duration

	// Source is polled for facts at the start of every cycle (optional)
	Source analysis.FactSource

	// MailboxCapacity bounds PushFacts; negative means unbounded (default: 128)
	MailboxCapacity int

	// TopN overrides the detector's ranking length for reports (optional)
	TopN int

	Logger log.Logger
}

// Components are the engine parts a Driver reads. Profiler is required.
type Components struct {
	Profiler *metrics.Profiler
	Detector *analysis.Detector
	Analyzer *analysis.Analyzer
	Hints    *analysis.Hints
}

// Release unregisters a subscriber.
type Release func()

// Driver runs the periodic analysis pass. Every cycle it collects host facts
// from the mailbox and the optional source, feeds the correlation analyzer,
// builds a report.Document, publishes it as Latest and hands it to every
// subscriber.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Cycles never overlap: RunOnce
// calls made while the loop runs are serialized with it.
type Driver struct {
	c        Components
	source   analysis.FactSource
	mailbox  *Mailbox[analysis.Facts]
	interval time.Duration
	topN     int
	logger   log.Logger

	// mu serializes cycles and guards facts
	mu    sync.Mutex
	facts analysis.Facts

	started time.Time
	cycles  atomic.Int64
	latest  atomic.Pointer[report.Document]
	running *uatomic.Bool

	subMu sync.RWMutex
	subs  map[int]func(report.Document)
	index int

	now func() time.Time
}

// New creates a driver over c.
func New(c Components, opts Options) (*Driver, error) {
	if c.Profiler == nil {
		return nil, fmt.Errorf("driver: profiler is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MailboxCapacity == 0 {
		opts.MailboxCapacity = DefaultMailboxCapacity
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	return &Driver{
		c:        c,
		source:   opts.Source,
		mailbox:  NewMailbox[analysis.Facts](opts.MailboxCapacity),
		interval: opts.Interval,
		topN:     opts.TopN,
		logger:   log.With(opts.Logger, "component", "driver"),
		facts:    analysis.Facts{},
		started:  time.Now(),
		running:  uatomic.NewBool(false),
		subs:     make(map[int]func(report.Document)),
		now:      time.Now,
	}, nil
}

// Interval returns the analysis period.
func (d *Driver) Interval() time.Duration { return d.interval }

// PushFacts queues host facts for the next cycle. Later values for the same
// fact replace earlier ones; facts never pushed again keep their last value.
func (d *Driver) PushFacts(ctx context.Context, facts analysis.Facts) error {
	if len(facts) == 0 {
		return nil
	}
	return d.mailbox.Send(ctx, facts)
}

// TryPushFacts is PushFacts without waiting: it reports false when the
// mailbox is full or closed and the facts were not queued.
func (d *Driver) TryPushFacts(facts analysis.Facts) bool {
	if len(facts) == 0 {
		return true
	}
	return d.mailbox.TrySend(facts)
}

// Facts returns a copy of the facts used by the last cycle plus any merged
// since.
func (d *Driver) Facts() analysis.Facts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.facts.Merge(nil)
}

// Register adds a subscriber called synchronously with every new document.
// Subscribers must not call RunOnce.
func (d *Driver) Register(f func(report.Document)) Release {
	d.subMu.Lock()
	defer d.subMu.Unlock()

	d.subs[d.index] = f
	index := d.index
	d.index++

	return func() {
		d.subMu.Lock()
		defer d.subMu.Unlock()

		delete(d.subs, index)
	}
}

// Latest returns the document of the last completed cycle.
func (d *Driver) Latest() (report.Document, bool) {
	doc := d.latest.Load()
	if doc == nil {
		return report.Document{}, false
	}
	return *doc, true
}

// Cycles returns the number of completed cycles.
func (d *Driver) Cycles() int64 { return d.cycles.Load() }

// Running reports whether Run is active.
func (d *Driver) Running() bool { return d.running.Load() }

// Run executes a cycle every interval until ctx is cancelled, then runs a
// final cycle so Latest reflects every sample recorded before shutdown.
func (d *Driver) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer d.running.Store(false)

	level.Debug(d.logger).Log("msg", "analysis loop started", "interval", d.interval)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := d.RunOnce(); err != nil {
				level.Error(d.logger).Log("msg", "final analysis cycle failed", "err", err)
			}
			level.Debug(d.logger).Log("msg", "analysis loop stopped", "cycles", d.cycles.Load())
			return nil
		case <-ticker.C:
			if _, err := d.RunOnce(); err != nil {
				level.Error(d.logger).Log("msg", "analysis cycle failed", "err", err)
			}
		}
	}
}

// RunOnce executes one analysis cycle synchronously and returns its
// document. The time spent is recorded on metrics.PointOverhead.
func (d *Driver) RunOnce() (report.Document, error) {
	d.mu.Lock()
	scope := d.c.Profiler.Start(metrics.PointOverhead, "analysis")

	for _, f := range d.mailbox.Drain() {
		d.facts = d.facts.Merge(f)
	}
	if d.source != nil {
		d.facts = d.facts.Merge(d.source.Facts())
	}
	facts := d.facts.Merge(nil)

	now := d.now()
	if d.c.Analyzer != nil {
		d.c.Analyzer.Observe(facts, now)
	}
	if d.c.Hints != nil {
		d.c.Hints.Invalidate()
	}

	cycle := d.cycles.Load() + 1
	doc, err := report.Build(report.Inputs{
		Profiler:  d.c.Profiler,
		Detector:  d.c.Detector,
		Analyzer:  d.c.Analyzer,
		Hints:     d.c.Hints,
		Facts:     facts,
		TopN:      d.topN,
		StartedAt: d.started,
		Now:       now,
		Cycle:     cycle,
	})
	elapsed := scope.Stop()
	if err != nil {
		d.mu.Unlock()
		return report.Document{}, err
	}
	d.cycles.Store(cycle)
	d.latest.Store(&doc)
	d.mu.Unlock()

	d.logCycle(doc, elapsed)
	d.notify(doc)
	return doc, nil
}

func (d *Driver) logCycle(doc report.Document, elapsed time.Duration) {
	top := analysis.NoneName
	if len(doc.Bottlenecks.Top) > 0 {
		top = doc.Bottlenecks.Top[0].Name
	}
	level.Debug(d.logger).Log(
		"msg", "analysis cycle complete",
		"cycle", doc.Session.Cycle,
		"points", len(doc.Points),
		"samples", doc.Session.TotalSamples,
		"top_bottleneck", top,
		"anomalies", doc.Bottlenecks.Anomalies.Count,
		"duration", elapsed,
	)
	for _, a := range doc.Bottlenecks.Anomalies.Items {
		if a.Severity != analysis.SeverityCritical {
			continue
		}
		level.Warn(d.logger).Log("msg", "critical anomaly", "code", a.Code, "detail", a.Message)
	}
}

func (d *Driver) notify(doc report.Document) {
	d.subMu.RLock()
	defer d.subMu.RUnlock()
	for _, f := range d.subs {
		f(doc)
	}
}

// Close stops accepting facts. Run is stopped through its context.
func (d *Driver) Close() {
	d.mailbox.Close()
}
