// Package workload drives a synthetic fixed-rate game loop that feeds a
// profiler with realistic looking samples. It backs the simulate command and
// end-to-end tests of the engine.
package workload

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/wesleyorama2/tickscope/perf/analysis"
	"github.com/wesleyorama2/tickscope/perf/metrics"
)

const (
	DefaultTPS       = 20.0
	DefaultSpikeRate = 0.01
	DefaultEntities  = 500
)

// FactSink receives host facts without blocking the loop. *driver.Driver and
// *perf.Engine implement it.
type FactSink interface {
	TryPushFacts(facts analysis.Facts) bool
}

// Options configures a Loop.
type Options struct {
	// TPS is the tick rate (default: 20)
	TPS float64

	// Duration stops the loop after this long; zero runs until ctx is done
	Duration time.Duration

	// MaxTicks stops the loop after this many ticks; zero means no limit
	MaxTicks int64

	// Unpaced runs ticks back to back instead of waiting for the pacer
	Unpaced bool

	// SpikeRate is the probability that a tick carries an injected spike (default: 0.01)
	SpikeRate float64

	// Entities is the mean simulated entity count (default: 500)
	Entities int

	// Seed makes runs reproducible (default: 1)
	Seed int64

	Logger log.Logger
}

// Stats summarizes a run.
type Stats struct {
	Ticks   int64         `json:"ticks"`
	Spikes  int64         `json:"injected_spikes"`
	Late    int64         `json:"late_ticks"`
	Elapsed time.Duration `json:"elapsed"`

	// SkippedFacts counts fact batches the sink had no room for
	SkippedFacts int64 `json:"skipped_facts"`
}

// Loop is a synthetic game loop. Each tick derives durations for the core
// and subsystem points from a slowly oscillating world size, records them,
// and once per simulated second publishes host facts.
//
// Recorded durations are simulated; the pacer only controls how fast ticks
// are produced in wall-clock time.
type Loop struct {
	prof  *metrics.Profiler
	facts FactSink
	opts  Options
	pacer *Pacer
	rng   *rand.Rand

	logger log.Logger

	tick     int64
	spikes   int64
	skipped  int64
	gcCount  float64
	heapUsed float64
}

// NewLoop creates a loop recording on prof. facts may be nil.
func NewLoop(prof *metrics.Profiler, facts FactSink, opts Options) *Loop {
	if opts.TPS <= 0 {
		opts.TPS = DefaultTPS
	}
	if opts.SpikeRate == 0 {
		opts.SpikeRate = DefaultSpikeRate
	}
	if opts.Entities <= 0 {
		opts.Entities = DefaultEntities
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	return &Loop{
		prof:     prof,
		facts:    facts,
		opts:     opts,
		pacer:    NewPacer(opts.TPS),
		rng:      rand.New(rand.NewSource(opts.Seed)),
		logger:   log.With(opts.Logger, "component", "workload"),
		heapUsed: 40,
	}
}

// Pacer returns the loop's pacer.
func (l *Loop) Pacer() *Pacer { return l.pacer }

// Run executes ticks until ctx is done or a configured limit is reached.
// A cancelled context is a normal way to stop and is not returned as an
// error.
func (l *Loop) Run(ctx context.Context) (Stats, error) {
	if l.opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Duration)
		defer cancel()
	}

	start := time.Now()
	level.Info(l.logger).Log("msg", "workload started", "tps", l.opts.TPS, "duration", l.opts.Duration, "max_ticks", l.opts.MaxTicks)

	var err error
	for l.opts.MaxTicks == 0 || l.tick < l.opts.MaxTicks {
		if l.opts.Unpaced {
			err = ctx.Err()
		} else {
			err = l.pacer.Wait(ctx)
		}
		if err != nil {
			break
		}
		if err = l.Step(ctx); err != nil {
			break
		}
	}

	stats := Stats{
		Ticks:   l.tick,
		Spikes:  l.spikes,
		Late:    l.pacer.Stats().Late,
		Elapsed: time.Since(start),

		SkippedFacts: l.skipped,
	}
	level.Info(l.logger).Log("msg", "workload finished", "ticks", stats.Ticks, "injected_spikes", stats.Spikes, "skipped_facts", stats.SkippedFacts, "elapsed", stats.Elapsed)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	return stats, err
}

// Step runs one tick.
func (l *Loop) Step(ctx context.Context) error {
	l.tick++
	t := float64(l.tick)

	// The world breathes over roughly a minute at 20 TPS.
	wave := 0.5 + 0.5*math.Sin(t/200)
	entities := float64(l.opts.Entities) * (0.5 + wave)
	ai := entities * 0.3
	chunks := 200 + 100*wave
	vehicles := 10 + 20*wave
	pathRequests := ai * 0.2

	physics := l.jitter(1.5 + entities*0.004)
	entityAI := l.jitter(0.5 + entities*0.006)
	npcAI := l.jitter(ai * 0.01)
	network := l.jitter(0.4)
	audio := l.jitter(0.2)
	renderWorld := l.jitter(2 + chunks*0.01)
	renderUI := l.jitter(0.6)
	scriptEvent := l.jitter(0.3)
	scriptFn := l.jitter(0.2)

	var chunkIO float64
	if l.rng.Float64() < 0.1 {
		chunkIO = l.jitter(2)
	}

	var spike string
	if l.rng.Float64() < l.opts.SpikeRate {
		l.spikes++
		switch l.rng.Intn(3) {
		case 0:
			physics *= 12
			spike = "physics"
		case 1:
			entityAI *= 12
			spike = "entity_ai"
		default:
			chunkIO += 40
			spike = "chunk_io"
		}
		level.Debug(l.logger).Log("msg", "spike injected", "tick", l.tick, "subsystem", spike)
	}

	var gc float64
	l.heapUsed += 0.05 * entities / float64(l.opts.Entities)
	if l.heapUsed > 85 {
		gc = l.jitter(3)
		l.gcCount++
		l.heapUsed = 40 + l.rng.Float64()*10
	}

	simulation := physics + entityAI + npcAI
	render := renderWorld + renderUI
	scripts := scriptEvent + scriptFn + gc
	tick := simulation + render + network + audio + chunkIO + scripts

	l.record(metrics.PointPhysics, physics, "")
	l.record(metrics.PointEntityAI, entityAI, entityLabel(l.tick))
	l.record(metrics.PointNPCAI, npcAI, "")
	l.record(metrics.PointSimulation, simulation, "")
	l.record(metrics.PointRenderWorld, renderWorld, "")
	l.record(metrics.PointRenderUI, renderUI, "")
	l.record(metrics.PointRender, render, "")
	l.record(metrics.PointNetwork, network, "")
	l.record(metrics.PointAudio, audio, "")
	if chunkIO > 0 {
		l.record(metrics.PointChunkIO, chunkIO, "")
	}
	l.record(metrics.PointScriptEvent, scriptEvent, scriptEventLabel(l.tick))
	l.record(metrics.PointScriptFunction, scriptFn, "")
	if gc > 0 {
		l.record(metrics.PointScriptGC, gc, "")
	}
	l.record(metrics.PointTick, tick, "")
	l.record(metrics.PointFrame, render+l.jitter(1), "")

	if l.facts == nil || l.tick%int64(math.Max(1, math.Round(l.opts.TPS))) != 0 {
		return nil
	}
	pushed := l.facts.TryPushFacts(analysis.Facts{
		analysis.FactHeapUsagePercent:    l.heapUsed,
		analysis.FactGCCount:             l.gcCount,
		analysis.FactEntityCount:         math.Round(entities),
		analysis.FactAICount:             math.Round(ai),
		analysis.FactChunkCount:          math.Round(chunks),
		analysis.FactVehicleCount:        math.Round(vehicles),
		analysis.FactPathfindingRequests: math.Round(pathRequests),
		analysis.FactPathfindingMs:       npcAI * 0.4,
	})
	if !pushed {
		l.skipped++
		level.Debug(l.logger).Log("msg", "fact sink full, batch skipped", "tick", l.tick)
	}
	return nil
}

// Ticks returns the number of ticks run so far.
func (l *Loop) Ticks() int64 { return l.tick }

func (l *Loop) record(p metrics.Point, ms float64, label string) {
	l.prof.AddSample(p, int64(ms*1000), label)
}

// jitter returns ms varied by up to ±15%.
func (l *Loop) jitter(ms float64) float64 {
	return ms * (0.85 + 0.3*l.rng.Float64())
}

var (
	entityKinds  = []string{"zombie", "villager", "animal", "vehicle"}
	scriptEvents = []string{"onTick", "onPlayerUpdate", "onZombieUpdate", "onChunkLoaded"}
)

func entityLabel(tick int64) string      { return entityKinds[tick%int64(len(entityKinds))] }
func scriptEventLabel(tick int64) string { return scriptEvents[tick%int64(len(scriptEvents))] }
