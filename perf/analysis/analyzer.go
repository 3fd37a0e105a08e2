package analysis

import (
	"math"
	"sync"
	"time"

	"github.com/wesleyorama2/tickscope/perf/metrics"
)

// DefaultHistoryCapacity is the number of values kept per history series.
const DefaultHistoryCapacity = 1000

// Names of the correlation pairs tracked by an Analyzer.
const (
	PairAIVsTick           = "ai_vs_tick"
	PairChunkVsFrame       = "chunk_vs_frame"
	PairEntityVsSimulation = "entity_vs_simulation"
	PairMemoryVsGC         = "memory_vs_gc"
	PairPathfindingVsTick  = "pathfinding_vs_tick"
	PairVehicleVsTick      = "vehicle_vs_tick"
)

// Names of the history series recorded from timings. Facts are recorded
// under their own name.
const (
	SeriesTickMs       = "tick_ms"
	SeriesFrameMs      = "frame_ms"
	SeriesSimulationMs = "simulation_ms"
)

var pairs = []struct {
	name        string
	description string
}{
	{PairAIVsTick, "AI agent count vs tick time"},
	{PairChunkVsFrame, "Loaded chunks vs frame time"},
	{PairEntityVsSimulation, "Entity count vs simulation time"},
	{PairMemoryVsGC, "Heap usage vs GC frequency"},
	{PairPathfindingVsTick, "Pathfinding requests vs tick time"},
	{PairVehicleVsTick, "Vehicle count vs tick time"},
}

// TimingSource gives read access to per-point accumulators.
// *metrics.Profiler implements it.
type TimingSource interface {
	Accumulator(p metrics.Point) *metrics.TimingAccumulator
}

// CorrelationEntry is the state of one correlation pair.
type CorrelationEntry struct {
	Name           string   `json:"name"`
	Correlation    float64  `json:"correlation"`
	Samples        int      `json:"samples"`
	Strength       Strength `json:"strength"`
	Description    string   `json:"description"`
	Interpretation string   `json:"interpretation"`
}

// CorrelationSummary names the pair with the largest |r|.
type CorrelationSummary struct {
	Strongest      string  `json:"strongest_correlation"`
	StrongestValue float64 `json:"strongest_value"`
}

// CorrelationReport is the result of Analyzer.Analyze.
type CorrelationReport struct {
	Entries []CorrelationEntry `json:"entries"`
	Summary CorrelationSummary `json:"summary"`
}

// Analyzer correlates host facts with point timings. Observe is called once
// per analysis cycle and feeds every pair whose inputs are available; pairs
// with missing inputs are left untouched.
//
// Besides the fixed pairs it keeps a bounded history of every observed series
// so that arbitrary series can be compared with HistoryCorrelation.
type Analyzer struct {
	timings TimingSource

	mu         sync.Mutex
	buffers    map[string]*CorrelationBuffer
	history    map[string]*series
	historyCap int

	lastGC   float64
	lastGCAt time.Time
	haveGC   bool
}

// NewAnalyzer creates an analyzer reading timings from src. Non-positive
// capacities select their defaults.
func NewAnalyzer(src TimingSource, capacity, historyCapacity int) *Analyzer {
	if historyCapacity <= 0 {
		historyCapacity = DefaultHistoryCapacity
	}
	a := &Analyzer{
		timings:    src,
		buffers:    make(map[string]*CorrelationBuffer, len(pairs)),
		history:    make(map[string]*series),
		historyCap: historyCapacity,
	}
	for _, p := range pairs {
		a.buffers[p.name] = NewCorrelationBuffer(capacity)
	}
	return a
}

// Observe records one cycle of timings and facts taken at now.
func (a *Analyzer) Observe(facts Facts, now time.Time) {
	tickMs, haveTick := a.shortAvgMs(metrics.PointTick)
	frameMs, haveFrame := a.shortAvgMs(metrics.PointFrame)
	simMs, haveSim := a.shortAvgMs(metrics.PointSimulation)

	a.mu.Lock()
	defer a.mu.Unlock()

	if haveTick {
		a.feed(PairAIVsTick, facts, FactAICount, tickMs)
		a.feed(PairVehicleVsTick, facts, FactVehicleCount, tickMs)
		a.feed(PairPathfindingVsTick, facts, FactPathfindingRequests, tickMs)
		a.record(SeriesTickMs, tickMs)
	}
	if haveFrame {
		a.feed(PairChunkVsFrame, facts, FactChunkCount, frameMs)
		a.record(SeriesFrameMs, frameMs)
	}
	if haveSim {
		a.feed(PairEntityVsSimulation, facts, FactEntityCount, simMs)
		a.record(SeriesSimulationMs, simMs)
	}

	heap, haveHeap := facts.Get(FactHeapUsagePercent)
	gc, haveGC := facts.Get(FactGCCount)
	if haveGC {
		// The first observation only establishes the baseline.
		if a.haveGC && haveHeap {
			var freq float64
			if dt := now.Sub(a.lastGCAt).Seconds(); dt > 0 {
				freq = math.Max(0, gc-a.lastGC) / dt
			}
			a.buffers[PairMemoryVsGC].Add(heap, freq)
		}
		a.lastGC, a.lastGCAt, a.haveGC = gc, now, true
	}

	for k, v := range facts {
		a.record(string(k), v)
	}
}

func (a *Analyzer) feed(pair string, facts Facts, fact Fact, y float64) {
	if x, ok := facts.Get(fact); ok {
		a.buffers[pair].Add(x, y)
	}
}

func (a *Analyzer) record(name string, v float64) {
	s, ok := a.history[name]
	if !ok {
		s = newSeries(a.historyCap)
		a.history[name] = s
	}
	s.add(v)
}

func (a *Analyzer) shortAvgMs(p metrics.Point) (float64, bool) {
	if a.timings == nil {
		return 0, false
	}
	acc := a.timings.Accumulator(p)
	if acc == nil || acc.Calls() == 0 {
		return 0, false
	}
	return acc.ShortWindowAvgMs(), true
}

// Analyze returns every pair in a fixed order plus the strongest one.
func (a *Analyzer) Analyze() CorrelationReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	rep := CorrelationReport{
		Entries: make([]CorrelationEntry, 0, len(pairs)),
		Summary: CorrelationSummary{Strongest: "none"},
	}
	var strongest float64
	for _, p := range pairs {
		buf := a.buffers[p.name]
		r := buf.Correlation()
		rep.Entries = append(rep.Entries, CorrelationEntry{
			Name:           p.name,
			Correlation:    metrics.Round(r, 3),
			Samples:        buf.Count(),
			Strength:       Classify(r),
			Description:    p.description,
			Interpretation: Interpret(r),
		})
		if abs := math.Abs(r); abs > strongest {
			strongest = abs
			rep.Summary.Strongest = p.name
		}
	}
	rep.Summary.StrongestValue = metrics.Round(strongest, 2)
	return rep
}

// Buffer returns the buffer of a named pair, or nil when unknown.
func (a *Analyzer) Buffer(name string) *CorrelationBuffer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buffers[name]
}

// History returns the recorded values of a series, oldest first.
func (a *Analyzer) History(name string) []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.history[name]
	if !ok {
		return nil
	}
	return s.values()
}

// HistoryCorrelation correlates two recorded series with Correlate.
// Unknown series yield 0.
func (a *Analyzer) HistoryCorrelation(x, y string) float64 {
	return Correlate(a.History(x), a.History(y))
}

// Reset clears every pair and the history. Series buffers are reused.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, b := range a.buffers {
		b.Reset()
	}
	for _, s := range a.history {
		s.reset()
	}
	a.lastGC, a.lastGCAt, a.haveGC = 0, time.Time{}, false
}

// series is a ring of float64 values.
type series struct {
	vals  []float64
	next  int
	count int
}

func newSeries(capacity int) *series {
	return &series{vals: make([]float64, capacity)}
}

func (s *series) add(v float64) {
	s.vals[s.next] = v
	s.next = (s.next + 1) % len(s.vals)
	if s.count < len(s.vals) {
		s.count++
	}
}

func (s *series) values() []float64 {
	out := make([]float64, s.count)
	start := (s.next - s.count + len(s.vals)) % len(s.vals)
	for i := 0; i < s.count; i++ {
		out[i] = s.vals[(start+i)%len(s.vals)]
	}
	return out
}

func (s *series) reset() {
	s.next = 0
	s.count = 0
}
