package analysis

import (
	"fmt"
	"math"
	"sort"

	uatomic "go.uber.org/atomic"

	"github.com/wesleyorama2/tickscope/perf/metrics"
)

const (
	// DefaultTickThresholdMs is the tick budget of a 60 Hz loop.
	DefaultTickThresholdMs = 16.67

	// DefaultSignificanceRatio is the share of the tick below which a
	// subsystem is not reported.
	DefaultSignificanceRatio = 0.10

	// DefaultCriticalRatio is the share of the tick above which a subsystem
	// gets a priority bonus.
	DefaultCriticalRatio = 0.30

	DefaultTopN = 10
	MaxTopN     = 100

	criticalBonus = 20
	maxPriority   = 100
)

// NoneName is the name of the sentinel returned when nothing qualifies.
const NoneName = "NONE"

// NoBottleneck is returned by SuggestTarget when no bottleneck matches.
var NoBottleneck = Bottleneck{
	Name:        NoneName,
	DisplayName: "No bottleneck identified",
	Type:        metrics.CPUBound,
}

// Bottleneck is a point or external cost taking a significant share of the
// tick.
type Bottleneck struct {
	Name        string                 `json:"name"`
	DisplayName string                 `json:"display_name"`
	AvgMs       float64                `json:"avg_ms"`
	Ratio       float64                `json:"ratio"`
	Type        metrics.BottleneckType `json:"type"`
	Target      metrics.Module         `json:"suggested_target"`
	Priority    int                    `json:"priority"`
}

// IsNone reports whether b is the "nothing identified" sentinel.
func (b Bottleneck) IsNone() bool {
	return b.Name == NoneName
}

// ExternalCost is a cost measured outside the point accumulators, e.g. by a
// pathfinding subsystem that reports its own totals.
type ExternalCost struct {
	Name        string
	DisplayName string
	Ms          float64
	Type        metrics.BottleneckType
	Module      metrics.Module
}

// CostSource contributes external costs to bottleneck detection. rootAvgMs is
// the average tick time, always > 0 when called.
type CostSource interface {
	Costs(facts Facts, rootAvgMs float64) []ExternalCost
}

// PathfindingCost reports FactPathfindingMs when it exceeds 1ms.
type PathfindingCost struct{}

// Costs implements CostSource.
func (PathfindingCost) Costs(facts Facts, _ float64) []ExternalCost {
	ms, ok := facts.Get(FactPathfindingMs)
	if !ok || ms <= 1.0 {
		return nil
	}
	return []ExternalCost{{
		Name:        "PATHFINDING_DEEP",
		DisplayName: "Pathfinding (Detailed)",
		Ms:          ms,
		Type:        metrics.CPUBound,
		Module:      metrics.ModuleEngine,
	}}
}

// EntityCost estimates the cost of a population from a per-entity cost.
// It reports nothing until the population exceeds MinCount and the estimate
// exceeds the significance ratio.
type EntityCost struct {
	Fact        Fact
	Name        string
	Label       string // display name prefix, followed by the count
	PerEntityMs float64
	MinCount    float64
	Ratio       float64
}

// DefaultAICost estimates AI processing at 0.05ms per agent above 100 agents.
var DefaultAICost = EntityCost{
	Fact:        FactAICount,
	Name:        "AI_PROCESSING",
	Label:       "AI Processing",
	PerEntityMs: 0.05,
	MinCount:    100,
	Ratio:       DefaultSignificanceRatio,
}

// Costs implements CostSource.
func (c EntityCost) Costs(facts Facts, rootAvgMs float64) []ExternalCost {
	count, ok := facts.Get(c.Fact)
	if !ok || count <= c.MinCount {
		return nil
	}
	ms := count * c.PerEntityMs
	if ms/rootAvgMs <= c.Ratio {
		return nil
	}
	return []ExternalCost{{
		Name:        c.Name,
		DisplayName: fmt.Sprintf("%s (%d)", c.Label, int64(count)),
		Ms:          ms,
		Type:        metrics.CPUBound,
		Module:      metrics.ModuleEngine,
	}}
}

// DetectorOptions configures a Detector. Zero fields take their defaults.
type DetectorOptions struct {
	TickThresholdMs   float64
	SignificanceRatio float64
	CriticalRatio     float64
	TopN              int
}

// Detector ranks subsystem points by their share of the tick and reports
// anomalies. It only reads accumulators and is safe to use concurrently with
// writers; every method returns a zero value rather than failing when data
// is missing.
type Detector struct {
	timings TimingSource
	opts    DetectorOptions
	topN    *uatomic.Int32
	costs   []CostSource
}

// NewDetector creates a detector over src with optional external costs.
func NewDetector(src TimingSource, opts DetectorOptions, costs ...CostSource) *Detector {
	if opts.TickThresholdMs <= 0 {
		opts.TickThresholdMs = DefaultTickThresholdMs
	}
	if opts.SignificanceRatio <= 0 {
		opts.SignificanceRatio = DefaultSignificanceRatio
	}
	if opts.CriticalRatio <= 0 {
		opts.CriticalRatio = DefaultCriticalRatio
	}
	if opts.TopN == 0 {
		opts.TopN = DefaultTopN
	}
	return &Detector{
		timings: src,
		opts:    opts,
		topN:    uatomic.NewInt32(int32(ClampTopN(opts.TopN))),
		costs:   costs,
	}
}

// ClampTopN clamps n into [1, MaxTopN].
func ClampTopN(n int) int {
	return max(1, min(MaxTopN, n))
}

// TopN returns the default ranking length.
func (d *Detector) TopN() int { return int(d.topN.Load()) }

// SetTopN changes the default ranking length and returns the clamped value.
func (d *Detector) SetTopN(n int) int {
	n = ClampTopN(n)
	d.topN.Store(int32(n))
	return n
}

// Options returns the effective options.
func (d *Detector) Options() DetectorOptions {
	opts := d.opts
	opts.TopN = d.TopN()
	return opts
}

// Priority scores a share of the tick in [0, 100].
func (d *Detector) Priority(ratio, avgMs float64) int {
	var base int
	if !math.IsNaN(ratio) {
		base = int(math.Round(math.Max(0, math.Min(ratio*100, maxPriority))))
	}
	if avgMs > d.opts.TickThresholdMs {
		base += 20
	}
	if avgMs > 2*d.opts.TickThresholdMs {
		base += 30
	}
	if ratio >= d.opts.CriticalRatio {
		base += criticalBonus
	}
	return min(maxPriority, base)
}

func (d *Detector) rootAvgMs() (float64, bool) {
	if d.timings == nil {
		return 0, false
	}
	acc := d.timings.Accumulator(metrics.RootPoint)
	if acc == nil || acc.Calls() == 0 {
		return 0, false
	}
	avg := acc.AvgMs()
	return avg, avg > 0
}

// Identify returns up to n bottlenecks ordered by priority, highest first.
// It returns an empty list when the root point has no samples.
func (d *Detector) Identify(n int, facts Facts) []Bottleneck {
	out := []Bottleneck{}
	rootMs, ok := d.rootAvgMs()
	if !ok || n <= 0 {
		return out
	}

	for _, p := range metrics.Points() {
		if !p.IsSubsystem() {
			continue
		}
		acc := d.timings.Accumulator(p)
		if acc == nil || acc.Calls() == 0 {
			continue
		}
		avg := acc.AvgMs()
		ratio := avg / rootMs
		if ratio < d.opts.SignificanceRatio {
			continue
		}
		info := p.Info()
		out = append(out, Bottleneck{
			Name:        info.Name,
			DisplayName: info.DisplayName,
			AvgMs:       avg,
			Ratio:       ratio,
			Type:        info.Type,
			Target:      info.Module,
			Priority:    d.Priority(ratio, avg),
		})
	}

	for _, src := range d.costs {
		for _, c := range src.Costs(facts, rootMs) {
			ratio := c.Ms / rootMs
			out = append(out, Bottleneck{
				Name:        c.Name,
				DisplayName: c.DisplayName,
				AvgMs:       c.Ms,
				Ratio:       ratio,
				Type:        c.Type,
				Target:      c.Module,
				Priority:    d.Priority(ratio, c.Ms),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// IdentifyTop is Identify with the configured TopN.
func (d *Detector) IdentifyTop(facts Facts) []Bottleneck {
	return d.Identify(d.TopN(), facts)
}

// SuggestTarget returns the highest priority bottleneck handed to module,
// or NoBottleneck.
func (d *Detector) SuggestTarget(module metrics.Module, facts Facts) Bottleneck {
	for _, b := range d.Identify(MaxTopN, facts) {
		if b.Target == module {
			return b
		}
	}
	return NoBottleneck
}
