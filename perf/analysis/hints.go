package analysis

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/elastic/go-freelru"

	"github.com/wesleyorama2/tickscope/perf/metrics"
)

// Modules lists every module a suggestion can be made for.
var Modules = []metrics.Module{
	metrics.ModuleEngine,
	metrics.ModuleScript,
	metrics.ModuleRender,
	metrics.ModuleIO,
	metrics.ModuleMemory,
	metrics.ModuleWorld,
}

// Suggestion is the optimization target proposed for one module.
type Suggestion struct {
	Module         metrics.Module `json:"module"`
	Target         Bottleneck     `json:"target"`
	Recommendation string         `json:"recommendation"`
}

// Hints turns detector results into per-module recommendations. Results are
// cached for one lifetime, normally the analysis interval, so repeated
// queries between two cycles do not rerun detection.
type Hints struct {
	detector *Detector
	cache    *freelru.SyncedLRU[metrics.Module, Suggestion]
}

// NewHints creates a hint provider over d. A non-positive lifetime disables
// expiry; Invalidate must then be called when the data changes.
func NewHints(d *Detector, lifetime time.Duration) (*Hints, error) {
	cache, err := freelru.NewSynced[metrics.Module, Suggestion](uint32(len(Modules)*2), hashModule)
	if err != nil {
		return nil, fmt.Errorf("failed to create hint cache: %w", err)
	}
	if lifetime > 0 {
		cache.SetLifetime(lifetime)
	}
	return &Hints{detector: d, cache: cache}, nil
}

func hashModule(m metrics.Module) uint32 {
	return uint32(xxhash.Sum64String(string(m)))
}

// Suggest returns the suggestion for module.
func (h *Hints) Suggest(module metrics.Module, facts Facts) Suggestion {
	if s, ok := h.cache.Get(module); ok {
		return s
	}
	target := h.detector.SuggestTarget(module, facts)
	s := Suggestion{
		Module:         module,
		Target:         target,
		Recommendation: Recommend(module, target),
	}
	h.cache.Add(module, s)
	return s
}

// All returns a suggestion for every module in Modules order.
func (h *Hints) All(facts Facts) []Suggestion {
	out := make([]Suggestion, 0, len(Modules))
	for _, m := range Modules {
		out = append(out, h.Suggest(m, facts))
	}
	return out
}

// Invalidate drops every cached suggestion.
func (h *Hints) Invalidate() {
	h.cache.Purge()
}

// Cached returns the number of cached suggestions.
func (h *Hints) Cached() int {
	return h.cache.Len()
}

// Recommend renders the recommendation text for a target.
func Recommend(module metrics.Module, target Bottleneck) string {
	if target.IsNone() || target.Priority == 0 {
		return fmt.Sprintf("No bottleneck identified for %s", module)
	}
	return fmt.Sprintf("Optimize %s: %.1fms (%.0f%%)", target.DisplayName, target.AvgMs, target.Ratio*100)
}
