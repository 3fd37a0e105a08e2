package analysis

// Fact names a numeric value owned by the host rather than measured by the
// profiler, such as heap usage or the number of live entities.
type Fact string

const (
	// FactHeapUsagePercent is heap in use as a percentage of the limit (0-100).
	FactHeapUsagePercent Fact = "heap_usage_percent"

	// FactGCCount is the cumulative number of garbage collections.
	FactGCCount Fact = "gc_count"

	FactEntityCount         Fact = "entity_count"
	FactAICount             Fact = "ai_agent_count"
	FactChunkCount          Fact = "loaded_chunk_count"
	FactVehicleCount        Fact = "vehicle_count"
	FactPathfindingRequests Fact = "pathfinding_requests"

	// FactPathfindingMs is the pathfinding time spent in the last tick.
	FactPathfindingMs Fact = "pathfinding_ms"
)

// Facts is a set of host facts. Missing keys mean the host does not know the
// value, which is never an error.
type Facts map[Fact]float64

// Get returns the value of k and whether it is present. A nil Facts has no
// values.
func (f Facts) Get(k Fact) (float64, bool) {
	v, ok := f[k]
	return v, ok
}

// Merge returns a copy of f with the values of other added on top.
func (f Facts) Merge(other Facts) Facts {
	out := make(Facts, len(f)+len(other))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// FactSource supplies host facts to the analysis pass. Implementations must
// be cheap; Facts is called once per analysis cycle.
type FactSource interface {
	Facts() Facts
}

// FactSourceFunc adapts a function to FactSource.
type FactSourceFunc func() Facts

// Facts implements FactSource.
func (fn FactSourceFunc) Facts() Facts {
	return fn()
}
