package metrics

import "strings"

// Category groups metric points for classification.
type Category string

const (
	// CategoryCore covers the top-level loop timings (tick, frame).
	CategoryCore Category = "CORE"

	// CategorySubsystem covers the major subsystems a tick is made of.
	// Only these points are considered by bottleneck detection.
	CategorySubsystem Category = "SUBSYSTEM"

	// CategoryScript covers scripted/interpreted work measured on demand.
	CategoryScript Category = "SCRIPT"

	// CategoryCustom covers user and mod defined points.
	CategoryCustom Category = "CUSTOM"

	// CategoryInternal covers the profiler's own overhead.
	CategoryInternal Category = "INTERNAL"
)

// BottleneckType classifies which resource a slow point is bound by.
type BottleneckType string

const (
	CPUBound    BottleneckType = "CPU_BOUND"
	GPUBound    BottleneckType = "GPU_BOUND"
	IOBound     BottleneckType = "IO_BOUND"
	MemoryBound BottleneckType = "MEMORY_BOUND"
)

// Module is the area a bottleneck should be handed to for optimization.
type Module string

const (
	ModuleEngine Module = "ENGINE"
	ModuleScript Module = "SCRIPT"
	ModuleRender Module = "RENDER"
	ModuleIO     Module = "IO"
	ModuleMemory Module = "MEMORY"
	ModuleWorld  Module = "WORLD"
)

// Point identifies an instrumentation point. The set is closed: every Point
// has an entry in the classification table and an accumulator in a Profiler.
type Point uint8

const (
	PointTick Point = iota
	PointFrame

	PointRender
	PointRenderWorld
	PointRenderUI
	PointSimulation
	PointPhysics
	PointEntityAI
	PointNPCAI
	PointNetwork
	PointAudio
	PointChunkIO

	PointScriptEvent
	PointScriptFunction
	PointScriptGC

	PointModInit
	PointModTick
	PointCustom1
	PointCustom2
	PointCustom3
	PointCustom4
	PointCustom5

	PointOverhead

	numPoints
)

// RootPoint is the reference point other subsystems are compared against.
const RootPoint = PointTick

// PointInfo is the static classification record of a Point.
type PointInfo struct {
	Name        string
	DisplayName string
	Category    Category
	Type        BottleneckType
	Module      Module
}

// pointTable is the single place where points are classified. Adding a point
// means adding a constant above and one row here.
var pointTable = [numPoints]PointInfo{
	PointTick:  {"TICK", "Game Tick", CategoryCore, CPUBound, ModuleEngine},
	PointFrame: {"FRAME", "Render Frame", CategoryCore, GPUBound, ModuleRender},

	PointRender:      {"RENDER", "Rendering", CategorySubsystem, GPUBound, ModuleRender},
	PointRenderWorld: {"RENDER_WORLD", "World Rendering", CategorySubsystem, GPUBound, ModuleRender},
	PointRenderUI:    {"RENDER_UI", "UI Rendering", CategorySubsystem, GPUBound, ModuleRender},
	PointSimulation:  {"SIMULATION", "Simulation", CategorySubsystem, CPUBound, ModuleEngine},
	PointPhysics:     {"PHYSICS", "Physics", CategorySubsystem, CPUBound, ModuleEngine},
	PointEntityAI:    {"ENTITY_AI", "Entity AI", CategorySubsystem, CPUBound, ModuleEngine},
	PointNPCAI:       {"NPC_AI", "NPC AI", CategorySubsystem, CPUBound, ModuleEngine},
	PointNetwork:     {"NETWORK", "Network", CategorySubsystem, IOBound, ModuleIO},
	PointAudio:       {"AUDIO", "Audio", CategorySubsystem, CPUBound, ModuleEngine},
	PointChunkIO:     {"CHUNK_IO", "Chunk I/O", CategorySubsystem, IOBound, ModuleWorld},

	PointScriptEvent:    {"SCRIPT_EVENT", "Script Event", CategoryScript, CPUBound, ModuleScript},
	PointScriptFunction: {"SCRIPT_FUNCTION", "Script Function", CategoryScript, CPUBound, ModuleScript},
	PointScriptGC:       {"SCRIPT_GC", "Script GC", CategoryScript, MemoryBound, ModuleMemory},

	PointModInit: {"MOD_INIT", "Mod Initialization", CategoryCustom, CPUBound, ModuleScript},
	PointModTick: {"MOD_TICK", "Mod Tick Handler", CategoryCustom, CPUBound, ModuleScript},
	PointCustom1: {"CUSTOM_1", "Custom 1", CategoryCustom, CPUBound, ModuleEngine},
	PointCustom2: {"CUSTOM_2", "Custom 2", CategoryCustom, CPUBound, ModuleEngine},
	PointCustom3: {"CUSTOM_3", "Custom 3", CategoryCustom, CPUBound, ModuleEngine},
	PointCustom4: {"CUSTOM_4", "Custom 4", CategoryCustom, CPUBound, ModuleEngine},
	PointCustom5: {"CUSTOM_5", "Custom 5", CategoryCustom, CPUBound, ModuleEngine},

	PointOverhead: {"PROFILER_OVERHEAD", "Profiler Overhead", CategoryInternal, CPUBound, ModuleEngine},
}

// Points returns every defined point in declaration order.
func Points() []Point {
	out := make([]Point, numPoints)
	for i := range out {
		out[i] = Point(i)
	}
	return out
}

// Valid reports whether p is a defined point.
func (p Point) Valid() bool {
	return p < numPoints
}

// Info returns the classification record. Undefined points return a zero
// record named "UNKNOWN".
func (p Point) Info() PointInfo {
	if !p.Valid() {
		return PointInfo{Name: "UNKNOWN", DisplayName: "Unknown", Type: CPUBound, Module: ModuleEngine}
	}
	return pointTable[p]
}

func (p Point) String() string { return p.Info().Name }
func (p Point) DisplayName() string { return p.Info().DisplayName }
func (p Point) Category() Category { return p.Info().Category }
func (p Point) Type() BottleneckType { return p.Info().Type }
func (p Point) Module() Module { return p.Info().Module }
func (p Point) IsSubsystem() bool { return p.Category() == CategorySubsystem }
func (p Point) IsScript() bool { return p.Category() == CategoryScript }

// ParsePoint looks a point up by its name, case-insensitively.
func ParsePoint(name string) (Point, bool) {
	for i := range pointTable {
		if strings.EqualFold(pointTable[i].Name, name) {
			return Point(i), true
		}
	}
	return 0, false
}

// ParseModule looks a module up by name, case-insensitively.
func ParseModule(name string) (Module, bool) {
	for _, m := range []Module{ModuleEngine, ModuleScript, ModuleRender, ModuleIO, ModuleMemory, ModuleWorld} {
		if strings.EqualFold(string(m), name) {
			return m, true
		}
	}
	return "", false
}
