package metrics

import (
	"testing"
)

// =============================================================================
// Write Path Benchmarks
// =============================================================================

// BenchmarkRollingWindow_Add measures a single window insert.
func BenchmarkRollingWindow_Add(b *testing.B) {
	w := NewRollingWindow(3600)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		w.Add(int64(i % 50_000))
	}
}

// BenchmarkHistogram_Add measures bucket lookup plus counter updates.
func BenchmarkHistogram_Add(b *testing.B) {
	h := NewHistogram(nil)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		h.Add(int64(i % 250_000))
	}
}

// BenchmarkProfiler_AddSample measures the full write path without a label.
func BenchmarkProfiler_AddSample(b *testing.B) {
	p := NewProfiler(DefaultOptions())

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		p.AddSample(PointPhysics, int64(i%20_000), "")
	}
}

// BenchmarkProfiler_AddSample_Label measures the write path with a known label.
func BenchmarkProfiler_AddSample_Label(b *testing.B) {
	p := NewProfiler(DefaultOptions())
	labels := []string{"zombie", "skeleton", "villager", "wolf"}
	for _, l := range labels {
		p.AddSample(PointEntityAI, 1, l)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		p.AddSample(PointEntityAI, int64(i%20_000), labels[i%len(labels)])
	}
}

// BenchmarkProfiler_AddSample_Parallel is the primary use case: many
// goroutines recording into the same points.
func BenchmarkProfiler_AddSample_Parallel(b *testing.B) {
	p := NewProfiler(DefaultOptions())
	p.AddSample(PointEntityAI, 1, "zombie")

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		var i int64
		for pb.Next() {
			p.AddSample(PointEntityAI, i%20_000, "zombie")
			i++
		}
	})
}

// BenchmarkProfiler_Snapshot measures the read side with populated points.
func BenchmarkProfiler_Snapshot(b *testing.B) {
	p := NewProfiler(DefaultOptions())
	for i := 0; i < 10_000; i++ {
		p.AddSample(Point(i%int(numPoints)), int64(i%40_000), "")
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = p.Snapshot(10)
	}
}
