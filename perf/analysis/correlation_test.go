package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func linear(n int, a, b float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = a*float64(i) + b
	}
	return out
}

func TestCorrelationBuffer_Pearson(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		ys   []float64
		want float64
	}{
		{"identical", linear(20, 1, 0), linear(20, 1, 0), 1},
		{"scaled", linear(20, 1, 0), linear(20, 3.5, 12), 1},
		{"anti", linear(20, 1, 0), linear(20, -2, 5), -1},
		{"constant x", linear(20, 0, 4), linear(20, 1, 0), 0},
		{"constant y", linear(20, 1, 0), linear(20, 0, 0.1), 0},
		{"single pair", []float64{1}, []float64{2}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewCorrelationBuffer(100)
			for i := range tt.xs {
				b.Add(tt.xs[i], tt.ys[i])
			}
			r := b.Correlation()
			assert.False(t, math.IsNaN(r))
			assert.InDelta(t, tt.want, r, 1e-9)
		})
	}
}

func TestCorrelationBuffer_Eviction(t *testing.T) {
	b := NewCorrelationBuffer(5)
	assert.Equal(t, 5, b.Capacity())

	for i := 0; i < 5; i++ {
		b.Add(float64(i), float64(-i))
	}
	assert.InDelta(t, -1.0, b.Correlation(), 1e-9)

	for i := 0; i < 5; i++ {
		b.Add(float64(i), float64(2*i))
	}
	assert.Equal(t, 5, b.Count())
	assert.InDelta(t, 1.0, b.Correlation(), 1e-9, "old pairs are evicted")
}

func TestCorrelationBuffer_Reset(t *testing.T) {
	b := NewCorrelationBuffer(0)
	assert.Equal(t, DefaultCorrelationCapacity, b.Capacity())

	for i := 0; i < 10; i++ {
		b.Add(float64(i), float64(i))
	}
	b.Reset()
	b.Reset()
	assert.Zero(t, b.Count())
	assert.Zero(t, b.Correlation())
}

func TestCorrelate(t *testing.T) {
	assert.Zero(t, Correlate(linear(4, 1, 0), linear(4, 1, 0)), "fewer than 5 points")
	assert.InDelta(t, 1.0, Correlate(linear(5, 1, 0), linear(5, 1, 0)), 1e-9)

	// Series are aligned on their newest values.
	xs := append([]float64{100, -50, 7}, linear(6, 1, 0)...)
	ys := linear(6, 2, 1)
	assert.InDelta(t, 1.0, Correlate(xs, ys), 1e-9)

	ys = append([]float64{1, 2}, linear(4, 1, 0)...)
	assert.Zero(t, Correlate(xs[:4], ys), "aligned length below the floor")
}

func TestCorrelate_Precision(t *testing.T) {
	// A large offset with a small step still has real variance.
	assert.InDelta(t, 1.0, Correlate(linear(50, 1e-3, 1e9), linear(50, 1, 0)), 1e-6)
	assert.InDelta(t, -1.0, Correlate(linear(50, -1e-3, 1e9), linear(50, 1, 0)), 1e-6)
	assert.InDelta(t, 1.0, Correlate(linear(10, 1e-8, 0), linear(10, 3, 2)), 1e-9)

	// 0.1 is not exact in binary, but a constant series is still constant.
	assert.Zero(t, Correlate(linear(20, 0, 0.1), linear(20, 1, 0)))
	assert.Zero(t, Correlate(linear(20, 1, 0), linear(20, 0, 1e12+0.1)))

	b := NewCorrelationBuffer(50)
	for i := 0; i < 50; i++ {
		b.Add(1e9+float64(i)*1e-3, float64(i))
	}
	assert.InDelta(t, 1.0, b.Correlation(), 1e-6)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		r    float64
		want Strength
	}{
		{1, StrengthVeryStrong},
		{-0.8, StrengthVeryStrong},
		{0.79, StrengthStrong},
		{-0.6, StrengthStrong},
		{0.4, StrengthModerate},
		{0.2, StrengthWeak},
		{-0.19, StrengthNone},
		{0, StrengthNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.r), "r=%.2f", tt.r)
	}
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		r    float64
		want string
	}{
		{0.9, "Strong Positive"},
		{-0.71, "Strong Negative"},
		{0.7, "Moderate Positive"},
		{-0.31, "Moderate Negative"},
		{0.3, "Weak/None"},
		{-0.1, "Weak/None"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Interpret(tt.r), "r=%.2f", tt.r)
	}
}
