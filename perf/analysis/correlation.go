package analysis

import (
	"math"
	"sync"
)

// DefaultCorrelationCapacity is the number of pairs kept by a CorrelationBuffer.
const DefaultCorrelationCapacity = 100

// MinCorrelatePoints is the number of aligned points Correlate requires.
const MinCorrelatePoints = 5

// CorrelationBuffer keeps the most recent (x, y) pairs of two series and
// computes their Pearson correlation on demand.
//
// The coefficient is recomputed with a full pass over the retained pairs
// instead of maintaining running sums, which would drift as pairs are evicted.
type CorrelationBuffer struct {
	mu    sync.Mutex
	xs    []float64
	ys    []float64
	next  int
	count int
}

// NewCorrelationBuffer creates a buffer holding capacity pairs. A
// non-positive capacity selects DefaultCorrelationCapacity.
func NewCorrelationBuffer(capacity int) *CorrelationBuffer {
	if capacity <= 0 {
		capacity = DefaultCorrelationCapacity
	}
	return &CorrelationBuffer{
		xs: make([]float64, capacity),
		ys: make([]float64, capacity),
	}
}

// Add appends one pair, evicting the oldest when full.
func (b *CorrelationBuffer) Add(x, y float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.xs[b.next] = x
	b.ys[b.next] = y
	b.next = (b.next + 1) % len(b.xs)
	if b.count < len(b.xs) {
		b.count++
	}
}

// Count returns the number of retained pairs.
func (b *CorrelationBuffer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Capacity returns the maximum number of retained pairs.
func (b *CorrelationBuffer) Capacity() int {
	return len(b.xs)
}

// Correlation returns Pearson's r over the retained pairs, in [-1, 1].
// Fewer than two pairs or a series without variance yield 0.
func (b *CorrelationBuffer) Correlation() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count < 2 {
		return 0
	}
	return pearson(b.xs[:b.count], b.ys[:b.count])
}

// Reset drops every pair.
func (b *CorrelationBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.xs {
		b.xs[i] = 0
		b.ys[i] = 0
	}
	b.next = 0
	b.count = 0
}

// Correlate computes Pearson's r of two series aligned on their most recent
// values: when lengths differ only the last min(len(xs), len(ys)) values of
// each are compared. Fewer than MinCorrelatePoints aligned values yield 0.
func Correlate(xs, ys []float64) float64 {
	n := min(len(xs), len(ys))
	if n < MinCorrelatePoints {
		return 0
	}
	return pearson(xs[len(xs)-n:], ys[len(ys)-n:])
}

// pearson centers both series before summing so large offsets do not
// cancel the variance out.
func pearson(xs, ys []float64) float64 {
	if constant(xs) || constant(ys) {
		return 0
	}

	n := float64(len(xs))
	var meanX, meanY float64
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= n
	meanY /= n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	denominator := math.Sqrt(varX * varY)
	if denominator == 0 || math.IsNaN(denominator) || math.IsInf(denominator, 0) {
		return 0
	}
	return clamp(cov/denominator, -1, 1)
}

func constant(vs []float64) bool {
	for _, v := range vs[1:] {
		if v != vs[0] {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Strength is a five level classification of |r|.
type Strength string

const (
	StrengthVeryStrong Strength = "VERY_STRONG"
	StrengthStrong     Strength = "STRONG"
	StrengthModerate   Strength = "MODERATE"
	StrengthWeak       Strength = "WEAK"
	StrengthNone       Strength = "NONE"
)

// Classify maps a coefficient to its Strength.
func Classify(r float64) Strength {
	abs := math.Abs(r)
	switch {
	case abs >= 0.8:
		return StrengthVeryStrong
	case abs >= 0.6:
		return StrengthStrong
	case abs >= 0.4:
		return StrengthModerate
	case abs >= 0.2:
		return StrengthWeak
	default:
		return StrengthNone
	}
}

// Interpret describes a coefficient in three levels with its direction,
// e.g. "Strong Positive". Coefficients with |r| <= 0.3 are "Weak/None".
func Interpret(r float64) string {
	abs := math.Abs(r)
	var level string
	switch {
	case abs > 0.7:
		level = "Strong"
	case abs > 0.3:
		level = "Moderate"
	default:
		return "Weak/None"
	}
	if r < 0 {
		return level + " Negative"
	}
	return level + " Positive"
}
