package metrics

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// OtherLabel collects samples whose label arrived after the label limit of
// an accumulator was reached.
const OtherLabel = "(other)"

const (
	DefaultMaxLabels   = 1024
	DefaultLabelShards = 16
)

// SubAccumulator aggregates the samples of one label.
type SubAccumulator struct {
	calls atomic.Int64
	total atomic.Int64
	max   atomic.Int64
}

func (s *SubAccumulator) add(micros int64) {
	s.calls.Add(1)
	s.total.Add(micros)
	storeMax(&s.max, micros)
}

// Calls returns the number of samples recorded under the label.
func (s *SubAccumulator) Calls() int64 { return s.calls.Load() }

// TotalMicros returns the summed duration of the label.
func (s *SubAccumulator) TotalMicros() int64 { return s.total.Load() }

// MaxMicros returns the longest sample of the label.
func (s *SubAccumulator) MaxMicros() int64 { return s.max.Load() }

func (s *SubAccumulator) stat(label string) LabelStat {
	calls := s.calls.Load()
	total := s.total.Load()
	var avg float64
	if calls > 0 {
		avg = microsToMs(total) / float64(calls)
	}
	return LabelStat{
		Label:   label,
		Calls:   calls,
		TotalMs: Round(microsToMs(total), 3),
		AvgMs:   Round(avg, 3),
		MaxMs:   Round(microsToMs(s.max.Load()), 3),
	}
}

func (s *SubAccumulator) reset() {
	s.calls.Store(0)
	s.total.Store(0)
	s.max.Store(0)
}

// labelMap maps labels to their SubAccumulator. Shards are chosen by xxhash
// of the label; lookups of known labels only take a shard read lock, so
// writers on different labels rarely meet. The number of distinct labels is
// capped at max, later labels fold into OtherLabel.
type labelMap struct {
	shards []labelShard
	mask   uint64
	max    int64
	count  atomic.Int64
	other  SubAccumulator
}

type labelShard struct {
	mu sync.RWMutex
	m  map[string]*SubAccumulator
}

func newLabelMap(maxLabels, shards int) *labelMap {
	if maxLabels <= 0 {
		maxLabels = DefaultMaxLabels
	}
	if shards <= 0 {
		shards = DefaultLabelShards
	}
	// Round up to a power of two so the shard index is a mask.
	n := 1
	for n < shards {
		n <<= 1
	}
	lm := &labelMap{
		shards: make([]labelShard, n),
		mask:   uint64(n - 1),
		max:    int64(maxLabels),
	}
	for i := range lm.shards {
		lm.shards[i].m = make(map[string]*SubAccumulator)
	}
	return lm
}

func (lm *labelMap) get(label string) *SubAccumulator {
	if label == OtherLabel {
		return &lm.other
	}
	s := &lm.shards[xxhash.Sum64String(label)&lm.mask]

	s.mu.RLock()
	sub := s.m[label]
	s.mu.RUnlock()
	if sub != nil {
		return sub
	}
	if lm.count.Load() >= lm.max {
		return &lm.other
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sub = s.m[label]; sub != nil {
		return sub
	}
	if lm.count.Add(1) > lm.max {
		lm.count.Add(-1)
		return &lm.other
	}
	sub = &SubAccumulator{}
	s.m[label] = sub
	return sub
}

func (lm *labelMap) lookup(label string) (*SubAccumulator, bool) {
	if label == OtherLabel {
		return &lm.other, lm.other.Calls() > 0
	}
	s := &lm.shards[xxhash.Sum64String(label)&lm.mask]
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.m[label]
	return sub, ok
}

// len counts distinct labels, OtherLabel included once it has samples.
func (lm *labelMap) len() int {
	n := int(lm.count.Load())
	if lm.other.Calls() > 0 {
		n++
	}
	return n
}

func (lm *labelMap) stats() []LabelStat {
	out := make([]LabelStat, 0, lm.len())
	for i := range lm.shards {
		s := &lm.shards[i]
		s.mu.RLock()
		for label, sub := range s.m {
			out = append(out, sub.stat(label))
		}
		s.mu.RUnlock()
	}
	if lm.other.Calls() > 0 {
		out = append(out, lm.other.stat(OtherLabel))
	}
	return out
}

func (lm *labelMap) reset() {
	for i := range lm.shards {
		s := &lm.shards[i]
		s.mu.Lock()
		clear(s.m)
		s.mu.Unlock()
	}
	lm.count.Store(0)
	lm.other.reset()
}

// topLabels sorts stats by key descending, ties by label, and keeps n.
func topLabels(stats []LabelStat, n int, key func(LabelStat) float64) []LabelStat {
	sorted := make([]LabelStat, len(stats))
	copy(sorted, stats)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := key(sorted[i]), key(sorted[j])
		if ki != kj {
			return ki > kj
		}
		return sorted[i].Label < sorted[j].Label
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
