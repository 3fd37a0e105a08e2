package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	uatomic "go.uber.org/atomic"
)

const (
	// DefaultSpikeThresholdMs is two frames at 60 fps.
	DefaultSpikeThresholdMs = 33.33

	// DefaultSpikeCapacity is the number of spikes retained by a SpikeLog.
	DefaultSpikeCapacity = 100
)

// SpikeEntry is one sample that crossed the spike threshold.
type SpikeEntry struct {
	Timestamp      time.Time
	DurationMicros int64
	Point          Point
	Label          string
}

// DurationMs returns the spike duration in milliseconds.
func (e SpikeEntry) DurationMs() float64 {
	return microsToMs(e.DurationMicros)
}

// SpikeLog keeps the most recent samples that crossed a mutable threshold,
// plus a lifetime count and the worst spike ever seen.
//
// Retained entries live in a fixed ring of preallocated slots. A writer
// claims a sequence number atomically and fills its slot under that slot's
// own lock, so writers only meet when they land on the same slot one lap
// apart, and no spike is ever skipped. Each slot is stamped with the sequence
// it holds; a late writer never overwrites a newer entry, and readers skip
// slots whose stamp no longer matches the sequence they expect. The lifetime
// count and the worst spike are updated atomically.
type SpikeLog struct {
	threshold *uatomic.Float64

	slots  []spikeSlot
	writes atomic.Int64

	total atomic.Int64
	worst atomic.Pointer[SpikeEntry]

	now func() time.Time
}

// spikeSlot holds one entry. stamp is the sequence of the entry plus one, or
// 0 for a slot never written since the last reset.
type spikeSlot struct {
	mu    sync.Mutex
	stamp int64
	entry SpikeEntry
}

// NewSpikeLog creates a log that retains up to capacity entries above
// thresholdMs. A non-positive capacity selects DefaultSpikeCapacity.
func NewSpikeLog(thresholdMs float64, capacity int) *SpikeLog {
	if capacity <= 0 {
		capacity = DefaultSpikeCapacity
	}
	if thresholdMs < 0 {
		thresholdMs = 0
	}
	return &SpikeLog{
		threshold: uatomic.NewFloat64(thresholdMs),
		slots:     make([]spikeSlot, capacity),
		now:       time.Now,
	}
}

// Log records the sample if it is at or above the threshold and reports
// whether it was a spike.
func (l *SpikeLog) Log(durationMicros int64, point Point, label string) bool {
	if microsToMs(durationMicros) < l.threshold.Load() {
		return false
	}

	l.total.Add(1)
	entry := SpikeEntry{
		Timestamp:      l.now(),
		DurationMicros: durationMicros,
		Point:          point,
		Label:          label,
	}
	l.raiseWorst(entry)

	seq := l.writes.Add(1) - 1
	slot := &l.slots[seq%int64(len(l.slots))]
	slot.mu.Lock()
	if slot.stamp <= seq {
		slot.stamp = seq + 1
		slot.entry = entry
	}
	slot.mu.Unlock()
	return true
}

// raiseWorst only allocates when a new worst spike is seen, which happens a
// bounded number of times per session.
func (l *SpikeLog) raiseWorst(e SpikeEntry) {
	for {
		cur := l.worst.Load()
		if cur != nil && cur.DurationMicros >= e.DurationMicros {
			return
		}
		candidate := e
		if l.worst.CompareAndSwap(cur, &candidate) {
			return
		}
	}
}

// ThresholdMs returns the current spike threshold.
func (l *SpikeLog) ThresholdMs() float64 {
	return l.threshold.Load()
}

// SetThresholdMs changes the threshold for future samples. Entries already
// retained are kept as they are. Negative values are treated as 0.
func (l *SpikeLog) SetThresholdMs(ms float64) {
	if ms < 0 {
		ms = 0
	}
	l.threshold.Store(ms)
}

// TotalSpikes is the number of spikes seen since the last reset, including
// entries evicted from the ring.
func (l *SpikeLog) TotalSpikes() int64 {
	return l.total.Load()
}

// Capacity returns the maximum number of retained entries.
func (l *SpikeLog) Capacity() int {
	return len(l.slots)
}

// Len returns the number of retained entries.
func (l *SpikeLog) Len() int {
	return int(min(l.writes.Load(), int64(len(l.slots))))
}

// Worst returns the largest spike since the last reset.
func (l *SpikeLog) Worst() (SpikeEntry, bool) {
	w := l.worst.Load()
	if w == nil {
		return SpikeEntry{}, false
	}
	return *w, true
}

// Recent returns up to n retained entries, newest first. A non-positive n
// returns all of them. Entries still being written are skipped.
func (l *SpikeLog) Recent(n int) []SpikeEntry {
	if n <= 0 || n > len(l.slots) {
		n = len(l.slots)
	}
	out := make([]SpikeEntry, 0, min(n, l.Len()))
	l.scan(func(e SpikeEntry) bool {
		out = append(out, e)
		return len(out) < n
	})
	return out
}

// SpikesByPoint counts the retained entries per point.
func (l *SpikeLog) SpikesByPoint() map[Point]int {
	out := make(map[Point]int)
	l.scan(func(e SpikeEntry) bool {
		out[e.Point]++
		return true
	})
	return out
}

// scan visits the retained entries newest first until f returns false.
func (l *SpikeLog) scan(f func(SpikeEntry) bool) {
	head := l.writes.Load()
	oldest := max(0, head-int64(len(l.slots)))
	for seq := head - 1; seq >= oldest; seq-- {
		slot := &l.slots[seq%int64(len(l.slots))]
		slot.mu.Lock()
		e, ok := slot.entry, slot.stamp == seq+1
		slot.mu.Unlock()
		if ok && !f(e) {
			return
		}
	}
}

// Snapshot returns a serializable view with the recentN newest entries.
func (l *SpikeLog) Snapshot(recentN int) SpikeSnapshot {
	recent := l.Recent(recentN)
	snap := SpikeSnapshot{
		ThresholdMs: Round(l.ThresholdMs(), 2),
		TotalSpikes: l.TotalSpikes(),
		Retained:    l.Len(),
		ByPoint:     make(map[string]int),
		Recent:      make([]SpikeEntrySnapshot, 0, len(recent)),
	}
	if w, ok := l.Worst(); ok {
		snap.WorstMs = Round(w.DurationMs(), 2)
		snap.WorstPoint = w.Point.String()
		snap.WorstLabel = w.Label
	}
	for p, n := range l.SpikesByPoint() {
		snap.ByPoint[p.String()] = n
	}
	for _, e := range recent {
		snap.Recent = append(snap.Recent, SpikeEntrySnapshot{
			Timestamp:  e.Timestamp,
			Point:      e.Point.String(),
			Label:      e.Label,
			DurationMs: Round(e.DurationMs(), 2),
		})
	}
	return snap
}

// Reset clears retained entries, counters and the worst spike. The threshold
// is kept. Not safe to call concurrently with Log.
func (l *SpikeLog) Reset() {
	for i := range l.slots {
		s := &l.slots[i]
		s.mu.Lock()
		s.stamp = 0
		s.entry = SpikeEntry{}
		s.mu.Unlock()
	}
	l.writes.Store(0)
	l.total.Store(0)
	l.worst.Store(nil)
}
