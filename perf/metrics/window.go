package metrics

import (
	"math"
	"runtime"
	"sync/atomic"
)

// RollingWindow keeps the last capacity values of a series and answers
// average and max over them in O(1).
//
// It is a ring buffer allocated once at construction. Inserting keeps a
// running sum and a running max; the max is recomputed with a full pass only
// when the slot being overwritten held the current max, so inserts are O(1)
// except for that case.
//
// # Thread Safety
//
// Add takes no locks and never allocates. Each writer claims a sequence
// number; writes to the same slot land in sequence order, so a writer only
// waits when the write one lap behind it on its slot has not finished. With
// fewer concurrent writers than slots that never happens. The running sum
// adds exactly the difference between the value written and the value it
// replaced, so once writers stop the sum and the max match the buffer.
// Readers get an eventually consistent view: the sum and the max may reflect
// one more or one less write than SampleCount. Reset is a session boundary
// operation and must not run concurrently with Add.
type RollingWindow struct {
	slots    []windowSlot
	capacity int64

	writes  atomic.Int64 // claimed inserts since reset; sequence s goes to slot s % capacity
	landed  atomic.Int64 // inserts whose value is in the buffer
	sum     atomic.Int64
	max     atomic.Int64 // math.MinInt64 while empty
	rescans atomic.Int64
}

// windowSlot holds one value. gen counts the writes landed in the slot; the
// write with sequence s may proceed once gen == s / capacity.
type windowSlot struct {
	gen atomic.Int64
	val atomic.Int64
}

// NewRollingWindow creates a window holding at most capacity values.
// A non-positive capacity is treated as 1.
func NewRollingWindow(capacity int) *RollingWindow {
	if capacity <= 0 {
		capacity = 1
	}
	w := &RollingWindow{
		slots:    make([]windowSlot, capacity),
		capacity: int64(capacity),
	}
	w.max.Store(math.MinInt64)
	return w
}

// Add inserts a value, evicting the oldest one when the window is full.
func (w *RollingWindow) Add(v int64) {
	seq := w.writes.Add(1) - 1
	lap := seq / w.capacity
	slot := &w.slots[seq%w.capacity]

	for slot.gen.Load() != lap {
		runtime.Gosched()
	}
	// Slots start at zero, so the first lap subtracts nothing.
	old := slot.val.Swap(v)
	w.sum.Add(v - old)
	slot.gen.Store(lap + 1)
	w.landed.Add(1)

	storeMax(&w.max, v)
	if lap > 0 && old >= w.max.Load() {
		// The evicted value may have been the max. v is already in place,
		// so the rescan takes it into account.
		w.rescan()
	}
}

// rescan recomputes the max from every landed slot. The result is only
// installed over the max it started from, and the scan is repeated when
// another write landed meanwhile, since that write may have replaced a value
// the scan already read.
func (w *RollingWindow) rescan() {
	w.rescans.Add(1)

	for {
		landed := w.landed.Load()
		cur := w.max.Load()

		m := int64(math.MinInt64)
		for i := range w.slots {
			s := &w.slots[i]
			if s.gen.Load() == 0 {
				continue
			}
			if v := s.val.Load(); v > m {
				m = v
			}
		}

		if !w.max.CompareAndSwap(cur, m) {
			continue
		}
		if w.landed.Load() == landed {
			return
		}
	}
}

func (w *RollingWindow) size() int64 {
	n := w.writes.Load()
	if n > w.capacity {
		return w.capacity
	}
	return n
}

// Average returns the integer mean of the retained values, or 0 when empty.
func (w *RollingWindow) Average() int64 {
	n := w.size()
	if n == 0 {
		return 0
	}
	return w.sum.Load() / n
}

// Max returns the largest retained value, or 0 when empty.
func (w *RollingWindow) Max() int64 {
	m := w.max.Load()
	if w.size() == 0 || m == math.MinInt64 {
		return 0
	}
	return m
}

// SampleCount returns how many values are currently retained.
func (w *RollingWindow) SampleCount() int {
	return int(w.size())
}

// Capacity returns the fixed size of the window.
func (w *RollingWindow) Capacity() int {
	return int(w.capacity)
}

// Confidence is the fill ratio of the window in [0, 1].
func (w *RollingWindow) Confidence() float64 {
	return float64(w.size()) / float64(w.capacity)
}

// IsStatisticallyMeaningful reports whether the window is at least half full.
// Consumers use it to discount windows right after a reset. An empty window
// is never meaningful, even with capacity 1.
func (w *RollingWindow) IsStatisticallyMeaningful() bool {
	n := w.size()
	return n > 0 && n >= w.capacity/2
}

// Rescans returns how many times the max had to be recomputed in full.
func (w *RollingWindow) Rescans() int64 {
	return w.rescans.Load()
}

// Reset empties the window without reallocating it.
func (w *RollingWindow) Reset() {
	for i := range w.slots {
		w.slots[i].val.Store(0)
		w.slots[i].gen.Store(0)
	}
	w.writes.Store(0)
	w.landed.Store(0)
	w.sum.Store(0)
	w.max.Store(math.MinInt64)
	w.rescans.Store(0)
}

// storeMax raises dst to v with a compare-and-swap loop.
func storeMax(dst *atomic.Int64, v int64) {
	for {
		cur := dst.Load()
		if v <= cur {
			return
		}
		if dst.CompareAndSwap(cur, v) {
			return
		}
	}
}

// storeMin lowers dst to v with a compare-and-swap loop.
func storeMin(dst *atomic.Int64, v int64) {
	for {
		cur := dst.Load()
		if v >= cur {
			return
		}
		if dst.CompareAndSwap(cur, v) {
			return
		}
	}
}
