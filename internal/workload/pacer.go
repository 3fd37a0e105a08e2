package workload

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Pacer schedules loop iterations at a fixed rate using the leaky bucket
// algorithm: it answers "when should the next tick start" rather than "how
// many ticks may run now", so a loop that falls behind catches up one tick at
// a time instead of bursting.
//
// # Thread Safety
//
// Pacer is safe for concurrent use from multiple goroutines.
type Pacer struct {
	rate        float64   // Ticks per second
	lastDrip    time.Time // Start of the last scheduled tick
	accumulated float64   // Accumulated ticks (fractional)
	maxBurst    float64   // Maximum burst (1.0 for strict timing)
	mu          sync.Mutex

	// Metrics
	ticks  atomic.Int64 // Ticks scheduled
	late   atomic.Int64 // Ticks that started immediately because the loop was behind
	waited atomic.Int64 // Total wait time in nanoseconds

	now func() time.Time
}

// NewPacer creates a pacer for tps ticks per second. A non-positive rate
// defaults to 1. The first tick starts immediately.
func NewPacer(tps float64) *Pacer {
	if tps <= 0 {
		tps = 1.0
	}
	return &Pacer{
		rate:        tps,
		lastDrip:    time.Now(),
		accumulated: 1.0,
		maxBurst:    1.0,
		now:         time.Now,
	}
}

// Next returns when the next tick should start. The returned time may be in
// the past if the loop is behind schedule.
func (p *Pacer) Next() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	elapsed := now.Sub(p.lastDrip).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	p.accumulated += elapsed * p.rate
	if p.accumulated > p.maxBurst {
		p.accumulated = p.maxBurst
	}
	p.ticks.Add(1)

	if p.accumulated >= 1.0 {
		p.accumulated -= 1.0
		p.lastDrip = now
		if p.ticks.Load() > 1 {
			p.late.Add(1)
		}
		return now
	}

	deficit := 1.0 - p.accumulated
	wait := time.Duration(deficit / p.rate * float64(time.Second))
	p.accumulated = 0

	// lastDrip moves to the scheduled start so waking up at next does not
	// count the sleep twice.
	next := now.Add(wait)
	p.lastDrip = next
	p.waited.Add(int64(wait))
	return next
}

// Wait blocks until the next tick should start or ctx is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	wait := time.Until(p.Next())
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SetRate changes the tick rate. Accumulated ticks are discarded so a rate
// change never causes a burst.
func (p *Pacer) SetRate(tps float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if tps <= 0 {
		tps = 1.0
	}
	p.rate = tps
	p.accumulated = 0
	p.lastDrip = p.now()
}

// Rate returns the tick rate in ticks per second.
func (p *Pacer) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// Interval is the target duration of one tick.
func (p *Pacer) Interval() time.Duration {
	return time.Duration(float64(time.Second) / p.Rate())
}

// Stats returns statistics about the pacer's operation.
func (p *Pacer) Stats() PacerStats {
	return PacerStats{
		Rate:     p.Rate(),
		Ticks:    p.ticks.Load(),
		Late:     p.late.Load(),
		WaitTime: time.Duration(p.waited.Load()),
	}
}

// PacerStats contains statistics about the pacer.
type PacerStats struct {
	Rate     float64       `json:"rate"`      // Ticks per second
	Ticks    int64         `json:"ticks"`     // Ticks scheduled
	Late     int64         `json:"late"`      // Ticks started behind schedule
	WaitTime time.Duration `json:"wait_time"` // Total time spent waiting
}
