// Package counter holds the running counters shared by the feed reader and the metrics reporter.
//
// The reader only writes and the reporter only reads-and-resets. Numeric fields are
// lock-free; the last decoded tick sits behind a mutex that the reader never waits on.
package counter

import (
	"sync"

	"tickbench/pkg/tick"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
)

// Snapshot is one reporting interval's view of the bank.
type Snapshot struct {
	TotalMessages    uint64
	IntervalMessages uint64
	LatencySumMs     uint64
	LatencyCount     uint64
	LastTick         *tick.Tick
}

// AvgLatencyMs returns the mean sampled latency, or 0 when nothing was sampled.
func (s Snapshot) AvgLatencyMs() float64 {
	if s.LatencyCount == 0 {
		return 0
	}
	return float64(s.LatencySumMs) / float64(s.LatencyCount)
}

// Bank holds the session counters. The reader records into it and the reporter drains the
// interval fields; all methods are safe for concurrent use.
type Bank struct {
	clock clock.Clock

	total        atomic.Uint64
	interval     atomic.Uint64
	latencySumMs atomic.Uint64
	latencyCount atomic.Uint64

	lastMu   sync.Mutex
	lastTick *tick.Tick
}

// NewBank creates an empty bank. A nil clock means wall-clock time.
func NewBank(c clock.Clock) *Bank {
	if c == nil {
		c = clock.New()
	}
	return &Bank{clock: c}
}

// RecordMessage counts one inbound message and returns its 0-indexed position in the session.
func (b *Bank) RecordMessage() uint64 {
	b.interval.Inc()
	return b.total.Inc() - 1
}

// RecordDecoded adds the latency of a sampled tick and makes it the last tick.
// Ticks stamped in the future count as zero latency.
func (b *Bank) RecordDecoded(t tick.Tick) {
	now := uint64(b.clock.Now().UnixMilli())
	var latency uint64
	if now > t.Timestamp {
		latency = now - t.Timestamp
	}
	b.latencySumMs.Add(latency)
	b.latencyCount.Inc()

	// the reporter may hold the lock; a stale last tick is fine
	if b.lastMu.TryLock() {
		b.lastTick = &t
		b.lastMu.Unlock()
	}
}

// SnapshotAndResetInterval zeroes the per-interval fields and returns their previous values
// together with the running total and last tick.
func (b *Bank) SnapshotAndResetInterval() Snapshot {
	s := Snapshot{
		IntervalMessages: b.interval.Swap(0),
		LatencySumMs:     b.latencySumMs.Swap(0),
		LatencyCount:     b.latencyCount.Swap(0),
		TotalMessages:    b.total.Load(),
	}
	s.LastTick = b.LastTick()
	return s
}

// ResetAll zeroes every counter and forgets the last tick.
func (b *Bank) ResetAll() {
	b.total.Store(0)
	b.interval.Store(0)
	b.latencySumMs.Store(0)
	b.latencyCount.Store(0)

	b.lastMu.Lock()
	b.lastTick = nil
	b.lastMu.Unlock()
}

// Total returns the number of messages recorded since the last ResetAll.
func (b *Bank) Total() uint64 {
	return b.total.Load()
}

// LastTick returns a copy of the most recent sampled tick, if any.
func (b *Bank) LastTick() *tick.Tick {
	b.lastMu.Lock()
	defer b.lastMu.Unlock()
	if b.lastTick == nil {
		return nil
	}
	cp := *b.lastTick
	return &cp
}
