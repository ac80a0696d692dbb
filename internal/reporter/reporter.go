// Package reporter turns counter snapshots into periodic metrics, publishes them to the
// observer and reports them upstream over the feed connection.
package reporter

import (
	"context"
	"time"

	"tickbench/internal/counter"
	"tickbench/internal/observer"
	"tickbench/internal/protocol"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultInterval is the reporting cadence.
const DefaultInterval = time.Second

// Sender writes one text frame upstream. Implementations serialize concurrent writers.
type Sender interface {
	WriteText(data []byte) error
}

// Config holds the optional reporter settings.
type Config struct {
	ClientID string
	Interval time.Duration // default DefaultInterval
	Clock    clock.Clock   // default wall clock
	Logger   *zap.Logger   // default nop
}

// Reporter turns counter snapshots into a metrics bundle and a stats message once per interval.
type Reporter struct {
	bank     *counter.Bank
	running  *atomic.Bool
	observer observer.Observer
	sender   Sender

	clientID string
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger
}

// New creates a reporter over bank. It stops reporting as soon as running is false.
func New(bank *counter.Bank, running *atomic.Bool, obs observer.Observer, sender Sender, cfg Config) *Reporter {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if obs == nil {
		obs = observer.Nop{}
	}
	return &Reporter{
		bank:     bank,
		running:  running,
		observer: obs,
		sender:   sender,
		clientID: cfg.ClientID,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		logger:   cfg.Logger.Named("reporter"),
	}
}

// Run reports once per interval until running turns false or ctx is cancelled.
// It can be abandoned at any wait point: every field it reads is reset independently.
func (r *Reporter) Run(ctx context.Context) {
	ticker := r.clock.Ticker(r.interval)
	defer ticker.Stop()

	for r.running.Load() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !r.running.Load() || ctx.Err() != nil {
			return
		}
		r.Report()
	}
}

// Report takes one snapshot, publishes it and sends a stats message upstream.
func (r *Reporter) Report() observer.Metrics {
	snap := r.bank.SnapshotAndResetInterval()

	m := observer.Metrics{
		ClientID:       r.clientID,
		MessagesPerSec: perSecond(snap.IntervalMessages, r.interval),
		TotalMessages:  snap.TotalMessages,
		AvgLatencyMs:   snap.AvgLatencyMs(),
		LastTick:       snap.LastTick,
		At:             r.clock.Now(),
	}
	r.observer.Metrics(m)

	r.send(protocol.Stats{
		ClientID:       r.clientID,
		MessagesPerSec: m.MessagesPerSec,
		TotalMessages:  m.TotalMessages,
		AvgLatencyMs:   m.AvgLatencyMs,
		P99LatencyMs:   0, // tail latency is not tracked
	})
	return m
}

func (r *Reporter) send(s protocol.Stats) {
	if r.sender == nil {
		return
	}
	payload, err := protocol.Encode(s)
	if err != nil {
		r.logger.Warn("failed to encode stats", zap.Error(err))
		return
	}
	if err := r.sender.WriteText(payload); err != nil {
		r.logger.Warn("failed to send stats", zap.Error(err))
	}
}

// perSecond scales an interval count to a per-second rate.
func perSecond(count uint64, interval time.Duration) uint64 {
	if interval == time.Second {
		return count
	}
	return uint64(float64(count) / interval.Seconds())
}
