package reporter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tickbench/internal/counter"
	"tickbench/internal/observer"
	"tickbench/internal/protocol"
	"tickbench/internal/reporter"
	"tickbench/internal/testutils"
	"tickbench/pkg/tick"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type fixture struct {
	clock     *clock.Mock
	bank      *counter.Bank
	running   *atomic.Bool
	obs       *testutils.RecordingObserver
	transport *testutils.MockTransport
	rep       *reporter.Reporter
}

func setup(interval time.Duration) *fixture {
	mock := clock.NewMock()
	mock.Set(time.UnixMilli(1700000000000))

	f := &fixture{
		clock:     mock,
		bank:      counter.NewBank(mock),
		running:   atomic.NewBool(true),
		obs:       testutils.NewRecordingObserver(),
		transport: testutils.NewMockTransport(1),
	}
	f.rep = reporter.New(f.bank, f.running, f.obs, f.transport, reporter.Config{
		ClientID: "bench",
		Interval: interval,
		Clock:    mock,
	})
	return f
}

// go test -v --run TestReportComputesMetrics
func TestReportComputesMetrics(t *testing.T) {
	f := setup(time.Second)

	for i := 0; i < 42; i++ {
		f.bank.RecordMessage()
	}
	f.bank.RecordDecoded(tick.Tick{Symbol: "ETH", Price: 3000.5, Timestamp: 1700000000000 - 10})
	f.bank.RecordDecoded(tick.Tick{Symbol: "SOL", Price: 150, Timestamp: 1700000000000 - 20})

	m := f.rep.Report()
	assert.Equal(t, uint64(42), m.MessagesPerSec)
	assert.Equal(t, uint64(42), m.TotalMessages)
	assert.Equal(t, 15.0, m.AvgLatencyMs)
	require.NotNil(t, m.LastTick)
	assert.Equal(t, "SOL", m.LastTick.Symbol)
	assert.Equal(t, "bench", m.ClientID)

	published, ok := f.obs.LastMetrics()
	require.True(t, ok)
	assert.Equal(t, m, published)

	written := f.transport.Written()
	require.Len(t, written, 1)
	status, err := protocol.Decode(written[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.Stats{
		ClientID:       "bench",
		MessagesPerSec: 42,
		TotalMessages:  42,
		AvgLatencyMs:   15,
	}, status)
}

// go test -v --run TestReportEmptyInterval
func TestReportEmptyInterval(t *testing.T) {
	f := setup(time.Second)
	f.bank.RecordMessage()
	f.rep.Report()

	m := f.rep.Report()
	assert.Zero(t, m.MessagesPerSec)
	assert.Zero(t, m.AvgLatencyMs)
	assert.Equal(t, uint64(1), m.TotalMessages)
}

// go test -v --run TestReportScalesToPerSecond
func TestReportScalesToPerSecond(t *testing.T) {
	f := setup(2 * time.Second)
	for i := 0; i < 100; i++ {
		f.bank.RecordMessage()
	}

	assert.Equal(t, uint64(50), f.rep.Report().MessagesPerSec)
}

// go test -v --run TestReportSwallowsSendErrors
func TestReportSwallowsSendErrors(t *testing.T) {
	f := setup(time.Second)
	f.transport.FailWrites(errors.New("broken pipe"))

	f.bank.RecordMessage()
	assert.NotPanics(t, func() { f.rep.Report() })
	assert.Equal(t, 1, f.obs.Count(observer.EventMetrics))

	// the next interval still runs
	f.rep.Report()
	assert.Equal(t, 2, f.obs.Count(observer.EventMetrics))
}

// go test -v --run TestRunTicksUntilStopped
func TestRunTicksUntilStopped(t *testing.T) {
	f := setup(time.Second)

	done := make(chan struct{})
	go func() {
		f.rep.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		f.clock.Add(time.Second)
		return f.obs.Count(observer.EventMetrics) >= 2
	}, time.Second, 5*time.Millisecond)

	f.running.Store(false)
	f.clock.Add(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reporter did not stop after running turned false")
	}
}

// go test -v --run TestRunCancelled
func TestRunCancelled(t *testing.T) {
	f := setup(time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.rep.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reporter did not stop on cancellation")
	}
	assert.Zero(t, f.obs.Count(observer.EventMetrics))
}
