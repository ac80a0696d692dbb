package controller_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tickbench/internal/controller"
	"tickbench/internal/feedsim"
	"tickbench/internal/observer"
	"tickbench/internal/session"
	"tickbench/internal/testutils"
	"tickbench/pkg/tick"
	"tickbench/pkg/wsfeed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialerFor(d *testutils.MockDialer) session.Dialer {
	return session.DialFunc(func(ctx context.Context, addr string) (session.Transport, error) {
		tr, err := d.DialTransport(ctx, addr)
		if err != nil {
			return nil, err
		}
		return tr, nil
	})
}

func wait(t *testing.T, c *controller.Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

// go test -v --run TestStartWhileActive
func TestStartWhileActive(t *testing.T) {
	tr := testutils.NewMockTransport(1)
	d := &testutils.MockDialer{Transport: tr}
	c := controller.New(dialerFor(d), nil, session.Options{})

	require.NoError(t, c.Start("ws://feed"))
	require.Eventually(t, c.IsConnected, time.Second, 5*time.Millisecond)

	err := c.Start("ws://other")
	assert.ErrorIs(t, err, controller.ErrAlreadyActive)
	assert.Equal(t, 1, d.Calls())

	c.Stop()
	wait(t, c)
	assert.False(t, c.IsConnected())
	assert.Equal(t, session.StateDisconnected, c.State())
	assert.True(t, tr.Closed())

	// a finished session frees the slot
	d2 := &testutils.MockDialer{Err: errors.New("refused")}
	c2 := controller.New(dialerFor(d2), nil, session.Options{})
	require.NoError(t, c2.Start("ws://feed"))
	wait(t, c2)
	require.NoError(t, c2.Start("ws://feed"))
	wait(t, c2)
	assert.Equal(t, 2, d2.Calls())
}

// go test -v --run TestIdleOperations
func TestIdleOperations(t *testing.T) {
	rec := testutils.NewRecordingObserver()
	c := controller.New(dialerFor(&testutils.MockDialer{}), rec, session.Options{})

	c.Stop()
	c.ResetMetrics()
	wait(t, c)

	assert.False(t, c.IsConnected())
	assert.Equal(t, session.StateIdle, c.State())
	assert.Nil(t, c.Bank())
	assert.Empty(t, rec.Events())
}

// go test -v --run TestResetMetricsKeepsSessionRunning
func TestResetMetricsKeepsSessionRunning(t *testing.T) {
	tr := testutils.NewMockTransport(16)
	rec := testutils.NewRecordingObserver()
	c := controller.New(dialerFor(&testutils.MockDialer{Transport: tr}), rec, session.Options{})

	require.NoError(t, c.Start("ws://feed"))
	for i := 0; i < 5; i++ {
		tr.Push(tick.Frame{Kind: tick.FrameText, Data: []byte("{}")})
	}
	require.Eventually(t, func() bool {
		b := c.Bank()
		return b != nil && b.Total() == 5
	}, time.Second, 5*time.Millisecond)

	c.ResetMetrics()
	assert.Equal(t, uint64(0), c.Bank().Total())
	assert.True(t, c.IsConnected())
	assert.Equal(t, []observer.EventKind{observer.EventConnected}, rec.Kinds())

	c.Stop()
	wait(t, c)

	// inactive: the finished bank is left alone
	c.Bank().RecordMessage()
	c.ResetMetrics()
	assert.Equal(t, uint64(1), c.Bank().Total())
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

// go test -v --run TestStreamFromSimulator
func TestStreamFromSimulator(t *testing.T) {
	for _, format := range []feedsim.Format{feedsim.FormatJSON, feedsim.FormatBinary} {
		t.Run(string(format), func(t *testing.T) {
			sim := feedsim.New(feedsim.Config{Format: format, Count: 2500}, nil)
			srv := httptest.NewServer(sim)
			defer srv.Close()

			rec := testutils.NewRecordingObserver()
			c := controller.New(
				controller.WebSocketDialer(wsfeed.NewDialer(time.Second, nil)),
				rec,
				session.Options{ClientID: "bench-e2e", ReportInterval: time.Hour},
			)

			require.NoError(t, c.Start(wsURL(srv.URL)))
			wait(t, c)

			snap := c.Bank().SnapshotAndResetInterval()
			assert.Equal(t, uint64(2500), snap.TotalMessages)
			assert.Equal(t, uint64(3), snap.LatencyCount)
			require.NotNil(t, snap.LastTick)

			assert.Equal(t, session.StateDisconnected, c.State())
			assert.False(t, c.IsConnected())
			assert.Equal(t, 1, rec.Count(observer.EventDisconnected))
			assert.Equal(t, 0, rec.Count(observer.EventError))
			assert.Equal(t, observer.EventConnected, rec.Kinds()[0])

			require.Eventually(t, func() bool { return len(sim.Received()) >= 1 }, time.Second, 5*time.Millisecond)
		})
	}
}

// go test -v --run TestRefusedEndpoint
func TestRefusedEndpoint(t *testing.T) {
	srv := httptest.NewServer(feedsim.New(feedsim.Config{}, nil))
	addr := wsURL(srv.URL)
	srv.Close()

	rec := testutils.NewRecordingObserver()
	c := controller.New(controller.WebSocketDialer(wsfeed.NewDialer(time.Second, nil)), rec, session.Options{})

	require.NoError(t, c.Start(addr))
	wait(t, c)

	assert.Equal(t, []observer.EventKind{observer.EventError}, rec.Kinds())
	assert.False(t, c.IsConnected())
	assert.Equal(t, session.StateErrored, c.State())
	assert.Equal(t, uint64(0), c.Bank().Total())
}
