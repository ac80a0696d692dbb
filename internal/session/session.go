// Package session runs one connection to the tick feed: handshake, read loop with sampled
// decoding, the metrics reporter, and teardown.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"tickbench/internal/counter"
	"tickbench/internal/observer"
	"tickbench/internal/protocol"
	"tickbench/internal/reporter"
	"tickbench/pkg/tick"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Session is a single connect-stream-terminate attempt against one endpoint.
// It is not reusable: once Run returns, create a new Session to connect again.
type Session struct {
	addr     string
	dialer   Dialer
	observer observer.Observer
	opts     Options
	logger   *zap.Logger

	bank    *counter.Bank
	running *atomic.Bool
	state   stateHolder

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	transport Transport

	done chan struct{}
}

// New creates a session for addr. Nothing is dialed until Run.
func New(addr string, dialer Dialer, obs observer.Observer, opts Options) *Session {
	opts.init()
	if obs == nil {
		obs = observer.Nop{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		addr:     addr,
		dialer:   dialer,
		observer: obs,
		opts:     opts,
		logger:   opts.Logger.Named("session").With(zap.String("addr", addr)),
		bank:     counter.NewBank(opts.Clock),
		running:  atomic.NewBool(false),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Run connects, streams until the feed ends or Stop is called, and returns the terminal state.
// Cancelling parent has the same effect as Stop.
func (s *Session) Run(parent context.Context) State {
	defer close(s.done)
	defer s.cancel()

	stopOnParent := context.AfterFunc(parent, s.Stop)
	defer stopOnParent()

	s.state.store(StateConnecting)
	s.running.Store(true)
	s.bank.ResetAll()

	s.logger.Info("connecting to feed")
	tr, err := s.dial()
	if err != nil {
		s.running.Store(false)
		s.state.store(StateErrored)
		s.logger.Error("feed connection failed", zap.Error(err))
		s.observer.Error(fmt.Sprintf("connection failed: %v", err))
		return StateErrored
	}

	// a Stop that raced the handshake saw no transport to close
	s.mu.Lock()
	stopped := !s.running.Load() || s.ctx.Err() != nil
	if !stopped {
		s.transport = tr
	}
	s.mu.Unlock()
	if stopped {
		_ = tr.Close()
		s.running.Store(false)
		s.state.store(StateErrored)
		s.logger.Info("feed stopped during connect")
		s.observer.Error(fmt.Sprintf("connection failed: %v", context.Canceled))
		return StateErrored
	}

	s.state.store(StateConnected)
	s.logger.Info("feed connected")
	s.observer.Connected()

	s.send(tr, protocol.Identify{ClientID: s.opts.ClientID})

	rep := reporter.New(s.bank, s.running, s.observer, tr, reporter.Config{
		ClientID: s.opts.ClientID,
		Interval: s.opts.ReportInterval,
		Clock:    s.opts.Clock,
		Logger:   s.opts.Logger,
	})
	repCtx, repCancel := context.WithCancel(s.ctx)
	repDone := make(chan struct{})
	go func() {
		defer close(repDone)
		rep.Run(repCtx)
	}()

	final := s.readLoop(tr)

	// teardown: closing the transport releases a reporter blocked in a send
	s.running.Store(false)
	repCancel()
	if err := tr.Close(); err != nil {
		s.logger.Debug("transport close", zap.Error(err))
	}
	<-repDone

	s.state.store(final)
	s.logger.Info("feed disconnected",
		zap.Stringer("state", final),
		zap.Uint64("total_messages", s.bank.Total()),
	)
	s.observer.Disconnected()
	return final
}

// dial makes the single connection attempt. There is no retry and no timeout beyond Stop.
func (s *Session) dial() (Transport, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	return s.dialer.Dial(s.ctx, s.addr)
}

func (s *Session) readLoop(tr Transport) State {
	for s.running.Load() {
		frame, err := tr.ReadFrame()
		if err != nil {
			return s.classify(err)
		}
		if !s.running.Load() {
			break
		}
		s.handle(frame)
	}
	return StateDisconnected
}

// handle counts every application frame and decodes only those on the sampling stride.
func (s *Session) handle(frame tick.Frame) {
	if !frame.Kind.IsApplication() {
		return
	}
	pos := s.bank.RecordMessage()
	if pos%s.opts.SampleEvery != 0 {
		return
	}
	if t, ok := tick.Decode(frame.Kind, frame.Data); ok {
		s.bank.RecordDecoded(t)
	}
}

func (s *Session) classify(err error) State {
	switch {
	case s.ctx.Err() != nil:
		s.logger.Info("feed stopped")
		return StateDisconnected
	case errors.Is(err, io.EOF):
		s.logger.Info("feed stream ended")
		return StateDisconnected
	default:
		s.logger.Warn("feed read failed", zap.Error(err))
		return StateErrored
	}
}

func (s *Session) send(tr Transport, status protocol.Status) {
	payload, err := protocol.Encode(status)
	if err != nil {
		s.logger.Warn("failed to encode status", zap.Error(err))
		return
	}
	if err := tr.WriteText(payload); err != nil {
		s.logger.Warn("failed to send status", zap.Error(err))
	}
}

// Stop asks the session to end. It is safe to call at any time and more than once; a read
// parked on a silent peer is released by closing the transport.
func (s *Session) Stop() {
	s.running.Store(false)
	s.cancel()

	s.mu.Lock()
	tr := s.transport
	s.mu.Unlock()
	if tr != nil {
		_ = tr.Close()
	}
}

// ResetMetrics zeroes the counters without touching the lifecycle.
func (s *Session) ResetMetrics() {
	s.bank.ResetAll()
}

// IsRunning reports whether the session should keep streaming.
func (s *Session) IsRunning() bool {
	return s.running.Load()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state.load()
}

// Bank returns the session counters.
func (s *Session) Bank() *counter.Bank {
	return s.bank
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
