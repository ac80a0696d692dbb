// Package controller is the boundary the shell drives: it owns at most one active feed
// session and exposes start, stop, reset and status queries over it.
package controller

import (
	"context"
	"errors"
	"sync"

	"tickbench/internal/counter"
	"tickbench/internal/observer"
	"tickbench/internal/session"
	"tickbench/pkg/wsfeed"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var ErrAlreadyActive = errors.New("controller: session already active")

// Controller serializes session ownership. The zero value is not usable; call New.
type Controller struct {
	dialer   session.Dialer
	observer observer.Observer
	opts     session.Options
	logger   *zap.Logger

	active atomic.Bool // claimed by Start, released when the session goroutine returns

	mu      sync.Mutex
	current *session.Session
	done    chan struct{} // closed after active is released
}

// New creates an idle controller. Every session it starts dials through dialer and reports to obs.
func New(dialer session.Dialer, obs observer.Observer, opts session.Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		dialer:   dialer,
		observer: obs,
		opts:     opts,
		logger:   logger.Named("controller"),
	}
}

// WebSocketDialer adapts a wsfeed dialer to the session's transport interface.
func WebSocketDialer(d *wsfeed.Dialer) session.Dialer {
	return session.DialFunc(func(ctx context.Context, addr string) (session.Transport, error) {
		conn, err := d.Dial(ctx, addr)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

// Start begins a new session against addr in the background. It fails before any I/O when
// a session is still active.
func (c *Controller) Start(addr string) error {
	if !c.active.CompareAndSwap(false, true) {
		return ErrAlreadyActive
	}

	s := session.New(addr, c.dialer, c.observer, c.opts)
	done := make(chan struct{})

	c.mu.Lock()
	c.current = s
	c.done = done
	c.mu.Unlock()

	c.logger.Info("starting session", zap.String("addr", addr))
	go func() {
		defer close(done)
		defer c.active.Store(false)
		final := s.Run(context.Background())
		c.logger.Info("session finished", zap.Stringer("state", final))
	}()
	return nil
}

// Stop ends the active session, if any. It does not wait; use Wait for that.
func (c *Controller) Stop() {
	if s := c.session(); s != nil {
		s.Stop()
	}
}

// Wait blocks until the most recent session has finished or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ResetMetrics zeroes the active session's counters. Lifecycle state is untouched.
func (c *Controller) ResetMetrics() {
	if !c.active.Load() {
		return
	}
	if s := c.session(); s != nil {
		s.ResetMetrics()
	}
}

// IsConnected reports whether the active session is running.
func (c *Controller) IsConnected() bool {
	s := c.session()
	return s != nil && s.IsRunning()
}

// State returns the lifecycle state of the most recent session.
func (c *Controller) State() session.State {
	if s := c.session(); s != nil {
		return s.State()
	}
	return session.StateIdle
}

// Bank returns the counters of the most recent session, or nil before the first Start.
func (c *Controller) Bank() *counter.Bank {
	if s := c.session(); s != nil {
		return s.Bank()
	}
	return nil
}

func (c *Controller) session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
