package testutils

import (
	"context"
	"errors"
	"io"
	"sync"

	"tickbench/pkg/tick"
)

var ErrMockClosed = errors.New("mock transport closed")

// MockTransport is an in-memory duplex connection. Frames pushed with Push are returned by
// ReadFrame in order; End makes ReadFrame return io.EOF once the queue drains.
type MockTransport struct {
	frames chan tick.Frame
	done   chan struct{}

	closeOnce sync.Once

	mu       sync.Mutex
	written  [][]byte
	writeErr error
	readErr  error
}

// NewMockTransport queues up to buffer inbound frames before Push blocks.
func NewMockTransport(buffer int) *MockTransport {
	return &MockTransport{
		frames: make(chan tick.Frame, buffer),
		done:   make(chan struct{}),
	}
}

// Push queues one inbound frame.
func (m *MockTransport) Push(f tick.Frame) {
	m.frames <- f
}

// End closes the inbound stream. ReadFrame returns err (io.EOF when nil) after the queued frames.
func (m *MockTransport) End(err error) {
	m.mu.Lock()
	if err == nil {
		err = io.EOF
	}
	m.readErr = err
	m.mu.Unlock()
	close(m.frames)
}

// FailWrites makes every following WriteText return err.
func (m *MockTransport) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *MockTransport) ReadFrame() (tick.Frame, error) {
	select {
	case f, ok := <-m.frames:
		if !ok {
			m.mu.Lock()
			defer m.mu.Unlock()
			return tick.Frame{}, m.readErr
		}
		return f, nil
	case <-m.done:
		return tick.Frame{}, ErrMockClosed
	}
}

func (m *MockTransport) WriteText(data []byte) error {
	select {
	case <-m.done:
		return ErrMockClosed
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.written = append(m.written, cp)
	return nil
}

func (m *MockTransport) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

// Closed reports whether Close has been called.
func (m *MockTransport) Closed() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Written returns a copy of every text frame written so far.
func (m *MockTransport) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.written))
	copy(out, m.written)
	return out
}

// MockDialer hands out a fixed transport or error.
type MockDialer struct {
	Transport *MockTransport
	Err       error

	mu    sync.Mutex
	calls int
}

func (d *MockDialer) DialTransport(ctx context.Context, addr string) (*MockTransport, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	if d.Err != nil {
		return nil, d.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Transport, nil
}

// Calls returns how many dial attempts were made.
func (d *MockDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
