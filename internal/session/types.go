package session

import (
	"context"
	"time"

	"tickbench/pkg/tick"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultSampleEvery is the stride at which messages are decoded for latency and last tick.
const DefaultSampleEvery = 1000

// DefaultClientID identifies the client upstream when none is configured.
const DefaultClientID = "tickbench-go"

// Transport is a duplex message connection to the feed.
// ReadFrame is called from one goroutine only; WriteText may be called concurrently and must
// serialize writers; Close must unblock a pending ReadFrame and be safe to call more than once.
// A clean end of stream is reported as io.EOF.
type Transport interface {
	ReadFrame() (tick.Frame, error)
	WriteText(data []byte) error
	Close() error
}

// Dialer opens a Transport to the feed endpoint.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Transport, error)
}

// DialFunc adapts a function to a Dialer.
type DialFunc func(ctx context.Context, addr string) (Transport, error)

func (f DialFunc) Dial(ctx context.Context, addr string) (Transport, error) {
	return f(ctx, addr)
}

// State is the lifecycle position of a session.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateDisconnected || s == StateErrored
}

type stateHolder struct {
	v atomic.Int32
}

func (h *stateHolder) load() State   { return State(h.v.Load()) }
func (h *stateHolder) store(s State) { h.v.Store(int32(s)) }

// Options holds the optional session settings.
type Options struct {
	ClientID       string        // default DefaultClientID
	SampleEvery    uint64        // default DefaultSampleEvery
	ReportInterval time.Duration // default reporter.DefaultInterval
	Clock          clock.Clock   // default wall clock
	Logger         *zap.Logger   // default nop
}

func (o *Options) init() {
	if o.ClientID == "" {
		o.ClientID = DefaultClientID
	}
	if o.SampleEvery == 0 {
		o.SampleEvery = DefaultSampleEvery
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}
