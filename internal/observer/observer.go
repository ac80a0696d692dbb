// Package observer defines the outward sink for session lifecycle and metrics events,
// plus the sinks the client ships with (log, Prometheus, Redis, Postgres status, channel).
package observer

import (
	"time"

	"tickbench/pkg/tick"

	"go.uber.org/multierr"
)

// Metrics is the bundle published once per reporting interval.
type Metrics struct {
	ClientID       string     `json:"clientId"`
	MessagesPerSec uint64     `json:"messagesPerSec"`
	TotalMessages  uint64     `json:"totalMessages"`
	AvgLatencyMs   float64    `json:"avgLatencyMs"`
	LastTick       *tick.Tick `json:"lastTick,omitempty"`
	At             time.Time  `json:"at"`
}

// Observer receives session events. Implementations must not block for long;
// Metrics is called from the reporter goroutine once per interval.
type Observer interface {
	Connected()
	Error(msg string)
	Metrics(m Metrics)
	Disconnected()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Connected()      {}
func (Nop) Error(string)    {}
func (Nop) Metrics(Metrics) {}
func (Nop) Disconnected()   {}

// Multi fans events out to every observer in order.
type Multi []Observer

func (m Multi) Connected() {
	for _, o := range m {
		o.Connected()
	}
}

func (m Multi) Error(msg string) {
	for _, o := range m {
		o.Error(msg)
	}
}

func (m Multi) Metrics(metrics Metrics) {
	for _, o := range m {
		o.Metrics(metrics)
	}
}

func (m Multi) Disconnected() {
	for _, o := range m {
		o.Disconnected()
	}
}

// Close closes every observer that holds resources and combines their errors.
func (m Multi) Close() error {
	var err error
	for _, o := range m {
		if c, ok := o.(interface{ Close() error }); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}
