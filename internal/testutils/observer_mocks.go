package testutils

import (
	"sync"

	"tickbench/internal/observer"
)

// RecordingObserver stores every event it receives.
type RecordingObserver struct {
	mu     sync.Mutex
	events []observer.Event
}

// NewRecordingObserver returns an empty recorder.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (r *RecordingObserver) Connected() { r.add(observer.Event{Kind: observer.EventConnected}) }
func (r *RecordingObserver) Error(msg string) {
	r.add(observer.Event{Kind: observer.EventError, Message: msg})
}
func (r *RecordingObserver) Disconnected() { r.add(observer.Event{Kind: observer.EventDisconnected}) }

func (r *RecordingObserver) Metrics(m observer.Metrics) {
	r.add(observer.Event{Kind: observer.EventMetrics, Metrics: &m})
}

func (r *RecordingObserver) add(e observer.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *RecordingObserver) Events() []observer.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]observer.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of the given kind were recorded.
func (r *RecordingObserver) Count(kind observer.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Kinds returns the recorded event kinds in order, skipping metrics.
func (r *RecordingObserver) Kinds() []observer.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []observer.EventKind
	for _, e := range r.events {
		if e.Kind != observer.EventMetrics {
			out = append(out, e.Kind)
		}
	}
	return out
}

// LastMetrics returns the most recent metrics bundle, if any.
func (r *RecordingObserver) LastMetrics() (observer.Metrics, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Metrics != nil {
			return *r.events[i].Metrics, true
		}
	}
	return observer.Metrics{}, false
}
