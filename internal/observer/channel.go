package observer

// EventKind tags an Event delivered through a Channel observer.
type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventError        EventKind = "error"
	EventMetrics      EventKind = "metrics"
	EventDisconnected EventKind = "disconnected"
)

// Event is a serializable form of one observer call.
type Event struct {
	Kind    EventKind `json:"kind"`
	Message string    `json:"message,omitempty"`
	Metrics *Metrics  `json:"metrics,omitempty"`
}

// Channel forwards events to a buffered channel for shells that poll.
// Events are dropped when the buffer is full so the session never blocks on a slow consumer.
type Channel struct {
	ch chan Event
}

// NewChannel buffers up to size events.
func NewChannel(size int) *Channel {
	return &Channel{ch: make(chan Event, size)}
}

// Events returns the receive side of the channel.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

func (c *Channel) Connected()       { c.send(Event{Kind: EventConnected}) }
func (c *Channel) Error(msg string) { c.send(Event{Kind: EventError, Message: msg}) }
func (c *Channel) Disconnected()    { c.send(Event{Kind: EventDisconnected}) }

func (c *Channel) Metrics(m Metrics) {
	c.send(Event{Kind: EventMetrics, Metrics: &m})
}

func (c *Channel) send(e Event) {
	select {
	case c.ch <- e:
	default:
	}
}
