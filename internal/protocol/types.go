package protocol

import "encoding/json"

// Status is a message sent upstream to the feed. The set of implementations is closed.
type Status interface {
	statusType() string
}

// Identify announces the client right after the handshake.
type Identify struct {
	ClientID string
}

// Stats carries one reporting interval's metrics.
type Stats struct {
	ClientID       string
	MessagesPerSec uint64
	TotalMessages  uint64
	AvgLatencyMs   float64
	P99LatencyMs   float64
}

const (
	TypeIdentify = "identify"
	TypeStats    = "stats"
)

func (Identify) statusType() string { return TypeIdentify }
func (Stats) statusType() string    { return TypeStats }

// identifyWire and statsWire pin the upstream field names independently of the Go names.
type identifyWire struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

type statsWire struct {
	Type           string  `json:"type"`
	ClientID       string  `json:"clientId"`
	MessagesPerSec uint64  `json:"messagesPerSec"`
	TotalMessages  uint64  `json:"totalMessages"`
	AvgLatencyMs   float64 `json:"avgLatencyMs"`
	P99LatencyMs   float64 `json:"p99LatencyMs"`
}

func (m Identify) MarshalJSON() ([]byte, error) {
	return json.Marshal(identifyWire{Type: TypeIdentify, ClientID: m.ClientID})
}

func (m Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(statsWire{
		Type:           TypeStats,
		ClientID:       m.ClientID,
		MessagesPerSec: m.MessagesPerSec,
		TotalMessages:  m.TotalMessages,
		AvgLatencyMs:   m.AvgLatencyMs,
		P99LatencyMs:   m.P99LatencyMs,
	})
}
