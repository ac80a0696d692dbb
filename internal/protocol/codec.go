package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownType = errors.New("protocol: unknown status type")

// Encode serializes a status message into a text frame payload.
func Encode(s Status) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("encode status: %w", ErrUnknownType)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.statusType(), err)
	}
	return b, nil
}

// Decode parses an upstream status payload. The feed simulator uses it to
// inspect what clients report.
func Decode(data []byte) (Status, error) {
	var meta struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode status type: %w", err)
	}

	switch meta.Type {
	case TypeIdentify:
		var w identifyWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode identify: %w", err)
		}
		return Identify{ClientID: w.ClientID}, nil
	case TypeStats:
		var w statsWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}
		return Stats{
			ClientID:       w.ClientID,
			MessagesPerSec: w.MessagesPerSec,
			TotalMessages:  w.TotalMessages,
			AvgLatencyMs:   w.AvgLatencyMs,
			P99LatencyMs:   w.P99LatencyMs,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, meta.Type)
	}
}
