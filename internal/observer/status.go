package observer

import (
	"context"
	"time"

	"tickbench/pkg/storage/postgres"

	"go.uber.org/zap"
)

// StatusWriter persists the latest status row of a client.
type StatusWriter interface {
	UpsertStatus(ctx context.Context, record *postgres.StatusRecord) error
	SetConnected(ctx context.Context, clientID string, connected bool) error
}

// Status keeps one row per client current with the latest metrics bundle.
type Status struct {
	writer   StatusWriter
	clientID string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewStatus writes through writer, bounding each write by timeout (2s when unset).
func NewStatus(writer StatusWriter, clientID string, timeout time.Duration, logger *zap.Logger) *Status {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Status{
		writer:   writer,
		clientID: clientID,
		timeout:  timeout,
		logger:   logger.Named("status"),
	}
}

func (s *Status) Connected() { s.setConnected(true) }

// Error is not persisted; a failed dial leaves the previous row untouched.
func (s *Status) Error(string) {}

func (s *Status) Disconnected() { s.setConnected(false) }

// Close closes the writer when it owns a connection pool.
func (s *Status) Close() error {
	if c, ok := s.writer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (s *Status) Metrics(m Metrics) {
	if m.ClientID == "" {
		m.ClientID = s.clientID
	}
	rec := ToStatusRecord(m)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.writer.UpsertStatus(ctx, rec); err != nil {
		s.logger.Warn("failed to upsert status", zap.String("client_id", rec.ClientID), zap.Error(err))
	}
}

func (s *Status) setConnected(connected bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.writer.SetConnected(ctx, s.clientID, connected); err != nil {
		s.logger.Warn("failed to update connection flag",
			zap.String("client_id", s.clientID),
			zap.Bool("connected", connected),
			zap.Error(err),
		)
	}
}

// maxTickTimestampMs is 9999-12-31T23:59:59.999Z, inside the Postgres timestamp range.
// Later tick timestamps are stored without LastTickAt.
const maxTickTimestampMs = 253402300799999

// ToStatusRecord converts a metrics bundle into its storage row. A metrics bundle is only
// produced while the session runs, so the row is marked connected.
func ToStatusRecord(m Metrics) *postgres.StatusRecord {
	rec := &postgres.StatusRecord{
		ClientID:       m.ClientID,
		Connected:      true,
		MessagesPerSec: int64(m.MessagesPerSec),
		TotalMessages:  int64(m.TotalMessages),
		AvgLatencyMs:   m.AvgLatencyMs,
		ReportedAt:     m.At.UTC(),
	}
	if t := m.LastTick; t != nil {
		rec.LastSymbol = t.Symbol
		rec.LastPrice = t.Price
		if t.Timestamp <= maxTickTimestampMs {
			at := time.UnixMilli(int64(t.Timestamp)).UTC()
			rec.LastTickAt = &at
		}
	}
	return rec
}
