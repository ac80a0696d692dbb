package observer

import "go.uber.org/zap"

// Log writes every event to a zap logger.
type Log struct {
	logger *zap.Logger
}

// NewLog logs through a child of logger, or discards when logger is nil.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger.Named("observer")}
}

func (l *Log) Connected() {
	l.logger.Info("feed connected")
}

func (l *Log) Error(msg string) {
	l.logger.Error("feed error", zap.String("reason", msg))
}

func (l *Log) Metrics(m Metrics) {
	fields := []zap.Field{
		zap.Uint64("messages_per_sec", m.MessagesPerSec),
		zap.Uint64("total_messages", m.TotalMessages),
		zap.Float64("avg_latency_ms", m.AvgLatencyMs),
	}
	if m.LastTick != nil {
		fields = append(fields,
			zap.String("last_symbol", m.LastTick.Symbol),
			zap.Float64("last_price", m.LastTick.Price),
		)
	}
	l.logger.Info("feed metrics", fields...)
}

func (l *Log) Disconnected() {
	l.logger.Info("feed disconnected")
}
