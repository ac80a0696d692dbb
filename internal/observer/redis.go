package observer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisChannel is the pub/sub channel events are published on.
const DefaultRedisChannel = "tickbench.metrics"

// Publisher is the subset of the go-redis client the Redis observer needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis publishes every event as JSON on a pub/sub channel.
type Redis struct {
	client  Publisher
	channel string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedis publishes on channel, DefaultRedisChannel when empty.
func NewRedis(client Publisher, channel string, logger *zap.Logger) *Redis {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		client:  client,
		channel: channel,
		timeout: 500 * time.Millisecond,
		logger:  logger.Named("redis"),
	}
}

func (r *Redis) Connected()       { r.publish(Event{Kind: EventConnected}) }
func (r *Redis) Error(msg string) { r.publish(Event{Kind: EventError, Message: msg}) }
func (r *Redis) Disconnected()    { r.publish(Event{Kind: EventDisconnected}) }

func (r *Redis) Metrics(m Metrics) {
	r.publish(Event{Kind: EventMetrics, Metrics: &m})
}

// Close closes the underlying client when it owns a connection pool.
func (r *Redis) Close() error {
	if c, ok := r.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (r *Redis) publish(e Event) {
	payload, err := json.Marshal(e)
	if err != nil && e.Metrics != nil && e.Metrics.LastTick != nil {
		// a non-finite price cannot be encoded; keep the rest of the bundle
		m := *e.Metrics
		m.LastTick = nil
		e.Metrics = &m
		payload, err = json.Marshal(e)
	}
	if err != nil {
		r.logger.Warn("failed to encode event", zap.String("kind", string(e.Kind)), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.logger.Warn("failed to publish event", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
}
