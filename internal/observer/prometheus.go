package observer

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "tickbench"

// Prometheus mirrors session events into gauges and counters.
type Prometheus struct {
	connected      prometheus.Gauge
	messagesPerSec prometheus.Gauge
	totalMessages  prometheus.Gauge
	avgLatencyMs   prometheus.Gauge
	lastPrice      *prometheus.GaugeVec
	sessions       *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connected",
			Help:      "1 while a feed session is connected.",
		}),
		messagesPerSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "messages_per_second",
			Help:      "Messages received during the last reporting interval, per second.",
		}),
		totalMessages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "messages_total",
			Help:      "Messages received in the current session.",
		}),
		avgLatencyMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "avg_latency_ms",
			Help:      "Mean sampled feed latency during the last interval.",
		}),
		lastPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_price",
			Help:      "Price of the most recent sampled tick.",
		}, []string{"symbol"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_total",
			Help:      "Session outcomes by kind.",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{
		p.connected, p.messagesPerSec, p.totalMessages, p.avgLatencyMs, p.lastPrice, p.sessions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return p, nil
}

func (p *Prometheus) Connected() {
	p.connected.Set(1)
	p.sessions.WithLabelValues("connected").Inc()
}

func (p *Prometheus) Error(string) {
	p.connected.Set(0)
	p.sessions.WithLabelValues("error").Inc()
}

func (p *Prometheus) Metrics(m Metrics) {
	p.messagesPerSec.Set(float64(m.MessagesPerSec))
	p.totalMessages.Set(float64(m.TotalMessages))
	p.avgLatencyMs.Set(m.AvgLatencyMs)
	if m.LastTick != nil {
		p.lastPrice.WithLabelValues(m.LastTick.Symbol).Set(m.LastTick.Price)
	}
}

func (p *Prometheus) Disconnected() {
	p.connected.Set(0)
	p.sessions.WithLabelValues("disconnected").Inc()
}
