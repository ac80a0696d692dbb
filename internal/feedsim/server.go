// Package feedsim serves a synthetic tick feed over WebSocket for local benchmarking and tests.
package feedsim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tickbench/internal/protocol"
	"tickbench/pkg/tick"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Format selects the tick encoding the server streams.
type Format string

const (
	FormatJSON   Format = "json"
	FormatBinary Format = "binary"
)

// ParseFormat accepts "json" or "binary".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatBinary:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown feed format %q", s)
	}
}

type Config struct {
	Format Format // default FormatJSON
	Count  int    // ticks per connection, 0 streams until the client leaves
	Rate   int    // ticks per second, 0 sends as fast as possible
}

// basePrices seeds the synthetic price walk per symbol.
var basePrices = map[string]float64{
	"BTC":  97000,
	"ETH":  3000.5,
	"SOL":  180,
	"DOGE": 0.32,
	"XRP":  2.4,
}

// Server is an http.Handler that streams synthetic ticks to every WebSocket client.
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu       sync.Mutex
	received []protocol.Status
	sessions int
}

// New creates a server; an empty Format streams JSON.
func New(cfg Config, logger *zap.Logger) *Server {
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.Named("feedsim"),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.mu.Lock()
	s.sessions++
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		s.readStatuses(conn)
	}()

	sent, err := s.stream(ctx, conn)
	if err != nil {
		s.logger.Debug("stream ended", zap.Int("sent", sent), zap.Error(err))
		return
	}
	s.logger.Info("stream complete", zap.Int("sent", sent))

	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(time.Second),
	)

	// give the client a moment to echo the close
	select {
	case <-readDone:
	case <-time.After(2 * time.Second):
	}
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn) (int, error) {
	var (
		start    = time.Now()
		interval time.Duration
		buf      = make([]byte, 0, tick.BinaryFrameSize)
	)
	if s.cfg.Rate > 0 {
		interval = time.Second / time.Duration(s.cfg.Rate)
	}

	for i := 0; s.cfg.Count == 0 || i < s.cfg.Count; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		if interval > 0 {
			if wait := time.Until(start.Add(time.Duration(i) * interval)); wait > 0 {
				time.Sleep(wait)
			}
		}

		t := Synthesize(i, time.Now())
		var err error
		switch s.cfg.Format {
		case FormatBinary:
			buf = tick.AppendBinary(buf[:0], t)
			err = conn.WriteMessage(websocket.BinaryMessage, buf)
		default:
			var payload []byte
			payload, err = json.Marshal(t)
			if err == nil {
				err = conn.WriteMessage(websocket.TextMessage, payload)
			}
		}
		if err != nil {
			return i, err
		}
	}
	return s.cfg.Count, nil
}

func (s *Server) readStatuses(conn *websocket.Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		status, err := protocol.Decode(data)
		if err != nil {
			s.logger.Debug("ignoring client message", zap.Error(err))
			continue
		}
		if st, ok := status.(protocol.Stats); ok {
			s.logger.Debug("client stats",
				zap.String("client_id", st.ClientID),
				zap.Uint64("messages_per_sec", st.MessagesPerSec),
				zap.Uint64("total_messages", st.TotalMessages),
			)
		}

		s.mu.Lock()
		s.received = append(s.received, status)
		s.mu.Unlock()
	}
}

// Received returns every status message clients have sent so far.
func (s *Server) Received() []protocol.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Status, len(s.received))
	copy(out, s.received)
	return out
}

// Sessions returns how many connections have been accepted.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// Synthesize builds the i-th tick of the synthetic walk stamped at now.
func Synthesize(i int, now time.Time) tick.Tick {
	symbol := tick.Symbols[i%len(tick.Symbols)]
	base := basePrices[symbol]
	// small deterministic oscillation around the base price
	drift := float64(i%200-100) / 10000
	return tick.Tick{
		Symbol:    symbol,
		Price:     base * (1 + drift),
		Timestamp: uint64(now.UnixMilli()),
	}
}
