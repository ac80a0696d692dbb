// Package wsfeed is the WebSocket transport for the tick feed.
package wsfeed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultWriteTimeout bounds a single outbound write.
const DefaultWriteTimeout = 5 * time.Second

// Dialer opens feed connections. The handshake has no timeout of its own; cancel ctx to abort it.
type Dialer struct {
	WriteTimeout time.Duration
	Header       http.Header
	Logger       *zap.Logger
}

// NewDialer returns a dialer whose connections bound each write by writeTimeout
// (DefaultWriteTimeout when unset).
func NewDialer(writeTimeout time.Duration, logger *zap.Logger) *Dialer {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dialer{
		WriteTimeout: writeTimeout,
		Logger:       logger.Named("wsfeed"),
	}
}

// Dial performs the WebSocket handshake against url.
func (d *Dialer) Dial(ctx context.Context, url string) (*Conn, error) {
	dialer := websocket.Dialer{
		Proxy:           http.ProxyFromEnvironment,
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 4 * 1024,
	}

	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake with %s: %w (status %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}

	d.logger().Debug("websocket connected", zap.String("url", url))
	return newConn(conn, d.WriteTimeout), nil
}

func (d *Dialer) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
