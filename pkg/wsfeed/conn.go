package wsfeed

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"tickbench/pkg/tick"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

var ErrClosed = errors.New("wsfeed: connection closed")

// Conn is a duplex feed connection over a gorilla WebSocket.
// ReadFrame must only be called from one goroutine; WriteText and Close are safe for concurrent use.
type Conn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	readBuf bytes.Buffer

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func newConn(conn *websocket.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{conn: conn, writeTimeout: writeTimeout}
}

// ReadFrame blocks for the next data message. The returned Data is only valid until the next
// call. A normal close by the peer is reported as io.EOF.
func (c *Conn) ReadFrame() (tick.Frame, error) {
	mt, r, err := c.conn.NextReader()
	if err != nil {
		return tick.Frame{}, c.readErr(err)
	}

	c.readBuf.Reset()
	if _, err := c.readBuf.ReadFrom(r); err != nil {
		return tick.Frame{}, c.readErr(err)
	}

	return tick.Frame{Kind: frameKind(mt), Data: c.readBuf.Bytes()}, nil
}

func (c *Conn) readErr(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	if c.closed.Load() {
		return ErrClosed
	}
	return err
}

// WriteText sends one text message. Writers are serialized; each write is bounded by the
// configured write timeout.
func (c *Conn) WriteText(data []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a best-effort close frame and closes the socket, releasing a blocked ReadFrame.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func frameKind(messageType int) tick.FrameKind {
	switch messageType {
	case websocket.TextMessage:
		return tick.FrameText
	case websocket.BinaryMessage:
		return tick.FrameBinary
	default:
		return tick.FrameOther
	}
}
