// Package tcp provides the raw TCP transport: length-prefixed frames
// over one socket per client.
package tcp

import (
	"context"
	"net"

	"github.com/roomcast/roomcast/pkg/wire"
)

// Conn adapts a net.Conn to chat.Conn. Inbound bytes pass through a
// wire.Reader so partial frames are buffered across reads; outbound
// payloads are framed on the way out.
type Conn struct {
	conn   net.Conn
	frames *wire.Reader
}

// NewConn wraps conn. maxFrameSize caps the payload length an inbound
// frame may announce.
func NewConn(conn net.Conn, maxFrameSize int) *Conn {
	return &Conn{
		conn:   conn,
		frames: wire.NewReader(conn, maxFrameSize),
	}
}

// Read implements chat.Conn. It blocks until one complete frame is
// available and returns its payload.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	return c.frames.Next()
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	return wire.WriteFrame(c.conn, data)
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
