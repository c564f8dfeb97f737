// Package ws provides the WebSocket transport. WebSocket messages are
// already framed, so one binary message carries one encoded payload
// and no extra length prefix is layered on top.
package ws

import (
	"context"
	"net"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Conn adapts an upgraded WebSocket connection to chat.Conn.
type Conn struct {
	conn net.Conn
}

// NewConn wraps a connection already upgraded by ws.UpgradeHTTP.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn}
}

// Read implements chat.Conn. It returns the next binary message.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	return wsutil.ReadClientBinary(c.conn)
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	return wsutil.WriteServerBinary(c.conn, data)
}

// Close implements chat.Conn. A close frame goes out best-effort
// before the socket shuts.
func (c *Conn) Close() error {
	_ = wsutil.WriteServerMessage(c.conn, ws.OpClose, nil)
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
