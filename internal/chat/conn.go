// Package chat provides the core of the server: sessions, the room
// registry, the per-connection actor and the request dispatcher.
package chat

import "context"

// Conn abstracts one client connection as a sequence of whole message
// payloads. Transports (TCP framing, WebSocket messages) implement it
// so the actor never touches sockets directly.
type Conn interface {
	// Read returns the next complete payload. io.EOF signals a clean
	// close; any other error is fatal to the connection.
	Read(ctx context.Context) ([]byte, error)

	// Write sends one payload.
	Write(ctx context.Context, data []byte) error

	// Close closes the connection. Safe to call more than once.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}
