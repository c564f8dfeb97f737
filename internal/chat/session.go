package chat

import "github.com/roomcast/roomcast/pkg/protocol"

// ID uniquely identifies one connection for the lifetime of the
// process. Transports mint one per accepted connection.
type ID string

// Session is the server-side record of one connected client. The
// outbound queue is written to by registry operations running on any
// actor's behalf and drained exclusively by the owning actor's write
// loop; it is closed when the session is removed from the registry.
type Session struct {
	ID   ID
	Name string
	Room string

	outgoing chan protocol.Message
}

func newSession(id ID, name string, queueSize int) *Session {
	return &Session{
		ID:       id,
		Name:     name,
		outgoing: make(chan protocol.Message, queueSize),
	}
}

// Outgoing exposes the delivery queue to the owning actor. The channel
// closes once the session leaves the registry.
func (s *Session) Outgoing() <-chan protocol.Message {
	return s.outgoing
}

// deliver enqueues res without blocking and reports whether the queue
// had room. Only called while holding the registry lock, which is what
// makes enqueue order match broadcast order for every recipient.
func (s *Session) deliver(res protocol.Message) bool {
	select {
	case s.outgoing <- res:
		return true
	default:
		return false
	}
}
