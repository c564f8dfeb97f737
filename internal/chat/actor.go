package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/roomcast/roomcast/pkg/protocol"
)

const usernamePrompt = "Please enter a username"

// Actor owns one client connection. It drives the handshake, then runs
// two interleaved loops with no priority between them: the read loop
// decodes inbound payloads and hands them to the dispatcher, while a
// second goroutine drains the session's outbound queue onto the
// socket. Neither loop ever blocks the other connections' actors.
type Actor struct {
	id   ID
	conn Conn
	reg  *Registry
	disp *Dispatcher
	log  *slog.Logger
}

func NewActor(id ID, conn Conn, reg *Registry, disp *Dispatcher, log *slog.Logger) *Actor {
	return &Actor{
		id:   id,
		conn: conn,
		reg:  reg,
		disp: disp,
		log:  log.With("conn", string(id), "remote", conn.RemoteAddr()),
	}
}

// Run drives the connection through its whole lifecycle and returns
// once the connection is closed and the session, if one was ever
// registered, is deregistered and its departure announced.
func (a *Actor) Run(ctx context.Context) {
	defer a.conn.Close()

	sess, err := a.handshake(ctx)
	if err != nil {
		a.log.Info("handshake failed", "error", err)
		return
	}
	a.log.Info("user joined", "name", sess.Name)

	writerDone := make(chan struct{})
	go a.writeLoop(ctx, sess, writerDone)

	a.readLoop(ctx)

	// Remove closes the outbound queue, so the departure broadcast
	// below can no longer reach this session.
	if removed := a.reg.Remove(a.id); removed != nil && removed.Room != "" {
		a.reg.Broadcast(removed.Room, protocol.SystemNotice{
			Room: removed.Room,
			Text: removed.Name + " has left the chat.",
		}, "")
	}
	<-writerDone
	a.log.Info("user left", "name", sess.Name)
}

// handshake sends the username prompt and waits for exactly one
// SetUsername request. Anything else, including the stream ending,
// closes the connection without registering a session.
func (a *Actor) handshake(ctx context.Context) (*Session, error) {
	if err := a.send(ctx, protocol.SystemNotice{Text: usernamePrompt}); err != nil {
		return nil, fmt.Errorf("send prompt: %w", err)
	}

	data, err := a.conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("await username: %w", err)
	}
	req, err := protocol.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("first request: %w", err)
	}
	setName, ok := req.(protocol.SetUsername)
	if !ok {
		return nil, fmt.Errorf("first request: want SetUsername, got %T", req)
	}

	sess, err := a.reg.Register(a.id, strings.TrimSpace(setName.Name))
	if err != nil {
		return nil, err
	}
	// Queued before JoinRoom so the client sees JoinedServer first,
	// then JoinedRoom, then the room-wide notice, in that order.
	sess.deliver(protocol.JoinedServer{Username: sess.Name})
	if _, err := a.reg.JoinRoom(a.id, DefaultRoom); err != nil {
		a.reg.Remove(a.id)
		return nil, fmt.Errorf("enter %s: %w", DefaultRoom, err)
	}
	a.reg.Broadcast(DefaultRoom, protocol.SystemNotice{
		Room: DefaultRoom,
		Text: sess.Name + " has joined the chat.",
	}, "")
	return sess, nil
}

// readLoop pumps inbound payloads into the dispatcher until the stream
// ends or a transport error occurs. A payload that fails to decode
// only costs the offender a notice: the frame boundary is intact, so
// the connection stays usable.
func (a *Actor) readLoop(ctx context.Context) {
	for {
		data, err := a.conn.Read(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				a.log.Warn("connection read failed", "error", err)
			}
			return
		}
		req, err := protocol.Decode(data)
		if err != nil {
			a.log.Debug("undecodable request", "error", err)
			a.reg.Notify(a.id, "Could not understand that request.")
			continue
		}
		a.disp.Dispatch(a.id, req)
	}
}

// writeLoop drains the session's outbound queue onto the socket. It
// exits when the queue closes (session removed) or a write fails, in
// which case closing the connection unblocks the read loop too.
func (a *Actor) writeLoop(ctx context.Context, sess *Session, done chan<- struct{}) {
	defer close(done)
	for res := range sess.Outgoing() {
		if err := a.send(ctx, res); err != nil {
			a.log.Warn("connection write failed", "error", err)
			a.conn.Close()
			return
		}
	}
}

func (a *Actor) send(ctx context.Context, m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	return a.conn.Write(ctx, data)
}
