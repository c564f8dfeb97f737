package chat

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roomcast/roomcast/pkg/protocol"
)

// Dispatcher interprets decoded requests against the registry. It
// holds no per-connection state; every call is (request, sender) in,
// registry mutations and queued responses out. Application-level
// failures never reach other connections: the sender alone gets a
// SystemNotice.
type Dispatcher struct {
	reg *Registry
	log *slog.Logger
}

func NewDispatcher(reg *Registry, log *slog.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, log: log}
}

// Dispatch handles one request on behalf of the session identified by
// id.
func (d *Dispatcher) Dispatch(id ID, req protocol.Message) {
	switch req := req.(type) {
	case protocol.PublicMessage:
		d.chatLine(id, req.Text)
	case protocol.PrivateMessage:
		d.privateMessage(id, req.To, req.Text)
	case protocol.SetUsername:
		// The handshake consumed the one allowed SetUsername.
		d.reg.Notify(id, "Your username is already set.")
	default:
		d.reg.Notify(id, fmt.Sprintf("Unsupported request %T.", req))
	}
}

// chatLine routes one plain chat line: a leading "/" makes it a
// command, anything else is a public message to the sender's current
// room.
func (d *Dispatcher) chatLine(id ID, line string) {
	if cmd, ok := strings.CutPrefix(line, "/"); ok {
		d.command(id, cmd)
		return
	}
	if err := d.reg.Publish(id, line); err != nil {
		d.log.Warn("publish from unregistered session", "conn", string(id), "error", err)
	}
}

// command applies the slash-command grammar: token 0 is the command
// name, the remaining tokens are positional arguments. Unknown
// commands and missing arguments are user mistakes, reported only to
// the sender.
func (d *Dispatcher) command(id ID, text string) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		d.reg.Notify(id, "Expected a command.")
		return
	}
	cmd, args := tokens[0], tokens[1:]

	switch cmd {
	case "who":
		d.reg.Notify(id, "Connected users:\n"+strings.Join(d.reg.ListUsers(), "\n"))
	case "rooms", "rs":
		d.reg.Notify(id, "Joinable rooms:\n"+strings.Join(d.reg.ListRooms(), "\n"))
	case "pm":
		if len(args) < 2 {
			d.reg.Notify(id, "Usage: /pm <user> <message>")
			return
		}
		d.privateMessage(id, args[0], strings.Join(args[1:], " "))
	case "mv":
		if len(args) != 1 {
			d.reg.Notify(id, "Usage: /mv <room>")
			return
		}
		d.moveRoom(id, args[0])
	default:
		d.reg.Notify(id, "Unknown command: /"+cmd)
	}
}

func (d *Dispatcher) privateMessage(id ID, to, text string) {
	err := d.reg.PrivateMessage(id, to, text)
	if errors.Is(err, ErrRecipientNotFound) {
		d.reg.Notify(id, fmt.Sprintf("Couldn't send PM to %s", to))
	} else if err != nil {
		d.log.Warn("private message failed", "conn", string(id), "error", err)
	}
}

func (d *Dispatcher) moveRoom(id ID, room string) {
	prev, err := d.reg.JoinRoom(id, room)
	switch {
	case errors.Is(err, ErrUnknownRoom):
		d.reg.Notify(id, fmt.Sprintf("Room '%s' does not exist.", room))
		return
	case errors.Is(err, ErrAlreadyInRoom):
		d.reg.Notify(id, fmt.Sprintf("You are already in '%s'.", room))
		return
	case err != nil:
		d.log.Warn("room move failed", "conn", string(id), "error", err)
		return
	}

	name, _, ok := d.reg.Lookup(id)
	if !ok {
		return
	}
	d.reg.Broadcast(room, protocol.UserJoinedNotice{Name: name}, id)
	if prev != "" {
		d.reg.Broadcast(prev, protocol.SystemNotice{
			Room: prev,
			Text: fmt.Sprintf("%s has moved to '%s'.", name, room),
		}, "")
	}
	d.log.Info("user moved room", "name", name, "from", prev, "to", room)
}
