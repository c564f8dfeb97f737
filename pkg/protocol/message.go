// Package protocol defines the requests and responses exchanged between
// chat clients and the server, and their binary encoding.
//
// Every message travels as a single frame whose payload is a one-byte
// variant tag followed by the gob encoding of the variant struct. The
// tag discriminates the variant, so a payload is self-describing. The
// framing itself (length prefix, maximum size) lives in pkg/wire and
// has no knowledge of message content.
package protocol

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Message is implemented by every request and response variant.
type Message interface {
	tag() byte
}

// Requests (client to server).
type (
	// SetUsername is the only request accepted during the handshake.
	SetUsername struct {
		Name string
	}

	// PublicMessage carries one chat line for the sender's current
	// room. Lines starting with "/" are interpreted as commands by the
	// server. Room and From are advisory; the server trusts only its
	// own session record.
	PublicMessage struct {
		Room string
		From string
		Text string
	}

	// PrivateMessage is a direct message addressed by display name.
	PrivateMessage struct {
		To   string
		Text string
	}
)

// Responses (server to client).
type (
	// ChatPublic is a room-wide chat line.
	ChatPublic struct {
		Room string
		From string
		Text string
	}

	// ChatPrivate is a direct message delivered only to its recipient.
	ChatPrivate struct {
		From string
		Text string
	}

	// JoinedServer confirms registration and echoes the display name
	// the server actually assigned.
	JoinedServer struct {
		Username string
	}

	// JoinedRoom confirms the session entered a room.
	JoinedRoom struct {
		Room string
	}

	// UserJoinedNotice tells existing room members that a user moved in.
	UserJoinedNotice struct {
		Name string
	}

	// SystemNotice is free-form server text: prompts, join and leave
	// notices, and error feedback.
	SystemNotice struct {
		Room string
		Text string
	}
)

// Tag 0 is reserved as invalid so an all-zero payload never decodes.
const (
	tagSetUsername byte = iota + 1
	tagPublicMessage
	tagPrivateMessage
	tagChatPublic
	tagChatPrivate
	tagJoinedServer
	tagJoinedRoom
	tagUserJoinedNotice
	tagSystemNotice
)

func (SetUsername) tag() byte      { return tagSetUsername }
func (PublicMessage) tag() byte    { return tagPublicMessage }
func (PrivateMessage) tag() byte   { return tagPrivateMessage }
func (ChatPublic) tag() byte       { return tagChatPublic }
func (ChatPrivate) tag() byte      { return tagChatPrivate }
func (JoinedServer) tag() byte     { return tagJoinedServer }
func (JoinedRoom) tag() byte       { return tagJoinedRoom }
func (UserJoinedNotice) tag() byte { return tagUserJoinedNotice }
func (SystemNotice) tag() byte     { return tagSystemNotice }

// DecodeError reports a payload that matches no known variant or has a
// truncated body.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode message: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode message: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode serializes m as one payload: variant tag followed by the gob
// body.
func Encode(m Message) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(m.tag())
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("encode %T: %w", m, err)
	}
	return buf.Bytes(), nil
}

// Decode parses one payload produced by Encode. It returns a value of
// the concrete variant type, so Decode(Encode(v)) compares equal to v.
func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Reason: "empty payload"}
	}
	dec := gob.NewDecoder(bytes.NewReader(data[1:]))
	switch data[0] {
	case tagSetUsername:
		var m SetUsername
		return decodeBody(dec, &m)
	case tagPublicMessage:
		var m PublicMessage
		return decodeBody(dec, &m)
	case tagPrivateMessage:
		var m PrivateMessage
		return decodeBody(dec, &m)
	case tagChatPublic:
		var m ChatPublic
		return decodeBody(dec, &m)
	case tagChatPrivate:
		var m ChatPrivate
		return decodeBody(dec, &m)
	case tagJoinedServer:
		var m JoinedServer
		return decodeBody(dec, &m)
	case tagJoinedRoom:
		var m JoinedRoom
		return decodeBody(dec, &m)
	case tagUserJoinedNotice:
		var m UserJoinedNotice
		return decodeBody(dec, &m)
	case tagSystemNotice:
		var m SystemNotice
		return decodeBody(dec, &m)
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown variant tag 0x%02x", data[0])}
	}
}

func decodeBody[T Message](dec *gob.Decoder, target *T) (Message, error) {
	if err := dec.Decode(target); err != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("%T body", *target), Err: err}
	}
	return *target, nil
}
