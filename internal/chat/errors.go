package chat

import "errors"

var (
	ErrDuplicateIdentity = errors.New("identity already registered")
	ErrUnknownSession    = errors.New("no session for identity")
	ErrUnknownRoom       = errors.New("room does not exist")
	ErrAlreadyInRoom     = errors.New("already a member of that room")
	ErrRecipientNotFound = errors.New("no connected user with that name")
)
