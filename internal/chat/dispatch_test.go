package chat

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomcast/roomcast/pkg/protocol"
)

func testDispatcher(t *testing.T) (*Registry, *Dispatcher) {
	t.Helper()
	r := testRegistry()
	return r, NewDispatcher(r, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func requireNotice(t *testing.T, msgs []protocol.Message) protocol.SystemNotice {
	t.Helper()
	require.Len(t, msgs, 1)
	notice, ok := msgs[0].(protocol.SystemNotice)
	require.True(t, ok, "want SystemNotice, got %T", msgs[0])
	return notice
}

func TestDispatch_PlainLineIsPublicChat(t *testing.T) {
	r, d := testDispatcher(t)
	alice := register(t, r, "a", "alice")
	bob := register(t, r, "b", "bob")

	d.Dispatch("a", protocol.PublicMessage{Text: "hello"})

	want := []protocol.Message{protocol.ChatPublic{Room: "main", From: "alice", Text: "hello"}}
	assert.Equal(t, want, drain(alice))
	assert.Equal(t, want, drain(bob))
}

func TestDispatch_PrivateMessageRequest(t *testing.T) {
	r, d := testDispatcher(t)
	alice := register(t, r, "a", "alice")
	bob := register(t, r, "b", "bob")

	d.Dispatch("a", protocol.PrivateMessage{To: "bob", Text: "psst"})

	assert.Equal(t, []protocol.Message{protocol.ChatPrivate{From: "alice", Text: "psst"}}, drain(bob))
	assert.Empty(t, drain(alice))
}

func TestDispatch_SecondSetUsernameRejected(t *testing.T) {
	r, d := testDispatcher(t)
	alice := register(t, r, "a", "alice")

	d.Dispatch("a", protocol.SetUsername{Name: "mallory"})

	notice := requireNotice(t, drain(alice))
	assert.Contains(t, notice.Text, "already set")
	assert.Equal(t, "alice", alice.Name)
}

func TestCommand_Who(t *testing.T) {
	r, d := testDispatcher(t)
	alice := register(t, r, "a", "alice")
	bob := register(t, r, "b", "bob")

	d.Dispatch("a", protocol.PublicMessage{Text: "/who"})

	notice := requireNotice(t, drain(alice))
	assert.Contains(t, notice.Text, "alice")
	assert.Contains(t, notice.Text, "bob")
	assert.Empty(t, drain(bob), "user list goes to the sender only")
}

func TestCommand_Rooms(t *testing.T) {
	r, d := testDispatcher(t)
	alice := register(t, r, "a", "alice")

	for _, cmd := range []string{"/rooms", "/rs"} {
		d.Dispatch("a", protocol.PublicMessage{Text: cmd})
		notice := requireNotice(t, drain(alice))
		assert.Contains(t, notice.Text, "main")
		assert.Contains(t, notice.Text, "general")
	}
}

func TestCommand_PM(t *testing.T) {
	r, d := testDispatcher(t)
	alice := register(t, r, "a", "alice")
	bob := register(t, r, "b", "bob")

	d.Dispatch("a", protocol.PublicMessage{Text: "/pm bob a multi word secret"})
	assert.Equal(t,
		[]protocol.Message{protocol.ChatPrivate{From: "alice", Text: "a multi word secret"}},
		drain(bob))

	d.Dispatch("a", protocol.PublicMessage{Text: "/pm nobody hi"})
	notice := requireNotice(t, drain(alice))
	assert.Contains(t, notice.Text, "Couldn't send PM to nobody")

	d.Dispatch("a", protocol.PublicMessage{Text: "/pm bob"})
	notice = requireNotice(t, drain(alice))
	assert.Contains(t, notice.Text, "Usage: /pm")
	assert.Empty(t, drain(bob))
}

func TestCommand_MoveRoom(t *testing.T) {
	r, d := testDispatcher(t)
	alice := register(t, r, "a", "alice")
	bob := register(t, r, "b", "bob")
	carol := register(t, r, "c", "carol")
	_, err := r.JoinRoom("c", "general")
	require.NoError(t, err)
	drain(carol)

	d.Dispatch("a", protocol.PublicMessage{Text: "/mv general"})

	got := drain(alice)
	require.Len(t, got, 1)
	assert.Equal(t, protocol.JoinedRoom{Room: "general"}, got[0])

	assert.Equal(t,
		[]protocol.Message{protocol.UserJoinedNotice{Name: "alice"}},
		drain(carol), "destination room is told who arrived")

	notice := requireNotice(t, drain(bob))
	assert.Contains(t, notice.Text, "alice has moved")
	checkInvariants(t, r)
}

func TestCommand_MoveRoomFailures(t *testing.T) {
	r, d := testDispatcher(t)
	alice := register(t, r, "a", "alice")

	d.Dispatch("a", protocol.PublicMessage{Text: "/mv nowhere"})
	notice := requireNotice(t, drain(alice))
	assert.Equal(t, "Room 'nowhere' does not exist.", notice.Text)
	assert.Equal(t, "main", alice.Room)

	d.Dispatch("a", protocol.PublicMessage{Text: "/mv main"})
	notice = requireNotice(t, drain(alice))
	assert.Equal(t, "You are already in 'main'.", notice.Text)

	d.Dispatch("a", protocol.PublicMessage{Text: "/mv"})
	notice = requireNotice(t, drain(alice))
	assert.Contains(t, notice.Text, "Usage: /mv")
}

func TestCommand_Unknown(t *testing.T) {
	r, d := testDispatcher(t)
	alice := register(t, r, "a", "alice")
	bob := register(t, r, "b", "bob")

	d.Dispatch("a", protocol.PublicMessage{Text: "/frobnicate now"})
	notice := requireNotice(t, drain(alice))
	assert.Equal(t, "Unknown command: /frobnicate", notice.Text)
	assert.Empty(t, drain(bob), "command errors never leak to other users")

	d.Dispatch("a", protocol.PublicMessage{Text: "/"})
	notice = requireNotice(t, drain(alice))
	assert.Equal(t, "Expected a command.", notice.Text)
}
