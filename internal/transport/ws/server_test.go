package ws_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomcast/roomcast/internal/chat"
	wstransport "github.com/roomcast/roomcast/internal/transport/ws"
	"github.com/roomcast/roomcast/pkg/protocol"
)

func startServer(t *testing.T) (*wstransport.Server, *chat.Registry) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := chat.NewRegistry([]string{"main", "general"}, 32, log)
	srv := wstransport.New(":0", reg, chat.NewDispatcher(reg, log), log)

	go func() { _ = srv.Start() }()
	require.Eventually(t, func() bool { return srv.Addr() != "" }, time.Second, 10*time.Millisecond)
	return srv, reg
}

// bufferedConn keeps reading through the handshake reader returned by
// ws.Dial, so frames the dialer already buffered are not lost.
type bufferedConn struct {
	r io.Reader
	net.Conn
}

func (c bufferedConn) Read(p []byte) (int, error) { return c.r.Read(p) }

func dial(t *testing.T, srv *wstransport.Server) net.Conn {
	t.Helper()
	conn, br, _, err := ws.Dial(context.Background(), "ws://"+srv.Addr()+"/ws")
	require.NoError(t, err)
	if br != nil {
		return bufferedConn{r: br, Conn: conn}
	}
	return conn
}

func sendMessage(t *testing.T, conn net.Conn, m protocol.Message) {
	t.Helper()
	data, err := protocol.Encode(m)
	require.NoError(t, err)
	require.NoError(t, wsutil.WriteClientBinary(conn, data))
}

func readMessage(t *testing.T, conn net.Conn) protocol.Message {
	t.Helper()
	data, err := wsutil.ReadServerBinary(conn)
	require.NoError(t, err)
	m, err := protocol.Decode(data)
	require.NoError(t, err)
	return m
}

func TestServer_HandshakeOverWebSocket(t *testing.T) {
	srv, reg := startServer(t)
	defer srv.Stop()

	conn := dial(t, srv)
	defer conn.Close()

	prompt, ok := readMessage(t, conn).(protocol.SystemNotice)
	require.True(t, ok)
	assert.Contains(t, prompt.Text, "username")

	sendMessage(t, conn, protocol.SetUsername{Name: "wanda"})

	assert.Equal(t, protocol.JoinedServer{Username: "wanda"}, readMessage(t, conn))
	assert.Equal(t, protocol.JoinedRoom{Room: chat.DefaultRoom}, readMessage(t, conn))
	readMessage(t, conn) // room-wide join notice

	assert.Equal(t, 1, reg.SessionCount())
}

func TestServer_ChatOverWebSocket(t *testing.T) {
	srv, _ := startServer(t)
	defer srv.Stop()

	conn := dial(t, srv)
	defer conn.Close()

	readMessage(t, conn) // prompt
	sendMessage(t, conn, protocol.SetUsername{Name: "wanda"})
	readMessage(t, conn) // JoinedServer
	readMessage(t, conn) // JoinedRoom
	readMessage(t, conn) // join notice

	sendMessage(t, conn, protocol.PublicMessage{Text: "over websocket"})
	assert.Equal(t, protocol.ChatPublic{Room: "main", From: "wanda", Text: "over websocket"}, readMessage(t, conn))
}

func TestServer_DisconnectDeregisters(t *testing.T) {
	srv, reg := startServer(t)
	defer srv.Stop()

	conn := dial(t, srv)
	readMessage(t, conn) // prompt
	sendMessage(t, conn, protocol.SetUsername{Name: "wanda"})
	readMessage(t, conn) // JoinedServer
	require.Eventually(t, func() bool { return reg.SessionCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return reg.SessionCount() == 0 }, time.Second, 10*time.Millisecond)
}
