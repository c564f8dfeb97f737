package tcp

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomcast/roomcast/pkg/wire"
)

func TestConn_FramedRoundTrip(t *testing.T) {
	left, right := net.Pipe()
	server := NewConn(left, 0)
	client := NewConn(right, 0)
	defer server.Close()
	defer client.Close()

	ctx := context.Background()
	done := make(chan []byte, 1)
	go func() {
		data, err := server.Read(ctx)
		require.NoError(t, err)
		done <- data
	}()

	require.NoError(t, client.Write(ctx, []byte("framed payload")))
	assert.Equal(t, []byte("framed payload"), <-done)
}

func TestConn_ReadAfterPeerClose(t *testing.T) {
	left, right := net.Pipe()
	server := NewConn(left, 0)
	defer server.Close()

	right.Close()

	_, err := server.Read(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestConn_OversizedFrameRejected(t *testing.T) {
	left, right := net.Pipe()
	server := NewConn(left, 8)
	defer server.Close()
	defer right.Close()

	go func() {
		_ = wire.WriteFrame(right, []byte("this frame is far too large"))
	}()

	_, err := server.Read(context.Background())
	assert.ErrorIs(t, err, wire.ErrFrameTooLarge)
}
