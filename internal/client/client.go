// Package client provides a TCP client for the chat server. It is the
// network half of a user-facing client: it forwards user actions to
// the server and surfaces every response on a channel, tolerating
// arbitrary interleaving and delay; rendering belongs to the caller.
package client

import (
	"fmt"
	"net"
	"sync"

	"github.com/roomcast/roomcast/pkg/protocol"
	"github.com/roomcast/roomcast/pkg/wire"
)

// Client is a connection to the chat server.
type Client struct {
	address   string
	responses chan protocol.Message

	mu     sync.RWMutex
	conn   net.Conn
	frames *wire.Reader

	wg sync.WaitGroup
}

// New creates a Client for the given server address.
func New(address string) *Client {
	return &Client{
		address:   address,
		responses: make(chan protocol.Message, 32),
	}
}

// Connect dials the server and starts receiving responses. The first
// response on Responses will be the server's username prompt.
func (c *Client) Connect() error {
	conn, err := net.Dial("tcp", c.address)
	if err != nil {
		return fmt.Errorf("connect to server: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.frames = wire.NewReader(conn, wire.DefaultMaxFrameSize)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.receive()
	return nil
}

// Disconnect closes the connection and waits for the receive loop to
// drain. Responses is closed afterwards.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// IsConnected reports whether the client currently holds an open
// connection.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Join answers the server's username prompt.
func (c *Client) Join(username string) error {
	return c.send(protocol.SetUsername{Name: username})
}

// Say sends one chat line to the current room. Lines starting with "/"
// are interpreted as commands by the server.
func (c *Client) Say(text string) error {
	return c.send(protocol.PublicMessage{Text: text})
}

// Whisper sends a private message to the named user.
func (c *Client) Whisper(to, text string) error {
	return c.send(protocol.PrivateMessage{To: to, Text: text})
}

// Responses delivers every server response in arrival order. The
// channel closes when the connection ends.
func (c *Client) Responses() <-chan protocol.Message {
	return c.responses
}

func (c *Client) send(m protocol.Message) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("not connected to server")
	}

	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	if err := wire.WriteFrame(conn, data); err != nil {
		return fmt.Errorf("send %T: %w", m, err)
	}
	return nil
}

func (c *Client) receive() {
	defer c.wg.Done()
	defer close(c.responses)

	for {
		payload, err := c.frames.Next()
		if err != nil {
			return
		}
		res, err := protocol.Decode(payload)
		if err != nil {
			continue
		}
		c.responses <- res
	}
}
