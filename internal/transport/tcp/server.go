package tcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/roomcast/roomcast/internal/chat"
)

// Server accepts TCP connections and runs one chat.Actor per client.
type Server struct {
	address      string
	listener     net.Listener
	reg          *chat.Registry
	disp         *chat.Dispatcher
	maxFrameSize int
	log          *slog.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates a TCP server backed by the shared registry.
func New(address string, reg *chat.Registry, disp *chat.Dispatcher, maxFrameSize int, log *slog.Logger) *Server {
	return &Server{
		address:      address,
		reg:          reg,
		disp:         disp,
		maxFrameSize: maxFrameSize,
		log:          log,
		conns:        make(map[net.Conn]struct{}),
		quit:         make(chan struct{}),
	}
}

// Start accepts connections until Stop is called. It blocks.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("start TCP server: %w", err)
	}
	s.listener = listener

	s.log.Info("TCP server started", "addr", listener.Addr().String())

	for {
		select {
		case <-s.quit:
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-s.quit:
					return nil
				default:
					s.log.Warn("accept failed", "error", err)
					continue
				}
			}
			s.track(conn)

			id := chat.ID(uuid.NewString())
			actor := chat.NewActor(id, NewConn(conn, s.maxFrameSize), s.reg, s.disp, s.log)

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer s.forget(conn)
				actor.Run(context.Background())
			}()
		}
	}
}

// Stop closes the listener and every live connection, then waits for
// all actors to finish deregistering.
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) forget(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}
