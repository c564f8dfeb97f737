package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/google/uuid"

	"github.com/roomcast/roomcast/internal/chat"
)

// Server upgrades HTTP requests on /ws to WebSocket connections and
// runs one chat.Actor per client, sharing the registry with the TCP
// transport.
type Server struct {
	address  string
	listener net.Listener
	server   *http.Server
	reg      *chat.Registry
	disp     *chat.Dispatcher
	log      *slog.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	wg sync.WaitGroup
}

// New creates a WebSocket server backed by the shared registry.
func New(address string, reg *chat.Registry, disp *chat.Dispatcher, log *slog.Logger) *Server {
	return &Server{
		address: address,
		reg:     reg,
		disp:    disp,
		log:     log,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start serves WebSocket upgrades until Stop is called. It blocks.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("start WebSocket server: %w", err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	s.server = &http.Server{Handler: mux}

	s.log.Info("WebSocket server started", "addr", listener.Addr().String())

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve WebSocket: %w", err)
	}
	return nil
}

// Stop shuts the HTTP server down, closes the upgraded connections and
// waits for all actors to finish deregistering.
func (s *Server) Stop() {
	if s.server != nil {
		s.server.Shutdown(context.Background())
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

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	s.track(conn)

	id := chat.ID(uuid.NewString())
	actor := chat.NewActor(id, NewConn(conn), s.reg, s.disp, s.log)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.forget(conn)
		actor.Run(context.Background())
	}()
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
