package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/mash-protocol/netcomm-go/pkg/log"
	"github.com/mash-protocol/netcomm-go/pkg/wire"
)

// DefaultPort is the default listen port for the commissioning service.
const DefaultPort = 5540

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on (e.g., ":5540" or "127.0.0.1:5540").
	Address string

	// Logger for operational messages. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger receives protocol events for every connection.
	ProtocolLogger log.Logger

	// OnConnect is called when a new connection is established, before
	// its read loop starts.
	OnConnect func(conn *Conn)

	// OnDisconnect is called when a connection is closed.
	OnDisconnect func(conn *Conn)

	// OnMessage is called for every envelope not claimed by a waiter.
	OnMessage func(conn *Conn, env *wire.Envelope)

	// OnError is called when an error occurs.
	OnError func(conn *Conn, err error)
}

// Server accepts controller connections.
type Server struct {
	config   ServerConfig
	listener net.Listener

	conns   map[*Conn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewServer creates a new server.
func NewServer(config ServerConfig) *Server {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	return &Server{
		config: config,
		conns:  make(map[*Conn]struct{}),
	}
}

// Start starts listening and accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	if s.config.Logger != nil {
		s.config.Logger.Info("listening", "addr", listener.Addr().String())
	}
	return nil
}

// Stop stops the server and closes all connections.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.RLock()
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.RUnlock()
	for _, c := range conns {
		c.Close()
	}

	s.wg.Wait()
	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		nc, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if s.running.Load() && s.config.OnError != nil {
				s.config.OnError(nil, fmt.Errorf("accept error: %w", err))
			}
			continue
		}
		s.handleConnection(nc)
	}
}

func (s *Server) handleConnection(nc net.Conn) {
	s.wg.Add(1)
	conn := NewConn(nc, ConnConfig{
		Role:           log.RoleDevice,
		OnMessage:      s.config.OnMessage,
		OnClose:        s.connClosed,
		Logger:         s.config.Logger,
		ProtocolLogger: s.config.ProtocolLogger,
	})

	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()

	if s.config.Logger != nil {
		s.config.Logger.Debug("connection accepted",
			"conn_id", conn.ID(),
			"remote", nc.RemoteAddr().String())
	}
	if s.config.OnConnect != nil {
		s.config.OnConnect(conn)
	}
	conn.Start()
}

func (s *Server) connClosed(conn *Conn, err error) {
	defer s.wg.Done()

	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()

	if err != nil && s.config.OnError != nil {
		s.config.OnError(conn, err)
	}
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(conn)
	}
}
