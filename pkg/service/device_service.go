package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/mash-protocol/netcomm-go/pkg/correlation"
	"github.com/mash-protocol/netcomm-go/pkg/log"
	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
	"github.com/mash-protocol/netcomm-go/pkg/timed"
	"github.com/mash-protocol/netcomm-go/pkg/transport"
	"github.com/mash-protocol/netcomm-go/pkg/wire"
)

// session is the per-connection state of a DeviceService.
type session struct {
	conn  *transport.Conn
	guard *timed.Guard
}

// DeviceService serves commissioning commands to controllers.
type DeviceService struct {
	mu sync.RWMutex

	config DeviceConfig
	state  ServiceState

	engine  *netcommissioning.Engine
	router  *windowRouter
	pending *correlation.Table[netcommissioning.Continuation]

	server   *transport.Server
	sessions map[*transport.Conn]*session

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	clock    func() time.Time
	logger   *slog.Logger
	protoLog log.Logger
}

// NewDeviceService creates a device service and its engine.
func NewDeviceService(config DeviceConfig) (*DeviceService, error) {
	if config.ListenAddress == "" {
		return nil, fmt.Errorf("%w: listen address is required", ErrInvalidConfig)
	}
	if config.MaxOpenWindows <= 0 {
		config.MaxOpenWindows = DefaultMaxOpenWindows
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	s := &DeviceService{
		config:   config,
		router:   newWindowRouter(),
		pending:  correlation.NewTable[netcommissioning.Continuation](),
		sessions: make(map[*transport.Conn]*session),
		clock:    config.Clock,
		logger:   config.Logger,
		protoLog: log.OrNoop(config.ProtocolLogger),
	}

	engine, err := netcommissioning.NewEngine(netcommissioning.Config{
		MaxNetworks:    config.MaxNetworks,
		Features:       config.Features,
		Platform:       config.Platform,
		Notifier:       netcommissioning.MultiNotifier(config.Notifiers),
		Window:         s.router,
		Clock:          config.Clock,
		Logger:         config.Logger,
		ProtocolLogger: config.ProtocolLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	s.engine = engine
	return s, nil
}

// Engine returns the commissioning engine.
func (s *DeviceService) Engine() *netcommissioning.Engine {
	return s.engine
}

// State returns the service state.
func (s *DeviceService) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Addr returns the listen address once started.
func (s *DeviceService) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.server == nil {
		return nil
	}
	return s.server.Addr()
}

// SessionCount returns the number of connected controllers.
func (s *DeviceService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Start begins accepting controller connections.
func (s *DeviceService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateStopped {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateStarting
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.server = transport.NewServer(transport.ServerConfig{
		Address:        s.config.ListenAddress,
		Logger:         s.logger,
		ProtocolLogger: s.config.ProtocolLogger,
		OnConnect:      s.onConnect,
		OnDisconnect:   s.onDisconnect,
		OnMessage:      s.onMessage,
		OnError:        s.onError,
	})
	server := s.server
	s.mu.Unlock()

	if err := server.Start(s.ctx); err != nil {
		s.cancel()
		s.mu.Lock()
		s.state = StateIdle
		s.server = nil
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()
	return nil
}

// Stop closes every connection and waits for in-flight commands.
func (s *DeviceService) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopping
	server := s.server
	s.mu.Unlock()

	s.cancel()
	err := server.Stop()
	s.wg.Wait()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	return err
}

func (s *DeviceService) onConnect(conn *transport.Conn) {
	sess := &session{
		conn: conn,
		guard: timed.NewGuard(timed.Config{
			Clock:          s.clock,
			ConnectionID:   conn.ID(),
			Role:           log.RoleDevice,
			Logger:         s.logger,
			ProtocolLogger: s.config.ProtocolLogger,
		}),
	}
	s.mu.Lock()
	s.sessions[conn] = sess
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("controller connected", "conn_id", conn.ID(), "remote", conn.RemoteAddr().String())
	}
}

func (s *DeviceService) onDisconnect(conn *transport.Conn) {
	s.mu.Lock()
	sess := s.sessions[conn]
	delete(s.sessions, conn)
	s.mu.Unlock()

	if sess != nil {
		sess.guard.AbortAll()
	}
	if dropped := s.pending.CancelPeer(conn.PeerID()); len(dropped) > 0 && s.logger != nil {
		s.logger.Debug("dropped pending responses", "conn_id", conn.ID(), "count", len(dropped))
	}
	if s.logger != nil {
		s.logger.Info("controller disconnected", "conn_id", conn.ID())
	}
}

func (s *DeviceService) onError(conn *transport.Conn, err error) {
	if s.logger == nil {
		return
	}
	if conn != nil {
		s.logger.Warn("connection error", "conn_id", conn.ID(), "error", err)
		return
	}
	s.logger.Warn("transport error", "error", err)
}

func (s *DeviceService) session(conn *transport.Conn) *session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[conn]
}

// onMessage runs on the connection's read goroutine.
func (s *DeviceService) onMessage(conn *transport.Conn, env *wire.Envelope) {
	sess := s.session(conn)
	if sess == nil {
		return
	}
	switch env.Type {
	case wire.MsgTimedRequest:
		s.handleTimedRequest(sess, env)
	case wire.MsgInvokeRequest:
		s.handleInvoke(sess, env)
	default:
		if s.logger != nil {
			s.logger.Debug("ignoring message", "conn_id", conn.ID(), "exchange_id", env.ExchangeID, "type", env.Type.String())
		}
		if env.ExpectReply {
			s.sendStatus(sess, env.ExchangeID, wire.StatusInvalidAction)
		}
	}
}

func (s *DeviceService) handleTimedRequest(sess *session, env *wire.Envelope) {
	req, err := wire.DecodeTimedRequest(env.Payload)
	if err != nil {
		s.sendStatus(sess, env.ExchangeID, wire.StatusInvalidAction)
		return
	}
	if !sess.guard.Has(env.ExchangeID) && sess.guard.Len() >= s.config.MaxOpenWindows {
		s.sendStatus(sess, env.ExchangeID, wire.StatusBusy)
		return
	}

	timeoutMs := req.TimeoutMs
	if s.config.MaxTimeoutMs > 0 && timeoutMs > s.config.MaxTimeoutMs {
		if s.logger != nil {
			s.logger.Debug("capping timed window",
				"exchange_id", env.ExchangeID,
				"requested_ms", timeoutMs,
				"max_ms", s.config.MaxTimeoutMs)
		}
		timeoutMs = s.config.MaxTimeoutMs
	}

	sess.guard.Accept(env.ExchangeID, timeoutMs, s.clock())
	s.sendStatus(sess, env.ExchangeID, wire.StatusSuccess)
}

func (s *DeviceService) handleInvoke(sess *session, env *wire.Envelope) {
	ex := env.ExchangeID
	req, err := wire.DecodeInvokeRequest(env.Payload)
	if err != nil {
		sess.guard.Abort(ex)
		s.sendStatus(sess, ex, wire.StatusInvalidAction)
		return
	}

	cmd := netcommissioning.CommandID(req.CommandID)
	hasWindow := sess.guard.Announced(ex)
	switch {
	case !cmd.IsValid():
		sess.guard.Abort(ex)
		s.sendStatus(sess, ex, wire.StatusUnsupportedCommand)
		return
	case req.Timed != hasWindow:
		sess.guard.Abort(ex)
		s.sendStatus(sess, ex, wire.StatusTimedRequestMismatch)
		return
	case cmd.IsSensitive() && !req.Timed:
		s.sendStatus(sess, ex, wire.StatusNeedsTimedInteraction)
		return
	}

	dispatch := s.router.bind(sess.guard, ex)
	peer := sess.conn.PeerID()
	if err := s.pending.Register(peer, dispatch, s.continuation(sess, ex, cmd)); err != nil {
		s.router.release(dispatch)
		s.sendStatus(sess, ex, wire.StatusBusy)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.router.release(dispatch)
		s.engine.Handle(s.ctx, dispatch, cmd, cbor.RawMessage(req.Fields),
			netcommissioning.CorrelatedSink(s.pending, peer, dispatch))
	}()
}

// continuation answers the invoke with an InvokeResponse whatever the
// status.
func (s *DeviceService) continuation(sess *session, exchangeID uint32, cmd netcommissioning.CommandID) netcommissioning.Continuation {
	send := func(resp netcommissioning.Response) {
		if err := s.sendInvokeResponse(sess, exchangeID, cmd, resp); err != nil && s.logger != nil {
			s.logger.Warn("failed to send invoke response",
				"conn_id", sess.conn.ID(),
				"exchange_id", exchangeID,
				"command", cmd.String(),
				"error", err)
		}
	}
	return netcommissioning.Continuation{
		OnSuccess: send,
		OnFailure: func(err error) {
			var se *netcommissioning.StatusError
			if errors.As(err, &se) {
				send(se.Response)
				return
			}
			send(netcommissioning.Response{Status: netcommissioning.StatusUnknownError})
		},
	}
}

func (s *DeviceService) sendInvokeResponse(sess *session, exchangeID uint32, cmd netcommissioning.CommandID, resp netcommissioning.Response) error {
	result, err := netcommissioning.EncodeResponse(resp)
	if err != nil {
		return err
	}
	payload, err := wire.EncodeInvokeResponse(uint8(cmd), cbor.RawMessage(result))
	if err != nil {
		return err
	}
	return sess.conn.Send(s.ctx, exchangeID, wire.MsgInvokeResponse, payload, false)
}

func (s *DeviceService) sendStatus(sess *session, exchangeID uint32, status wire.Status) {
	payload, err := wire.EncodeStatusResponse(status)
	if err == nil {
		err = sess.conn.Send(s.ctx, exchangeID, wire.MsgStatusResponse, payload, false)
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("failed to send status response",
			"conn_id", sess.conn.ID(),
			"exchange_id", exchangeID,
			"status", status.String(),
			"error", err)
	}
}
