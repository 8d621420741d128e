package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mash-protocol/netcomm-go/pkg/log"
	"github.com/mash-protocol/netcomm-go/pkg/wire"
)

// Connection errors.
var (
	ErrClosed            = errors.New("connection closed")
	ErrNoPendingExchange = errors.New("no reply expected on exchange")
	ErrExchangeBusy      = errors.New("exchange already awaiting a reply")
)

var peerCounter atomic.Uint64

// ConnConfig configures a Conn.
type ConnConfig struct {
	// Role tags protocol log events.
	Role log.Role

	// OnMessage receives envelopes that no waiter claimed. It runs on the
	// read goroutine; long work should be handed off.
	OnMessage func(c *Conn, env *wire.Envelope)

	// OnClose is called once after the connection closes.
	OnClose func(c *Conn, err error)

	// Logger for operational messages. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger receives frame, message and connection events.
	ProtocolLogger log.Logger
}

// Conn multiplexes exchanges over one stream connection.
type Conn struct {
	nc     net.Conn
	framer *Framer
	cfg    ConnConfig
	id     string
	peer   uint64

	protoLog log.Logger

	mu      sync.Mutex
	pending map[uint32]chan *wire.Envelope
	closed  bool
	nextID  uint32

	closeOnce sync.Once
	done      chan struct{}
	closeErr  error
}

// NewConn wraps nc. Call Start to begin reading.
func NewConn(nc net.Conn, cfg ConnConfig) *Conn {
	c := &Conn{
		nc:       nc,
		framer:   NewFramer(nc),
		cfg:      cfg,
		id:       uuid.New().String(),
		peer:     peerCounter.Add(1),
		protoLog: log.OrNoop(cfg.ProtocolLogger),
		pending:  make(map[uint32]chan *wire.Envelope),
		done:     make(chan struct{}),
	}
	if cfg.ProtocolLogger != nil {
		c.framer.SetLogger(cfg.ProtocolLogger, c.id)
	}
	return c
}

// ID returns the connection's unique id.
func (c *Conn) ID() string { return c.id }

// PeerID returns a process-unique number for the remote peer of this
// connection.
func (c *Conn) PeerID() uint64 { return c.peer }

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// Done is closed when the connection is closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Start launches the read loop.
func (c *Conn) Start() {
	c.stateEvent("", "CONNECTED", "")
	go c.readLoop()
}

// NextExchangeID allocates an exchange id for a new outgoing exchange.
// Zero is skipped.
func (c *Conn) NextExchangeID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	if c.nextID == 0 {
		c.nextID = 1
	}
	return c.nextID
}

// Send writes an envelope. With expectReply a waiter is registered for the
// exchange before the frame is written; collect the reply with Receive.
func (c *Conn) Send(ctx context.Context, exchangeID uint32, msgType wire.MessageType, payload []byte, expectReply bool) error {
	env := &wire.Envelope{
		ExchangeID:  exchangeID,
		Type:        msgType,
		ExpectReply: expectReply,
		Payload:     payload,
	}
	data, err := wire.EncodeEnvelope(env)
	if err != nil {
		return err
	}

	if expectReply {
		if err := c.expect(exchangeID); err != nil {
			return err
		}
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = c.nc.SetWriteDeadline(dl)
		defer c.nc.SetWriteDeadline(time.Time{})
	}
	if err := c.framer.WriteFrame(data); err != nil {
		if expectReply {
			c.forget(exchangeID)
		}
		return err
	}
	c.messageEvent(env, log.DirectionOut)
	return nil
}

// Receive waits for the reply registered by Send. If ctx ends first the
// waiter is removed and a late reply goes to OnMessage.
func (c *Conn) Receive(ctx context.Context, exchangeID uint32) (wire.MessageType, []byte, error) {
	c.mu.Lock()
	ch, ok := c.pending[exchangeID]
	closed := c.closed
	c.mu.Unlock()
	if !ok && closed {
		return 0, nil, ErrClosed
	}
	if !ok {
		return 0, nil, fmt.Errorf("%w: %d", ErrNoPendingExchange, exchangeID)
	}

	select {
	case env, ok := <-ch:
		if !ok {
			return 0, nil, ErrClosed
		}
		c.forget(exchangeID)
		return env.Type, env.Payload, nil
	case <-ctx.Done():
		c.forget(exchangeID)
		return 0, nil, ctx.Err()
	}
}

// Close closes the connection and fails every waiting Receive.
func (c *Conn) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Conn) expect(exchangeID uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, busy := c.pending[exchangeID]; busy {
		return fmt.Errorf("%w: %d", ErrExchangeBusy, exchangeID)
	}
	c.pending[exchangeID] = make(chan *wire.Envelope, 1)
	return nil
}

func (c *Conn) forget(exchangeID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, exchangeID)
}

func (c *Conn) readLoop() {
	for {
		data, err := c.framer.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				err = nil
			}
			c.shutdown(err)
			return
		}

		env, err := wire.DecodeEnvelope(data)
		if err != nil {
			c.errorEvent(err, "decode envelope")
			if c.cfg.Logger != nil {
				c.cfg.Logger.Debug("dropping undecodable frame", "conn_id", c.id, "error", err)
			}
			continue
		}
		c.messageEvent(env, log.DirectionIn)

		c.mu.Lock()
		ch, waiting := c.pending[env.ExchangeID]
		delivered := false
		if waiting {
			select {
			case ch <- env:
				delivered = true
			default:
			}
		}
		c.mu.Unlock()

		if delivered {
			continue
		}
		if c.cfg.OnMessage != nil {
			c.cfg.OnMessage(c, env)
		}
	}
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()

		_ = c.nc.Close()
		c.closeErr = err
		close(c.done)

		reason := ""
		if err != nil {
			reason = err.Error()
		}
		c.stateEvent("CONNECTED", "DISCONNECTED", reason)
		if c.cfg.OnClose != nil {
			c.cfg.OnClose(c, err)
		}
	})
}

func (c *Conn) messageEvent(env *wire.Envelope, dir log.Direction) {
	msg := &log.MessageEvent{
		Type:        env.Type,
		ExpectReply: env.ExpectReply,
		PayloadSize: len(env.Payload),
	}
	switch env.Type {
	case wire.MsgStatusResponse:
		if sr, err := wire.DecodeStatusResponse(env.Payload); err == nil {
			s := sr.Status
			msg.Status = &s
		}
	case wire.MsgInvokeRequest:
		if req, err := wire.DecodeInvokeRequest(env.Payload); err == nil {
			id := req.CommandID
			msg.CommandID = &id
		}
	case wire.MsgInvokeResponse:
		if resp, err := wire.DecodeInvokeResponse(env.Payload); err == nil {
			id := resp.CommandID
			msg.CommandID = &id
		}
	}
	c.protoLog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		ExchangeID:   env.ExchangeID,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    c.cfg.Role,
		RemoteAddr:   c.remoteAddr(),
		Message:      msg,
	})
}

func (c *Conn) stateEvent(oldState, newState, reason string) {
	c.protoLog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		LocalRole:    c.cfg.Role,
		RemoteAddr:   c.remoteAddr(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (c *Conn) errorEvent(err error, context string) {
	c.protoLog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerWire,
		Category:     log.CategoryError,
		LocalRole:    c.cfg.Role,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: context,
		},
	})
}

func (c *Conn) remoteAddr() string {
	if a := c.nc.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
