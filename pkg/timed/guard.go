package timed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mash-protocol/netcomm-go/pkg/log"
	"github.com/mash-protocol/netcomm-go/pkg/wire"
)

// Guard errors.
var (
	// ErrExpired is returned when a window is checked after its deadline.
	ErrExpired = errors.New("timed window expired")

	// ErrNoWindow is returned when no window is open for an exchange.
	ErrNoWindow = errors.New("no timed window for exchange")

	// ErrInvalidMessageType is returned when the acknowledgement is not a StatusResponse.
	ErrInvalidMessageType = errors.New("invalid message type")

	// ErrStatusCodeReceived is matched by every *StatusCodeError.
	ErrStatusCodeReceived = errors.New("status code received")

	// ErrNoExchanger is returned by initiator operations on a responder-only guard.
	ErrNoExchanger = errors.New("guard has no exchanger")
)

// StatusCodeError is returned by AwaitAck when the peer answered the
// TimedRequest with a non-success status.
type StatusCodeError struct {
	Status wire.Status
}

func (e *StatusCodeError) Error() string {
	return fmt.Sprintf("timed request answered with %s", e.Status)
}

// Is reports whether target is ErrStatusCodeReceived.
func (e *StatusCodeError) Is(target error) bool {
	return target == ErrStatusCodeReceived
}

// Exchanger sends and receives messages on an exchange.
type Exchanger interface {
	Send(ctx context.Context, exchangeID uint32, msgType wire.MessageType, payload []byte, expectReply bool) error
	Receive(ctx context.Context, exchangeID uint32) (wire.MessageType, []byte, error)
}

// Window is the deadline granted to one exchange.
type Window struct {
	ExchangeID uint32
	ID         uuid.UUID
	TimeoutMs  uint16
	Deadline   time.Time
}

// Config configures a Guard.
type Config struct {
	// Exchanger is required for OpenWindow/AwaitAck. Responder-only guards
	// may leave it nil.
	Exchanger Exchanger

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// OnExpire is called, outside the guard's lock, when an unconsumed
	// window passes its deadline.
	OnExpire func(Window)

	// ConnectionID tags protocol log events.
	ConnectionID string

	// Role tags protocol log events.
	Role log.Role

	// Logger for operational messages. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger receives window lifecycle events. Nil disables.
	ProtocolLogger log.Logger
}

// maxLapsed bounds how many lapsed exchanges are remembered for ErrExpired.
const maxLapsed = 64

type entry struct {
	window Window
	timer  *time.Timer
}

// Guard tracks timed windows per exchange. A window whose deadline passes
// unconsumed leaves the open set; its exchange is remembered in lapsed so
// the next CheckWindow still reports ErrExpired.
type Guard struct {
	mu      sync.Mutex
	windows map[uint32]*entry
	lapsed  map[uint32]Window

	exchanger Exchanger
	clock     func() time.Time
	onExpire  func(Window)
	connID    string
	role      log.Role
	logger    *slog.Logger
	protoLog  log.Logger
}

// NewGuard creates a Guard.
func NewGuard(cfg Config) *Guard {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Guard{
		windows:   make(map[uint32]*entry),
		lapsed:    make(map[uint32]Window),
		exchanger: cfg.Exchanger,
		clock:     cfg.Clock,
		onExpire:  cfg.OnExpire,
		connID:    cfg.ConnectionID,
		role:      cfg.Role,
		logger:    cfg.Logger,
		protoLog:  log.OrNoop(cfg.ProtocolLogger),
	}
}

// OpenWindow announces timeoutMs on the exchange with a TimedRequest that
// expects a reply. The deadline is taken at send time. If the announcement
// does not fit its buffer, ErrNoMemory from the wire package is returned
// and nothing is sent.
func (g *Guard) OpenWindow(ctx context.Context, exchangeID uint32, timeoutMs uint16) (Window, error) {
	if g.exchanger == nil {
		return Window{}, ErrNoExchanger
	}
	payload, err := wire.EncodeTimedRequest(timeoutMs)
	if err != nil {
		return Window{}, err
	}

	w := g.record(exchangeID, timeoutMs, g.clock())
	g.event(w, log.DirectionOut, log.TimedOpened, "")

	if err := g.exchanger.Send(ctx, exchangeID, wire.MsgTimedRequest, payload, true); err != nil {
		g.discard(exchangeID, w.ID)
		return Window{}, fmt.Errorf("send timed request: %w", err)
	}
	return w, nil
}

// AwaitAck blocks until the peer answers the TimedRequest or ctx ends. The
// window is discarded on every failure.
func (g *Guard) AwaitAck(ctx context.Context, exchangeID uint32) error {
	if g.exchanger == nil {
		return ErrNoExchanger
	}
	msgType, payload, err := g.exchanger.Receive(ctx, exchangeID)
	if err != nil {
		g.reject(exchangeID, err.Error())
		return err
	}
	if msgType != wire.MsgStatusResponse {
		g.reject(exchangeID, "unexpected "+msgType.String())
		return fmt.Errorf("%w: %s", ErrInvalidMessageType, msgType)
	}
	resp, err := wire.DecodeStatusResponse(payload)
	if err != nil {
		g.reject(exchangeID, "undecodable status")
		return fmt.Errorf("decode status response: %w", err)
	}
	if resp.Status != wire.StatusSuccess {
		g.reject(exchangeID, resp.Status.String())
		return &StatusCodeError{Status: resp.Status}
	}

	if w, ok := g.Window(exchangeID); ok {
		g.event(w, log.DirectionIn, log.TimedAcknowledged, "")
	}
	return nil
}

// Accept records the window announced by a received TimedRequest. The
// deadline is now plus timeoutMs.
func (g *Guard) Accept(exchangeID uint32, timeoutMs uint16, now time.Time) Window {
	w := g.record(exchangeID, timeoutMs, now)
	g.event(w, log.DirectionIn, log.TimedAccepted, "")
	return w
}

// CheckWindow consumes the exchange's window. It fails with ErrNoWindow if
// none is open and with ErrExpired if now is past the deadline or the
// window already lapsed. The window is discarded either way.
func (g *Guard) CheckWindow(exchangeID uint32, now time.Time) error {
	g.mu.Lock()
	e, ok := g.windows[exchangeID]
	if ok {
		delete(g.windows, exchangeID)
		e.timer.Stop()
	}
	lapsed, wasLapsed := g.lapsed[exchangeID]
	delete(g.lapsed, exchangeID)
	g.mu.Unlock()

	switch {
	case wasLapsed:
		return fmt.Errorf("%w: deadline %s", ErrExpired, lapsed.Deadline.Format(time.RFC3339Nano))
	case !ok:
		return ErrNoWindow
	case now.After(e.window.Deadline):
		g.event(e.window, log.DirectionIn, log.TimedExpired, fmt.Sprintf("checked %s late", now.Sub(e.window.Deadline)))
		return fmt.Errorf("%w: deadline %s", ErrExpired, e.window.Deadline.Format(time.RFC3339Nano))
	}
	g.event(e.window, log.DirectionIn, log.TimedConsumed, "")
	return nil
}

// Has reports whether a window is open for the exchange.
func (g *Guard) Has(exchangeID uint32) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.windows[exchangeID]
	return ok
}

// Announced reports whether a TimedRequest was accepted on the exchange
// and not yet consumed or aborted, including a window that has lapsed.
func (g *Guard) Announced(exchangeID uint32) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, open := g.windows[exchangeID]
	_, lapsed := g.lapsed[exchangeID]
	return open || lapsed
}

// Window returns the open window for the exchange.
func (g *Guard) Window(exchangeID uint32) (Window, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.windows[exchangeID]
	if !ok {
		return Window{}, false
	}
	return e.window, true
}

// Len returns the number of open windows. Lapsed windows are not counted.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.windows)
}

// Abort discards the exchange's window, if any.
func (g *Guard) Abort(exchangeID uint32) {
	g.mu.Lock()
	e, ok := g.windows[exchangeID]
	if ok {
		delete(g.windows, exchangeID)
		e.timer.Stop()
	}
	delete(g.lapsed, exchangeID)
	g.mu.Unlock()

	if ok {
		g.event(e.window, log.DirectionIn, log.TimedAborted, "")
	}
}

// AbortAll discards every window, e.g. when the connection closes.
func (g *Guard) AbortAll() {
	g.mu.Lock()
	entries := make([]*entry, 0, len(g.windows))
	for id, e := range g.windows {
		e.timer.Stop()
		entries = append(entries, e)
		delete(g.windows, id)
	}
	clear(g.lapsed)
	g.mu.Unlock()

	for _, e := range entries {
		g.event(e.window, log.DirectionIn, log.TimedAborted, "connection closed")
	}
}

func (g *Guard) record(exchangeID uint32, timeoutMs uint16, now time.Time) Window {
	timeout := time.Duration(timeoutMs) * time.Millisecond
	w := Window{
		ExchangeID: exchangeID,
		ID:         uuid.New(),
		TimeoutMs:  timeoutMs,
		Deadline:   now.Add(timeout),
	}

	g.mu.Lock()
	if old, ok := g.windows[exchangeID]; ok {
		old.timer.Stop()
	}
	delete(g.lapsed, exchangeID)
	e := &entry{window: w}
	// Fire just past the deadline; at the deadline itself the window is
	// still valid.
	e.timer = time.AfterFunc(timeout+time.Millisecond, func() { g.expire(exchangeID, w.ID) })
	g.windows[exchangeID] = e
	g.mu.Unlock()

	return w
}

func (g *Guard) expire(exchangeID uint32, id uuid.UUID) {
	g.mu.Lock()
	e, ok := g.windows[exchangeID]
	if !ok || e.window.ID != id {
		g.mu.Unlock()
		return
	}
	delete(g.windows, exchangeID)
	if len(g.lapsed) >= maxLapsed {
		for old := range g.lapsed {
			delete(g.lapsed, old)
			break
		}
	}
	g.lapsed[exchangeID] = e.window
	w := e.window
	cb := g.onExpire
	g.mu.Unlock()

	g.event(w, log.DirectionIn, log.TimedExpired, "deadline passed unconsumed")
	if g.logger != nil {
		g.logger.Debug("timed window expired", "exchange_id", exchangeID, "window_id", id.String())
	}
	if cb != nil {
		cb(w)
	}
}

func (g *Guard) discard(exchangeID uint32, id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.windows[exchangeID]; ok && e.window.ID == id {
		e.timer.Stop()
		delete(g.windows, exchangeID)
	}
}

func (g *Guard) reject(exchangeID uint32, reason string) {
	g.mu.Lock()
	e, ok := g.windows[exchangeID]
	if ok {
		e.timer.Stop()
		delete(g.windows, exchangeID)
	}
	g.mu.Unlock()

	if ok {
		g.event(e.window, log.DirectionIn, log.TimedRejected, reason)
	}
	if g.logger != nil {
		g.logger.Debug("timed request not acknowledged", "exchange_id", exchangeID, "reason", reason)
	}
}

func (g *Guard) event(w Window, dir log.Direction, action log.TimedAction, reason string) {
	g.protoLog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: g.connID,
		ExchangeID:   w.ExchangeID,
		Direction:    dir,
		Layer:        log.LayerService,
		Category:     log.CategoryTimed,
		LocalRole:    g.role,
		Timed: &log.TimedEvent{
			Action:    action,
			WindowID:  w.ID.String(),
			TimeoutMs: w.TimeoutMs,
			Deadline:  w.Deadline,
			Reason:    reason,
		},
	})
}
