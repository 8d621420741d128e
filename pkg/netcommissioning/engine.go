package netcommissioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"

	"github.com/mash-protocol/netcomm-go/pkg/log"
	"github.com/mash-protocol/netcomm-go/pkg/wire"
)

// WindowChecker consumes the timed window of an exchange. It returns an
// error if no window exists or its deadline has passed.
type WindowChecker interface {
	CheckWindow(exchangeID uint32, now time.Time) error
}

// WindowCheckerFunc adapts a function to WindowChecker.
type WindowCheckerFunc func(exchangeID uint32, now time.Time) error

// CheckWindow calls f.
func (f WindowCheckerFunc) CheckWindow(exchangeID uint32, now time.Time) error {
	return f(exchangeID, now)
}

// ErrNoWindowChecker is returned by NewEngine without a WindowChecker.
var ErrNoWindowChecker = errors.New("window checker is required")

// Config configures an Engine.
type Config struct {
	// MaxNetworks is the profile table capacity.
	MaxNetworks int

	// Features selects the supported network types.
	Features FeatureSet

	// Platform provides the radio capabilities.
	Platform Platform

	// Notifier is told about the operational network after a connect.
	Notifier OperationalNotifier

	// Window guards every sensitive command.
	Window WindowChecker

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// Logger for operational messages. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger receives command and profile events. Nil disables.
	ProtocolLogger log.Logger
}

// DefaultConfig returns a configuration with four slots and every network
// type enabled.
func DefaultConfig() Config {
	return Config{
		MaxNetworks: DefaultMaxNetworks,
		Features:    AllFeatures,
		Clock:       time.Now,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxNetworks < 1 || c.MaxNetworks > 255 {
		return fmt.Errorf("max networks must be between 1 and 255, got %d", c.MaxNetworks)
	}
	if c.Window == nil {
		return ErrNoWindowChecker
	}
	return nil
}

// Engine is the commissioning command surface. It owns the profile table.
type Engine struct {
	store    *Store
	workflow *Workflow
	window   WindowChecker
	clock    func() time.Time
	logger   *slog.Logger
	protoLog log.Logger

	mu          sync.RWMutex
	breadcrumb  uint64
	operational *NetworkID
}

// NewEngine creates an Engine with an empty table.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	store := NewStore(cfg.MaxNetworks, cfg.Features)
	e := &Engine{
		store:    store,
		window:   cfg.Window,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		protoLog: log.OrNoop(cfg.ProtocolLogger),
	}
	e.workflow = NewWorkflow(store, cfg.Platform, NotifierFunc(e.selected(cfg.Notifier)), cfg.Logger)
	store.OnChange(e.logChange)
	return e, nil
}

// Store returns the engine's profile table.
func (e *Engine) Store() *Store {
	return e.store
}

// Breadcrumb returns the breadcrumb of the last successful command.
func (e *Engine) Breadcrumb() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.breadcrumb
}

// OperationalNetwork returns the network selected by the last successful
// connect, if it is still stored and enabled.
func (e *Engine) OperationalNetwork() (NetworkID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.operational == nil {
		return NetworkID{}, false
	}
	return NetworkID{e.operational.Bytes()}, true
}

// Handle decodes the fields of a command invocation and runs it. Unknown
// command ids and undecodable fields still answer once with UnknownError,
// and a sensitive command with undecodable fields still consumes its
// window.
func (e *Engine) Handle(ctx context.Context, exchangeID uint32, cmd CommandID, fields cbor.RawMessage, sink ResponseSink) {
	var err error
	switch cmd {
	case CmdAddOrUpdateWiFiNetwork:
		var req AddOrUpdateWiFiNetworkRequest
		if err = wire.DecodeFields(fields, &req); err == nil {
			e.AddOrUpdateWiFiNetwork(ctx, exchangeID, req, sink)
			return
		}
	case CmdAddOrUpdateThreadNetwork:
		var req AddOrUpdateThreadNetworkRequest
		if err = wire.DecodeFields(fields, &req); err == nil {
			e.AddOrUpdateThreadNetwork(ctx, exchangeID, req, sink)
			return
		}
	case CmdRemoveNetwork:
		var req RemoveNetworkRequest
		if err = wire.DecodeFields(fields, &req); err == nil {
			e.RemoveNetwork(ctx, exchangeID, req, sink)
			return
		}
	case CmdConnectNetwork:
		var req ConnectNetworkRequest
		if err = wire.DecodeFields(fields, &req); err == nil {
			e.ConnectNetwork(ctx, exchangeID, req, sink)
			return
		}
	default:
		err = fmt.Errorf("%w: 0x%02x", ErrUnknownCommand, uint8(cmd))
	}

	start := time.Now()
	if cmd.IsSensitive() {
		_ = e.window.CheckWindow(exchangeID, e.clock())
	}
	r := newReplier(sink)
	e.finish(r, exchangeID, cmd, nil, 0, fmt.Errorf("decode %s: %w", cmd, err), start)
}

// AddOrUpdateWiFiNetwork stores a Wi-Fi profile.
func (e *Engine) AddOrUpdateWiFiNetwork(ctx context.Context, exchangeID uint32, req AddOrUpdateWiFiNetworkRequest, sink ResponseSink) {
	e.run(ctx, exchangeID, CmdAddOrUpdateWiFiNetwork, req.SSID, req.Breadcrumb, req.TimeoutMs, sink,
		func(context.Context) (uint8, error) {
			return e.store.AddOrUpdateWiFi(req.SSID, req.Credentials)
		})
}

// AddOrUpdateThreadNetwork stores a Thread profile.
func (e *Engine) AddOrUpdateThreadNetwork(ctx context.Context, exchangeID uint32, req AddOrUpdateThreadNetworkRequest, sink ResponseSink) {
	e.run(ctx, exchangeID, CmdAddOrUpdateThreadNetwork, nil, req.Breadcrumb, req.TimeoutMs, sink,
		func(context.Context) (uint8, error) {
			return e.store.AddOrUpdateThread(req.OperationalDataset)
		})
}

// RemoveNetwork removes a profile and zeroes its slot.
func (e *Engine) RemoveNetwork(ctx context.Context, exchangeID uint32, req RemoveNetworkRequest, sink ResponseSink) {
	e.run(ctx, exchangeID, CmdRemoveNetwork, req.NetworkID, req.Breadcrumb, req.TimeoutMs, sink,
		func(context.Context) (uint8, error) {
			idx, err := e.store.Remove(req.NetworkID)
			if err == nil {
				e.clearOperational(req.NetworkID)
			}
			return idx, err
		})
}

// ConnectNetwork applies a stored profile to the platform.
func (e *Engine) ConnectNetwork(ctx context.Context, exchangeID uint32, req ConnectNetworkRequest, sink ResponseSink) {
	e.run(ctx, exchangeID, CmdConnectNetwork, req.NetworkID, req.Breadcrumb, req.TimeoutMs, sink,
		func(ctx context.Context) (uint8, error) {
			return e.workflow.Connect(ctx, req.NetworkID)
		})
}

// Connect applies a stored profile without a command exchange. Like
// Disable it is an operator action and skips the timed window.
func (e *Engine) Connect(ctx context.Context, networkID []byte) (uint8, error) {
	return e.workflow.Connect(ctx, networkID)
}

// Remove deletes a profile without a command exchange.
func (e *Engine) Remove(networkID []byte) (uint8, error) {
	idx, err := e.store.Remove(networkID)
	if err == nil {
		e.clearOperational(networkID)
	}
	return idx, err
}

// Disable clears a profile's enabled flag. It is a local operation and is
// not reachable from the wire.
func (e *Engine) Disable(networkID []byte) error {
	if _, err := e.store.Disable(networkID); err != nil {
		return err
	}
	e.clearOperational(networkID)
	return nil
}

func (e *Engine) run(ctx context.Context, exchangeID uint32, cmd CommandID, networkID []byte, breadcrumb uint64, timeoutMs uint32,
	sink ResponseSink, op func(context.Context) (uint8, error)) {
	start := time.Now()
	r := newReplier(sink)
	defer r.fallback()

	if err := e.window.CheckWindow(exchangeID, e.clock()); err != nil {
		e.finish(r, exchangeID, cmd, networkID, 0, fmt.Errorf("timed window: %w", err), start)
		return
	}

	if timeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()
	}

	idx, err := op(ctx)
	if err == nil {
		e.mu.Lock()
		e.breadcrumb = breadcrumb
		e.mu.Unlock()
	}
	e.finish(r, exchangeID, cmd, networkID, idx, err, start)
}

func (e *Engine) finish(r *replier, exchangeID uint32, cmd CommandID, networkID []byte, idx uint8, err error, start time.Time) {
	resp := Response{Status: StatusOf(err)}
	if err == nil {
		i := idx
		resp.NetworkIndex = &i
	} else {
		resp.DebugText = debugText(err)
	}

	if sendErr := r.reply(resp); sendErr != nil && e.logger != nil {
		e.logger.Warn("command response not delivered", "command", cmd.String(), "exchange_id", exchangeID, "error", sendErr)
	}

	elapsed := time.Since(start)
	e.protoLog.Log(log.Event{
		Timestamp:  time.Now(),
		ExchangeID: exchangeID,
		Direction:  log.DirectionOut,
		Layer:      log.LayerService,
		Category:   log.CategoryCommand,
		LocalRole:  log.RoleDevice,
		Command: &log.CommandEvent{
			CommandID:      uint8(cmd),
			Name:           cmd.String(),
			NetworkID:      networkID,
			Status:         uint8(resp.Status),
			StatusName:     resp.Status.String(),
			NetworkIndex:   resp.NetworkIndex,
			DebugText:      resp.DebugText,
			ProcessingTime: &elapsed,
		},
	})

	if e.logger != nil {
		if err != nil {
			e.logger.Info("command failed", "command", cmd.String(), "exchange_id", exchangeID, "status", resp.Status.String(), "error", err)
		} else {
			e.logger.Debug("command done", "command", cmd.String(), "exchange_id", exchangeID, "index", idx)
		}
	}
}

func debugText(err error) string {
	s := err.Error()
	if len(s) <= MaxDebugTextLength {
		return s
	}
	s = s[:MaxDebugTextLength]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func (e *Engine) selected(next OperationalNotifier) func(context.Context, NetworkID, NetworkType) error {
	return func(ctx context.Context, id NetworkID, t NetworkType) error {
		e.mu.Lock()
		op := NetworkID{id.Bytes()}
		e.operational = &op
		e.mu.Unlock()

		e.protoLog.Log(log.Event{
			Timestamp: time.Now(),
			Layer:     log.LayerService,
			Category:  log.CategoryState,
			LocalRole: log.RoleDevice,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityOperational,
				NewState: t.String() + " " + id.String(),
			},
		})

		if next == nil {
			return nil
		}
		return next.OnOperationalNetworkSelected(ctx, id, t)
	}
}

func (e *Engine) clearOperational(networkID []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.operational != nil && e.operational.Equal(networkID) {
		e.operational = nil
	}
}

func (e *Engine) logChange(c Change) {
	var oldState, newState string
	switch c.Kind {
	case ChangeAdded:
		oldState, newState = "UNDEFINED", "PROVISIONED"
	case ChangeEnabled:
		oldState, newState = "PROVISIONED", "CONNECTED"
	case ChangeDisabled:
		oldState, newState = "CONNECTED", "PROVISIONED"
	case ChangeRemoved:
		newState = "UNDEFINED"
	case ChangeRestored:
		newState = "RESTORED"
	}
	e.protoLog.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerService,
		Category:  log.CategoryState,
		LocalRole: log.RoleDevice,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityProfile,
			OldState: oldState,
			NewState: newState,
			Reason:   fmt.Sprintf("slot %d %s %s", c.Index, c.Type, c.NetworkID),
		},
	})
}
