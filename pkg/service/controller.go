package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mash-protocol/netcomm-go/pkg/correlation"
	"github.com/mash-protocol/netcomm-go/pkg/log"
	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
	"github.com/mash-protocol/netcomm-go/pkg/timed"
	"github.com/mash-protocol/netcomm-go/pkg/transport"
	"github.com/mash-protocol/netcomm-go/pkg/wire"
)

// WireStatusError reports a request the device refused before running it.
type WireStatusError struct {
	Status wire.Status
}

func (e *WireStatusError) Error() string {
	return fmt.Sprintf("device answered %s", e.Status)
}

// Controller sends commissioning commands to one device.
type Controller struct {
	conn    *transport.Conn
	guard   *timed.Guard
	pending *correlation.Table[netcommissioning.Continuation]

	clock  func() time.Time
	logger *slog.Logger
}

// DialController connects to the device at address.
func DialController(ctx context.Context, address string, config ControllerConfig) (*Controller, error) {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	conn, err := transport.Dial(ctx, address, connConfig(log.RoleController, config.Logger, config.ProtocolLogger))
	if err != nil {
		return nil, err
	}
	c := &Controller{
		conn:    conn,
		pending: correlation.NewTable[netcommissioning.Continuation](),
		clock:   config.Clock,
		logger:  config.Logger,
	}
	c.guard = timed.NewGuard(timed.Config{
		Exchanger:      conn,
		Clock:          config.Clock,
		ConnectionID:   conn.ID(),
		Role:           log.RoleController,
		Logger:         config.Logger,
		ProtocolLogger: config.ProtocolLogger,
	})
	return c, nil
}

// Close closes the connection.
func (c *Controller) Close() error {
	c.guard.AbortAll()
	c.pending.CancelPeer(c.conn.PeerID())
	return c.conn.Close()
}

// Done is closed when the connection ends.
func (c *Controller) Done() <-chan struct{} {
	return c.conn.Done()
}

// InvokeTimed opens a timed window of timeoutMs, waits for the device to
// accept it and sends the command on the same exchange. A non-success
// networking status is returned as *netcommissioning.StatusError together
// with the response; a refused request as *WireStatusError.
func (c *Controller) InvokeTimed(ctx context.Context, cmd netcommissioning.CommandID, timeoutMs uint16, fields any) (netcommissioning.Response, error) {
	ex := c.conn.NextExchangeID()
	if _, err := c.guard.OpenWindow(ctx, ex, timeoutMs); err != nil {
		return netcommissioning.Response{}, err
	}
	if err := c.guard.AwaitAck(ctx, ex); err != nil {
		var sce *timed.StatusCodeError
		if errors.As(err, &sce) {
			return netcommissioning.Response{}, &WireStatusError{Status: sce.Status}
		}
		return netcommissioning.Response{}, err
	}
	if err := c.guard.CheckWindow(ex, c.clock()); err != nil {
		if errors.Is(err, timed.ErrExpired) {
			return netcommissioning.Response{}, fmt.Errorf("%w: %w", ErrWindowExpired, err)
		}
		return netcommissioning.Response{}, err
	}
	return c.invoke(ctx, ex, cmd, true, fields)
}

// Invoke sends a command without a timed window. Every commissioning
// command is sensitive, so a conforming device refuses it with
// NEEDS_TIMED_INTERACTION.
func (c *Controller) Invoke(ctx context.Context, cmd netcommissioning.CommandID, fields any) (netcommissioning.Response, error) {
	return c.invoke(ctx, c.conn.NextExchangeID(), cmd, false, fields)
}

func (c *Controller) invoke(ctx context.Context, ex uint32, cmd netcommissioning.CommandID, timedFlag bool, fields any) (netcommissioning.Response, error) {
	payload, err := wire.EncodeInvokeRequest(uint8(cmd), timedFlag, fields)
	if err != nil {
		return netcommissioning.Response{}, err
	}

	type outcome struct {
		resp netcommissioning.Response
		err  error
	}
	done := make(chan outcome, 1)
	peer := c.conn.PeerID()
	if err := c.pending.Register(peer, ex, netcommissioning.Continuation{
		OnSuccess: func(r netcommissioning.Response) { done <- outcome{resp: r} },
		OnFailure: func(err error) {
			var se *netcommissioning.StatusError
			if errors.As(err, &se) {
				done <- outcome{resp: se.Response, err: err}
				return
			}
			done <- outcome{err: err}
		},
	}); err != nil {
		return netcommissioning.Response{}, err
	}
	defer c.pending.Cancel(peer, ex)

	if err := c.conn.Send(ctx, ex, wire.MsgInvokeRequest, payload, true); err != nil {
		return netcommissioning.Response{}, err
	}
	msgType, data, err := c.conn.Receive(ctx, ex)
	if err != nil {
		return netcommissioning.Response{}, err
	}

	switch msgType {
	case wire.MsgStatusResponse:
		sr, err := wire.DecodeStatusResponse(data)
		if err != nil {
			return netcommissioning.Response{}, err
		}
		return netcommissioning.Response{}, &WireStatusError{Status: sr.Status}
	case wire.MsgInvokeResponse:
	default:
		return netcommissioning.Response{}, fmt.Errorf("%w: %s", ErrUnexpectedType, msgType)
	}

	ir, err := wire.DecodeInvokeResponse(data)
	if err != nil {
		return netcommissioning.Response{}, err
	}
	if netcommissioning.CommandID(ir.CommandID) != cmd {
		return netcommissioning.Response{}, fmt.Errorf("%w: response for command %d", ErrUnexpectedType, ir.CommandID)
	}
	resp, err := netcommissioning.DecodeResponse(ir.Result)
	if err != nil {
		return netcommissioning.Response{}, fmt.Errorf("decode response: %w", err)
	}
	if err := netcommissioning.CorrelatedSink(c.pending, peer, ex).Respond(resp); err != nil {
		return netcommissioning.Response{}, err
	}

	out := <-done
	if c.logger != nil {
		c.logger.Debug("command completed",
			"conn_id", c.conn.ID(),
			"exchange_id", ex,
			"command", cmd.String(),
			"status", out.resp.Status.String())
	}
	return out.resp, out.err
}

// AddOrUpdateWiFiNetwork adds or updates a Wi-Fi profile.
func (c *Controller) AddOrUpdateWiFiNetwork(ctx context.Context, timeoutMs uint16, req netcommissioning.AddOrUpdateWiFiNetworkRequest) (netcommissioning.Response, error) {
	return c.InvokeTimed(ctx, netcommissioning.CmdAddOrUpdateWiFiNetwork, timeoutMs, req)
}

// AddOrUpdateThreadNetwork adds or updates a Thread profile.
func (c *Controller) AddOrUpdateThreadNetwork(ctx context.Context, timeoutMs uint16, req netcommissioning.AddOrUpdateThreadNetworkRequest) (netcommissioning.Response, error) {
	return c.InvokeTimed(ctx, netcommissioning.CmdAddOrUpdateThreadNetwork, timeoutMs, req)
}

// RemoveNetwork removes a profile.
func (c *Controller) RemoveNetwork(ctx context.Context, timeoutMs uint16, req netcommissioning.RemoveNetworkRequest) (netcommissioning.Response, error) {
	return c.InvokeTimed(ctx, netcommissioning.CmdRemoveNetwork, timeoutMs, req)
}

// ConnectNetwork asks the device to join a stored profile.
func (c *Controller) ConnectNetwork(ctx context.Context, timeoutMs uint16, req netcommissioning.ConnectNetworkRequest) (netcommissioning.Response, error) {
	return c.InvokeTimed(ctx, netcommissioning.CmdConnectNetwork, timeoutMs, req)
}
