package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mash-protocol/netcomm-go/pkg/discovery"
	"github.com/mash-protocol/netcomm-go/pkg/log"
	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
	"github.com/mash-protocol/netcomm-go/pkg/service"
)

var errUsage = errors.New("usage")

// run executes one commissioning command against the device.
func run(ctx context.Context, opts Options, cmd string, args []string, out io.Writer, logger *slog.Logger, protoLog log.Logger) error {
	invoke, err := buildInvoke(cmd, args, opts.Breadcrumb)
	if err != nil {
		return err
	}

	addr, err := resolveAddr(ctx, opts, logger)
	if err != nil {
		return err
	}
	ctrl, err := service.DialController(ctx, addr, service.ControllerConfig{
		Logger:         logger,
		ProtocolLogger: protoLog,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	resp, err := invoke(ctx, ctrl, uint16(opts.TimeoutMs))
	printResponse(out, cmd, resp, err)

	var se *netcommissioning.StatusError
	if errors.As(err, &se) {
		return fmt.Errorf("%s failed: %s", cmd, se.Response.Status)
	}
	return err
}

type invokeFunc func(context.Context, *service.Controller, uint16) (netcommissioning.Response, error)

// buildInvoke validates the arguments before anything is dialed.
func buildInvoke(cmd string, args []string, breadcrumb uint64) (invokeFunc, error) {
	switch cmd {
	case "add-wifi":
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("%w: add-wifi <ssid> [passphrase]", errUsage)
		}
		req := netcommissioning.AddOrUpdateWiFiNetworkRequest{SSID: []byte(args[0]), Breadcrumb: breadcrumb}
		if len(args) == 2 {
			req.Credentials = []byte(args[1])
		}
		return func(ctx context.Context, c *service.Controller, ms uint16) (netcommissioning.Response, error) {
			return c.AddOrUpdateWiFiNetwork(ctx, ms, req)
		}, nil

	case "add-thread":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: add-thread <hex dataset>", errUsage)
		}
		dataset, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid hex dataset: %w", err)
		}
		req := netcommissioning.AddOrUpdateThreadNetworkRequest{OperationalDataset: dataset, Breadcrumb: breadcrumb}
		return func(ctx context.Context, c *service.Controller, ms uint16) (netcommissioning.Response, error) {
			return c.AddOrUpdateThreadNetwork(ctx, ms, req)
		}, nil

	case "connect", "remove":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s <network id>", errUsage, cmd)
		}
		id, err := parseNetworkID(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid network id: %w", err)
		}
		if cmd == "connect" {
			req := netcommissioning.ConnectNetworkRequest{NetworkID: id, Breadcrumb: breadcrumb}
			return func(ctx context.Context, c *service.Controller, ms uint16) (netcommissioning.Response, error) {
				return c.ConnectNetwork(ctx, ms, req)
			}, nil
		}
		req := netcommissioning.RemoveNetworkRequest{NetworkID: id, Breadcrumb: breadcrumb}
		return func(ctx context.Context, c *service.Controller, ms uint16) (netcommissioning.Response, error) {
			return c.RemoveNetwork(ctx, ms, req)
		}, nil

	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func printResponse(out io.Writer, cmd string, resp netcommissioning.Response, err error) {
	var se *netcommissioning.StatusError
	var wse *service.WireStatusError
	switch {
	case err == nil, errors.As(err, &se):
		fmt.Fprintf(out, "%s: %s", cmd, resp.Status)
		if resp.NetworkIndex != nil {
			fmt.Fprintf(out, " (index %d)", *resp.NetworkIndex)
		}
		if resp.DebugText != "" {
			fmt.Fprintf(out, " - %s", resp.DebugText)
		}
		fmt.Fprintln(out)
	case errors.As(err, &wse):
		fmt.Fprintf(out, "%s: refused with %s\n", cmd, wse.Status)
	}
}

// runBrowse lists advertising devices until ctx ends.
func runBrowse(ctx context.Context, out io.Writer) error {
	services, err := discovery.NewBrowser(discovery.DefaultBrowserConfig()).Browse(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%-20s %-9s %-24s %s\n", "DEVICE", "NETWORK", "NETWORK ID", "ADDRESSES")
	for svc := range services {
		fmt.Fprintf(out, "%-20s %-9s %-24s %s\n",
			svc.DeviceID, svc.NetworkType, svc.NetworkID, strings.Join(svc.Addresses, ","))
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil
	}
	return ctx.Err()
}

// parseNetworkID accepts an SSID or 0x-prefixed hex.
func parseNetworkID(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		return hex.DecodeString(rest)
	}
	return []byte(s), nil
}
