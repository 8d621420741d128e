// Command netcomm-ctl sends network commissioning commands to a device.
//
// Every command opens a timed window on a fresh exchange, waits for the
// device to accept it and then sends the invoke.
//
// Usage:
//
//	netcomm-ctl [flags] <command> [args]
//
// Commands:
//
//	add-wifi <ssid> [passphrase]   Store a Wi-Fi profile
//	add-thread <hex dataset>       Store a Thread profile
//	connect <network id>           Apply a stored profile
//	remove <network id>            Remove a stored profile
//	browse                         List devices advertising on the network
//
// Examples:
//
//	netcomm-ctl -addr 192.168.1.20:5540 add-wifi home s3cret
//	netcomm-ctl -discover kitchen connect home
//	netcomm-ctl connect 0x0102030405060708
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/mash-protocol/netcomm-go/pkg/config"
	"github.com/mash-protocol/netcomm-go/pkg/discovery"
	"github.com/mash-protocol/netcomm-go/pkg/log"
)

const usage = `netcomm-ctl - Network commissioning controller

Usage:
  netcomm-ctl [flags] <command> [args]

Commands:
  add-wifi <ssid> [passphrase]   Store a Wi-Fi profile
  add-thread <hex dataset>       Store a Thread profile
  connect <network id>           Apply a stored profile
  remove <network id>            Remove a stored profile
  browse                         List devices advertising on the network

Network ids are SSIDs, or hex with a 0x prefix.

Flags:
`

// Options holds the parsed global flags.
type Options struct {
	Addr        string
	Discover    string
	TimeoutMs   uint
	CmdTimeout  time.Duration
	Breadcrumb  uint64
	LogLevel    string
	ProtocolLog string
}

func main() {
	var opts Options
	fs := flag.NewFlagSet("netcomm-ctl", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.Addr, "addr", "127.0.0.1:5540", "Device address (host:port)")
	fs.StringVar(&opts.Discover, "discover", "", "Find the device with this id via mDNS instead of -addr")
	fs.UintVar(&opts.TimeoutMs, "timeout-ms", 5000, "Timed window length in milliseconds")
	fs.DurationVar(&opts.CmdTimeout, "timeout", 30*time.Second, "Overall command timeout")
	fs.Uint64Var(&opts.Breadcrumb, "breadcrumb", 0, "Breadcrumb to record on success")
	fs.StringVar(&opts.LogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	fs.StringVar(&opts.ProtocolLog, "protocol-log", "", "Write CBOR protocol events to this file")
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	if opts.TimeoutMs == 0 || opts.TimeoutMs > 0xffff {
		fmt.Fprintf(os.Stderr, "Error: -timeout-ms must be between 1 and 65535\n")
		os.Exit(1)
	}

	level, err := config.ParseLevel(opts.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: log.NewRedactor().ReplaceAttr,
	}))

	var protoLog log.Logger
	if opts.ProtocolLog != "" {
		fl, err := log.NewFileLogger(opts.ProtocolLog, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer fl.Close()
		protoLog = fl
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.CmdTimeout)
	defer cancel()

	cmd, args := fs.Arg(0), fs.Args()[1:]
	if cmd == "browse" {
		err = runBrowse(ctx, os.Stdout)
	} else {
		err = run(ctx, opts, cmd, args, os.Stdout, logger, protoLog)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// resolveAddr returns -addr, or the address of the device named by
// -discover.
func resolveAddr(ctx context.Context, opts Options, logger *slog.Logger) (string, error) {
	if opts.Discover == "" {
		return opts.Addr, nil
	}
	svc, err := discovery.NewBrowser(discovery.DefaultBrowserConfig()).Find(ctx, opts.Discover)
	if err != nil {
		return "", fmt.Errorf("discover %s: %w", opts.Discover, err)
	}
	if len(svc.Addresses) == 0 {
		return "", fmt.Errorf("discover %s: no addresses", opts.Discover)
	}
	logger.Info("discovered device",
		"device_id", svc.DeviceID,
		"host", svc.Host,
		"network_type", svc.NetworkType)
	return net.JoinHostPort(svc.Addresses[0], strconv.Itoa(int(svc.Port))), nil
}
