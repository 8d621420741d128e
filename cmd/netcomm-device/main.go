// Command netcomm-device runs a network commissioning device on a simulated
// Wi-Fi/Thread radio.
//
// Usage:
//
//	netcomm-device [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-listen string      Listen address, overrides device.listen
//	-max-networks int   Profile table capacity, overrides commissioning.max_networks
//	-log-level string   Log level: debug, info, warn, error
//	-protocol-log path  Write CBOR protocol events to path
//	-ap ssid=pass       Put a simulated access point in range (repeatable)
//	-interactive        Start the interactive shell
//
// Examples:
//
//	# Start with defaults on :5540
//	netcomm-device -interactive
//
//	# Persist profiles sealed with a secret from the environment
//	NETCOMM_SEAL_SECRET=0123456789abcdef netcomm-device -config /etc/netcomm/device.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mash-protocol/netcomm-go/pkg/config"
	"github.com/mash-protocol/netcomm-go/pkg/platform/sim"
)

// accessPoints collects -ap flags.
type accessPoints []string

func (a *accessPoints) String() string { return strings.Join(*a, ",") }

func (a *accessPoints) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected ssid=passphrase, got %q", v)
	}
	*a = append(*a, v)
	return nil
}

func (a accessPoints) options() []sim.Option {
	opts := make([]sim.Option, 0, len(a))
	for _, v := range a {
		ssid, pass, _ := strings.Cut(v, "=")
		opts = append(opts, sim.WithAccessPoint(ssid, []byte(pass)))
	}
	return opts
}

// Flags holds command-line overrides.
type Flags struct {
	ConfigFile  string
	Listen      string
	MaxNetworks int
	LogLevel    string
	ProtocolLog string
	APs         accessPoints
	Interactive bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&flags.Listen, "listen", "", "Listen address (overrides device.listen)")
	flag.IntVar(&flags.MaxNetworks, "max-networks", 0, "Profile table capacity (overrides commissioning.max_networks)")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "Write CBOR protocol events to this file")
	flag.Var(&flags.APs, "ap", "Simulated access point as ssid=passphrase (repeatable)")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Start the interactive shell")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var shell *Shell
	if flags.Interactive {
		shell, err = NewShell()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start shell: %v\n", err)
			os.Exit(1)
		}
	}

	logs, err := setupLogging(cfg.Logging, shell)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logs.Close()

	logger := logs.Logger
	logger.Info("starting netcomm device",
		"device_id", cfg.Device.ID,
		"listen", cfg.Device.Listen,
		"max_networks", cfg.Commissioning.MaxNetworks,
		"features", cfg.Commissioning.Features)

	radio := sim.New(append(flags.APs.options(), sim.WithLogger(logger))...)
	dev, err := NewDevice(cfg, radio, logger, logs.Protocol)
	if err != nil {
		logger.Error("failed to create device", "error", err)
		os.Exit(1)
	}
	defer dev.Close()

	if err := dev.Start(ctx); err != nil {
		logger.Error("failed to start device", "error", err)
		os.Exit(1)
	}
	logger.Info("device service started", "addr", dev.Service.Addr().String())

	if shell != nil {
		go shell.Run(ctx, cancel, dev)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := dev.Stop(); err != nil {
		logger.Warn("error stopping device", "error", err)
	}
}

// loadConfig reads the configuration file, if any, and applies flag
// overrides.
func loadConfig(f Flags) (*config.Config, error) {
	cfg := config.Default()
	if f.ConfigFile != "" {
		loaded, err := config.Load(f.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if f.Listen != "" {
		cfg.Device.Listen = f.Listen
	}
	if f.MaxNetworks != 0 {
		cfg.Commissioning.MaxNetworks = f.MaxNetworks
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	if f.ProtocolLog != "" {
		cfg.Logging.ProtocolLog = f.ProtocolLog
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
