package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
)

// Shell is the interactive operator console.
type Shell struct {
	rl  *readline.Instance
	out io.Writer
}

// NewShell creates a readline-backed shell.
func NewShell() (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "netcomm> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{rl: rl, out: rl.Stdout()}, nil
}

// Stderr returns a writer that does not garble the prompt.
func (s *Shell) Stderr() io.Writer {
	return s.rl.Stderr()
}

// Run reads commands until quit, EOF or ctx ends.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc, dev *Device) {
	defer s.rl.Close()

	s.printHelp()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
		if s.Execute(ctx, dev, line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the shell should exit.
func (s *Shell) Execute(ctx context.Context, dev *Device, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "list", "ls":
		s.cmdList(dev)
	case "add-wifi":
		s.cmdAddWiFi(dev, args)
	case "add-thread":
		s.cmdAddThread(dev, args)
	case "connect":
		s.cmdConnect(ctx, dev, args)
	case "remove", "rm":
		s.cmdRemove(dev, args)
	case "disable":
		s.cmdDisable(dev, args)
	case "status":
		s.cmdStatus(dev)
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Network Commissioning Commands:
  Profiles:
    list                     - List stored network profiles
    add-wifi <ssid> [pass]   - Store a Wi-Fi profile
    add-thread <hex>         - Store a Thread operational dataset
    connect <id>             - Apply a profile to the radio
    remove <id>              - Remove a profile
    disable <id>             - Clear a profile's enabled flag

  Device:
    status                   - Show service, radio and operational network

  Other:
    help                     - Show this help
    quit                     - Exit

  Network ids are SSIDs, or hex with a 0x prefix (Thread extended PAN ID).`)
}

func (s *Shell) cmdList(dev *Device) {
	profiles := dev.Service.Engine().Store().Profiles()
	if len(profiles) == 0 {
		fmt.Fprintln(s.out, "No networks stored")
		return
	}
	fmt.Fprintf(s.out, "%-5s %-9s %-11s %s\n", "INDEX", "TYPE", "STATE", "NETWORK ID")
	for _, p := range profiles {
		fmt.Fprintf(s.out, "%-5d %-9s %-11s %s\n", p.Index, p.Type, p.State(), displayID(p))
	}
}

func (s *Shell) cmdAddWiFi(dev *Device, args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(s.out, "Usage: add-wifi <ssid> [passphrase]")
		return
	}
	var pass []byte
	if len(args) == 2 {
		pass = []byte(args[1])
	}
	idx, err := dev.Service.Engine().Store().AddOrUpdateWiFi([]byte(args[0]), pass)
	s.report("added", idx, err)
}

func (s *Shell) cmdAddThread(dev *Device, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: add-thread <hex dataset>")
		return
	}
	dataset, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
	if err != nil {
		fmt.Fprintf(s.out, "Invalid hex dataset: %v\n", err)
		return
	}
	idx, err := dev.Service.Engine().Store().AddOrUpdateThread(dataset)
	s.report("added", idx, err)
}

func (s *Shell) cmdConnect(ctx context.Context, dev *Device, args []string) {
	id, ok := s.networkArg("connect", args)
	if !ok {
		return
	}
	idx, err := dev.Service.Engine().Connect(ctx, id)
	s.report("connected", idx, err)
}

func (s *Shell) cmdRemove(dev *Device, args []string) {
	id, ok := s.networkArg("remove", args)
	if !ok {
		return
	}
	idx, err := dev.Service.Engine().Remove(id)
	s.report("removed", idx, err)
}

func (s *Shell) cmdDisable(dev *Device, args []string) {
	id, ok := s.networkArg("disable", args)
	if !ok {
		return
	}
	if err := dev.Service.Engine().Disable(id); err != nil {
		fmt.Fprintf(s.out, "Error: %v (%s)\n", err, netcommissioning.StatusOf(err))
		return
	}
	fmt.Fprintln(s.out, "Disabled")
}

func (s *Shell) cmdStatus(dev *Device) {
	engine := dev.Service.Engine()
	store := engine.Store()
	fmt.Fprintf(s.out, "Service:     %s\n", dev.Service.State())
	if addr := dev.Service.Addr(); addr != nil {
		fmt.Fprintf(s.out, "Listening:   %s\n", addr)
	}
	fmt.Fprintf(s.out, "Controllers: %d\n", dev.Service.SessionCount())
	fmt.Fprintf(s.out, "Networks:    %d/%d (%s)\n", store.Len(), store.Capacity(), store.Features())
	fmt.Fprintf(s.out, "Breadcrumb:  %d\n", engine.Breadcrumb())
	if id, ok := engine.OperationalNetwork(); ok {
		fmt.Fprintf(s.out, "Operational: %s\n", id)
	} else {
		fmt.Fprintln(s.out, "Operational: none")
	}
	if dev.Radio != nil {
		fmt.Fprintf(s.out, "Wi-Fi SSID:  %q\n", dev.Radio.SSID())
		fmt.Fprintf(s.out, "Thread:      enabled=%v\n", dev.Radio.ThreadEnabled())
	}
	if dev.Syncer != nil {
		if err := dev.Syncer.Err(); err != nil {
			fmt.Fprintf(s.out, "Persistence: last save failed: %v\n", err)
		} else {
			fmt.Fprintln(s.out, "Persistence: ok")
		}
	}
}

func (s *Shell) networkArg(cmd string, args []string) ([]byte, bool) {
	if len(args) != 1 {
		fmt.Fprintf(s.out, "Usage: %s <network id>\n", cmd)
		return nil, false
	}
	id, err := parseNetworkID(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid network id: %v\n", err)
		return nil, false
	}
	return id, true
}

func (s *Shell) report(verb string, idx uint8, err error) {
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v (%s)\n", err, netcommissioning.StatusOf(err))
		return
	}
	fmt.Fprintf(s.out, "Network %s at index %d\n", verb, idx)
}

// parseNetworkID accepts an SSID or 0x-prefixed hex.
func parseNetworkID(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		return hex.DecodeString(rest)
	}
	return []byte(s), nil
}

func displayID(p netcommissioning.ProfileInfo) string {
	if p.Type == netcommissioning.NetworkTypeWiFi {
		return fmt.Sprintf("%q", p.NetworkID.Bytes())
	}
	return "0x" + hex.EncodeToString(p.NetworkID.Bytes())
}
