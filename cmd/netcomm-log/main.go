// Command netcomm-log views and analyzes protocol capture files written by
// netcomm-device and netcomm-ctl with -protocol-log.
//
// Usage:
//
//	netcomm-log <command> [flags] <file>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON lines or CSV
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# Follow one exchange through every layer
//	netcomm-log view -exchange 7 device.nlog
//
//	# Every outcome of ConnectNetwork for one SSID
//	netcomm-log view -command connect -network home device.nlog
//
//	# Only timed window events
//	netcomm-log view -category timed device.nlog
//
//	# Export to CSV
//	netcomm-log export -format csv -o device.csv device.nlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mash-protocol/netcomm-go/cmd/netcomm-log/commands"
)

const usage = `netcomm-log - Network Commissioning Protocol Log Analyzer

Usage:
  netcomm-log <command> [flags] <file>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON lines or CSV
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "netcomm-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// pathArg parses fs and returns its single positional argument.
func pathArg(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func newFlagSet(name, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "netcomm-log %s - %s\n\nUsage:\n  netcomm-log %s [flags] <file>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}
	return fs
}

func runView(args []string) {
	fs := newFlagSet("view", "View log file in human-readable format")
	layer := fs.String("layer", "", "Filter by layer (transport, wire, service)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, timed, command, state, error)")
	exchange := fs.Uint("exchange", 0, "Filter by exchange ID")
	command := fs.String("command", "", "Filter by command (add-wifi, add-thread, remove, connect)")
	network := fs.String("network", "", "Filter command results by network ID (0x prefix for hex)")
	path := pathArg(fs, args)

	filter := commands.ViewFilter{ExchangeID: uint32(*exchange)}
	if *command != "" {
		c, err := commands.ParseCommandFlag(*command)
		if err != nil {
			fail(err)
		}
		filter.Command = &c
	}
	if *network != "" {
		id, err := commands.ParseNetworkFlag(*network)
		if err != nil {
			fail(err)
		}
		filter.NetworkID = id
	}
	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			fail(err)
		}
		filter.Layer = &l
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fail(err)
		}
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fail(err)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export log file to JSON lines or CSV")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path := pathArg(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter log file and write to new file")
	output := fs.String("o", "", "Output file (required)")
	connID := fs.String("conn-id", "", "Filter by connection ID")
	exchange := fs.Uint("exchange", 0, "Filter by exchange ID")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	layer := fs.String("layer", "", "Filter by layer (transport, wire, service)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, timed, command, state, error)")
	command := fs.String("command", "", "Filter by command (add-wifi, add-thread, remove, connect)")
	network := fs.String("network", "", "Filter command results by network ID (0x prefix for hex)")
	path := pathArg(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, commands.FilterOptions{
		Output:     *output,
		ConnID:     *connID,
		ExchangeID: uint32(*exchange),
		TimeStart:  *timeStart,
		TimeEnd:    *timeEnd,
		Layer:      *layer,
		Direction:  *direction,
		Category:   *category,
		Command:    *command,
		Network:    *network,
	})
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the log file")
	path := pathArg(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
