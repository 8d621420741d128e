// Package commands implements the netcomm-log CLI commands.
package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mash-protocol/netcomm-go/pkg/log"
	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
)

// ViewFilter selects the events shown by the view command.
type ViewFilter struct {
	Layer      *log.Layer
	Direction  *log.Direction
	Category   *log.Category
	ExchangeID uint32
	Command    *uint8
	NetworkID  []byte
}

func (f ViewFilter) toFilter() log.Filter {
	return log.Filter{
		ExchangeID: f.ExchangeID,
		Layer:      f.Layer,
		Direction:  f.Direction,
		Category:   f.Category,
		CommandID:  f.Command,
		NetworkID:  f.NetworkID,
	}
}

// eventLabel names the event's payload.
func eventLabel(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Message != nil:
		return event.Message.Type.String()
	case event.Timed != nil:
		return "Timed " + event.Timed.Action.String()
	case event.Command != nil:
		return event.Command.Name
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s", ts, shortenConnID(event.ConnectionID),
		event.Direction.String(), event.Layer.String(), eventLabel(event))
	if event.ExchangeID != 0 {
		fmt.Fprintf(w, " ex=%d", event.ExchangeID)
	}
	fmt.Fprintln(w)

	switch {
	case event.Frame != nil:
		fmt.Fprintf(w, "  Size: %d bytes\n", event.Frame.Size)
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.Timed != nil:
		formatTimedDetails(w, event.Timed)
	case event.Command != nil:
		formatCommandDetails(w, event.Command)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	fmt.Fprintf(w, "  Payload: %d bytes", msg.PayloadSize)
	if msg.ExpectReply {
		fmt.Fprint(w, ", expects reply")
	}
	fmt.Fprintln(w)
	if msg.CommandID != nil {
		fmt.Fprintf(w, "  Command: 0x%02x\n", *msg.CommandID)
	}
	if msg.Status != nil {
		fmt.Fprintf(w, "  Status: %s (0x%02x)\n", msg.Status.String(), uint8(*msg.Status))
	}
}

func formatTimedDetails(w io.Writer, te *log.TimedEvent) {
	if te.WindowID != "" {
		fmt.Fprintf(w, "  Window: %s\n", te.WindowID)
	}
	if te.TimeoutMs != 0 {
		fmt.Fprintf(w, "  Timeout: %dms\n", te.TimeoutMs)
	}
	if !te.Deadline.IsZero() {
		fmt.Fprintf(w, "  Deadline: %s\n", te.Deadline.UTC().Format("15:04:05.000000"))
	}
	if te.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", te.Reason)
	}
}

func formatCommandDetails(w io.Writer, ce *log.CommandEvent) {
	fmt.Fprintf(w, "  Status: %s (%d)\n", ce.StatusName, ce.Status)
	if len(ce.NetworkID) > 0 {
		fmt.Fprintf(w, "  NetworkID: %s\n", printableID(ce.NetworkID))
	}
	if ce.NetworkIndex != nil {
		fmt.Fprintf(w, "  Index: %d\n", *ce.NetworkIndex)
	}
	if ce.DebugText != "" {
		fmt.Fprintf(w, "  Debug: %s\n", ce.DebugText)
	}
	if ce.ProcessingTime != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*ce.ProcessingTime))
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// printableID renders an SSID as text and an extended PAN ID as hex.
func printableID(id []byte) string {
	for _, c := range id {
		if c < 0x20 || c > 0x7e {
			return "0x" + hex.EncodeToString(id)
		}
	}
	return string(id)
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer name (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "service":
		return log.LayerService, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or service)", s)
	}
}

// ParseDirectionFlag parses a direction name (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "timed":
		return log.CategoryTimed, nil
	case "command":
		return log.CategoryCommand, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, timed, command, state, or error)", s)
	}
}

// ParseCommandFlag accepts a command's short name (add-wifi, add-thread,
// remove, connect), its full name or its numeric id.
func ParseCommandFlag(s string) (uint8, error) {
	switch strings.ToLower(s) {
	case "add-wifi", "addorupdatewifinetwork":
		return uint8(netcommissioning.CmdAddOrUpdateWiFiNetwork), nil
	case "add-thread", "addorupdatethreadnetwork":
		return uint8(netcommissioning.CmdAddOrUpdateThreadNetwork), nil
	case "remove", "removenetwork":
		return uint8(netcommissioning.CmdRemoveNetwork), nil
	case "connect", "connectnetwork":
		return uint8(netcommissioning.CmdConnectNetwork), nil
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid command: %s (must be add-wifi, add-thread, remove, connect or an id)", s)
	}
	return uint8(n), nil
}

// ParseNetworkFlag reads a network id as text, or as hex with a 0x prefix.
func ParseNetworkFlag(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		id, err := hex.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid network id %q: %w", s, err)
		}
		return id, nil
	}
	return []byte(s), nil
}

// RunView prints every matching event.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.toFilter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}
