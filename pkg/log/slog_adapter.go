package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.ExchangeID != 0 {
		attrs = append(attrs, slog.Uint64("exchange_id", uint64(event.ExchangeID)))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs, slog.Int("frame_size", event.Frame.Size))
	case event.Message != nil:
		attrs = append(attrs,
			slog.String("msg_type", event.Message.Type.String()),
			slog.Int("payload_size", event.Message.PayloadSize),
		)
		if event.Message.ExpectReply {
			attrs = append(attrs, slog.Bool("expect_reply", true))
		}
		if event.Message.Status != nil {
			attrs = append(attrs, slog.String("status", event.Message.Status.String()))
		}
		if event.Message.CommandID != nil {
			attrs = append(attrs, slog.Uint64("command_id", uint64(*event.Message.CommandID)))
		}
	case event.Timed != nil:
		attrs = append(attrs, slog.String("action", event.Timed.Action.String()))
		if event.Timed.WindowID != "" {
			attrs = append(attrs, slog.String("window_id", event.Timed.WindowID))
		}
		if event.Timed.TimeoutMs != 0 {
			attrs = append(attrs, slog.Uint64("timeout_ms", uint64(event.Timed.TimeoutMs)))
		}
		if !event.Timed.Deadline.IsZero() {
			attrs = append(attrs, slog.Time("deadline", event.Timed.Deadline))
		}
		if event.Timed.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Timed.Reason))
		}
	case event.Command != nil:
		attrs = append(attrs,
			slog.String("command", event.Command.Name),
			slog.String("status", event.Command.StatusName),
		)
		if len(event.Command.NetworkID) > 0 {
			attrs = append(attrs, slog.String("network_id", string(event.Command.NetworkID)))
		}
		if event.Command.NetworkIndex != nil {
			attrs = append(attrs, slog.Uint64("network_index", uint64(*event.Command.NetworkIndex)))
		}
		if event.Command.DebugText != "" {
			attrs = append(attrs, slog.String("debug_text", event.Command.DebugText))
		}
		if event.Command.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *event.Command.ProcessingTime))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
