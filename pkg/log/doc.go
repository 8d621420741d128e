// Package log provides structured protocol logging for network commissioning.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, wire, service). It is
// separate from operational logging (slog): protocol capture gives a
// machine-readable trace of every timed window and commissioning command.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write CBOR events to a rotating file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/netcomm/device.clog", nil)
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(consoleLogger, fileLogger)
//
// # Event Types
//
//   - Transport: raw frames (FrameEvent)
//   - Wire: decoded envelopes (MessageEvent)
//   - Service: timed window lifecycle (TimedEvent), command results
//     (CommandEvent), profile and connection state (StateChangeEvent)
//
// Events never carry Wi-Fi credentials or Thread datasets. Operational slog
// output can additionally be filtered through a Redactor.
package log
