package netcommissioning

import (
	"errors"
	"fmt"
)

// Engine errors. StatusOf maps them to a NetworkingStatus.
var (
	// ErrOutOfRange is returned when a value exceeds its maximum length.
	ErrOutOfRange = errors.New("value exceeds maximum length")

	// ErrBoundsExceeded is returned when no empty slot is left.
	ErrBoundsExceeded = errors.New("network table full")

	// ErrNetworkIDNotFound is returned when no profile matches a network id.
	ErrNetworkIDNotFound = errors.New("network id not found")

	// ErrInvalidDataset is returned when a Thread operational dataset cannot be parsed.
	ErrInvalidDataset = errors.New("invalid operational dataset")

	// ErrUnsupportedNetworkType is returned for network types disabled in the FeatureSet.
	ErrUnsupportedNetworkType = errors.New("network type not supported")

	// ErrNotImplemented is returned when connecting a profile type that has no handler.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNotSupported is returned when the platform lacks a capability.
	ErrNotSupported = errors.New("platform capability not supported")

	// ErrProfileChanged is returned when a profile was removed while being connected.
	ErrProfileChanged = errors.New("profile changed during connect")

	// ErrUnknownCommand is returned for command ids the engine does not handle.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrDebugTextTooLong is returned when a response's debug text exceeds MaxDebugTextLength.
	ErrDebugTextTooLong = errors.New("debug text too long")

	// ErrInvalidRecord is returned by Restore for a malformed slot record.
	ErrInvalidRecord = errors.New("invalid slot record")

	// ErrAlreadyResponded is returned when a sink is answered twice.
	ErrAlreadyResponded = errors.New("response already sent")
)

// PlatformError wraps a failure reported by a platform network capability.
type PlatformError struct {
	// Op is the capability call that failed, e.g. "set_thread_provision".
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// StatusError carries a non-success command response to a continuation's
// failure path.
type StatusError struct {
	Response Response
}

func (e *StatusError) Error() string {
	if e.Response.DebugText != "" {
		return fmt.Sprintf("networking status %s: %s", e.Response.Status, e.Response.DebugText)
	}
	return fmt.Sprintf("networking status %s", e.Response.Status)
}
