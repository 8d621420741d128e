package log

import (
	"time"

	"github.com/mash-protocol/netcomm-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint,omitempty"`

	// ExchangeID identifies the request/response pairing (0 if not applicable).
	ExchangeID uint32 `cbor:"3,keyasint,omitempty"`

	// Direction indicates message flow.
	Direction Direction `cbor:"4,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"5,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"6,keyasint"`

	// LocalRole indicates whether this is a device or controller.
	LocalRole Role `cbor:"7,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	Timed       *TimedEvent       `cbor:"12,keyasint,omitempty"`
	Command     *CommandEvent     `cbor:"13,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"14,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"15,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the message encoding layer (decoded CBOR).
	LayerWire Layer = 1
	// LayerService is the commissioning engine layer.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a frame or envelope.
	CategoryMessage Category = 0
	// CategoryTimed indicates a timed window lifecycle event.
	CategoryTimed Category = 1
	// CategoryCommand indicates a commissioning command result.
	CategoryCommand Category = 2
	// CategoryState indicates a state change.
	CategoryState Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryTimed:
		return "TIMED"
	case CategoryCommand:
		return "COMMAND"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role indicates whether the local endpoint is a device or controller.
type Role uint8

const (
	// RoleDevice indicates this is a device.
	RoleDevice Role = 0
	// RoleController indicates this is a controller.
	RoleController Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleDevice:
		return "DEVICE"
	case RoleController:
		return "CONTROLLER"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures a frame at the transport layer. Frame bytes are not
// recorded since invoke payloads carry credentials.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`
}

// MessageEvent captures a decoded envelope at the wire layer.
// Payload bytes are not recorded since invokes carry credentials.
type MessageEvent struct {
	Type        wire.MessageType `cbor:"1,keyasint"`
	ExpectReply bool             `cbor:"2,keyasint,omitempty"`
	PayloadSize int              `cbor:"3,keyasint,omitempty"`

	// For StatusResponse: the decoded status.
	Status *wire.Status `cbor:"4,keyasint,omitempty"`

	// For InvokeRequest/InvokeResponse: the command ID.
	CommandID *uint8 `cbor:"5,keyasint,omitempty"`
}

// TimedAction is a step in the timed interaction lifecycle.
type TimedAction uint8

const (
	// TimedOpened: a TimedRequest was sent and a window recorded.
	TimedOpened TimedAction = 0
	// TimedAcknowledged: the peer answered the TimedRequest with success.
	TimedAcknowledged TimedAction = 1
	// TimedAccepted: a TimedRequest was received and a window recorded.
	TimedAccepted TimedAction = 2
	// TimedConsumed: an invoke consumed the window before its deadline.
	TimedConsumed TimedAction = 3
	// TimedExpired: the window deadline elapsed.
	TimedExpired TimedAction = 4
	// TimedAborted: the window was discarded with the exchange.
	TimedAborted TimedAction = 5
	// TimedRejected: the acknowledgement was missing or not successful.
	TimedRejected TimedAction = 6
)

// String returns the action name.
func (a TimedAction) String() string {
	switch a {
	case TimedOpened:
		return "OPENED"
	case TimedAcknowledged:
		return "ACKNOWLEDGED"
	case TimedAccepted:
		return "ACCEPTED"
	case TimedConsumed:
		return "CONSUMED"
	case TimedExpired:
		return "EXPIRED"
	case TimedAborted:
		return "ABORTED"
	case TimedRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// TimedEvent captures a timed window transition.
type TimedEvent struct {
	Action    TimedAction `cbor:"1,keyasint"`
	WindowID  string      `cbor:"2,keyasint,omitempty"`
	TimeoutMs uint16      `cbor:"3,keyasint,omitempty"`
	Deadline  time.Time   `cbor:"4,keyasint,omitempty"`
	Reason    string      `cbor:"5,keyasint,omitempty"`
}

// CommandEvent captures the outcome of one commissioning command.
// NetworkID is the SSID or extended PAN ID; it is an identifier, not a secret.
type CommandEvent struct {
	CommandID      uint8          `cbor:"1,keyasint"`
	Name           string         `cbor:"2,keyasint"`
	NetworkID      []byte         `cbor:"3,keyasint,omitempty"`
	Status         uint8          `cbor:"4,keyasint"`
	StatusName     string         `cbor:"5,keyasint,omitempty"`
	NetworkIndex   *uint8         `cbor:"6,keyasint,omitempty"`
	DebugText      string         `cbor:"7,keyasint,omitempty"`
	ProcessingTime *time.Duration `cbor:"8,keyasint,omitempty"`
}

// StateChangeEvent captures connection, window and profile lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntityProfile indicates a network profile state change.
	StateEntityProfile StateEntity = 1
	// StateEntityOperational indicates the operational network changed.
	StateEntityOperational StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityProfile:
		return "PROFILE"
	case StateEntityOperational:
		return "OPERATIONAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the error code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
