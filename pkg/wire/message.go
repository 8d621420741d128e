package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// MessageType identifies the payload carried by an envelope.
type MessageType uint8

const (
	// MsgStatusResponse is a generic status reply.
	MsgStatusResponse MessageType = 0x01

	// MsgInvokeRequest runs a command.
	MsgInvokeRequest MessageType = 0x08

	// MsgInvokeResponse carries a command result.
	MsgInvokeResponse MessageType = 0x09

	// MsgTimedRequest announces the timeout for the next invoke.
	MsgTimedRequest MessageType = 0x0A
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MsgStatusResponse:
		return "StatusResponse"
	case MsgInvokeRequest:
		return "InvokeRequest"
	case MsgInvokeResponse:
		return "InvokeResponse"
	case MsgTimedRequest:
		return "TimedRequest"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the message type is known.
func (t MessageType) IsValid() bool {
	switch t {
	case MsgStatusResponse, MsgInvokeRequest, MsgInvokeResponse, MsgTimedRequest:
		return true
	default:
		return false
	}
}

// Envelope wraps every message on the transport.
//
// CBOR encoding:
//
//	{
//	  1: exchangeId,   // uint32
//	  2: messageType,  // uint8
//	  3: expectReply,  // bool
//	  4: payload       // bstr, type-specific CBOR
//	}
type Envelope struct {
	ExchangeID  uint32      `cbor:"1,keyasint"`
	Type        MessageType `cbor:"2,keyasint"`
	ExpectReply bool        `cbor:"3,keyasint,omitempty"`
	Payload     []byte      `cbor:"4,keyasint,omitempty"`
}

// Validate checks if the envelope is valid.
func (e *Envelope) Validate() error {
	if e.ExchangeID == 0 {
		return fmt.Errorf("exchangeId 0 is reserved")
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("invalid message type: 0x%02x", uint8(e.Type))
	}
	return nil
}

// TimedRequest announces how long the responder should hold the exchange open
// for the following invoke.
//
// CBOR encoding:
//
//	{
//	  1: timeoutMs  // uint16
//	}
type TimedRequest struct {
	TimeoutMs uint16 `cbor:"1,keyasint"`
}

// StatusResponse is the generic reply to a TimedRequest (and to invokes
// rejected before command dispatch).
//
// CBOR encoding:
//
//	{
//	  1: status  // uint8
//	}
type StatusResponse struct {
	Status Status `cbor:"1,keyasint"`
}

// InvokeRequest runs a command.
//
// CBOR encoding:
//
//	{
//	  1: commandId,  // uint8
//	  2: timed,      // bool: preceded by a TimedRequest on this exchange
//	  3: fields      // command-specific CBOR
//	}
type InvokeRequest struct {
	CommandID uint8           `cbor:"1,keyasint"`
	Timed     bool            `cbor:"2,keyasint,omitempty"`
	Fields    cbor.RawMessage `cbor:"3,keyasint,omitempty"`
}

// InvokeResponse carries the result of a command.
//
// CBOR encoding:
//
//	{
//	  1: commandId,  // uint8
//	  2: result      // command-specific CBOR
//	}
type InvokeResponse struct {
	CommandID uint8           `cbor:"1,keyasint"`
	Result    cbor.RawMessage `cbor:"2,keyasint,omitempty"`
}
