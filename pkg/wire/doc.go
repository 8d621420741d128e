// Package wire defines the CBOR wire format for network commissioning exchanges.
//
// Every frame on the transport carries one Envelope. The envelope names the
// exchange it belongs to and the message type, and carries the type-specific
// payload as an opaque CBOR byte string.
//
// # Message Types
//
//   - StatusResponse: generic success/failure reply (acknowledges a TimedRequest)
//   - TimedRequest: announces the timeout for the next invoke on the exchange
//   - InvokeRequest: runs a command
//   - InvokeResponse: command result (networking status + debug text)
//
// # CBOR Integer Keys
//
// All maps use integer keys for compactness. Payload sizes are bounded by the
// 16-bit frame length, so encoders reject anything larger than MaxPayloadSize
// instead of producing a frame the peer cannot address.
package wire
