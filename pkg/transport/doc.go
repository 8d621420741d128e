// Package transport carries commissioning envelopes over a stream
// connection.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   CBOR Envelope (exchange id)  │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (2B)   │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// The 2-byte prefix bounds every payload to 65535 bytes, matching the
// wire package's addressable size.
//
// # Exchanges
//
// A Conn multiplexes exchanges by id. Sending with expectReply registers a
// waiter before the frame is written, so Receive never misses a fast
// reply. Envelopes that match no waiter are handed to the OnMessage
// callback; this is how a responder sees new requests.
//
// Security of the stream (encryption, peer authentication) is assumed to
// be provided below this layer.
package transport
