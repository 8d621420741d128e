package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/fxamacker/cbor/v2"
)

// Size limits.
const (
	// MaxPayloadSize is the largest payload a 16-bit frame length can address.
	MaxPayloadSize = math.MaxUint16

	// TimedRequestBufferSize is the buffer reserved for a TimedRequest
	// payload: one map header, one key and at most a 3-byte uint16.
	TimedRequestBufferSize = 6
)

// Codec errors.
var (
	ErrMessageTooLarge = errors.New("message exceeds addressable size")
	ErrNoMemory        = errors.New("payload does not fit reserved buffer")
	ErrUnexpectedType  = errors.New("unexpected message type")
)

// encMode is the CBOR encoder mode for wire messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for wire messages.
var decMode cbor.DecMode

func init() {
	var err error

	// Configure encoder for deterministic output
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Configure decoder to be lenient for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
// Returns ErrMessageTooLarge if the encoding exceeds MaxPayloadSize.
func Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), MaxPayloadSize)
	}
	return data, nil
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	if len(data) > MaxPayloadSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), MaxPayloadSize)
	}
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a new CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a new CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// EncodeEnvelope encodes an envelope to CBOR bytes.
func EncodeEnvelope(env *Envelope) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	return Marshal(env)
}

// DecodeEnvelope decodes CBOR bytes into an envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	return &env, nil
}

// EncodeTimedRequest serializes a TimedRequest into a buffer of exactly
// TimedRequestBufferSize bytes. Returns ErrNoMemory if the encoding does not fit.
func EncodeTimedRequest(timeoutMs uint16) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, TimedRequestBufferSize))
	if err := encMode.NewEncoder(buf).Encode(TimedRequest{TimeoutMs: timeoutMs}); err != nil {
		return nil, fmt.Errorf("failed to encode timed request: %w", err)
	}
	if buf.Len() > TimedRequestBufferSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrNoMemory, buf.Len(), TimedRequestBufferSize)
	}
	return buf.Bytes(), nil
}

// DecodeTimedRequest decodes a TimedRequest payload.
func DecodeTimedRequest(data []byte) (*TimedRequest, error) {
	var req TimedRequest
	if err := Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode timed request: %w", err)
	}
	return &req, nil
}

// EncodeStatusResponse encodes a StatusResponse payload.
func EncodeStatusResponse(status Status) ([]byte, error) {
	return Marshal(StatusResponse{Status: status})
}

// DecodeStatusResponse decodes a StatusResponse payload.
func DecodeStatusResponse(data []byte) (*StatusResponse, error) {
	var resp StatusResponse
	if err := Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &resp, nil
}

// EncodeInvokeRequest encodes an invoke with command-specific fields.
func EncodeInvokeRequest(commandID uint8, timed bool, fields any) ([]byte, error) {
	req := InvokeRequest{CommandID: commandID, Timed: timed}
	if fields != nil {
		raw, err := Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("failed to encode command fields: %w", err)
		}
		req.Fields = raw
	}
	return Marshal(req)
}

// DecodeInvokeRequest decodes an invoke. Fields stay raw until the command
// handler decodes them with DecodeFields.
func DecodeInvokeRequest(data []byte) (*InvokeRequest, error) {
	var req InvokeRequest
	if err := Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode invoke request: %w", err)
	}
	return &req, nil
}

// EncodeInvokeResponse encodes a command result.
func EncodeInvokeResponse(commandID uint8, result any) ([]byte, error) {
	resp := InvokeResponse{CommandID: commandID}
	if result != nil {
		raw, err := Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode command result: %w", err)
		}
		resp.Result = raw
	}
	return Marshal(resp)
}

// DecodeInvokeResponse decodes a command result envelope.
func DecodeInvokeResponse(data []byte) (*InvokeResponse, error) {
	var resp InvokeResponse
	if err := Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode invoke response: %w", err)
	}
	return &resp, nil
}

// DecodeFields decodes raw command fields or results into v.
func DecodeFields(raw cbor.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing command fields")
	}
	return Unmarshal(raw, v)
}

// Equal compares two values by their CBOR encoding.
func Equal(a, b any) bool {
	dataA, errA := Marshal(a)
	dataB, errB := Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(dataA, dataB)
}
