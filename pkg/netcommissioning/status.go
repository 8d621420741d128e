package netcommissioning

import (
	"errors"

	"github.com/mash-protocol/netcomm-go/pkg/wire"
)

// MaxDebugTextLength is the longest advisory text a response may carry.
const MaxDebugTextLength = 512

// NetworkingStatus is the result code of a commissioning command.
type NetworkingStatus uint8

const (
	StatusSuccess                NetworkingStatus = 0
	StatusOutOfRange             NetworkingStatus = 1
	StatusBoundsExceeded         NetworkingStatus = 2
	StatusNetworkIDNotFound      NetworkingStatus = 3
	StatusDuplicateNetworkID     NetworkingStatus = 4
	StatusNetworkNotFound        NetworkingStatus = 5
	StatusRegulatoryError        NetworkingStatus = 6
	StatusAuthFailure            NetworkingStatus = 7
	StatusUnsupportedSecurity    NetworkingStatus = 8
	StatusOtherConnectionFailure NetworkingStatus = 9
	StatusIPV6Failed             NetworkingStatus = 10
	StatusIPBindFailed           NetworkingStatus = 11
	StatusUnknownError           NetworkingStatus = 12
)

// String returns the status name.
func (s NetworkingStatus) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusOutOfRange:
		return "OUT_OF_RANGE"
	case StatusBoundsExceeded:
		return "BOUNDS_EXCEEDED"
	case StatusNetworkIDNotFound:
		return "NETWORK_ID_NOT_FOUND"
	case StatusDuplicateNetworkID:
		return "DUPLICATE_NETWORK_ID"
	case StatusNetworkNotFound:
		return "NETWORK_NOT_FOUND"
	case StatusRegulatoryError:
		return "REGULATORY_ERROR"
	case StatusAuthFailure:
		return "AUTH_FAILURE"
	case StatusUnsupportedSecurity:
		return "UNSUPPORTED_SECURITY"
	case StatusOtherConnectionFailure:
		return "OTHER_CONNECTION_FAILURE"
	case StatusIPV6Failed:
		return "IPV6_FAILED"
	case StatusIPBindFailed:
		return "IP_BIND_FAILED"
	case StatusUnknownError:
		return "UNKNOWN_ERROR"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s NetworkingStatus) IsSuccess() bool {
	return s == StatusSuccess
}

// StatusOf maps an engine error to the status reported to the caller.
// Platform detail is collapsed into StatusUnknownError.
func StatusOf(err error) NetworkingStatus {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrBoundsExceeded):
		return StatusBoundsExceeded
	case errors.Is(err, ErrOutOfRange):
		return StatusOutOfRange
	case errors.Is(err, ErrNetworkIDNotFound):
		return StatusNetworkIDNotFound
	default:
		return StatusUnknownError
	}
}

// Response is the payload of every commissioning command response.
type Response struct {
	Status NetworkingStatus `cbor:"1,keyasint"`

	// DebugText is advisory only; callers must not branch on it.
	DebugText string `cbor:"2,keyasint,omitempty"`

	// NetworkIndex is the slot touched by a successful add or remove.
	NetworkIndex *uint8 `cbor:"3,keyasint,omitempty"`
}

// EncodeResponse encodes a Response. Debug text over MaxDebugTextLength is
// rejected rather than truncated.
func EncodeResponse(r Response) ([]byte, error) {
	if len(r.DebugText) > MaxDebugTextLength {
		return nil, ErrDebugTextTooLong
	}
	return wire.Marshal(r)
}

// DecodeResponse decodes a Response.
func DecodeResponse(data []byte) (Response, error) {
	var r Response
	if err := wire.Unmarshal(data, &r); err != nil {
		return Response{}, err
	}
	if len(r.DebugText) > MaxDebugTextLength {
		return Response{}, ErrDebugTextTooLong
	}
	return r, nil
}
