package wire

// Status represents a generic protocol status code carried in a StatusResponse.
type Status uint8

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0x00

	// StatusFailure indicates an unspecified failure.
	StatusFailure Status = 0x01

	// StatusInvalidAction indicates the message was not valid in the current state.
	StatusInvalidAction Status = 0x80

	// StatusUnsupportedCommand indicates the command ID is not known.
	StatusUnsupportedCommand Status = 0x81

	// StatusTimeout indicates the timed interaction deadline elapsed.
	StatusTimeout Status = 0x94

	// StatusBusy indicates the responder cannot accept the request right now.
	StatusBusy Status = 0x9C

	// StatusNeedsTimedInteraction indicates a sensitive command arrived without a timed request.
	StatusNeedsTimedInteraction Status = 0xC6

	// StatusTimedRequestMismatch indicates the timed flag and the window state disagree.
	StatusTimedRequestMismatch Status = 0xC9
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	case StatusInvalidAction:
		return "INVALID_ACTION"
	case StatusUnsupportedCommand:
		return "UNSUPPORTED_COMMAND"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusBusy:
		return "BUSY"
	case StatusNeedsTimedInteraction:
		return "NEEDS_TIMED_INTERACTION"
	case StatusTimedRequestMismatch:
		return "TIMED_REQUEST_MISMATCH"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsError returns true if the status indicates an error.
func (s Status) IsError() bool {
	return s != StatusSuccess
}
