package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/mash-protocol/netcomm-go/pkg/log"
	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
	"github.com/mash-protocol/netcomm-go/pkg/transport"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrWindowExpired  = errors.New("timed window expired before invoke")
	ErrUnexpectedType = errors.New("unexpected reply message type")
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateStarting - service is starting up.
	StateStarting

	// StateRunning - service is running normally.
	StateRunning

	// StateStopping - service is shutting down.
	StateStopping

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// DefaultMaxOpenWindows bounds unconsumed timed windows per connection.
const DefaultMaxOpenWindows = 16

// DeviceConfig configures a DeviceService.
type DeviceConfig struct {
	// ListenAddress is the address to listen on (e.g., ":5540").
	ListenAddress string

	// MaxNetworks is the profile table capacity.
	MaxNetworks int

	// Features selects the supported network types.
	Features netcommissioning.FeatureSet

	// Platform provides the radio capabilities.
	Platform netcommissioning.Platform

	// Notifiers are told about the operational network after a connect.
	Notifiers []netcommissioning.OperationalNotifier

	// MaxTimeoutMs caps the window a TimedRequest may open. Zero means no
	// cap.
	MaxTimeoutMs uint16

	// MaxOpenWindows bounds unconsumed windows per connection; further
	// TimedRequests answer BUSY.
	MaxOpenWindows int

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// Logger for operational messages. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger receives protocol events. Nil disables.
	ProtocolLogger log.Logger
}

// DefaultDeviceConfig returns a configuration listening on the default port
// with four slots and every network type.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		ListenAddress:  ":5540",
		MaxNetworks:    netcommissioning.DefaultMaxNetworks,
		Features:       netcommissioning.AllFeatures,
		MaxOpenWindows: DefaultMaxOpenWindows,
	}
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// Logger for operational messages. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger receives protocol events. Nil disables.
	ProtocolLogger log.Logger
}

// connConfig returns the transport configuration shared by both roles.
func connConfig(role log.Role, logger *slog.Logger, protoLog log.Logger) transport.ConnConfig {
	return transport.ConnConfig{
		Role:           role,
		Logger:         logger,
		ProtocolLogger: protoLog,
	}
}
