package discovery

import (
	"errors"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceTypeOperational is the service type for devices on an
	// operational network.
	ServiceTypeOperational = "_netcomm._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default commissioning service port.
	DefaultPort = 5540
)

// TXT record keys.
const (
	TXTKeyDeviceID    = "DI" // Device id
	TXTKeyNetworkType = "NT" // WIFI, THREAD or ETHERNET
	TXTKeyNetworkID   = "NI" // Network id, lowercase hex
	TXTKeyFirmware    = "FW" // Firmware version (optional)
	TXTKeyVendorProd  = "VP" // Vendor:Product id (optional)
)

const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second

	// DefaultTTL is the default DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTRecordSize is the maximum total TXT record size.
	MaxTXTRecordSize = 400
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrTXTTooLarge         = errors.New("TXT records exceed size limit")
	ErrNotFound            = errors.New("service not found")
)

// OperationalInfo is what a device publishes once it is on an operational
// network.
type OperationalInfo struct {
	// DeviceID identifies the device (from TXT "DI").
	DeviceID string

	// Port is the commissioning service port.
	Port uint16

	// NetworkType is the operational network's type name (from TXT "NT").
	NetworkType string

	// NetworkID is the hex-encoded network id (from TXT "NI").
	NetworkID string

	// Firmware is the optional firmware version (from TXT "FW").
	Firmware string

	// VendorProduct is the optional vendor:product id (from TXT "VP").
	VendorProduct string
}

// OperationalService is a device found via mDNS.
type OperationalService struct {
	OperationalInfo

	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the hostname.
	Host string

	// Addresses contains resolved IP addresses.
	Addresses []string
}
