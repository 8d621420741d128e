package discovery

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
)

// Registration is an active mDNS service registration.
type Registration interface {
	Shutdown()
}

// Registrar publishes mDNS services.
type Registrar interface {
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface, ttl time.Duration) (Registration, error)
}

// ZeroconfRegistrar publishes services with zeroconf.
type ZeroconfRegistrar struct{}

// Register implements Registrar.
func (ZeroconfRegistrar) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface, ttl time.Duration) (Registration, error) {
	var opts []zeroconf.ServerOption
	if ttl > 0 {
		opts = append(opts, zeroconf.TTL(uint32(ttl.Seconds())))
	}
	server, err := zeroconf.Register(instance, service, domain, port, txt, ifaces, opts...)
	if err != nil {
		return nil, err
	}
	return server, nil
}

// AdvertiserConfig configures an OperationalAdvertiser.
type AdvertiserConfig struct {
	// DeviceID identifies this device and is used as the instance name.
	DeviceID string

	// Port is the commissioning service port. Zero uses DefaultPort.
	Port uint16

	// Firmware and VendorProduct are published when set.
	Firmware      string
	VendorProduct string

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration

	// Registrar publishes the service. Nil uses ZeroconfRegistrar.
	Registrar Registrar

	// Logger for operational messages. Nil disables logging.
	Logger *slog.Logger
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		Port: DefaultPort,
		TTL:  DefaultTTL,
	}
}

// OperationalAdvertiser advertises the device on its operational network.
// Each selection replaces the previous advertisement.
type OperationalAdvertiser struct {
	config AdvertiserConfig

	mu      sync.Mutex
	current Registration
	info    *OperationalInfo
}

// NewOperationalAdvertiser creates an advertiser. DeviceID is required.
func NewOperationalAdvertiser(config AdvertiserConfig) (*OperationalAdvertiser, error) {
	if err := ValidateInstanceName(config.DeviceID); err != nil {
		return nil, fmt.Errorf("invalid device id: %w", err)
	}
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Registrar == nil {
		config.Registrar = ZeroconfRegistrar{}
	}
	return &OperationalAdvertiser{config: config}, nil
}

// OnOperationalNetworkSelected implements netcommissioning.OperationalNotifier.
func (a *OperationalAdvertiser) OnOperationalNetworkSelected(_ context.Context, id netcommissioning.NetworkID, t netcommissioning.NetworkType) error {
	info := &OperationalInfo{
		DeviceID:      a.config.DeviceID,
		Port:          a.config.Port,
		NetworkType:   t.String(),
		NetworkID:     hex.EncodeToString(id.Bytes()),
		Firmware:      a.config.Firmware,
		VendorProduct: a.config.VendorProduct,
	}
	return a.Advertise(info)
}

// Advertise publishes info, replacing any current advertisement.
func (a *OperationalAdvertiser) Advertise(info *OperationalInfo) error {
	txt := TXTRecordsToStrings(EncodeOperationalTXT(info))
	if err := ValidateTXT(txt); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil {
		a.current.Shutdown()
		a.current = nil
		a.info = nil
	}

	reg, err := a.config.Registrar.Register(
		info.DeviceID,
		ServiceTypeOperational,
		Domain,
		int(info.Port),
		txt,
		a.interfaces(),
		a.config.TTL,
	)
	if err != nil {
		return fmt.Errorf("failed to register operational service: %w", err)
	}
	a.current = reg
	a.info = info

	if a.config.Logger != nil {
		a.config.Logger.Info("advertising operational service",
			"instance", info.DeviceID,
			"network_type", info.NetworkType,
			"port", info.Port)
	}
	return nil
}

// Current returns the advertised info, or nil when not advertising.
func (a *OperationalAdvertiser) Current() *OperationalInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.info == nil {
		return nil
	}
	info := *a.info
	return &info
}

// Stop withdraws the advertisement.
func (a *OperationalAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		a.current.Shutdown()
		a.current = nil
		a.info = nil
	}
}

// interfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *OperationalAdvertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

var _ netcommissioning.OperationalNotifier = (*OperationalAdvertiser)(nil)
