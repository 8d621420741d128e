package netcommissioning

import (
	"context"
	"errors"
)

// WiFiProvisioner associates the device with a Wi-Fi network.
type WiFiProvisioner interface {
	ProvisionWiFi(ctx context.Context, ssid, credentials []byte) error
}

// ThreadStack controls the Thread radio.
type ThreadStack interface {
	SetThreadEnabled(ctx context.Context, enabled bool) error
	SetThreadProvision(ctx context.Context, dataset []byte) error
}

// Platform is the set of network capabilities available on this build.
// A nil capability means the network type is not supported by the
// platform.
type Platform struct {
	WiFi   WiFiProvisioner
	Thread ThreadStack
}

// OperationalNotifier is told when a network becomes the operational
// network after a successful connect.
type OperationalNotifier interface {
	OnOperationalNetworkSelected(ctx context.Context, networkID NetworkID, networkType NetworkType) error
}

// NotifierFunc adapts a function to OperationalNotifier.
type NotifierFunc func(ctx context.Context, networkID NetworkID, networkType NetworkType) error

// OnOperationalNetworkSelected calls f.
func (f NotifierFunc) OnOperationalNetworkSelected(ctx context.Context, networkID NetworkID, networkType NetworkType) error {
	return f(ctx, networkID, networkType)
}

// MultiNotifier fans a selection out to several notifiers. Every notifier
// is called; their errors are joined.
type MultiNotifier []OperationalNotifier

// OnOperationalNetworkSelected notifies each non-nil notifier in order.
func (m MultiNotifier) OnOperationalNetworkSelected(ctx context.Context, networkID NetworkID, networkType NetworkType) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.OnOperationalNetworkSelected(ctx, networkID, networkType); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ OperationalNotifier = NotifierFunc(nil)
	_ OperationalNotifier = MultiNotifier(nil)
)
