package netcommissioning

import (
	"context"
	"fmt"
	"log/slog"
)

// Workflow applies stored profiles to the platform network stack.
type Workflow struct {
	store    *Store
	platform Platform
	notifier OperationalNotifier
	logger   *slog.Logger
}

// NewWorkflow creates a Workflow. notifier and logger may be nil.
func NewWorkflow(store *Store, platform Platform, notifier OperationalNotifier, logger *slog.Logger) *Workflow {
	return &Workflow{
		store:    store,
		platform: platform,
		notifier: notifier,
		logger:   logger,
	}
}

// Connect looks up networkID and applies the profile to the platform.
//
// The profile is copied under the store's read lock and the lock is
// released before any platform call. On success the profile is marked
// enabled and the operational notifier is told about the network; on
// failure the enabled flag is left untouched.
func (w *Workflow) Connect(ctx context.Context, networkID []byte) (uint8, error) {
	p, idx, gen, ok := w.store.lookup(networkID)
	if !ok {
		return 0, ErrNetworkIDNotFound
	}

	if err := w.apply(ctx, p); err != nil {
		w.debug("connect failed", "index", idx, "network_id", p.NetworkID.String(), "type", p.Type.String(), "error", err)
		return idx, err
	}

	if err := w.store.markEnabled(idx, gen); err != nil {
		return idx, err
	}
	w.debug("connected", "index", idx, "network_id", p.NetworkID.String(), "type", p.Type.String())

	if w.notifier != nil {
		if err := w.notifier.OnOperationalNetworkSelected(ctx, p.NetworkID, p.Type); err != nil && w.logger != nil {
			w.logger.Warn("operational network notification failed", "network_id", p.NetworkID.String(), "error", err)
		}
	}
	return idx, nil
}

func (w *Workflow) apply(ctx context.Context, p Profile) error {
	if p.Type != NetworkTypeUndefined && !w.store.features.Supports(p.Type) {
		return fmt.Errorf("%w: %s", ErrUnsupportedNetworkType, p.Type)
	}

	switch pl := p.Payload.(type) {
	case WiFiPayload:
		if w.platform.WiFi == nil {
			return &PlatformError{Op: "provision_wifi", Err: ErrNotSupported}
		}
		if err := w.platform.WiFi.ProvisionWiFi(ctx, pl.SSID.b, pl.Credentials.b); err != nil {
			return &PlatformError{Op: "provision_wifi", Err: err}
		}
		return nil

	case ThreadPayload:
		th := w.platform.Thread
		if th == nil {
			return &PlatformError{Op: "set_thread_enabled", Err: ErrNotSupported}
		}
		// Disable first so a previously active dataset is never left
		// half replaced on a running radio.
		if err := th.SetThreadEnabled(ctx, false); err != nil {
			return &PlatformError{Op: "set_thread_enabled", Err: err}
		}
		if err := th.SetThreadProvision(ctx, pl.Dataset.b); err != nil {
			return &PlatformError{Op: "set_thread_provision", Err: err}
		}
		if err := th.SetThreadEnabled(ctx, true); err != nil {
			return &PlatformError{Op: "set_thread_enabled", Err: err}
		}
		return nil

	default:
		return fmt.Errorf("%w: connect %s", ErrNotImplemented, p.Type)
	}
}

func (w *Workflow) debug(msg string, args ...any) {
	if w.logger != nil {
		w.logger.Debug(msg, args...)
	}
}
