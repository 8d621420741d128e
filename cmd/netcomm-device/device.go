package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"

	"github.com/mash-protocol/netcomm-go/pkg/config"
	"github.com/mash-protocol/netcomm-go/pkg/discovery"
	"github.com/mash-protocol/netcomm-go/pkg/log"
	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
	"github.com/mash-protocol/netcomm-go/pkg/notify"
	"github.com/mash-protocol/netcomm-go/pkg/persistence"
	"github.com/mash-protocol/netcomm-go/pkg/platform/sim"
	"github.com/mash-protocol/netcomm-go/pkg/service"
)

// Device wires the device service to its optional collaborators.
type Device struct {
	Service    *service.DeviceService
	Radio      *sim.Radio
	Syncer     *persistence.Syncer
	Advertiser *discovery.OperationalAdvertiser
	MQTT       *notify.Notifier

	closers []io.Closer
	logger  *slog.Logger
}

// NewDevice builds the device from configuration. Discovery and MQTT are
// only set up when enabled; persistence only for a file or bolt backend.
func NewDevice(cfg *config.Config, radio *sim.Radio, logger *slog.Logger, protoLog log.Logger) (*Device, error) {
	features, err := cfg.Features()
	if err != nil {
		return nil, err
	}
	d := &Device{Radio: radio, logger: logger}

	var notifiers []netcommissioning.OperationalNotifier
	if cfg.Discovery.Enabled {
		adv, err := newAdvertiser(cfg, logger)
		if err != nil {
			return nil, err
		}
		d.Advertiser = adv
		notifiers = append(notifiers, adv)
	}
	if cfg.MQTT.Enabled {
		n, err := notify.Connect(notify.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			DeviceID:    cfg.Device.ID,
			QoS:         cfg.MQTT.QoS,
		}, logger)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.MQTT = n
		notifiers = append(notifiers, n)
	}

	svcCfg := service.DefaultDeviceConfig()
	svcCfg.ListenAddress = cfg.Device.Listen
	svcCfg.MaxNetworks = cfg.Commissioning.MaxNetworks
	svcCfg.Features = features
	svcCfg.Platform = netcommissioning.Platform{WiFi: radio, Thread: radio}
	svcCfg.Notifiers = notifiers
	svcCfg.MaxTimeoutMs = cfg.Timed.MaxTimeoutMs
	svcCfg.MaxOpenWindows = cfg.Timed.MaxOpenWindows
	svcCfg.Logger = logger
	svcCfg.ProtocolLogger = protoLog

	svc, err := service.NewDeviceService(svcCfg)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Service = svc
	store := svc.Engine().Store()

	backend, err := openBackend(cfg, logger)
	if err != nil {
		d.Close()
		return nil, err
	}
	if backend != nil {
		if c, ok := backend.(io.Closer); ok {
			d.closers = append(d.closers, c)
		}
		syncer, err := persistence.Attach(store, backend, logger)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Syncer = syncer
	}

	if d.MQTT != nil {
		store.OnChange(d.MQTT.PublishChange)
	}
	return d, nil
}

// Start starts the device service and reconnects the networks that were
// connected before the restart. A failed reconnect leaves the profile
// Provisioned and is only logged.
func (d *Device) Start(ctx context.Context) error {
	if err := d.Service.Start(ctx); err != nil {
		return err
	}
	if d.Syncer == nil {
		return nil
	}
	for _, id := range d.Syncer.Connected() {
		idx, err := d.Service.Engine().Connect(ctx, id)
		if d.logger == nil {
			continue
		}
		if err != nil {
			d.logger.Warn("reconnect after restart failed", "index", idx, "error", err)
			continue
		}
		d.logger.Info("reconnected network", "index", idx)
	}
	return nil
}

// Stop stops the device service.
func (d *Device) Stop() error {
	if d.Service.State() != service.StateRunning {
		return nil
	}
	return d.Service.Stop()
}

// Close releases the advertiser, the MQTT session and the storage backend.
func (d *Device) Close() {
	if d.Advertiser != nil {
		d.Advertiser.Stop()
	}
	if d.MQTT != nil {
		d.MQTT.Close()
	}
	for _, c := range d.closers {
		if err := c.Close(); err != nil && d.logger != nil {
			d.logger.Warn("close failed", "error", err)
		}
	}
	d.closers = nil
}

func newAdvertiser(cfg *config.Config, logger *slog.Logger) (*discovery.OperationalAdvertiser, error) {
	ttl, err := cfg.DiscoveryTTL()
	if err != nil {
		return nil, err
	}
	port, err := listenPort(cfg.Device.Listen)
	if err != nil {
		return nil, err
	}
	advCfg := discovery.DefaultAdvertiserConfig()
	advCfg.DeviceID = cfg.Device.ID
	advCfg.Port = port
	advCfg.Firmware = cfg.Device.Firmware
	advCfg.VendorProduct = cfg.Device.VendorProduct
	advCfg.Interface = cfg.Discovery.Interface
	if ttl > 0 {
		advCfg.TTL = ttl
	}
	advCfg.Logger = logger
	return discovery.NewOperationalAdvertiser(advCfg)
}

// openBackend returns nil for the "none" backend. Without a seal secret
// the table is stored in plaintext.
func openBackend(cfg *config.Config, logger *slog.Logger) (persistence.Backend, error) {
	if cfg.Persistence.Backend == "none" {
		return nil, nil
	}
	secret, err := cfg.Secret()
	if err != nil {
		return nil, err
	}
	var sealer *persistence.Sealer
	if len(secret) > 0 {
		sealer, err = persistence.NewSealer(secret, []byte(cfg.Device.ID))
		if err != nil {
			return nil, err
		}
	} else if logger != nil {
		logger.Warn("no seal secret configured, network credentials are stored unencrypted",
			"path", cfg.Persistence.Path)
	}

	switch cfg.Persistence.Backend {
	case "file":
		return persistence.NewFileStore(cfg.Persistence.Path, sealer), nil
	case "bolt":
		return persistence.NewBoltStore(cfg.Persistence.Path, sealer)
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Persistence.Backend)
	}
}

func listenPort(addr string) (uint16, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	n, err := strconv.ParseUint(p, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid listen port %q: %w", p, err)
	}
	if n == 0 {
		return 0, errors.New("discovery needs a fixed listen port")
	}
	return uint16(n), nil
}
