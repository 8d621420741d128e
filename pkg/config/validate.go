package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
)

// Validate checks every section and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Device.ID == "" {
		errs = append(errs, errors.New("device.id is required"))
	} else if len(c.Device.ID) > 63 {
		errs = append(errs, errors.New("device.id must be at most 63 characters"))
	}
	if c.Device.Listen == "" {
		errs = append(errs, errors.New("device.listen is required"))
	}

	if c.Commissioning.MaxNetworks < 1 || c.Commissioning.MaxNetworks > 255 {
		errs = append(errs, fmt.Errorf("commissioning.max_networks must be between 1 and 255, got %d", c.Commissioning.MaxNetworks))
	}
	if len(c.Commissioning.Features) == 0 {
		errs = append(errs, errors.New("commissioning.features must name at least one network type"))
	} else if _, err := c.Features(); err != nil {
		errs = append(errs, fmt.Errorf("commissioning.features: %w", err))
	}

	if c.Timed.MaxTimeoutMs > 0 && c.Timed.DefaultTimeoutMs > c.Timed.MaxTimeoutMs {
		errs = append(errs, errors.New("timed.default_timeout_ms exceeds timed.max_timeout_ms"))
	}
	if c.Timed.MaxOpenWindows < 1 {
		errs = append(errs, fmt.Errorf("timed.max_open_windows must be positive, got %d", c.Timed.MaxOpenWindows))
	}

	switch c.Persistence.Backend {
	case "", "none":
	case "file", "bolt":
		if c.Persistence.Path == "" {
			errs = append(errs, fmt.Errorf("persistence.path is required for backend %q", c.Persistence.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("persistence.backend must be file, bolt or none, got %q", c.Persistence.Backend))
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	if _, err := c.DiscoveryTTL(); err != nil {
		errs = append(errs, err)
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
		}
		if c.MQTT.QoS > 2 {
			errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
		}
	}

	return errors.Join(errs...)
}

// Features returns the configured feature set.
func (c *Config) Features() (netcommissioning.FeatureSet, error) {
	return netcommissioning.ParseFeatureSet(c.Commissioning.Features)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", s)
	}
}
