// Package config loads the device configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the netcomm-device configuration.
type Config struct {
	Device        DeviceSettings        `yaml:"device"`
	Commissioning CommissioningSettings `yaml:"commissioning"`
	Timed         TimedSettings         `yaml:"timed"`
	Persistence   PersistenceSettings   `yaml:"persistence"`
	Logging       LoggingSettings       `yaml:"logging"`
	Discovery     DiscoverySettings     `yaml:"discovery"`
	MQTT          MQTTSettings          `yaml:"mqtt"`
}

// DeviceSettings identifies the device and where it listens.
type DeviceSettings struct {
	ID            string `yaml:"id"`
	Listen        string `yaml:"listen"`
	Firmware      string `yaml:"firmware"`
	VendorProduct string `yaml:"vendor_product"`
}

// CommissioningSettings sizes the profile table.
type CommissioningSettings struct {
	MaxNetworks int      `yaml:"max_networks"`
	Features    []string `yaml:"features"`
}

// TimedSettings bounds timed interaction windows.
type TimedSettings struct {
	// MaxTimeoutMs caps the window a controller may request. Zero means
	// no cap.
	MaxTimeoutMs uint16 `yaml:"max_timeout_ms"`

	// DefaultTimeoutMs is the window netcomm-ctl requests.
	DefaultTimeoutMs uint16 `yaml:"default_timeout_ms"`

	// MaxOpenWindows bounds unconsumed windows per connection. Further
	// TimedRequests are answered Busy.
	MaxOpenWindows int `yaml:"max_open_windows"`
}

// PersistenceSettings selects where the profile table is kept.
type PersistenceSettings struct {
	// Backend is "file", "bolt" or "none".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`

	// SecretFile holds the sealing secret. SecretEnv names an environment
	// variable consulted when SecretFile is empty.
	SecretFile string `yaml:"secret_file"`
	SecretEnv  string `yaml:"secret_env"`
}

// LoggingSettings configures operational and protocol logging.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`

	// File enables a rotating log file in addition to stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`

	// ProtocolLog is the path of the CBOR protocol event log.
	ProtocolLog string `yaml:"protocol_log"`
}

// DiscoverySettings configures mDNS advertisement.
type DiscoverySettings struct {
	Enabled   bool   `yaml:"enabled"`
	Interface string `yaml:"interface"`
	TTL       string `yaml:"ttl"`
}

// MQTTSettings configures the MQTT notifier.
type MQTTSettings struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Device: DeviceSettings{
			ID:     "netcomm-device",
			Listen: ":5540",
		},
		Commissioning: CommissioningSettings{
			MaxNetworks: 4,
			Features:    []string{"wifi", "thread", "ethernet"},
		},
		Timed: TimedSettings{
			DefaultTimeoutMs: 5000,
			MaxOpenWindows:   16,
		},
		Persistence: PersistenceSettings{
			Backend:   "none",
			SecretEnv: "NETCOMM_SEAL_SECRET",
		},
		Logging: LoggingSettings{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Discovery: DiscoverySettings{
			TTL: "120s",
		},
		MQTT: MQTTSettings{
			TopicPrefix: "netcomm",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// DiscoveryTTL parses the discovery TTL.
func (c *Config) DiscoveryTTL() (time.Duration, error) {
	if c.Discovery.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Discovery.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid discovery.ttl: %w", err)
	}
	return d, nil
}

// Secret returns the persistence sealing secret, or nil if none is
// configured.
func (c *Config) Secret() ([]byte, error) {
	if c.Persistence.SecretFile != "" {
		data, err := os.ReadFile(c.Persistence.SecretFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read secret file: %w", err)
		}
		return trimNewline(data), nil
	}
	if c.Persistence.SecretEnv != "" {
		if v := os.Getenv(c.Persistence.SecretEnv); v != "" {
			return []byte(v), nil
		}
	}
	return nil, nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
