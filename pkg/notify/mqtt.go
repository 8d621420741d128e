// Package notify publishes operational-network selections and profile table
// changes to an MQTT broker. Payloads carry network ids and types only;
// credentials and datasets are never published.
package notify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
)

// DefaultTopicPrefix is used when Config.TopicPrefix is empty.
const DefaultTopicPrefix = "netcomm"

// ErrConnectTimeout is returned when the broker does not answer in time.
var ErrConnectTimeout = errors.New("mqtt connect timeout")

// Config holds MQTT notifier configuration.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	DeviceID    string
	QoS         byte

	// ConnectTimeout bounds the initial connect and every publish.
	ConnectTimeout time.Duration
}

// Publisher sends one MQTT message.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// pahoPublisher adapts a paho client to Publisher.
type pahoPublisher struct {
	client  pahomqtt.Client
	timeout time.Duration
}

func (p *pahoPublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqtt publish %s: timeout", topic)
	}
	return token.Error()
}

// Notifier publishes commissioning events.
type Notifier struct {
	pub    Publisher
	client pahomqtt.Client
	base   string
	qos    byte
	logger *slog.Logger
	now    func() time.Time
}

// Connect creates a paho client, connects it and returns a Notifier that
// publishes through it. The broker's last will marks the device offline.
func Connect(cfg Config, logger *slog.Logger) (*Notifier, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "netcomm-" + cfg.DeviceID
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "mqtt")

	n := &Notifier{
		base:   cfg.TopicPrefix + "/" + cfg.DeviceID,
		qos:    cfg.QoS,
		logger: logger,
		now:    time.Now,
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(n.base+"/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			logger.Info("MQTT connected")
			n.publishState("online")
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			logger.Warn("MQTT connection lost", "err", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	n.client = client
	n.pub = &pahoPublisher{client: client, timeout: cfg.ConnectTimeout}

	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, ErrConnectTimeout
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return n, nil
}

// New returns a Notifier over an existing Publisher.
func New(pub Publisher, topicPrefix, deviceID string, logger *slog.Logger) *Notifier {
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{
		pub:    pub,
		base:   topicPrefix + "/" + deviceID,
		logger: logger,
		now:    time.Now,
	}
}

// OperationalMessage is published retained on <prefix>/<device>/operational.
type OperationalMessage struct {
	NetworkType string    `json:"network_type"`
	NetworkID   string    `json:"network_id"`
	SelectedAt  time.Time `json:"selected_at"`
}

// ChangeMessage is published on <prefix>/<device>/networks/<index>.
type ChangeMessage struct {
	Change      string    `json:"change"`
	Index       uint8     `json:"index"`
	NetworkType string    `json:"network_type"`
	NetworkID   string    `json:"network_id"`
	At          time.Time `json:"at"`
}

// OnOperationalNetworkSelected implements netcommissioning.OperationalNotifier.
func (n *Notifier) OnOperationalNetworkSelected(_ context.Context, id netcommissioning.NetworkID, t netcommissioning.NetworkType) error {
	payload, err := json.Marshal(OperationalMessage{
		NetworkType: t.String(),
		NetworkID:   hex.EncodeToString(id.Bytes()),
		SelectedAt:  n.now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.pub.Publish(n.base+"/operational", n.qos, true, payload)
}

// PublishChange reports a profile table change. Errors are logged.
func (n *Notifier) PublishChange(c netcommissioning.Change) {
	payload, err := json.Marshal(ChangeMessage{
		Change:      c.Kind.String(),
		Index:       c.Index,
		NetworkType: c.Type.String(),
		NetworkID:   hex.EncodeToString(c.NetworkID.Bytes()),
		At:          n.now().UTC(),
	})
	if err != nil {
		n.logger.Error("failed to encode change", "err", err)
		return
	}
	topic := fmt.Sprintf("%s/networks/%d", n.base, c.Index)
	if err := n.pub.Publish(topic, n.qos, false, payload); err != nil {
		n.logger.Warn("failed to publish change", "topic", topic, "err", err)
	}
}

// Close publishes the offline state and disconnects.
func (n *Notifier) Close() {
	n.publishState("offline")
	if n.client != nil {
		n.client.Disconnect(1000)
	}
}

func (n *Notifier) publishState(state string) {
	if err := n.pub.Publish(n.base+"/state", 1, true, []byte(state)); err != nil {
		n.logger.Warn("failed to publish state", "state", state, "err", err)
	}
}

var _ netcommissioning.OperationalNotifier = (*Notifier)(nil)
