// Package publish forwards session results to external systems.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hiral-chawra/Protofito/pkg/session"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("publish: broker timeout")

// Config configures the MQTT result publisher.
type Config struct {
	// Enabled turns the publisher on. Default: false
	Enabled bool `yaml:"enabled" json:"enabled"`

	Broker   string `yaml:"broker" json:"broker"`
	ClientID string `yaml:"client_id" json:"client_id"`

	// TopicPrefix is prepended to "result" and "reps". Default: "protofito"
	TopicPrefix string `yaml:"topic_prefix" json:"topic_prefix"`

	QoS byte `yaml:"qos" json:"qos"`

	// Timeout bounds each publish acknowledgement. Default: 2s
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Broker:      "tcp://localhost:1883",
		ClientID:    "protofito",
		TopicPrefix: "protofito",
		Timeout:     2 * time.Second,
	}
}

// Validate checks the configuration when the publisher is enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.TopicPrefix == "" {
		return fmt.Errorf("topic_prefix is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes every result to <prefix>/result and the rep
// count, retained, to <prefix>/reps whenever a rep is counted.
type MQTTPublisher struct {
	client  Client
	cfg     Config
	logger  *slog.Logger
	closeFn func()
}

// NewMQTTPublisher wraps an already connected client.
func NewMQTTPublisher(client Client, cfg Config, logger *slog.Logger) *MQTTPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.TopicPrefix = strings.TrimSuffix(cfg.TopicPrefix, "/")
	return &MQTTPublisher{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "publish", "prefix", cfg.TopicPrefix),
	}
}

// Connect dials the broker and returns a publisher that owns the connection.
func Connect(cfg Config, logger *slog.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, token.Error())
	}

	p := NewMQTTPublisher(client, cfg, logger)
	p.closeFn = func() { client.Disconnect(250) }
	p.logger.Info("connected to MQTT broker", "broker", cfg.Broker)
	return p, nil
}

// ResultTopic is where every result is published.
func (p *MQTTPublisher) ResultTopic() string {
	return p.cfg.TopicPrefix + "/result"
}

// RepsTopic carries the latest rep count.
func (p *MQTTPublisher) RepsTopic() string {
	return p.cfg.TopicPrefix + "/reps"
}

// Publish implements session.Sink.
func (p *MQTTPublisher) Publish(res session.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := p.send(p.ResultTopic(), false, payload); err != nil {
		return err
	}

	if res.RepCounted {
		count := strconv.FormatUint(uint64(res.RepCount), 10)
		if err := p.send(p.RepsTopic(), true, []byte(count)); err != nil {
			return err
		}
		p.logger.Debug("rep count published", "reps", res.RepCount)
	}
	return nil
}

func (p *MQTTPublisher) send(topic string, retained bool, payload []byte) error {
	token := p.client.Publish(topic, p.cfg.QoS, retained, payload)
	if !token.WaitTimeout(p.cfg.Timeout) {
		return fmt.Errorf("%w: %s", ErrTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects when the publisher owns the connection.
func (p *MQTTPublisher) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}
