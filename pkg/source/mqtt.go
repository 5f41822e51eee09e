package source

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hiral-chawra/Protofito/pkg/pose"
	"github.com/hiral-chawra/Protofito/pkg/protocol"
)

// MQTT receives joint frames published on a broker topic. Payloads are
// either a bare JointFrame or a protocol frame message.
type MQTT struct {
	*Push

	client mqtt.Client
	topic  string
	logger *slog.Logger
	once   sync.Once
}

// ConnectMQTT connects to the broker and subscribes to cfg.Topic.
func ConnectMQTT(cfg MQTTConfig, bufferSize int, logger *slog.Logger) (*MQTT, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MQTT{
		Push:   NewPush(string(KindMQTT), bufferSize),
		topic:  cfg.Topic,
		logger: logger.With("component", "source", "source", KindMQTT, "topic", cfg.Topic),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			m.logger.Warn("broker connection lost", "error", err)
		})

	m.client = mqtt.NewClient(opts)
	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, token.Error())
	}

	token := m.client.Subscribe(cfg.Topic, cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		m.handlePayload(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		m.client.Disconnect(250)
		return nil, fmt.Errorf("subscribe %s: %w", cfg.Topic, token.Error())
	}

	m.logger.Info("subscribed to joint frames", "broker", cfg.Broker)
	return m, nil
}

// handlePayload decodes one message and queues the frame.
func (m *MQTT) handlePayload(payload []byte) bool {
	frame, err := decodeFrame(payload)
	if err != nil {
		m.logger.Debug("payload unmarshal error", "error", err)
		return false
	}
	return m.Feed(frame)
}

func decodeFrame(payload []byte) (pose.JointFrame, error) {
	if msg, err := protocol.ParseMessage(payload); err == nil {
		frame, err := msg.GetFrameData()
		if err != nil {
			return pose.JointFrame{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
		return *frame, nil
	}

	var frame pose.JointFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return pose.JointFrame{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	return frame, nil
}

// Close unsubscribes and disconnects from the broker.
func (m *MQTT) Close() error {
	m.once.Do(func() {
		if m.client != nil {
			if token := m.client.Unsubscribe(m.topic); token.Wait() && token.Error() != nil {
				m.logger.Debug("unsubscribe failed", "error", token.Error())
			}
			m.client.Disconnect(250)
		}
		m.Push.Close()
	})
	return nil
}
