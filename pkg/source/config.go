package source

import (
	"fmt"
	"time"
)

// Kind selects a source implementation.
type Kind string

const (
	KindSynthetic Kind = "synthetic"
	KindReplay    Kind = "replay"
	KindSerial    Kind = "serial"
	KindPush      Kind = "push"
	KindWebSocket Kind = "websocket"
	KindMQTT      Kind = "mqtt"
	KindCamera    Kind = "camera"
)

// Config holds joint source configuration.
type Config struct {
	// Kind selects the source. Default: "synthetic"
	Kind Kind `yaml:"kind" json:"kind"`

	// Interval paces synthetic and replay sources. Zero replays as fast as possible.
	// Default: 50ms (20 ticks per second)
	Interval time.Duration `yaml:"interval" json:"interval"`

	// BufferSize is the frame queue length for push-style sources.
	// Default: 32
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`

	Synthetic SyntheticConfig `yaml:"synthetic" json:"synthetic"`
	Replay    ReplayConfig    `yaml:"replay" json:"replay"`
	Serial    SerialConfig    `yaml:"serial" json:"serial"`
	WebSocket WebSocketConfig `yaml:"websocket" json:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt" json:"mqtt"`
	Camera    CameraConfig    `yaml:"camera" json:"camera"`
}

// SyntheticConfig shapes the generated movement.
type SyntheticConfig struct {
	// Period is the duration of one full down-and-up cycle.
	Period time.Duration `yaml:"period" json:"period"`

	// MinAngle and MaxAngle bound the generated joint angle in degrees.
	MinAngle float64 `yaml:"min_angle" json:"min_angle"`
	MaxAngle float64 `yaml:"max_angle" json:"max_angle"`
}

// ReplayConfig points at a JSON-lines replay log.
type ReplayConfig struct {
	Path string `yaml:"path" json:"path"`
	Loop bool   `yaml:"loop" json:"loop"`
}

// SerialConfig describes a serial-attached sensor emitting JSON lines.
type SerialConfig struct {
	Port     string `yaml:"port" json:"port"`
	BaudRate uint   `yaml:"baud_rate" json:"baud_rate"`
}

// WebSocketConfig points at a remote estimator stream.
type WebSocketConfig struct {
	URL string `yaml:"url" json:"url"`
}

// MQTTConfig describes the broker topic joint frames are published on.
type MQTTConfig struct {
	Broker   string `yaml:"broker" json:"broker"`
	ClientID string `yaml:"client_id" json:"client_id"`
	Topic    string `yaml:"topic" json:"topic"`
	QoS      byte   `yaml:"qos" json:"qos"`
}

// CameraConfig configures the OpenPose camera estimator.
type CameraConfig struct {
	Device        int     `yaml:"device" json:"device"`
	ModelPath     string  `yaml:"model_path" json:"model_path"`
	ProtoPath     string  `yaml:"proto_path" json:"proto_path"`
	InputSize     int     `yaml:"input_size" json:"input_size"`
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Kind:       KindSynthetic,
		Interval:   50 * time.Millisecond,
		BufferSize: 32,
		Synthetic: SyntheticConfig{
			Period:   4 * time.Second,
			MinAngle: 70,
			MaxAngle: 175,
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 115200,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "protofito-source",
			Topic:    "protofito/joints",
		},
		Camera: CameraConfig{
			Device:        0,
			ModelPath:     "models/pose_iter_440000.caffemodel",
			ProtoPath:     "models/pose_deploy_linevec.prototxt",
			InputSize:     368,
			MinConfidence: 0.1,
		},
	}
}

// Validate checks the fields the selected kind needs.
func (c *Config) Validate() error {
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative, got %v", c.Interval)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}

	switch c.Kind {
	case KindSynthetic:
		if c.Interval == 0 {
			return fmt.Errorf("synthetic source needs a positive interval")
		}
		if c.Synthetic.Period <= 0 {
			return fmt.Errorf("synthetic.period must be positive, got %v", c.Synthetic.Period)
		}
		if c.Synthetic.MinAngle < 0 || c.Synthetic.MaxAngle > 180 || c.Synthetic.MinAngle >= c.Synthetic.MaxAngle {
			return fmt.Errorf("synthetic angles must satisfy 0 <= min < max <= 180, got %v..%v",
				c.Synthetic.MinAngle, c.Synthetic.MaxAngle)
		}
	case KindReplay:
		if c.Replay.Path == "" {
			return fmt.Errorf("replay.path is required")
		}
	case KindSerial:
		if c.Serial.Port == "" || c.Serial.BaudRate == 0 {
			return fmt.Errorf("serial.port and serial.baud_rate are required")
		}
	case KindWebSocket:
		if c.WebSocket.URL == "" {
			return fmt.Errorf("websocket.url is required")
		}
	case KindMQTT:
		if c.MQTT.Broker == "" || c.MQTT.Topic == "" {
			return fmt.Errorf("mqtt.broker and mqtt.topic are required")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
		}
	case KindCamera:
		if c.Camera.ModelPath == "" || c.Camera.ProtoPath == "" {
			return fmt.Errorf("camera.model_path and camera.proto_path are required")
		}
	case KindPush:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, c.Kind)
	}
	return nil
}
