// Package protocol defines the JSON envelope exchanged over the frame
// ingest and result WebSocket streams.
//
// Every message is {"type": ..., "ts": <unix ms>, "data": ...}. Estimators
// send frame messages, dashboards receive result and state messages, and
// either side may send reset or ping.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hiral-chawra/Protofito/pkg/pose"
)

// MessageType identifies the payload carried by a Message.
type MessageType string

const (
	TypeFrame  MessageType = "frame"  // estimator: one tick of joints
	TypeResult MessageType = "result" // dashboard: per-tick phase and reps
	TypeState  MessageType = "state"  // dashboard: session snapshot
	TypeReset  MessageType = "reset"  // either: restart the session
	TypePing   MessageType = "ping"
	TypePong   MessageType = "pong"
)

// Known reports whether t is one of the defined message types.
func (t MessageType) Known() bool {
	switch t {
	case TypeFrame, TypeResult, TypeState, TypeReset, TypePing, TypePong:
		return true
	}
	return false
}

var (
	// ErrNoData is returned when a message that needs a payload has none.
	ErrNoData = errors.New("protocol: message has no data")

	// ErrUnexpectedType is returned when a payload is read as the wrong type.
	ErrUnexpectedType = errors.New("protocol: unexpected message type")
)

// Message is the envelope for every WebSocket message.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage stamps data with the current time.
func NewMessage(msgType MessageType, data any) (*Message, error) {
	return NewMessageAt(msgType, data, time.Now())
}

// NewMessageAt builds a message stamped with ts. A nil data leaves the
// payload out of the encoding.
func NewMessageAt(msgType MessageType, data any, ts time.Time) (*Message, error) {
	msg := &Message{Type: msgType, Timestamp: ts.UnixMilli()}
	if data == nil {
		return msg, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", msgType, err)
	}
	msg.Data = raw
	return msg, nil
}

// Encode builds a message and returns its wire form.
func Encode(msgType MessageType, data any) ([]byte, error) {
	msg, err := NewMessage(msgType, data)
	if err != nil {
		return nil, err
	}
	return msg.Bytes()
}

// Time returns the envelope timestamp, or the zero time if unset.
func (m *Message) Time() time.Time {
	if m.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.Timestamp)
}

// ParseData decodes the payload into v.
func (m *Message) ParseData(v any) error {
	if len(m.Data) == 0 {
		return ErrNoData
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s data: %w", m.Type, err)
	}
	return nil
}

// Bytes returns the wire form of m.
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage decodes an envelope. The type must be present but may be
// one this package does not define; callers decide how to treat those.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, errors.New("parse message: missing type")
	}
	return &msg, nil
}

// FrameData is the payload of a frame message.
type FrameData = pose.JointFrame

// PingData is the payload of a ping message.
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData answers a ping. LatencyMs is measured by the responder.
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
