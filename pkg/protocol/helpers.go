package protocol

import (
	"fmt"
	"time"
)

// NewFrameMessage wraps one tick of joint coordinates. The envelope takes
// the frame's own timestamp when it has one.
func NewFrameMessage(frame FrameData) (*Message, error) {
	ts := frame.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return NewMessageAt(TypeFrame, frame, ts)
}

// NewResultMessage wraps a per-tick session result.
func NewResultMessage(result any) (*Message, error) {
	return NewMessage(TypeResult, result)
}

// NewStateMessage wraps a session snapshot.
func NewStateMessage(snapshot any) (*Message, error) {
	return NewMessage(TypeState, snapshot)
}

// NewResetMessage asks the core to start a new session.
func NewResetMessage() (*Message, error) {
	return NewMessage(TypeReset, nil)
}

// NewPingMessage creates a ping stamped with the current time.
func NewPingMessage(id string) (*Message, error) {
	now := time.Now()
	return NewMessageAt(TypePing, PingData{ID: id, Timestamp: now.UnixMilli()}, now)
}

// NewPongMessage answers ping at pongTS (unix ms).
func NewPongMessage(ping PingData, pongTS int64) (*Message, error) {
	return NewMessageAt(TypePong, PongData{
		ID:        ping.ID,
		PingTS:    ping.Timestamp,
		PongTS:    pongTS,
		LatencyMs: pongTS - ping.Timestamp,
	}, time.UnixMilli(pongTS))
}

// payload decodes the data of a message that must be of type want.
func payload[T any](m *Message, want MessageType) (*T, error) {
	if m.Type != want {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrUnexpectedType, m.Type, want)
	}
	var v T
	if err := m.ParseData(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetFrameData decodes the joints of a frame message.
func (m *Message) GetFrameData() (*FrameData, error) {
	return payload[FrameData](m, TypeFrame)
}

// GetPingData decodes a ping payload.
func (m *Message) GetPingData() (*PingData, error) {
	return payload[PingData](m, TypePing)
}

// GetPongData decodes a pong payload.
func (m *Message) GetPongData() (*PongData, error) {
	return payload[PongData](m, TypePong)
}
