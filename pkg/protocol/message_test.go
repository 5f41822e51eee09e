package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hiral-chawra/Protofito/pkg/pose"
)

func testFrame() FrameData {
	return pose.NewFrame(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)).
		Set(pose.Shoulder, pose.Pt(240, 200)).
		Set(pose.Elbow, pose.Pt(320, 200)).
		Set(pose.Wrist, pose.Pt(320, 280)).
		Set(pose.Hip, pose.Pt(320, 300)).
		Set(pose.Knee, pose.Pt(320, 380)).
		Set(pose.Ankle, pose.Pt(400, 380))
}

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "frame message",
			msgType: TypeFrame,
			data:    testFrame(),
		},
		{
			name:    "result payload",
			msgType: TypeResult,
			data:    map[string]interface{}{"phase": "down", "rep_count": 3},
		},
		{
			name:    "nil data",
			msgType: TypeReset,
			data:    nil,
		},
		{
			name:    "unencodable data",
			msgType: TypeResult,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
			if tt.data == nil && msg.Data != nil {
				t.Errorf("NewMessage() data = %s, want none", msg.Data)
			}
		})
	}
}

func TestFrameMessage(t *testing.T) {
	original := testFrame()

	msg, err := NewFrameMessage(original)
	if err != nil {
		t.Fatalf("NewFrameMessage() error = %v", err)
	}

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeFrame {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeFrame)
	}

	frame, err := parsed.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData() error = %v", err)
	}
	if !frame.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", frame.Timestamp, original.Timestamp)
	}
	if err := frame.Validate(); err != nil {
		t.Errorf("decoded frame invalid: %v", err)
	}
	if got, _ := frame.Get(pose.Wrist); got != pose.Pt(320, 280) {
		t.Errorf("wrist = %v, want (320, 280)", got)
	}
}

func TestFrameMessageWireFormat(t *testing.T) {
	raw := `{"type":"frame","ts":1700000000000,"data":{"ts":"2026-01-02T03:04:05Z","joints":{"elbow":{"x":1,"y":2}}}}`

	msg, err := ParseMessage([]byte(raw))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	frame, err := msg.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData() error = %v", err)
	}
	if got, ok := frame.Get(pose.Elbow); !ok || got != pose.Pt(1, 2) {
		t.Errorf("elbow = %v (present %v), want (1, 2)", got, ok)
	}
	if !errors.Is(frame.Validate(), pose.ErrMissingJoint) {
		t.Error("partial frame should fail validation with ErrMissingJoint")
	}
}

func TestFrameMessageWithoutData(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"frame"}`))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if _, err := msg.GetFrameData(); !errors.Is(err, ErrNoData) {
		t.Errorf("GetFrameData() error = %v, want ErrNoData", err)
	}
}

func TestFrameMessageTimestamp(t *testing.T) {
	frame := testFrame()
	msg, err := NewFrameMessage(frame)
	if err != nil {
		t.Fatalf("NewFrameMessage() error = %v", err)
	}
	if !msg.Time().Equal(frame.Timestamp) {
		t.Errorf("Time() = %v, want frame time %v", msg.Time(), frame.Timestamp)
	}

	frame.Timestamp = time.Time{}
	msg, _ = NewFrameMessage(frame)
	if msg.Time().IsZero() {
		t.Error("frame without a timestamp should be stamped with the current time")
	}

	if got := (&Message{Type: TypeReset}).Time(); !got.IsZero() {
		t.Errorf("Time() without ts = %v, want zero", got)
	}
}

func TestPayloadTypeMismatch(t *testing.T) {
	ping, _ := NewPingMessage("x")

	if _, err := ping.GetFrameData(); !errors.Is(err, ErrUnexpectedType) {
		t.Errorf("GetFrameData() on ping error = %v, want ErrUnexpectedType", err)
	}
	if _, err := ping.GetPongData(); !errors.Is(err, ErrUnexpectedType) {
		t.Errorf("GetPongData() on ping error = %v, want ErrUnexpectedType", err)
	}

	empty := &Message{Type: TypePing}
	if _, err := empty.GetPingData(); !errors.Is(err, ErrNoData) {
		t.Errorf("GetPingData() without data error = %v, want ErrNoData", err)
	}

	bad := &Message{Type: TypePing, Data: []byte(`"nope"`)}
	if _, err := bad.GetPingData(); err == nil {
		t.Error("GetPingData() should fail on a non-object payload")
	}
}

func TestEncode(t *testing.T) {
	raw, err := Encode(TypeResult, map[string]int{"rep_count": 4})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	msg, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if msg.Type != TypeResult || msg.Timestamp == 0 {
		t.Errorf("Encode() envelope = %+v", msg)
	}

	var got map[string]int
	if err := msg.ParseData(&got); err != nil || got["rep_count"] != 4 {
		t.Errorf("ParseData() = %v, %v", got, err)
	}

	if _, err := Encode(TypeResult, func() {}); err == nil {
		t.Error("Encode() should fail for unencodable data")
	}
}

func TestMessageTypeKnown(t *testing.T) {
	for _, mt := range []MessageType{TypeFrame, TypeResult, TypeState, TypeReset, TypePing, TypePong} {
		if !mt.Known() {
			t.Errorf("%q should be known", mt)
		}
	}
	if MessageType("hello").Known() {
		t.Error("hello should not be known")
	}
}

func TestResetMessage(t *testing.T) {
	msg, err := NewResetMessage()
	if err != nil {
		t.Fatalf("NewResetMessage() error = %v", err)
	}

	raw, _ := msg.Bytes()
	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal as map: %v", err)
	}
	if parsed["type"] != "reset" {
		t.Errorf("type = %v, want reset", parsed["type"])
	}
	if _, ok := parsed["data"]; ok {
		t.Error("reset message should not carry data")
	}
}

func TestPingPongMessage(t *testing.T) {
	pingMsg, err := NewPingMessage("test-123")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}
	if pingMsg.Type != TypePing {
		t.Errorf("Type = %v, want %v", pingMsg.Type, TypePing)
	}

	ping, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if ping.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", ping.ID)
	}
	if ping.Timestamp == 0 {
		t.Error("ping timestamp should be set")
	}

	pongMsg, err := NewPongMessage(*ping, ping.Timestamp+25)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}
	if pongMsg.Type != TypePong {
		t.Errorf("Type = %v, want %v", pongMsg.Type, TypePong)
	}

	pong, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if pong.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pong.ID)
	}
	if pong.LatencyMs != 25 {
		t.Errorf("LatencyMs = %v, want 25", pong.LatencyMs)
	}
}

func TestStateMessage(t *testing.T) {
	snapshot := struct {
		SessionID string `json:"session_id"`
		RepCount  uint   `json:"rep_count"`
	}{"abc", 7}

	msg, err := NewStateMessage(snapshot)
	if err != nil {
		t.Fatalf("NewStateMessage() error = %v", err)
	}
	if msg.Type != TypeState {
		t.Errorf("Type = %v, want %v", msg.Type, TypeState)
	}

	var got struct {
		SessionID string `json:"session_id"`
		RepCount  uint   `json:"rep_count"`
	}
	if err := msg.ParseData(&got); err != nil {
		t.Fatalf("ParseData() error = %v", err)
	}
	if got.SessionID != "abc" || got.RepCount != 7 {
		t.Errorf("ParseData() = %+v, want {abc 7}", got)
	}
}

func TestParseInvalidMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "invalid json",
			input:   "not json",
			wantErr: true,
		},
		{
			name:    "missing type",
			input:   "{}",
			wantErr: true,
		},
		{
			name:    "valid message",
			input:   `{"type":"ping","ts":1234567890}`,
			wantErr: false,
		},
		{
			name:    "unknown type still parses",
			input:   `{"type":"hello"}`,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func BenchmarkNewFrameMessage(b *testing.B) {
	frame := testFrame()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewFrameMessage(frame)
	}
}

func BenchmarkParseMessage(b *testing.B) {
	msg, _ := NewFrameMessage(testFrame())
	raw, _ := msg.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseMessage(raw)
	}
}
