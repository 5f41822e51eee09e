package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiral-chawra/Protofito/pkg/exercise"
	"github.com/hiral-chawra/Protofito/pkg/pose"
	"github.com/hiral-chawra/Protofito/pkg/protocol"
	"github.com/hiral-chawra/Protofito/pkg/reps"
	"github.com/hiral-chawra/Protofito/pkg/session"
	"github.com/hiral-chawra/Protofito/pkg/source"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func armFrame(ts time.Time, deg float64) pose.JointFrame {
	theta := pose.Radians(deg)
	return pose.NewFrame(ts).
		Set(pose.Shoulder, pose.Pt(240, 200)).
		Set(pose.Elbow, pose.Pt(320, 200)).
		Set(pose.Wrist, pose.Pt(320-80*math.Cos(theta), 200+80*math.Sin(theta))).
		Set(pose.Hip, pose.Pt(320, 300)).
		Set(pose.Knee, pose.Pt(320, 380)).
		Set(pose.Ankle, pose.Pt(400, 380))
}

func newTestServer(t *testing.T) (*Server, *session.Session, *source.Push) {
	t.Helper()

	m, err := exercise.LookupMovement(exercise.PushUp)
	require.NoError(t, err)
	sess, err := session.New(m, session.WithLogger(quietLogger()))
	require.NoError(t, err)
	catalog, err := exercise.DefaultCatalog()
	require.NoError(t, err)

	push := source.NewPush("ingest", 8)
	srv := NewServer(DefaultConfig(), sess, catalog, push, quietLogger())
	return srv, sess, push
}

// serve starts srv on a loopback port and returns its ws:// base URL.
func serve(t *testing.T, srv *Server) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
		}
	})

	require.Eventually(t, srv.Hub().IsRunning, time.Second, 5*time.Millisecond)
	return "ws://" + ln.Addr().String()
}

func readMessage(t *testing.T, conn *websocket.Conn) *protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.ParseMessage(data)
	require.NoError(t, err)
	return msg
}

func TestHealth(t *testing.T) {
	srv, sess, _ := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, sess.ID(), body["session_id"])
}

func TestStatusReportsVariation(t *testing.T) {
	m, err := exercise.LookupMovement(exercise.PushUp)
	require.NoError(t, err)
	sess, err := session.New(m, session.WithLogger(quietLogger()), session.WithVariation("wide"))
	require.NoError(t, err)
	catalog, err := exercise.DefaultCatalog()
	require.NoError(t, err)
	srv := NewServer(DefaultConfig(), sess, catalog, nil, quietLogger())

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var snap session.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "wide", snap.Variation)
}

func TestStatusAndStart(t *testing.T) {
	srv, sess, _ := newTestServer(t)

	for _, a := range []float64{170, 80, 170} {
		_, err := sess.Process(armFrame(time.Now(), a))
		require.NoError(t, err)
	}

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var snap session.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, uint(1), snap.State.RepCount)
	assert.Equal(t, reps.PhaseUp, snap.State.LastPhase)
	assert.Equal(t, "pushup", snap.Movement)
	require.NotNil(t, snap.Last)
	assert.True(t, snap.Last.RepCounted)

	oldID := sess.ID()
	resp, err = srv.App().Test(httptest.NewRequest("POST", "/api/session/start", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.NotEqual(t, oldID, snap.SessionID)
	assert.Equal(t, reps.State{}, snap.State)
	assert.Nil(t, snap.Last)
}

func TestStartRequiresPost(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/session/start", nil))
	require.NoError(t, err)
	assert.Equal(t, 405, resp.StatusCode)
}

func TestExerciseRoutes(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/exercises", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var list []exercise.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 5)

	resp, err = srv.App().Test(httptest.NewRequest("GET", "/api/exercises/diamond", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var profile exercise.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	assert.Equal(t, "diamond", profile.ID)

	resp, err = srv.App().Test(httptest.NewRequest("GET", "/api/exercises/one-arm", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = srv.App().Test(httptest.NewRequest("GET", "/api/movements", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var movements []exercise.Movement
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&movements))
	require.Len(t, movements, 2)
	assert.Equal(t, exercise.PushUp, movements[0].Name)
}

func TestMetrics(t *testing.T) {
	srv, sess, _ := newTestServer(t)

	_, err := sess.Process(armFrame(time.Now(), 170))
	require.NoError(t, err)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "# TYPE protofito_ticks_total counter")
	assert.Contains(t, text, "\nprotofito_ticks_total 1\n")
	assert.Contains(t, text, "\nprotofito_reps 0\n")
	assert.Contains(t, text, "protofito_ingest_queue_dropped_total")
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/ws/results", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}

func TestHandleIngestMessage(t *testing.T) {
	srv, sess, push := newTestServer(t)

	frameMsg, err := protocol.NewFrameMessage(armFrame(time.Time{}, 170))
	require.NoError(t, err)
	raw, _ := frameMsg.Bytes()
	assert.Nil(t, srv.handleIngestMessage(raw))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	frame, err := push.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, frameMsg.Timestamp, frame.Timestamp.UnixMilli(), "envelope time fills a missing frame time")

	assert.Nil(t, srv.handleIngestMessage([]byte("junk")))
	assert.Nil(t, srv.handleIngestMessage([]byte(`{"type":"frame"}`)))
	assert.Equal(t, uint64(2), srv.rejectedFrames.Load())
	assert.Equal(t, uint64(1), srv.ingestedFrames.Load())

	oldID := sess.ID()
	reply := srv.handleIngestMessage([]byte(`{"type":"reset"}`))
	require.NotNil(t, reply)
	assert.Equal(t, protocol.TypeState, reply.Type)
	assert.NotEqual(t, oldID, sess.ID())

	pingMsg, _ := protocol.NewPingMessage("p1")
	raw, _ = pingMsg.Bytes()
	reply = srv.handleIngestMessage(raw)
	require.NotNil(t, reply)
	assert.Equal(t, protocol.TypePong, reply.Type)
}

func TestFramesWebSocket(t *testing.T) {
	srv, sess, push := newTestServer(t)
	base := serve(t, srv)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/frames", nil)
	require.NoError(t, err)
	defer conn.Close()

	frameMsg, _ := protocol.NewFrameMessage(armFrame(time.Now(), 80))
	raw, _ := frameMsg.Bytes()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	frame, err := push.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, frame.Validate())

	pingMsg, _ := protocol.NewPingMessage("abc")
	raw, _ = pingMsg.Bytes()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	reply := readMessage(t, conn)
	require.Equal(t, protocol.TypePong, reply.Type)
	pong, err := reply.GetPongData()
	require.NoError(t, err)
	assert.Equal(t, "abc", pong.ID)

	oldID := sess.ID()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"reset"}`)))
	reply = readMessage(t, conn)
	require.Equal(t, protocol.TypeState, reply.Type)

	var snap session.Snapshot
	require.NoError(t, reply.ParseData(&snap))
	assert.NotEqual(t, oldID, snap.SessionID)
	assert.Equal(t, sess.ID(), snap.SessionID)
}

func TestResultsWebSocket(t *testing.T) {
	srv, sess, _ := newTestServer(t)
	base := serve(t, srv)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/results", nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readMessage(t, conn)
	require.Equal(t, protocol.TypeState, first.Type)

	require.Eventually(t, func() bool { return srv.Hub().ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	res, err := sess.Process(armFrame(time.Now(), 80))
	require.NoError(t, err)
	require.NoError(t, srv.Publish(res))

	msg := readMessage(t, conn)
	require.Equal(t, protocol.TypeResult, msg.Type)

	var got session.Result
	require.NoError(t, msg.ParseData(&got))
	assert.Equal(t, reps.PhaseDown, got.Phase)
	assert.Equal(t, res.Tick, got.Tick)
	angle, ok := got.Angle()
	require.True(t, ok)
	assert.InDelta(t, 80, angle, 1e-6)

	// A dashboard reset restarts the session and is broadcast as state.
	oldID := sess.ID()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"reset"}`)))
	msg = readMessage(t, conn)
	require.Equal(t, protocol.TypeState, msg.Type)
	assert.NotEqual(t, oldID, sess.ID())

	conn.Close()
	require.Eventually(t, func() bool { return srv.Hub().ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestPublishWithoutClients(t *testing.T) {
	srv, sess, _ := newTestServer(t)

	res, err := sess.Process(armFrame(time.Now(), 170))
	require.NoError(t, err)
	require.NoError(t, srv.Publish(res))
	assert.Equal(t, uint64(1), srv.published.Load())
}

func TestNoIngestRoute(t *testing.T) {
	srv, sess, _ := newTestServer(t)
	plain := NewServer(DefaultConfig(), sess, srv.catalog, nil, quietLogger())

	req := httptest.NewRequest("GET", "/ws/frames", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err := plain.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
