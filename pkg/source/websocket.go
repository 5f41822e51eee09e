package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hiral-chawra/Protofito/pkg/protocol"
)

// WebSocket receives frame messages from a remote pose estimator.
type WebSocket struct {
	*Push

	url    string
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

// DialWebSocket connects to an estimator stream and starts reading.
// The source reports ErrClosed once the connection drops.
func DialWebSocket(ctx context.Context, url string, bufferSize int, logger *slog.Logger) (*WebSocket, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	ws := &WebSocket{
		Push:   NewPush(string(KindWebSocket), bufferSize),
		url:    url,
		conn:   conn,
		logger: logger.With("component", "source", "source", KindWebSocket, "url", url),
		done:   make(chan struct{}),
	}
	go ws.readLoop()
	return ws, nil
}

func (w *WebSocket) readLoop() {
	defer close(w.done)
	defer w.Push.Close()

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.logger.Warn("estimator stream closed", "error", err)
			}
			return
		}
		w.handleMessage(data)
	}
}

func (w *WebSocket) handleMessage(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		w.logger.Debug("dropping message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeFrame:
		frame, err := msg.GetFrameData()
		if err != nil {
			w.logger.Debug("bad frame message", "error", err)
			return
		}
		w.Feed(*frame)

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return
		}
		pong, err := protocol.NewPongMessage(*ping, time.Now().UnixMilli())
		if err != nil {
			return
		}
		raw, _ := pong.Bytes()
		w.writeMu.Lock()
		err = w.conn.WriteMessage(websocket.TextMessage, raw)
		w.writeMu.Unlock()
		if err != nil {
			w.logger.Debug("pong failed", "error", err)
		}
	}
}

// Close disconnects from the estimator.
func (w *WebSocket) Close() error {
	var err error
	w.once.Do(func() {
		w.writeMu.Lock()
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.writeMu.Unlock()

		err = w.conn.Close()
		w.Push.Close()
		<-w.done
	})
	return err
}
