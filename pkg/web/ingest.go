package web

import (
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/hiral-chawra/Protofito/pkg/protocol"
)

// handleFramesWS accepts a pose estimator connection. Frame messages feed
// the ingest source, reset restarts the session and ping is answered with
// pong on the same connection.
func (s *Server) handleFramesWS(c *websocket.Conn) {
	remote := c.RemoteAddr().String()
	s.logger.Info("estimator connected", "remote", remote)
	defer s.logger.Info("estimator disconnected", "remote", remote)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("estimator read error", "remote", remote, "error", err)
			}
			return
		}

		reply := s.handleIngestMessage(data)
		if reply == nil {
			continue
		}
		raw, err := reply.Bytes()
		if err != nil {
			continue
		}
		if err := c.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
	}
}

// handleIngestMessage processes one estimator message and returns the
// reply to send, if any.
func (s *Server) handleIngestMessage(data []byte) *protocol.Message {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.rejectedFrames.Add(1)
		s.logger.Debug("ingest parse error", "error", err)
		return nil
	}

	switch msg.Type {
	case protocol.TypeFrame:
		frame, err := msg.GetFrameData()
		if err != nil {
			s.rejectedFrames.Add(1)
			s.logger.Debug("bad frame message", "error", err)
			return nil
		}
		if frame.Timestamp.IsZero() {
			frame.Timestamp = msg.Time()
		}
		if s.ingest.Feed(*frame) {
			s.ingestedFrames.Add(1)
		}

	case protocol.TypeReset:
		snap := s.restart()
		reply, _ := protocol.NewStateMessage(snap)
		return reply

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return nil
		}
		reply, _ := protocol.NewPongMessage(*ping, time.Now().UnixMilli())
		return reply

	default:
		s.logger.Debug("unexpected ingest message", "type", msg.Type)
	}
	return nil
}
