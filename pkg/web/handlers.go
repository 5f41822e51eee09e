package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/hiral-chawra/Protofito/pkg/exercise"
	"github.com/hiral-chawra/Protofito/pkg/hub"
	"github.com/hiral-chawra/Protofito/pkg/protocol"
)

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     "ok",
		"session_id": s.session.ID(),
		"uptime_sec": time.Since(s.started).Seconds(),
	})
}

// handleStatus returns the session snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.session.Snapshot())
}

// handleStartSession restarts the session
func (s *Server) handleStartSession(c *fiber.Ctx) error {
	return c.JSON(s.restart())
}

// handleListMovements returns the built-in movement models
func (s *Server) handleListMovements(c *fiber.Ctx) error {
	return c.JSON(exercise.Movements())
}

// handleListExercises returns the variation catalog
func (s *Server) handleListExercises(c *fiber.Ctx) error {
	return c.JSON(s.catalog.List())
}

// handleGetExercise returns one catalog entry
func (s *Server) handleGetExercise(c *fiber.Ctx) error {
	profile, err := s.catalog.Lookup(c.Params("id"))
	if errors.Is(err, exercise.ErrProfileNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(profile)
}

// handleResultsWS streams results to a dashboard. The current state is
// sent first; the dashboard may send reset messages.
func (s *Server) handleResultsWS(c *websocket.Conn) {
	if raw, err := protocol.Encode(protocol.TypeState, s.session.Snapshot()); err == nil {
		if err := c.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
	}

	client := hub.NewClient(s.results, c, s.handleDashboardMessage)
	if client == nil {
		return
	}
	client.Run()
}

// handleDashboardMessage processes commands read from a dashboard client.
func (s *Server) handleDashboardMessage(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Debug("dashboard message ignored", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeReset:
		s.restart()
	default:
		s.logger.Debug("unexpected dashboard message", "type", msg.Type)
	}
}
