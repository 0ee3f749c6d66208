package overlay

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/leviathanlabs/leviathan/pkg/hub"
)

// handleState returns the current overlay state document.
// Polled continuously by the overlay page, so it stays quiet in logs.
func (s *Server) handleState(c *fiber.Ctx) error {
	if s.cfg.Store == nil {
		return c.JSON(State{Mode: ModeSpeak, FontSize: DefaultFontSize})
	}
	return c.JSON(s.cfg.Store.Snapshot())
}

// handleHealth is a liveness probe.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleIngest appends one gamestate event to the log.
// Malformed JSON is rejected with 400 and the log stays unchanged.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	if s.cfg.Events == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "gamestate log not configured",
		})
	}

	ev, err := s.cfg.Events.Append(c.Body())
	if err != nil {
		s.logger.Warn("rejected gamestate payload", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON payload",
		})
	}

	s.logger.Debug("gamestate event accepted", "key", ev.Key())
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "accepted",
		"key":    ev.Key(),
	})
}

// handleStateWS streams overlay state changes to a websocket client.
// The initial state is pushed on connect so the page renders without
// waiting for the next change.
func (s *Server) handleStateWS(c *websocket.Conn) {
	client := hub.NewClient(s.hub, c)
	if s.cfg.Store != nil {
		s.hub.BroadcastJSON(s.cfg.Store.Snapshot())
	}
	client.Run()
}
