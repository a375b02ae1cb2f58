package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

type presencePinger interface {
	Ping(ctx context.Context, userID int64) error
}

type PresenceHandler struct {
	presence presencePinger
}

func NewPresenceHandler(presence presencePinger) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// Ping stamps the caller as online now. Clients call it periodically; a
// user whose pings stop goes stale on the reader side.
func (h *PresenceHandler) Ping(c *fiber.Ctx) error {
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if err := h.presence.Ping(c.Context(), actorID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update presence"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
