package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atitkothari/img2video/models"
	"github.com/atitkothari/img2video/utils"
)

// ListSessionsResponse enumerates generation sessions, newest first.
type ListSessionsResponse struct {
	Success  bool                 `json:"success"`
	Sessions []models.SessionInfo `json:"sessions"`
}

// ListSessions reports every session directory under the generations root.
func (h *ApplicationHandler) ListSessions(c *fiber.Ctx) error {
	sessions, err := h.Store.List()
	if err != nil {
		h.Logger.WithError(err).Error("Error listing sessions")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to list sessions")
	}

	return c.Status(fiber.StatusOK).JSON(ListSessionsResponse{
		Success:  true,
		Sessions: sessions,
	})
}
