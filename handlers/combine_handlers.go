package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/atitkothari/img2video/internal/pipeline"
	"github.com/atitkothari/img2video/utils"
)

// CombineVideosRequest is the body for the final concatenation endpoint.
type CombineVideosRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// CombineVideosResponse carries the public path of the combined video.
type CombineVideosResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	VideoPath string `json:"videoPath"`
}

// CombineVideos concatenates every finished per-scene file of a session into
// final_video.mp4, with fade transitions between scenes.
func (h *ApplicationHandler) CombineVideos(c *fiber.Ctx) error {
	req := new(CombineVideosRequest)

	if err := c.BodyParser(req); err != nil {
		h.Logger.WithError(err).Warn("Error parsing combine-videos request")
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Cannot parse request JSON")
	}
	if err := h.Validate.Struct(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Session ID is required")
	}

	if !h.Store.Exists(req.SessionID) {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Session folder not found")
	}

	ctx := c.UserContext()

	var videoPath string
	err := h.Queue.Do(ctx, "combine-videos:"+req.SessionID, func() error {
		var combineErr error
		videoPath, combineErr = h.Pipeline.Combine(ctx, req.SessionID)
		return combineErr
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrNoSceneVideos) {
			return utils.RespondWithError(c, fiber.StatusNotFound, "No videos found to combine")
		}
		h.Logger.WithField("session_id", req.SessionID).WithError(err).Error("Error combining videos")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to combine videos")
	}

	return c.Status(fiber.StatusOK).JSON(CombineVideosResponse{
		Success:   true,
		Message:   "Videos combined successfully",
		VideoPath: videoPath,
	})
}
