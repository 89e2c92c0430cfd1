package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/atitkothari/img2video/internal/pipeline"
	"github.com/atitkothari/img2video/models"
	"github.com/atitkothari/img2video/utils"
)

// GenerateClipRequest is the body for the batch generation endpoint.
type GenerateClipRequest struct {
	Scenes    []models.Scene `json:"scenes" validate:"required,min=1"`
	SessionID string         `json:"sessionId" validate:"required"`
}

// GenerateClipResponse reports per-scene upload URLs. SceneS3URLs keeps one
// entry per submitted scene; a failed scene's entry is empty.
type GenerateClipResponse struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	SessionID   string   `json:"sessionId"`
	SceneS3URLs []string `json:"sceneS3Urls"`
	S3URL       string   `json:"s3Url"`
}

// GenerateClip runs the scene pipeline for all submitted scenes. The request
// blocks until the whole batch finishes; batches from concurrent requests are
// serialized through the job queue.
func (h *ApplicationHandler) GenerateClip(c *fiber.Ctx) error {
	req := new(GenerateClipRequest)

	if err := c.BodyParser(req); err != nil {
		h.Logger.WithError(err).Warn("Error parsing generate-clip request")
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Cannot parse request JSON")
	}
	if err := h.Validate.Struct(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest,
			strings.Join(utils.FormatValidationErrors(err), "; "))
	}

	ctx := c.UserContext()

	var result *pipeline.Result
	err := h.Queue.Do(ctx, "generate-clip:"+req.SessionID, func() error {
		var runErr error
		result, runErr = h.Pipeline.Run(ctx, req.SessionID, req.Scenes)
		return runErr
	})
	if err != nil {
		h.Logger.WithField("session_id", req.SessionID).WithError(err).Error("Error in generate-clip")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to generate clips")
	}

	return c.Status(fiber.StatusOK).JSON(GenerateClipResponse{
		Success:     true,
		Message:     "All scenes generated successfully",
		SessionID:   result.SessionID,
		SceneS3URLs: result.SceneS3URLs,
		S3URL:       result.S3URL,
	})
}
