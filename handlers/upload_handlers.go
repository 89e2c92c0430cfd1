package handlers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/atitkothari/img2video/utils"
)

// UploadThumbnailResponse carries the public URL of an uploaded thumbnail.
type UploadThumbnailResponse struct {
	Success      bool   `json:"success"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// UploadThumbnail stores a scene's reference image in the object store under
// thumbnails/<sessionId>/scene_<index>_thumbnail<ext>.
func (h *ApplicationHandler) UploadThumbnail(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	sessionID := c.FormValue("sessionId")
	sceneIndex := c.FormValue("sceneIndex")

	if err != nil || sessionID == "" || sceneIndex == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Missing required fields")
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.Logger.WithError(err).Error("Error opening uploaded thumbnail")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to upload thumbnail")
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("thumbnails/%s/scene_%s_thumbnail%s",
		sessionID, sceneIndex, filepath.Ext(fileHeader.Filename))

	thumbnailURL, err := h.Uploader.Upload(c.UserContext(), key, file, contentType)
	if err != nil {
		h.Logger.WithField("key", key).WithError(err).Error("Error uploading thumbnail")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to upload thumbnail")
	}

	return c.Status(fiber.StatusOK).JSON(UploadThumbnailResponse{
		Success:      true,
		ThumbnailURL: thumbnailURL,
	})
}

// UploadToS3Request names a file under the public directory to push to the
// object store.
type UploadToS3Request struct {
	FilePath  string `json:"filePath" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
}

// UploadToS3Response carries the public URL of the uploaded file.
type UploadToS3Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	S3URL   string `json:"s3Url"`
}

// UploadToS3 uploads a locally generated video under videos/<sessionId>/.
func (h *ApplicationHandler) UploadToS3(c *fiber.Ctx) error {
	req := new(UploadToS3Request)

	if err := c.BodyParser(req); err != nil {
		h.Logger.WithError(err).Warn("Error parsing upload-to-s3 request")
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Cannot parse request JSON")
	}
	if err := h.Validate.Struct(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "File path and session ID are required")
	}

	// Clean against the public root so the path cannot escape it.
	fullPath := filepath.Join(h.PublicDir, filepath.Clean("/"+req.FilePath))
	if _, err := os.Stat(fullPath); err != nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, "File not found")
	}

	key := fmt.Sprintf("videos/%s/%s", req.SessionID, filepath.Base(fullPath))
	s3URL, err := h.Uploader.UploadFile(c.UserContext(), fullPath, key, "video/mp4")
	if err != nil {
		h.Logger.WithField("key", key).WithError(err).Error("Error uploading to S3")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to upload to S3")
	}

	return c.Status(fiber.StatusOK).JSON(UploadToS3Response{
		Success: true,
		Message: "File uploaded to S3 successfully",
		S3URL:   s3URL,
	})
}
