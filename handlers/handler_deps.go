package handlers

import (
	"context"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/atitkothari/img2video/internal/pipeline"
	"github.com/atitkothari/img2video/internal/session"
	"github.com/atitkothari/img2video/models"
)

// ScenePipeline is the subset of the generation pipeline the handlers use.
// Keeping it an interface decouples the HTTP layer from live providers and
// makes the handlers testable.
type ScenePipeline interface {
	Run(ctx context.Context, sessionID string, scenes []models.Scene) (*pipeline.Result, error)
	Combine(ctx context.Context, sessionID string) (string, error)
}

// ObjectUploader is the object-store surface the upload handlers need.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	UploadFile(ctx context.Context, localPath, key, contentType string) (string, error)
}

// JobQueue serializes pipeline work so only one batch runs at a time.
type JobQueue interface {
	Do(ctx context.Context, id string, fn func() error) error
}

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Logger   *logrus.Logger
	Validate *validator.Validate
	Pipeline ScenePipeline
	Store    *session.Store
	Uploader ObjectUploader
	Queue    JobQueue

	// PublicDir anchors the relative file paths accepted by the
	// upload-to-s3 endpoint.
	PublicDir string
}

// NewApplicationHandler creates an ApplicationHandler with the given dependencies.
func NewApplicationHandler(
	logger *logrus.Logger,
	validate *validator.Validate,
	pipe ScenePipeline,
	store *session.Store,
	uploader ObjectUploader,
	queue JobQueue,
	publicDir string,
) *ApplicationHandler {
	return &ApplicationHandler{
		Logger:    logger,
		Validate:  validate,
		Pipeline:  pipe,
		Store:     store,
		Uploader:  uploader,
		Queue:     queue,
		PublicDir: publicDir,
	}
}
