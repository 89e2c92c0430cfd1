package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/atitkothari/img2video/config"
	"github.com/atitkothari/img2video/handlers"
	"github.com/atitkothari/img2video/internal/fetch"
	"github.com/atitkothari/img2video/internal/ffmpeg"
	"github.com/atitkothari/img2video/internal/luma"
	"github.com/atitkothari/img2video/internal/pipeline"
	"github.com/atitkothari/img2video/internal/replicate"
	"github.com/atitkothari/img2video/internal/session"
	"github.com/atitkothari/img2video/internal/storage"
	"github.com/atitkothari/img2video/internal/worker"
	"github.com/atitkothari/img2video/middleware"
	"github.com/atitkothari/img2video/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger := config.InitLogger()

	store, err := session.NewStore(cfg.GenerationsDir())
	if err != nil {
		logger.Fatalf("Failed to initialize session store: %v", err)
	}

	uploader, err := storage.NewS3Uploader(context.Background(),
		cfg.AWSRegion, cfg.S3Bucket, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
	if err != nil {
		logger.Fatalf("Failed to initialize S3 uploader: %v", err)
	}

	lumaClient := luma.NewClient(cfg.LumaAPIKey, logger)
	speechClient := replicate.NewClient(cfg.ReplicateAPIKey, logger)

	pipe := pipeline.New(lumaClient, speechClient, fetch.NewFetcher(),
		ffmpeg.Runner{}, uploader, store, logger)

	queue := worker.NewQueue(16, logger)
	queue.Start()

	handler := handlers.NewApplicationHandler(
		logger, validator.New(), pipe, store, uploader, queue, cfg.PublicDir)

	app := fiber.New(fiber.Config{
		// Long batch generations run inside the request.
		ReadTimeout: 30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
			}
			logger.WithError(err).Error("Unhandled request error")
			if code == fiber.StatusInternalServerError {
				return utils.RespondWithError(c, code, "Internal server error")
			}
			return utils.RespondWithError(c, code, err.Error())
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(middleware.RequestLogger(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "Storyboard server is healthy",
		})
	})

	api := app.Group("/api")
	api.Post("/generate-clip", handler.GenerateClip)
	api.Post("/combine-videos", handler.CombineVideos)
	api.Get("/list-sessions", handler.ListSessions)
	api.Post("/upload-thumbnail", handler.UploadThumbnail)
	api.Post("/upload-to-s3", handler.UploadToS3)

	// Generated artifacts are publicly reachable at the paths the API returns.
	app.Static("/generations", cfg.GenerationsDir())

	go func() {
		logger.Infof("Starting storyboard server on port %s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down, cancelling all pending generations...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	lumaClient.CancelAll(shutdownCtx)
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during server shutdown")
	}
	queue.Stop()
	logger.Info("Shutdown complete")
}
