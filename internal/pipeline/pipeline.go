// Package pipeline orchestrates per-scene video generation: generate, fetch,
// synthesize dialogue, mux, upload, and finally combine scenes into one cut.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atitkothari/img2video/internal/luma"
	"github.com/atitkothari/img2video/internal/session"
	"github.com/atitkothari/img2video/models"
)

// ErrNoSceneVideos is returned by Combine when a session holds no finished
// per-scene files.
var ErrNoSceneVideos = errors.New("no videos found to combine")

const defaultNegativePrompt = "blurry, low quality, distorted"

// VideoGenerator produces a remote video URL for a set of generation
// parameters, blocking until the provider reaches a terminal state.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, params luma.GenerationParams) (string, error)
}

// SpeechSynthesizer produces a remote audio URL for dialogue text.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, character string) (string, error)
}

// Downloader fetches a remote asset to a local path.
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// Combiner muxes and concatenates local media files.
type Combiner interface {
	MuxAudio(videoPath, audioPath, outputPath string) error
	ConcatWithFades(inputPaths []string, outputPath string) error
	VideoDuration(path string) (time.Duration, error)
}

// Uploader pushes a local file to object storage and returns its public URL.
type Uploader interface {
	UploadFile(ctx context.Context, localPath, key, contentType string) (string, error)
}

// Pipeline runs the scene workflow. Scenes are processed strictly in order,
// one at a time; a failed scene is logged and skipped, never fatal for the
// batch.
type Pipeline struct {
	generator VideoGenerator
	speech    SpeechSynthesizer
	fetcher   Downloader
	combiner  Combiner
	uploader  Uploader
	store     *session.Store
	log       *logrus.Logger
}

// New wires a pipeline from its dependencies.
func New(
	generator VideoGenerator,
	speech SpeechSynthesizer,
	fetcher Downloader,
	combiner Combiner,
	uploader Uploader,
	store *session.Store,
	log *logrus.Logger,
) *Pipeline {
	return &Pipeline{
		generator: generator,
		speech:    speech,
		fetcher:   fetcher,
		combiner:  combiner,
		uploader:  uploader,
		store:     store,
		log:       log,
	}
}

// Result is the outcome of one batch run. SceneS3URLs always has one entry
// per submitted scene; failed scenes hold an empty string.
type Result struct {
	SessionID   string
	SceneS3URLs []string
	S3URL       string
}

// Run processes every scene in order and then uploads the finished per-scene
// files in order.
func (p *Pipeline) Run(ctx context.Context, sessionID string, scenes []models.Scene) (*Result, error) {
	if _, err := p.store.Ensure(sessionID); err != nil {
		return nil, err
	}

	sceneURLs := make([]string, len(scenes))
	finals := make([]string, len(scenes))

	for i, scene := range scenes {
		logger := p.log.WithFields(logrus.Fields{"session_id": sessionID, "scene": i})
		logger.Infof("Processing scene %d/%d", i+1, len(scenes))

		finalPath, err := p.processScene(ctx, logger, sessionID, i, scene)
		if err != nil {
			logger.WithError(err).Error("Scene processing failed, continuing with next scene")
			continue
		}
		finals[i] = finalPath
		logger.Info("Scene completed successfully")
	}

	for i, finalPath := range finals {
		if finalPath == "" {
			continue
		}
		key := fmt.Sprintf("videos/%s/%s", sessionID, filepath.Base(finalPath))
		url, err := p.uploader.UploadFile(ctx, finalPath, key, "video/mp4")
		if err != nil {
			p.log.WithFields(logrus.Fields{"session_id": sessionID, "scene": i}).
				WithError(err).Error("Scene upload failed")
			continue
		}
		sceneURLs[i] = url
	}

	result := &Result{SessionID: sessionID, SceneS3URLs: sceneURLs}
	if len(sceneURLs) > 0 {
		result.S3URL = sceneURLs[len(sceneURLs)-1]
	}
	return result, nil
}

// processScene walks one scene through generation, download, optional
// dialogue audio, and muxing, returning the finished per-scene path.
func (p *Pipeline) processScene(ctx context.Context, logger *logrus.Entry, sessionID string, i int, scene models.Scene) (string, error) {
	videoURL, err := p.generator.GenerateVideo(ctx, GenerationParamsFor(scene))
	if err != nil {
		return "", fmt.Errorf("generate video: %w", err)
	}

	videoPath := p.store.SceneVideoPath(sessionID, i)
	if err := p.fetcher.Download(ctx, videoURL, videoPath); err != nil {
		return "", fmt.Errorf("download video: %w", err)
	}
	if duration, err := p.combiner.VideoDuration(videoPath); err == nil {
		logger.WithField("duration", duration.String()).Info("Scene video downloaded")
	}

	audioPath := ""
	if len(scene.Dialogues) > 0 {
		audioPath = p.synthesizeDialogue(ctx, logger, sessionID, i, scene)
	}

	finalPath := p.store.SceneOutputPath(sessionID, i)
	if audioPath != "" {
		if err := p.combiner.MuxAudio(videoPath, audioPath, finalPath); err != nil {
			return "", fmt.Errorf("mux audio: %w", err)
		}
		// Intermediates are only useful until the mux lands.
		os.Remove(videoPath)
		os.Remove(audioPath)
	} else {
		// No audio: promote the silent video as-is, no re-encode.
		if err := os.Rename(videoPath, finalPath); err != nil {
			return "", fmt.Errorf("promote silent video: %w", err)
		}
	}
	return finalPath, nil
}

// synthesizeDialogue joins all dialogue lines into one synthesis request
// voiced by the first line's character. Any failure just means the scene
// ships silent; it returns "" rather than an error.
func (p *Pipeline) synthesizeDialogue(ctx context.Context, logger *logrus.Entry, sessionID string, i int, scene models.Scene) string {
	texts := make([]string, 0, len(scene.Dialogues))
	for _, d := range scene.Dialogues {
		texts = append(texts, d.Text)
	}
	character := scene.Dialogues[0].Character
	if character == "" {
		character = "default"
	}

	audioURL, err := p.speech.Synthesize(ctx, strings.Join(texts, " "), character)
	if err != nil {
		logger.WithError(err).Warn("Audio synthesis failed, continuing without audio")
		return ""
	}

	audioPath := p.store.SceneAudioPath(sessionID, i)
	if err := p.fetcher.Download(ctx, audioURL, audioPath); err != nil {
		logger.WithError(err).Warn("Audio download failed, continuing without audio")
		return ""
	}
	return audioPath
}

// Combine concatenates whatever finished per-scene files exist for the
// session, in numeric filename order, and returns the public path of the
// final video.
func (p *Pipeline) Combine(ctx context.Context, sessionID string) (string, error) {
	inputs, err := p.store.SceneOutputs(sessionID)
	if err != nil {
		return "", err
	}
	if len(inputs) == 0 {
		return "", ErrNoSceneVideos
	}

	finalPath := p.store.FinalVideoPath(sessionID)
	p.log.WithFields(logrus.Fields{"session_id": sessionID, "inputs": len(inputs)}).
		Info("Combining scene videos")
	if err := p.combiner.ConcatWithFades(inputs, finalPath); err != nil {
		return "", fmt.Errorf("combine videos: %w", err)
	}

	return fmt.Sprintf("/generations/%s/%s", sessionID, filepath.Base(finalPath)), nil
}

// GenerationParamsFor builds the provider request for one scene.
func GenerationParamsFor(scene models.Scene) luma.GenerationParams {
	return luma.GenerationParams{
		Prompt:              scene.SceneDirection,
		NegativePrompt:      defaultNegativePrompt,
		NumFrames:           120,
		FPS:                 24,
		AspectRatio:         "16:9",
		MotionBucketID:      127,
		CondAug:             0.02,
		CameraMotion:        "fixed",
		NumInferenceSteps:   14,
		GuidanceScale:       7.5,
		EnableSafetyChecker: true,
		EnableADMGuidance:   true,
		Seed:                rand.Intn(1000000),
	}
}
