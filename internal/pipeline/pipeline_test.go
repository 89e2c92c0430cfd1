package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atitkothari/img2video/internal/luma"
	"github.com/atitkothari/img2video/internal/session"
	"github.com/atitkothari/img2video/models"
)

type fakeGenerator struct {
	failIndexes map[int]error
	calls       int
}

func (g *fakeGenerator) GenerateVideo(ctx context.Context, params luma.GenerationParams) (string, error) {
	index := g.calls
	g.calls++
	if err, ok := g.failIndexes[index]; ok {
		return "", err
	}
	return fmt.Sprintf("https://cdn.example.com/video_%d.mp4", index), nil
}

type fakeSpeech struct {
	err   error
	calls []string
}

func (s *fakeSpeech) Synthesize(ctx context.Context, text, character string) (string, error) {
	s.calls = append(s.calls, character+": "+text)
	if s.err != nil {
		return "", s.err
	}
	return "https://cdn.example.com/audio.wav", nil
}

type fakeFetcher struct {
	content   []byte
	downloads []string
}

func (f *fakeFetcher) Download(ctx context.Context, url, dest string) error {
	f.downloads = append(f.downloads, url)
	return os.WriteFile(dest, f.content, 0o644)
}

type fakeCombiner struct {
	muxCalls    int
	concatCalls int
}

func (c *fakeCombiner) MuxAudio(videoPath, audioPath, outputPath string) error {
	c.muxCalls++
	return os.WriteFile(outputPath, []byte("muxed"), 0o644)
}

func (c *fakeCombiner) ConcatWithFades(inputPaths []string, outputPath string) error {
	c.concatCalls++
	return os.WriteFile(outputPath, []byte(strings.Join(inputPaths, "\n")), 0o644)
}

func (c *fakeCombiner) VideoDuration(path string) (time.Duration, error) {
	return 5 * time.Second, nil
}

type fakeUploader struct {
	failKeys map[string]bool
	keys     []string
}

func (u *fakeUploader) UploadFile(ctx context.Context, localPath, key, contentType string) (string, error) {
	u.keys = append(u.keys, key)
	if u.failKeys[key] {
		return "", errors.New("upload refused")
	}
	return "https://bucket.s3.us-east-2.amazonaws.com/" + key, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestPipeline(t *testing.T, gen *fakeGenerator, speech *fakeSpeech) (*Pipeline, *session.Store, *fakeFetcher, *fakeCombiner, *fakeUploader) {
	t.Helper()
	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	fetcher := &fakeFetcher{content: []byte("raw video bytes")}
	combiner := &fakeCombiner{}
	uploader := &fakeUploader{}
	p := New(gen, speech, fetcher, combiner, uploader, store, quietLogger())
	return p, store, fetcher, combiner, uploader
}

func scenes(n int) []models.Scene {
	out := make([]models.Scene, n)
	for i := range out {
		out[i] = models.Scene{SceneDirection: fmt.Sprintf("scene %d direction", i)}
	}
	return out
}

func TestRunFailedSceneLeavesEmptyURLAndContinues(t *testing.T) {
	gen := &fakeGenerator{failIndexes: map[int]error{
		1: &luma.GenerationError{ID: "gen-1", Reason: "nsfw content"},
	}}
	p, _, fetcher, _, _ := newTestPipeline(t, gen, &fakeSpeech{})

	result, err := p.Run(context.Background(), "session_100", scenes(3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.SceneS3URLs) != 3 {
		t.Fatalf("expected 3 scene URLs, got %d", len(result.SceneS3URLs))
	}
	if result.SceneS3URLs[1] != "" {
		t.Errorf("failed scene should have empty URL, got %q", result.SceneS3URLs[1])
	}
	for _, i := range []int{0, 2} {
		if result.SceneS3URLs[i] == "" {
			t.Errorf("scene %d should have a URL", i)
		}
	}

	// The failed scene's video must never be downloaded.
	if len(fetcher.downloads) != 2 {
		t.Errorf("expected 2 downloads, got %d: %v", len(fetcher.downloads), fetcher.downloads)
	}
}

func TestRunAudioFailurePromotesSilentVideoByRename(t *testing.T) {
	gen := &fakeGenerator{}
	speech := &fakeSpeech{err: errors.New("tts quota exceeded")}
	p, store, fetcher, combiner, _ := newTestPipeline(t, gen, speech)

	sceneList := []models.Scene{{
		SceneDirection: "a quiet street",
		Dialogues:      []models.Dialogue{{Character: "mike", Text: "hello"}},
	}}

	result, err := p.Run(context.Background(), "session_200", sceneList)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SceneS3URLs[0] == "" {
		t.Fatal("scene should still be uploaded without audio")
	}
	if combiner.muxCalls != 0 {
		t.Errorf("mux must not run when synthesis fails, got %d calls", combiner.muxCalls)
	}

	// Promotion is a rename: the final file is bit-identical to the download.
	data, err := os.ReadFile(store.SceneOutputPath("session_200", 0))
	if err != nil {
		t.Fatalf("reading final artifact: %v", err)
	}
	if string(data) != string(fetcher.content) {
		t.Errorf("final artifact differs from raw video: %q", data)
	}
	if _, err := os.Stat(store.SceneVideoPath("session_200", 0)); !os.IsNotExist(err) {
		t.Error("transient video should be gone after promotion")
	}
}

func TestRunMuxRemovesIntermediates(t *testing.T) {
	gen := &fakeGenerator{}
	p, store, _, combiner, _ := newTestPipeline(t, gen, &fakeSpeech{})

	sceneList := []models.Scene{{
		SceneDirection: "an argument",
		Dialogues: []models.Dialogue{
			{Character: "sarah", Text: "wait"},
			{Character: "mike", Text: "for what"},
		},
	}}

	if _, err := p.Run(context.Background(), "session_300", sceneList); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if combiner.muxCalls != 1 {
		t.Fatalf("expected 1 mux call, got %d", combiner.muxCalls)
	}
	for _, path := range []string{
		store.SceneVideoPath("session_300", 0),
		store.SceneAudioPath("session_300", 0),
	} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("intermediate %s should be removed after mux", filepath.Base(path))
		}
	}
	if _, err := os.Stat(store.SceneOutputPath("session_300", 0)); err != nil {
		t.Errorf("final per-scene file missing: %v", err)
	}
}

func TestRunJoinsDialoguesWithFirstCharactersVoice(t *testing.T) {
	gen := &fakeGenerator{}
	speech := &fakeSpeech{}
	p, _, _, _, _ := newTestPipeline(t, gen, speech)

	sceneList := []models.Scene{{
		SceneDirection: "two people talking",
		Dialogues: []models.Dialogue{
			{Character: "emma", Text: "first line"},
			{Character: "alex", Text: "second line"},
		},
	}}

	if _, err := p.Run(context.Background(), "session_400", sceneList); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(speech.calls) != 1 {
		t.Fatalf("expected one synthesis call per scene, got %d", len(speech.calls))
	}
	if speech.calls[0] != "emma: first line second line" {
		t.Errorf("unexpected synthesis call %q", speech.calls[0])
	}
}

func TestRunLastURLMatchesLastScene(t *testing.T) {
	gen := &fakeGenerator{failIndexes: map[int]error{2: errors.New("boom")}}
	p, _, _, _, _ := newTestPipeline(t, gen, &fakeSpeech{})

	result, err := p.Run(context.Background(), "session_500", scenes(3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The reported s3Url mirrors the last array entry even when empty.
	if result.S3URL != "" {
		t.Errorf("expected empty last URL, got %q", result.S3URL)
	}
}

func TestCombineEmptySession(t *testing.T) {
	p, store, _, combiner, _ := newTestPipeline(t, &fakeGenerator{}, &fakeSpeech{})
	if _, err := store.Ensure("session_600"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	_, err := p.Combine(context.Background(), "session_600")
	if !errors.Is(err, ErrNoSceneVideos) {
		t.Fatalf("expected ErrNoSceneVideos, got %v", err)
	}
	if combiner.concatCalls != 0 {
		t.Errorf("concat must not run for an empty session")
	}
}

func TestCombineUsesNumericOrder(t *testing.T) {
	p, store, _, _, _ := newTestPipeline(t, &fakeGenerator{}, &fakeSpeech{})
	dir, err := store.Ensure("session_700")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	for _, i := range []int{2, 10, 1} {
		name := fmt.Sprintf("scene_%d_with_audio.mp4", i)
		if err := os.WriteFile(filepath.Join(dir, name), []byte("clip"), 0o644); err != nil {
			t.Fatalf("seeding %s: %v", name, err)
		}
	}

	videoPath, err := p.Combine(context.Background(), "session_700")
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if videoPath != "/generations/session_700/final_video.mp4" {
		t.Errorf("unexpected video path %q", videoPath)
	}

	// The fake combiner records its input order in the output file.
	data, err := os.ReadFile(store.FinalVideoPath("session_700"))
	if err != nil {
		t.Fatalf("reading final video: %v", err)
	}
	var indexes []string
	for _, line := range strings.Split(string(data), "\n") {
		indexes = append(indexes, filepath.Base(line))
	}
	want := []string{"scene_1_with_audio.mp4", "scene_2_with_audio.mp4", "scene_10_with_audio.mp4"}
	if len(indexes) != len(want) {
		t.Fatalf("expected %d inputs, got %v", len(want), indexes)
	}
	for i := range want {
		if indexes[i] != want[i] {
			t.Errorf("input %d = %s, want %s", i, indexes[i], want[i])
		}
	}
}

func TestGenerationParamsDefaults(t *testing.T) {
	params := GenerationParamsFor(models.Scene{SceneDirection: "a hallway"})
	if params.Prompt != "a hallway" {
		t.Errorf("prompt = %q", params.Prompt)
	}
	if params.NegativePrompt != "blurry, low quality, distorted" {
		t.Errorf("negative prompt = %q", params.NegativePrompt)
	}
	if params.NumFrames != 120 || params.FPS != 24 || params.AspectRatio != "16:9" {
		t.Errorf("unexpected envelope: %+v", params)
	}
}
