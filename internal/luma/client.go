// Package luma wraps the Luma Dream Machine generations API: submit a
// text-to-video job, poll it to a terminal state and hand back the video URL.
package luma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL      = "https://api.lumalabs.ai/dream-machine/v1"
	defaultPollInterval = 3 * time.Second
)

// Terminal states reported by the generations API. Anything else counts as
// still pending.
const (
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// ErrNoVideoAsset reports a protocol violation: the provider marked a
// generation completed without attaching a video asset.
var ErrNoVideoAsset = errors.New("no video asset in generation response")

// GenerationError reports a job the provider moved to the failed state.
type GenerationError struct {
	ID     string
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s failed: %s", e.ID, e.Reason)
}

// GenerationParams is the request body for one text-to-video generation.
type GenerationParams struct {
	Prompt              string  `json:"prompt"`
	NegativePrompt      string  `json:"negative_prompt,omitempty"`
	NumFrames           int     `json:"num_frames"`
	FPS                 int     `json:"fps"`
	AspectRatio         string  `json:"aspect_ratio"`
	MotionBucketID      int     `json:"motion_bucket_id"`
	CondAug             float64 `json:"cond_aug"`
	CameraMotion        string  `json:"camera_motion"`
	NumInferenceSteps   int     `json:"num_inference_steps"`
	GuidanceScale       float64 `json:"guidance_scale"`
	EnableSafetyChecker bool    `json:"enable_safety_checker"`
	EnableADMGuidance   bool    `json:"enable_adm_guidance"`
	Seed                int     `json:"seed"`
}

// Generation is the provider's view of one job.
type Generation struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	FailureReason string `json:"failure_reason,omitempty"`
	Assets        struct {
		Video string `json:"video"`
	} `json:"assets"`
}

// Client talks to the generations API. It owns the set of in-flight
// generation ids so shutdown can cancel whatever is still pending.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	log          *logrus.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewClient returns a client for the hosted generations API.
func NewClient(apiKey string, log *logrus.Logger) *Client {
	return &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{},
		pollInterval: defaultPollInterval,
		log:          log,
		pending:      make(map[string]struct{}),
	}
}

// Submit creates a new generation job.
func (c *Client) Submit(ctx context.Context, params GenerationParams) (*Generation, error) {
	gen := new(Generation)
	if err := c.doJSON(ctx, http.MethodPost, "/generations", params, gen); err != nil {
		return nil, err
	}
	c.track(gen.ID)
	return gen, nil
}

// Get fetches the current state of a generation job.
func (c *Client) Get(ctx context.Context, id string) (*Generation, error) {
	gen := new(Generation)
	if err := c.doJSON(ctx, http.MethodGet, "/generations/"+id, nil, gen); err != nil {
		return nil, err
	}
	return gen, nil
}

// Cancel asks the provider to abort a generation job.
func (c *Client) Cancel(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/generations/"+id, nil, nil); err != nil {
		return err
	}
	c.untrack(id)
	return nil
}

// GenerateVideo submits a job and polls it on a fixed interval until the
// provider reports a terminal state, then returns the video URL. There is no
// poll limit; a permanently pending job blocks until ctx is cancelled.
func (c *Client) GenerateVideo(ctx context.Context, params GenerationParams) (string, error) {
	gen, err := c.Submit(ctx, params)
	if err != nil {
		return "", fmt.Errorf("submit generation: %w", err)
	}

	for {
		switch gen.State {
		case StateCompleted:
			c.untrack(gen.ID)
			if gen.Assets.Video == "" {
				return "", ErrNoVideoAsset
			}
			return gen.Assets.Video, nil
		case StateFailed:
			c.untrack(gen.ID)
			reason := gen.FailureReason
			if reason == "" {
				reason = "Unknown reason"
			}
			return "", &GenerationError{ID: gen.ID, Reason: reason}
		}

		c.log.WithField("generation_id", gen.ID).Info("Generation pending, polling again")

		select {
		case <-ctx.Done():
			// Leave the id tracked so CancelAll can still reach it.
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		gen, err = c.Get(ctx, gen.ID)
		if err != nil {
			return "", fmt.Errorf("poll generation: %w", err)
		}
	}
}

// CancelAll attempts to cancel every tracked generation, each independently.
// Failures are logged, never escalated; this runs on process shutdown.
func (c *Client) CancelAll(ctx context.Context) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	if len(ids) == 0 {
		return
	}
	c.log.Infof("Cancelling %d pending generation(s)", len(ids))

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := c.Cancel(ctx, id); err != nil {
				c.log.WithField("generation_id", id).WithError(err).Error("Error cancelling generation")
				return
			}
			c.log.WithField("generation_id", id).Info("Cancelled generation")
		}(id)
	}
	wg.Wait()
}

// PendingCount reports how many generations are currently tracked.
func (c *Client) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Client) track(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.pending[id] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) untrack(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("generations API returned %s: %s", resp.Status, string(detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
