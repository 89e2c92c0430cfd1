// Package replicate wraps the Replicate predictions API for text-to-speech
// synthesis of scene dialogue.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL      = "https://api.replicate.com/v1"
	defaultPollInterval = 3 * time.Second

	// Version hash of the meta/tts model used for all dialogue synthesis.
	ttsModelVersion = "8beff3369e81422112d93b89ca014783a47b0c8faa15a7ea17d2e0a68a3fdc6d1"
)

// voiceMapping pairs storyboard character keys with synthesis voice ids.
var voiceMapping = map[string]string{
	"sarah": "af_sarah",
	"mike":  "am_michael",
	"emma":  "af_bella",
	"alex":  "am_adam",
}

const defaultVoice = "af_nicole"

// VoiceFor resolves a character key to a voice id, case-insensitively.
// Unknown characters fall back to the default voice.
func VoiceFor(character string) string {
	if voice, ok := voiceMapping[strings.ToLower(character)]; ok {
		return voice
	}
	return defaultVoice
}

// ErrNoAudioAsset reports a prediction that succeeded without usable output.
var ErrNoAudioAsset = errors.New("no audio asset in prediction output")

// PredictionError reports a prediction the provider moved to a failed state.
type PredictionError struct {
	ID     string
	Status string
	Reason string
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction %s %s: %s", e.ID, e.Status, e.Reason)
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Client talks to the predictions API.
type Client struct {
	token        string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	log          *logrus.Logger
}

// NewClient returns a client for the hosted predictions API.
func NewClient(token string, log *logrus.Logger) *Client {
	return &Client{
		token:        token,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{},
		pollInterval: defaultPollInterval,
		log:          log,
	}
}

// Synthesize submits the dialogue text for the given character's voice and
// polls the prediction until it finishes, returning the audio URL.
func (c *Client) Synthesize(ctx context.Context, text, character string) (string, error) {
	payload := map[string]interface{}{
		"version": ttsModelVersion,
		"input": map[string]string{
			"text":  text,
			"voice": VoiceFor(character),
		},
	}

	pred := new(prediction)
	if err := c.doJSON(ctx, http.MethodPost, "/predictions", payload, pred); err != nil {
		return "", fmt.Errorf("submit prediction: %w", err)
	}

	for {
		switch pred.Status {
		case "succeeded":
			return audioURL(pred)
		case "failed", "canceled":
			reason := pred.Error
			if reason == "" {
				reason = "Unknown reason"
			}
			return "", &PredictionError{ID: pred.ID, Status: pred.Status, Reason: reason}
		}

		c.log.WithField("prediction_id", pred.ID).Info("Prediction pending, polling again")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		next := new(prediction)
		if err := c.doJSON(ctx, http.MethodGet, "/predictions/"+pred.ID, nil, next); err != nil {
			return "", fmt.Errorf("poll prediction: %w", err)
		}
		pred = next
	}
}

// audioURL extracts the synthesized asset URL. The model returns either a
// bare URL string or a single-element list of URLs.
func audioURL(pred *prediction) (string, error) {
	var single string
	if err := json.Unmarshal(pred.Output, &single); err == nil && single != "" {
		return single, nil
	}
	var many []string
	if err := json.Unmarshal(pred.Output, &many); err == nil && len(many) > 0 && many[0] != "" {
		return many[0], nil
	}
	return "", ErrNoAudioAsset
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
	req.Header.Set("Authorization", "Token "+c.token)
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
		return fmt.Errorf("predictions API returned %s: %s", resp.Status, string(detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
