// internal/engines/ollamacap/engine.go
// Package ollamacap provides a CaptionEngine backed by an ollama-style
// multimodal HTTP API.
package ollamacap

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/capeval/capeval/internal/appconfig"
	"github.com/capeval/capeval/internal/engines"
	"github.com/capeval/capeval/internal/logging"
)

// captionPrompt is the instruction sent alongside the image. Candidate
// diversity comes from sampling temperature, not prompt variation.
const captionPrompt = "Describe this image in one short sentence."

// Engine implements engines.CaptionEngine over an ollama-style /api/generate
// endpoint that accepts base64 images.
type Engine struct {
	host    appconfig.Host
	client  *http.Client
	timeout time.Duration
}

// New constructs an Engine for the given host, configured with the
// application's request timeout.
func New(host appconfig.Host, timeout time.Duration) *Engine {
	return &Engine{
		host: host,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout: timeout,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate returns exactly n sampled captions for the image at imagePath. The
// backend produces one completion per request, so n requests are issued in
// order.
func (e *Engine) Generate(ctx context.Context, imagePath string, n int, temperature float64) ([]string, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, &engines.InferenceError{Engine: e.host.Name, Op: "generate", Err: fmt.Errorf("unreadable image %q: %w", imagePath, err)}
	}
	encoded := base64.StdEncoding.EncodeToString(imageData)

	captions := make([]string, 0, n)
	for i := 0; i < n; i++ {
		caption, err := e.generateOne(ctx, encoded, temperature)
		if err != nil {
			return nil, &engines.InferenceError{Engine: e.host.Name, Op: "generate", Err: err}
		}
		captions = append(captions, caption)
	}
	return captions, nil
}

func (e *Engine) generateOne(ctx context.Context, encodedImage string, temperature float64) (string, error) {
	payload := generateRequest{
		Model:   e.host.Model,
		Prompt:  captionPrompt,
		Images:  []string{encodedImage},
		Stream:  false,
		Options: map[string]any{"temperature": temperature},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	endpoint := e.host.URL + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	logging.LogRequest("ENGINE->CAPEVAL", e.host.Name, "generate", respBody)

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("caption server returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("could not parse caption response: %w", err)
	}
	return strings.TrimSpace(result.Response), nil
}
