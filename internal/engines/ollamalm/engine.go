// internal/engines/ollamalm/engine.go
// Package ollamalm provides an LMEngine backed by an ollama-style HTTP API.
package ollamalm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/capeval/capeval/internal/appconfig"
	"github.com/capeval/capeval/internal/engines"
	"github.com/capeval/capeval/internal/logging"
)

// Engine implements engines.LMEngine over an ollama-style /api/generate
// endpoint.
type Engine struct {
	host    appconfig.Host
	device  string
	client  *http.Client
	timeout time.Duration
}

// New constructs an Engine for the given host. Local hosts receive the device
// the server should bind the model to; hosted backends get the empty string.
func New(host appconfig.Host, device string, timeout time.Duration) *Engine {
	return &Engine{
		host:   host,
		device: device,
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
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Complete returns n completions for the prompt, one request each.
func (e *Engine) Complete(ctx context.Context, prompt string, n int) ([]string, error) {
	completions := make([]string, 0, n)
	for i := 0; i < n; i++ {
		completion, err := e.generate(ctx, prompt, nil)
		if err != nil {
			return nil, &engines.InferenceError{Engine: e.host.Name, Op: "complete", Err: err}
		}
		completions = append(completions, completion)
	}
	return completions, nil
}

// Best returns the engine's single preferred completion: one greedy
// (temperature zero) decode.
func (e *Engine) Best(ctx context.Context, prompt string) (string, error) {
	completion, err := e.generate(ctx, prompt, map[string]any{"temperature": 0})
	if err != nil {
		return "", &engines.InferenceError{Engine: e.host.Name, Op: "best", Err: err}
	}
	return completion, nil
}

func (e *Engine) generate(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if e.device != "" {
		if options == nil {
			options = map[string]any{}
		}
		options["device"] = e.device
	}
	payload := generateRequest{
		Model:   e.host.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: options,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	endpoint := e.host.URL + "/api/generate"
	logging.LogRequest("CAPEVAL->ENGINE", e.host.Name, "generate", body)
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

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("language-model server returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("could not parse completion response: %w", err)
	}
	return result.Response, nil
}
