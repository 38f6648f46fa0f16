// internal/engines/httpplugin/engine.go
// Package httpplugin provides a PluginEngine that posts images to a
// feature-extraction HTTP service and stores whatever JSON it replies with.
package httpplugin

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

// Engine implements engines.PluginEngine over a /extract endpoint.
type Engine struct {
	host    appconfig.Host
	client  *http.Client
	timeout time.Duration
}

// New constructs an Engine for the given plugin host.
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

type extractRequest struct {
	Image string `json:"image"`
}

// Extract posts the image to the plugin service and returns its JSON reply
// verbatim. The pipeline never interprets the shape.
func (e *Engine) Extract(ctx context.Context, imagePath string) (json.RawMessage, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, &engines.InferenceError{Engine: e.host.Name, Op: "extract", Err: fmt.Errorf("unreadable image %q: %w", imagePath, err)}
	}

	body, err := json.Marshal(extractRequest{Image: base64.StdEncoding.EncodeToString(imageData)})
	if err != nil {
		return nil, &engines.InferenceError{Engine: e.host.Name, Op: "extract", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	endpoint := e.host.URL + "/extract"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &engines.InferenceError{Engine: e.host.Name, Op: "extract", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &engines.InferenceError{Engine: e.host.Name, Op: "extract", Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &engines.InferenceError{Engine: e.host.Name, Op: "extract", Err: err}
	}
	logging.LogRequest("ENGINE->CAPEVAL", e.host.Name, "extract", respBody)

	if resp.StatusCode >= 400 {
		return nil, &engines.InferenceError{
			Engine: e.host.Name,
			Op:     "extract",
			Err:    fmt.Errorf("plugin server returned %s: %s", resp.Status, strings.TrimSpace(string(respBody))),
		}
	}
	if !json.Valid(respBody) {
		return nil, &engines.InferenceError{Engine: e.host.Name, Op: "extract", Err: fmt.Errorf("plugin reply is not valid JSON")}
	}
	return json.RawMessage(respBody), nil
}
