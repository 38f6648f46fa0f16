// internal/engines/engines.go

// Package engines defines the capability contracts for the inference backends
// the pipeline drives — captioning, language-model, and image-plugin engines —
// and the registries that construct them by name. It provides a common
// abstraction so the pipeline never depends on a concrete backend.
package engines

import (
	"context"
	"encoding/json"
	"fmt"
)

// CaptionEngine samples candidate captions for an image.
type CaptionEngine interface {
	// Generate returns exactly n candidate captions for the image at
	// imagePath, sampled at the given temperature.
	Generate(ctx context.Context, imagePath string, n int, temperature float64) ([]string, error)
}

// LMEngine produces text completions for a prompt.
type LMEngine interface {
	// Complete returns n completions for the prompt.
	Complete(ctx context.Context, prompt string, n int) ([]string, error)
	// Best returns the single highest-scoring completion. What "best" means
	// is up to the engine.
	Best(ctx context.Context, prompt string) (string, error)
}

// PluginEngine extracts structured side-information from an image. The shape
// of the result is opaque to the pipeline; it is stored and later handed to
// the summarization prompt as-is.
type PluginEngine interface {
	Extract(ctx context.Context, imagePath string) (json.RawMessage, error)
}

// LoadError reports an engine construction failure (unknown name, unreachable
// backend, missing model). It is fatal before any sample is processed.
type LoadError struct {
	Engine string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("could not load engine %q: %v", e.Engine, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// InferenceError reports a failed engine call for a single sample. The stage
// it occurs in aborts; there is no per-sample retry.
type InferenceError struct {
	Engine string
	Op     string
	Err    error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("engine %q failed during %s: %v", e.Engine, e.Op, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
