// internal/pipeline/stage.go

// Package pipeline runs the ordered, checkpointed transformation stages that
// take a loaded sample set to a fully scored one.
package pipeline

import (
	"context"

	"github.com/capeval/capeval/internal/dataset"
)

// Stage is one named transformation over the sample set. Per-sample stages
// provide Ready and Apply; whole-set collaborators provide Batch instead.
type Stage struct {
	Name string

	// Setup constructs the stage's engine. The runner calls it once, right
	// before the stage's loop, so only one engine is ever live at a time.
	Setup func(ctx context.Context) error

	// Ready reports whether a sample already carries this stage's outputs
	// and can be skipped. This is the resume mechanism: after a restart,
	// completed samples skip instantly.
	Ready func(s dataset.Sample) bool

	// Apply computes the stage's outputs on a copy of the sample and
	// returns it. A failure aborts the whole stage.
	Apply func(ctx context.Context, s dataset.Sample) (dataset.Sample, error)

	// Batch replaces the per-sample loop for collaborators that need the
	// whole set at once (the scoring service).
	Batch func(ctx context.Context, samples []dataset.Sample) ([]dataset.Sample, error)
}

// Reporter receives progress events while the pipeline runs.
type Reporter interface {
	StageStart(name string, total int)
	SampleDone(index int)
	StageDone(name string)
}

// NopReporter discards all progress events.
type NopReporter struct{}

func (NopReporter) StageStart(string, int) {}
func (NopReporter) SampleDone(int)         {}
func (NopReporter) StageDone(string)       {}
