// internal/pipeline/runner.go
package pipeline

import (
	"context"
	"fmt"

	"github.com/capeval/capeval/internal/dataset"
	"github.com/capeval/capeval/internal/logging"
)

// Runner executes stages in order over a sample set, checkpointing the whole
// set after every stage. Samples are processed strictly sequentially, in
// their original order.
type Runner struct {
	store      *dataset.Store
	outputPath string
	reporter   Reporter
}

// NewRunner returns a Runner that checkpoints through store against
// outputPath.
func NewRunner(store *dataset.Store, outputPath string, reporter Reporter) *Runner {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Runner{store: store, outputPath: outputPath, reporter: reporter}
}

// Run folds the stages over the samples. On any failure the error propagates
// immediately; the checkpoint from the last completed stage stays on disk, so
// a rerun resumes there.
func (r *Runner) Run(ctx context.Context, samples []dataset.Sample, stages []Stage) ([]dataset.Sample, error) {
	for _, stage := range stages {
		logging.LogEvent("Running stage %s over %d samples...", stage.Name, len(samples))
		r.reporter.StageStart(stage.Name, len(samples))

		if stage.Setup != nil {
			if err := stage.Setup(ctx); err != nil {
				return nil, err
			}
		}

		if stage.Batch != nil {
			updated, err := stage.Batch(ctx, samples)
			if err != nil {
				return nil, fmt.Errorf("stage %s: %w", stage.Name, err)
			}
			samples = updated
		} else {
			for i := range samples {
				if stage.Ready != nil && stage.Ready(samples[i]) {
					r.reporter.SampleDone(i)
					continue
				}
				updated, err := stage.Apply(ctx, samples[i])
				if err != nil {
					return nil, fmt.Errorf("stage %s: sample %d: %w", stage.Name, i, err)
				}
				samples[i] = updated
				r.reporter.SampleDone(i)
			}
		}

		if err := r.store.Checkpoint(r.outputPath, samples); err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Name, err)
		}
		r.reporter.StageDone(stage.Name)
	}
	return samples, nil
}
