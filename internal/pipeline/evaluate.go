// internal/pipeline/evaluate.go
package pipeline

import (
	"context"
	"fmt"

	"github.com/capeval/capeval/internal/appconfig"
	"github.com/capeval/capeval/internal/dataset"
	"github.com/capeval/capeval/internal/enginefactory"
	"github.com/capeval/capeval/internal/logging"
	"github.com/capeval/capeval/internal/metrics"
)

// newScorer is swapped in tests to avoid a live scoring service.
var newScorer = func(name string, host appconfig.Host, keys dataset.Keys, cfg *appconfig.Config) metrics.Scorer {
	return metrics.NewServiceScorer(name, host, keys, cfg.RequestTimeout())
}

// RunEvaluation executes the full pipeline for one dataset: load or resume,
// run every stage in order, aggregate, and finalize the output file.
func RunEvaluation(ctx context.Context, cfg *appconfig.Config, datasetPath string, reporter Reporter) error {
	keys := dataset.Keys{
		Candidates: valueOr(cfg.CandidateKey, "candidates"),
		References: valueOr(cfg.ReferenceKey, "references"),
		ImagePath:  valueOr(cfg.ImagePathKey, "image_path"),
	}
	store := dataset.NewStore(keys)
	outputPath := cfg.OutputPath()

	var samples []dataset.Sample
	var err error
	if store.HasCheckpoint(outputPath) {
		checkpointPath := store.CheckpointPath(outputPath)
		logging.LogEvent("Resuming from checkpoint %s...", checkpointPath)
		samples, err = store.Load(checkpointPath)
	} else {
		logging.LogEvent("Loading dataset from %s...", datasetPath)
		samples, err = store.Load(datasetPath)
	}
	if err != nil {
		return err
	}

	promptTemplate, err := cfg.PromptText()
	if err != nil {
		return err
	}
	opts := Options{
		ImageRoot:           cfg.ImageRoot(),
		NumCandidates:       cfg.CandidateCount(),
		Temperature:         cfg.Temperature(),
		PromptTemplate:      promptTemplate,
		OverwriteCandidates: cfg.OverwriteCandidates,
		OverwriteSummaries:  cfg.OverwriteSummaries(),
	}
	device := cfg.ResolvedDevice()

	stages := []Stage{
		CandidateStage(enginefactory.CaptionRegistry(cfg), cfg.CaptionEngine, device, opts),
	}
	for _, pluginName := range cfg.Plugins {
		stages = append(stages, PluginStage(enginefactory.PluginRegistry(cfg), pluginName, device, opts))
	}
	stages = append(stages, SummaryStage(enginefactory.LMRegistry(cfg), cfg.LMEngine, device, opts))

	scorerHost, err := cfg.ScorerHost()
	if err != nil {
		return err
	}
	for _, name := range metrics.ServiceStageNames {
		stages = append(stages, ScorerStage(newScorer(name, scorerHost, keys, cfg)))
	}

	runner := NewRunner(store, outputPath, reporter)
	samples, err = runner.Run(ctx, samples, stages)
	if err != nil {
		return err
	}

	logging.LogEvent("Aggregating metrics over %d samples...", len(samples))
	report, err := metrics.Aggregate(samples)
	if err != nil {
		return err
	}

	if err := store.Finalize(outputPath, samples, report); err != nil {
		return fmt.Errorf("could not finalize output: %w", err)
	}
	logging.LogEvent("Wrote %s", outputPath)
	metrics.PrintReport(report)
	return nil
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
