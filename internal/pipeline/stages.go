// internal/pipeline/stages.go
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/capeval/capeval/internal/dataset"
	"github.com/capeval/capeval/internal/engines"
	"github.com/capeval/capeval/internal/metrics"
	"github.com/capeval/capeval/internal/prompt"
)

// Options carries the per-run knobs the stage transforms need.
type Options struct {
	ImageRoot           string
	NumCandidates       int
	Temperature         float64
	PromptTemplate      string
	OverwriteCandidates bool
	OverwriteSummaries  bool
}

func (o Options) imagePath(s dataset.Sample) string {
	return filepath.Join(o.ImageRoot, s.ImagePath)
}

// CandidateStage samples candidate captions for each image and derives the
// baseline (always the first candidate).
func CandidateStage(registry *engines.Registry[engines.CaptionEngine], engineName, device string, opts Options) Stage {
	var engine engines.CaptionEngine
	return Stage{
		Name: "candidates",
		Setup: func(ctx context.Context) error {
			var err error
			engine, err = registry.New(engineName, device)
			return err
		},
		Ready: func(s dataset.Sample) bool {
			return !opts.OverwriteCandidates && s.Candidates.IsSet() && s.Baseline.IsSet()
		},
		Apply: func(ctx context.Context, s dataset.Sample) (dataset.Sample, error) {
			if !s.Candidates.IsSet() || opts.OverwriteCandidates {
				candidates, err := engine.Generate(ctx, opts.imagePath(s), opts.NumCandidates, opts.Temperature)
				if err != nil {
					return s, err
				}
				s.Candidates = dataset.Set(candidates)
			}
			if !s.Baseline.IsSet() || opts.OverwriteCandidates {
				candidates := s.Candidates.Value()
				if len(candidates) == 0 {
					return s, errors.New("no candidates to derive a baseline from")
				}
				s.Baseline = dataset.Set(candidates[0])
			}
			return s, nil
		},
	}
}

// PluginStage extracts one plugin's features for each image. Each requested
// plugin gets its own stage with an independent predicate.
func PluginStage(registry *engines.Registry[engines.PluginEngine], pluginName, device string, opts Options) Stage {
	var engine engines.PluginEngine
	return Stage{
		Name: "plugin:" + pluginName,
		Setup: func(ctx context.Context) error {
			var err error
			engine, err = registry.New(pluginName, device)
			return err
		},
		Ready: func(s dataset.Sample) bool {
			if opts.OverwriteCandidates {
				return false
			}
			_, ok := s.PluginOutputs[pluginName]
			return ok
		},
		Apply: func(ctx context.Context, s dataset.Sample) (dataset.Sample, error) {
			output, err := engine.Extract(ctx, opts.imagePath(s))
			if err != nil {
				return s, err
			}
			outputs := make(map[string]json.RawMessage, len(s.PluginOutputs)+1)
			for name, value := range s.PluginOutputs {
				outputs[name] = value
			}
			outputs[pluginName] = output
			s.PluginOutputs = outputs
			return s, nil
		},
	}
}

// SummaryStage produces the candidate and reference summaries with the
// language model, recording the exact prompt used for each.
func SummaryStage(registry *engines.Registry[engines.LMEngine], engineName, device string, opts Options) Stage {
	var engine engines.LMEngine
	return Stage{
		Name: "summaries",
		Setup: func(ctx context.Context) error {
			var err error
			engine, err = registry.New(engineName, device)
			return err
		},
		Ready: func(s dataset.Sample) bool {
			return !opts.OverwriteSummaries && s.CandidateSummary.IsSet() && s.ReferenceSummary.IsSet()
		},
		Apply: func(ctx context.Context, s dataset.Sample) (dataset.Sample, error) {
			if !s.Candidates.IsSet() {
				return s, errors.New("summaries require candidates")
			}
			pluginOutputs := s.PluginOutputValues()

			if !s.CandidateSummary.IsSet() || opts.OverwriteSummaries {
				summaryPrompt := prompt.ForCandidates(s.Candidates.Value(), opts.PromptTemplate, pluginOutputs)
				completion, err := engine.Best(ctx, summaryPrompt)
				if err != nil {
					return s, err
				}
				s.CandidateSummaryPrompt = dataset.Set(summaryPrompt)
				s.CandidateSummary = dataset.Set(prompt.Postprocess(completion))
			}

			if !s.ReferenceSummary.IsSet() || opts.OverwriteSummaries {
				summaryPrompt := prompt.ForCandidates(s.References, opts.PromptTemplate, pluginOutputs)
				completion, err := engine.Best(ctx, summaryPrompt)
				if err != nil {
					return s, err
				}
				s.ReferenceSummaryPrompt = dataset.Set(summaryPrompt)
				s.ReferenceSummary = dataset.Set(prompt.Postprocess(completion))
			}
			return s, nil
		},
	}
}

// ScorerStage hands the whole sample set to one external score family.
func ScorerStage(scorer metrics.Scorer) Stage {
	return Stage{
		Name:  scorer.Name(),
		Batch: scorer.Score,
	}
}
