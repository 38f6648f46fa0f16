// internal/commands/evaluate.go
package capeval

import (
	"github.com/spf13/cobra"

	"github.com/capeval/capeval/internal/appconfig"
	"github.com/capeval/capeval/internal/pipeline"
	"github.com/capeval/capeval/internal/tui"
)

// evaluateCmd runs the full pipeline over one dataset file.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [dataset]",
	Short: "Run the caption-evaluation pipeline over a dataset",
	Long: `Run the staged caption-evaluation pipeline over a JSON dataset: sample
candidate captions, extract plugin features, summarize, score, and aggregate.
If a previous run left a checkpoint next to the output file, the run resumes
from it instead of starting over.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *GetConfig()
		applyEvaluateFlags(cmd, &cfg)

		reporter := tui.NewReporter(&cfg)
		defer reporter.Stop()
		return pipeline.RunEvaluation(cmd.Context(), &cfg, args[0], reporter)
	},
}

// applyEvaluateFlags overlays command-line flags onto the loaded configuration.
// Only flags actually set on the command line override the file.
func applyEvaluateFlags(cmd *cobra.Command, cfg *appconfig.Config) {
	flags := cmd.Flags()
	if flags.Changed("caption-engine") {
		cfg.CaptionEngine, _ = flags.GetString("caption-engine")
	}
	if flags.Changed("lm-engine") {
		cfg.LMEngine, _ = flags.GetString("lm-engine")
	}
	if flags.Changed("plugin") {
		cfg.Plugins, _ = flags.GetStringArray("plugin")
	}
	if flags.Changed("num-candidates") {
		cfg.NumCandidates, _ = flags.GetInt("num-candidates")
	}
	if flags.Changed("candidate-temperature") {
		cfg.CandidateTemperature, _ = flags.GetFloat64("candidate-temperature")
	}
	if flags.Changed("prompt") {
		cfg.Prompt, _ = flags.GetString("prompt")
	}
	if flags.Changed("output-json-path") {
		cfg.OutputJSONPath, _ = flags.GetString("output-json-path")
	}
	if flags.Changed("candidate-key") {
		cfg.CandidateKey, _ = flags.GetString("candidate-key")
	}
	if flags.Changed("reference-key") {
		cfg.ReferenceKey, _ = flags.GetString("reference-key")
	}
	if flags.Changed("image-path-key") {
		cfg.ImagePathKey, _ = flags.GetString("image-path-key")
	}
	if flags.Changed("image-root-dir") {
		cfg.ImageRootDir, _ = flags.GetString("image-root-dir")
	}
	if flags.Changed("overwrite-candidates") {
		cfg.OverwriteCandidates, _ = flags.GetBool("overwrite-candidates")
	}
	if flags.Changed("overwrite-candidate-summaries") {
		cfg.OverwriteCandidateSummaries, _ = flags.GetBool("overwrite-candidate-summaries")
	}
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().String("caption-engine", "", "caption engine name from the config hosts")
	evaluateCmd.Flags().String("lm-engine", "", "language model engine name from the config hosts")
	evaluateCmd.Flags().StringArray("plugin", nil, "image plugin to run before summarization (repeatable)")
	evaluateCmd.Flags().Int("num-candidates", appconfig.DefaultNumCandidates, "candidate captions sampled per image")
	evaluateCmd.Flags().Float64("candidate-temperature", appconfig.DefaultCandidateTemperature, "sampling temperature for candidate generation")
	evaluateCmd.Flags().String("prompt", "", "summarization prompt text, or a path to a prompt file")
	evaluateCmd.Flags().StringP("output-json-path", "o", "", "path the final evaluation JSON is written to")
	evaluateCmd.Flags().String("candidate-key", "", "dataset field holding candidate captions")
	evaluateCmd.Flags().String("reference-key", "", "dataset field holding reference captions")
	evaluateCmd.Flags().String("image-path-key", "", "dataset field holding the image path")
	evaluateCmd.Flags().String("image-root-dir", "", "directory image paths are resolved against")
	evaluateCmd.Flags().Bool("overwrite-candidates", false, "regenerate candidates even when already present")
	evaluateCmd.Flags().Bool("overwrite-candidate-summaries", false, "recompute summaries even when already present")
}
