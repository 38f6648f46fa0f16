// internal/pipeline/evaluate_test.go
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/capeval/capeval/internal/appconfig"
	"github.com/capeval/capeval/internal/dataset"
	"github.com/capeval/capeval/internal/metrics"
)

// fullScorer deterministically attaches every key the aggregator requires for
// its score family.
type fullScorer struct {
	name  string
	calls int
	fail  bool
}

func (f *fullScorer) Name() string { return f.name }

func (f *fullScorer) Score(ctx context.Context, samples []dataset.Sample) ([]dataset.Sample, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("scoring backend unavailable")
	}
	prefixes := []string{"candidate_summary", "reference_summary", "baseline"}
	for i := range samples {
		scores := samples[i].Scores.Clone()
		if scores == nil {
			scores = dataset.Scores{}
		}
		switch f.name {
		case "base_metrics":
			for _, prefix := range prefixes {
				for _, suffix := range []string{"bleu_1", "bleu_2", "bleu_3", "bleu_4", "rouge", "cider"} {
					scores[prefix+"_"+suffix] = dataset.Num(0.5)
				}
			}
		case "mauve":
			for _, prefix := range prefixes {
				scores[prefix+"_mauve"] = dataset.Num(0.5)
			}
		case "clip_recall":
			for _, prefix := range prefixes {
				for _, suffix := range []string{"rank", "mrr", "at_1", "at_5", "at_10", "max_rank"} {
					scores[prefix+"_clip_recall_"+suffix] = dataset.Num(0.5)
				}
			}
		case "content_recall":
			content := map[string]float64{}
			for _, prefix := range prefixes {
				for _, suffix := range []string{"noun_recall", "verb_recall", "noun_fuzzy_recall", "verb_fuzzy_recall"} {
					content[prefix+"_"+suffix] = 0.5
				}
			}
			scores["content_recall"] = dataset.Nested(content)
		case "self_bleu":
			scores["self_bleu"] = dataset.Nested(map[string]float64{"candidates": 0.5, "references": 0.5})
		case "hallucinations":
			scores["hungarian_matching_score"] = dataset.Num(0.5)
			samples[i].HallucinatedObjectCount = dataset.Set(i % 2)
			samples[i].ObjectCount = dataset.Set(4)
		}
		samples[i].Scores = scores
	}
	return samples, nil
}

type scorerSet struct {
	scorers map[string]*fullScorer
}

func newScorerSet() *scorerSet {
	return &scorerSet{scorers: map[string]*fullScorer{}}
}

func (set *scorerSet) install(t *testing.T) {
	t.Helper()
	previous := newScorer
	newScorer = func(name string, host appconfig.Host, keys dataset.Keys, cfg *appconfig.Config) metrics.Scorer {
		scorer, ok := set.scorers[name]
		if !ok {
			scorer = &fullScorer{name: name}
			set.scorers[name] = scorer
		}
		return scorer
	}
	t.Cleanup(func() { newScorer = previous })
}

type engineServers struct {
	captionRequests int
	lmRequests      int
	caption         *httptest.Server
	lm              *httptest.Server
}

func startEngineServers(t *testing.T) *engineServers {
	t.Helper()
	servers := &engineServers{}
	servers.caption = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		servers.captionRequests++
		_, _ = w.Write([]byte(`{"response": "a cat on a mat"}`))
	}))
	servers.lm = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		servers.lmRequests++
		_, _ = w.Write([]byte(`{"response": "summary: a cat sits on a mat"}`))
	}))
	t.Cleanup(func() {
		servers.caption.Close()
		servers.lm.Close()
	})
	return servers
}

func writeEvalDataset(t *testing.T, dir string) string {
	t.Helper()
	for _, name := range []string{"a.jpg", "b.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("image-bytes"), 0o644); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	datasetPath := filepath.Join(dir, "dataset.json")
	contents := `[
		{"image_path": "a.jpg", "references": ["a cat"]},
		{"image_path": "b.jpg", "references": ["a dog"]}
	]`
	if err := os.WriteFile(datasetPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return datasetPath
}

func evalConfig(dir string, servers *engineServers) *appconfig.Config {
	return &appconfig.Config{
		Hosts: []appconfig.Host{
			{Name: "ofa", URL: servers.caption.URL, Type: appconfig.HostTypeCaption, Model: "ofa-large"},
			{Name: "ollama", URL: servers.lm.URL, Type: appconfig.HostTypeLM, Model: "llama3", Local: true},
			{Name: "scores", URL: "http://unused", Type: appconfig.HostTypeScorer},
		},
		CaptionEngine:  "ofa",
		LMEngine:       "ollama",
		NumCandidates:  2,
		ImageRootDir:   dir,
		OutputJSONPath: filepath.Join(dir, "output.json"),
		TimeoutSeconds: 5,
	}
}

func TestRunEvaluationIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	servers := startEngineServers(t)
	datasetPath := writeEvalDataset(t, dir)
	cfg := evalConfig(dir, servers)
	newScorerSet().install(t)

	if err := RunEvaluation(context.Background(), cfg, datasetPath, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstOutput, err := os.ReadFile(cfg.OutputPath())
	if err != nil {
		t.Fatalf("read first output: %v", err)
	}
	if servers.captionRequests == 0 || servers.lmRequests == 0 {
		t.Fatal("first run must call the engines")
	}

	// Second run over the finished output: every engine stage skips.
	captionBefore, lmBefore := servers.captionRequests, servers.lmRequests
	if err := RunEvaluation(context.Background(), cfg, cfg.OutputPath(), nil); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if servers.captionRequests != captionBefore || servers.lmRequests != lmBefore {
		t.Fatalf("engines called again: caption %d->%d lm %d->%d",
			captionBefore, servers.captionRequests, lmBefore, servers.lmRequests)
	}

	secondOutput, err := os.ReadFile(cfg.OutputPath())
	if err != nil {
		t.Fatalf("read second output: %v", err)
	}
	if !bytes.Equal(firstOutput, secondOutput) {
		t.Fatal("reruns must produce byte-identical output")
	}
}

func TestRunEvaluationResumesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	servers := startEngineServers(t)
	datasetPath := writeEvalDataset(t, dir)
	cfg := evalConfig(dir, servers)

	set := newScorerSet()
	set.install(t)
	set.scorers["mauve"] = &fullScorer{name: "mauve", fail: true}

	if err := RunEvaluation(context.Background(), cfg, datasetPath, nil); err == nil {
		t.Fatal("expected first run to fail at the mauve stage")
	}
	store := dataset.NewStore(dataset.DefaultKeys())
	if !store.HasCheckpoint(cfg.OutputPath()) {
		t.Fatal("checkpoint must survive the failed run")
	}

	// The rerun resumes from the checkpoint: no caption or summary work left.
	captionBefore, lmBefore := servers.captionRequests, servers.lmRequests
	set.scorers["mauve"].fail = false
	if err := RunEvaluation(context.Background(), cfg, datasetPath, nil); err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if servers.captionRequests != captionBefore || servers.lmRequests != lmBefore {
		t.Fatal("resumed run repeated completed engine stages")
	}
	if store.HasCheckpoint(cfg.OutputPath()) {
		t.Fatal("checkpoint must be removed after a successful run")
	}

	// An uninterrupted run on a fresh output matches the resumed result.
	resumed, err := os.ReadFile(cfg.OutputPath())
	if err != nil {
		t.Fatalf("read resumed output: %v", err)
	}
	cfgClean := evalConfig(dir, servers)
	cfgClean.OutputJSONPath = filepath.Join(dir, "clean.json")
	if err := RunEvaluation(context.Background(), cfgClean, datasetPath, nil); err != nil {
		t.Fatalf("clean run: %v", err)
	}
	clean, err := os.ReadFile(cfgClean.OutputPath())
	if err != nil {
		t.Fatalf("read clean output: %v", err)
	}
	if !bytes.Equal(resumed, clean) {
		t.Fatal("resumed run must equal an uninterrupted run")
	}
}

func TestRunEvaluationOverwriteCandidatesForcesSummaries(t *testing.T) {
	dir := t.TempDir()
	servers := startEngineServers(t)
	datasetPath := writeEvalDataset(t, dir)
	cfg := evalConfig(dir, servers)
	newScorerSet().install(t)

	if err := RunEvaluation(context.Background(), cfg, datasetPath, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Candidates-overwrite alone must force summary recomputation.
	lmBefore := servers.lmRequests
	cfg.OverwriteCandidates = true
	if err := RunEvaluation(context.Background(), cfg, cfg.OutputPath(), nil); err != nil {
		t.Fatalf("overwrite run: %v", err)
	}
	if servers.lmRequests == lmBefore {
		t.Fatal("summaries were not recomputed after candidate overwrite")
	}
}

func TestRunEvaluationUnknownEngineFailsBeforeSamples(t *testing.T) {
	dir := t.TempDir()
	servers := startEngineServers(t)
	datasetPath := writeEvalDataset(t, dir)
	cfg := evalConfig(dir, servers)
	cfg.CaptionEngine = "unknown"
	newScorerSet().install(t)

	if err := RunEvaluation(context.Background(), cfg, datasetPath, nil); err == nil {
		t.Fatal("expected engine load failure")
	}
	if servers.captionRequests != 0 {
		t.Fatal("no engine traffic expected for an unknown engine")
	}
}
