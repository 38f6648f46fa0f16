// servers/scoring/main_test.go
package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestKnownStage(t *testing.T) {
	for _, stage := range scoreStages {
		if !knownStage(stage) {
			t.Fatalf("stage %q must be known", stage)
		}
	}
	if knownStage("bleu") {
		t.Fatal("unexpected stage accepted")
	}
}

func TestAttachScoresBaseMetrics(t *testing.T) {
	sample := map[string]any{"image_path": "a.jpg"}
	attachScores(sample, "base_metrics")

	scores, ok := sample["scores"].(map[string]any)
	if !ok {
		t.Fatalf("scores not attached: %v", sample)
	}
	for _, key := range []string{"candidate_summary_bleu_1", "reference_summary_cider", "baseline_rouge"} {
		value, ok := scores[key].(float64)
		if !ok {
			t.Fatalf("missing score %q: %v", key, scores)
		}
		if value < 0 || value >= 1 {
			t.Fatalf("score %q out of range: %v", key, value)
		}
	}
}

func TestAttachScoresIsDeterministic(t *testing.T) {
	first := map[string]any{"image_path": "a.jpg"}
	second := map[string]any{"image_path": "a.jpg"}
	attachScores(first, "mauve")
	attachScores(second, "mauve")

	a := first["scores"].(map[string]any)["candidate_summary_mauve"]
	b := second["scores"].(map[string]any)["candidate_summary_mauve"]
	if a != b {
		t.Fatalf("scores differ across runs: %v vs %v", a, b)
	}
}

func TestAttachScoresHallucinations(t *testing.T) {
	sample := map[string]any{"image_path": "a.jpg"}
	attachScores(sample, "hallucinations")

	objects, ok := sample["object_count"].(int)
	if !ok || objects <= 0 {
		t.Fatalf("object_count not attached: %v", sample)
	}
	hallucinated, ok := sample["hallucinated_object_count"].(int)
	if !ok || hallucinated < 0 || hallucinated > objects {
		t.Fatalf("hallucinated_object_count out of range: %v of %v", hallucinated, objects)
	}
	if _, ok := sample["scores"].(map[string]any)["hungarian_matching_score"]; !ok {
		t.Fatal("hungarian_matching_score missing")
	}
}

func TestAttachScoresPreservesExistingScores(t *testing.T) {
	sample := map[string]any{
		"image_path": "a.jpg",
		"scores":     map[string]any{"candidate_summary_bleu_1": 0.9},
	}
	attachScores(sample, "mauve")

	scores := sample["scores"].(map[string]any)
	if scores["candidate_summary_bleu_1"] != 0.9 {
		t.Fatal("existing scores must survive later stages")
	}
	if _, ok := scores["candidate_summary_mauve"]; !ok {
		t.Fatal("new stage scores missing")
	}
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/score/mauve", strings.NewReader(`[{"image_path":"a.jpg"}]`))
	rec := httptest.NewRecorder()
	var out []map[string]any
	if err := decodeJSON(rec, req, &out, 1024); err != nil {
		t.Fatalf("decodeJSON error: %v", err)
	}
	if len(out) != 1 || out[0]["image_path"] != "a.jpg" {
		t.Fatalf("unexpected decode result: %v", out)
	}
}

func TestDecodeJSONRejectsNilBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/score/mauve", nil)
	req.Body = nil
	rec := httptest.NewRecorder()
	var out []map[string]any
	if err := decodeJSON(rec, req, &out, 1024); err == nil {
		t.Fatal("expected error for nil body")
	}
}

func TestHandleScoreUnknownStage(t *testing.T) {
	s := &Server{cfg: &Config{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /score/{stage}", s.handleScore)

	req := httptest.NewRequest(http.MethodPost, "/score/nope", strings.NewReader(`[]`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
