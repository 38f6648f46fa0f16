// internal/metrics/scorer_test.go
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/capeval/capeval/internal/appconfig"
	"github.com/capeval/capeval/internal/dataset"
)

func TestServiceScorerRoundTrip(t *testing.T) {
	t.Parallel()

	keys := dataset.DefaultKeys()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/score/base_metrics" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var records []map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		for _, record := range records {
			record["scores"] = json.RawMessage(`{"candidate_summary_bleu_1": 0.5}`)
		}
		_ = json.NewEncoder(w).Encode(records)
	}))
	defer server.Close()

	scorer := NewServiceScorer("base_metrics", appconfig.Host{Name: "scores", URL: server.URL}, keys, 5*time.Second)
	if scorer.Name() != "base_metrics" {
		t.Fatalf("Name = %q", scorer.Name())
	}

	samples := []dataset.Sample{{ImagePath: "a.jpg", References: []string{"r"}}}
	scored, err := scorer.Score(context.Background(), samples)
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if got, ok := scored[0].Scores.At("candidate_summary_bleu_1"); !ok || got != 0.5 {
		t.Fatalf("score not attached: %v %v", got, ok)
	}
}

func TestServiceScorerLengthMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	scorer := NewServiceScorer("mauve", appconfig.Host{Name: "scores", URL: server.URL}, dataset.DefaultKeys(), time.Second)
	samples := []dataset.Sample{{ImagePath: "a.jpg", References: []string{"r"}}}

	_, err := scorer.Score(context.Background(), samples)
	if err == nil || !strings.Contains(err.Error(), "returned 0 samples") {
		t.Fatalf("expected length mismatch error, got %v", err)
	}
}

func TestServiceScorerServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "spice backend down", http.StatusBadGateway)
	}))
	defer server.Close()

	scorer := NewServiceScorer("base_metrics", appconfig.Host{Name: "scores", URL: server.URL}, dataset.DefaultKeys(), time.Second)
	samples := []dataset.Sample{{ImagePath: "a.jpg", References: []string{"r"}}}

	_, err := scorer.Score(context.Background(), samples)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected server error, got %v", err)
	}
}
