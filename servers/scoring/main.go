// main.go
//
// Development stand-in for the capeval scoring service. It implements the
// POST /score/<stage> wire protocol with deterministic pseudo-scores so the
// pipeline can be exercised end to end without the real metric backends.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"
)

var scoreStages = []string{
	"base_metrics",
	"mauve",
	"clip_recall",
	"content_recall",
	"self_bleu",
	"hallucinations",
}

var summaryPrefixes = []string{"candidate_summary", "reference_summary", "baseline"}

type ErrResp struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type Server struct {
	mu  sync.Mutex
	cfg *Config
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	s := &Server{cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /score/{stage}", s.handleScore)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("scoring config: host=%s port=%d timeout=%ds", cfg.Host, cfg.Port, cfg.TimeoutSeconds)
	log.Printf("listening on %s", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	// One batch at a time; the pipeline is strictly sequential anyway.
	log.Printf("score request from %s: %s", r.RemoteAddr, r.URL.Path)
	s.mu.Lock()
	defer s.mu.Unlock()

	stage := r.PathValue("stage")
	if !knownStage(stage) {
		writeJSON(w, http.StatusNotFound, ErrResp{OK: false, Error: "unknown score stage: " + stage})
		return
	}

	var samples []map[string]any
	if err := decodeJSON(w, r, &samples, 64<<20 /* 64 MiB */); err != nil {
		log.Printf("score decode error: %v", err)
		writeJSON(w, http.StatusBadRequest, ErrResp{OK: false, Error: "invalid JSON: " + err.Error()})
		return
	}

	for i := range samples {
		attachScores(samples[i], stage)
	}

	log.Printf("score complete: stage=%s samples=%d", stage, len(samples))
	writeJSON(w, http.StatusOK, samples)
}

func knownStage(stage string) bool {
	for _, name := range scoreStages {
		if name == stage {
			return true
		}
	}
	return false
}

// attachScores fills the score keys the stage owns with values derived from
// the sample content, so reruns over the same dataset reproduce them.
func attachScores(sample map[string]any, stage string) {
	scores, _ := sample["scores"].(map[string]any)
	if scores == nil {
		scores = map[string]any{}
	}

	seed, _ := sample["image_path"].(string)
	switch stage {
	case "base_metrics":
		for _, prefix := range summaryPrefixes {
			for _, suffix := range []string{"bleu_1", "bleu_2", "bleu_3", "bleu_4", "rouge", "cider"} {
				key := prefix + "_" + suffix
				scores[key] = stableScore(seed + key)
			}
		}
	case "mauve":
		for _, prefix := range summaryPrefixes {
			key := prefix + "_mauve"
			scores[key] = stableScore(seed + key)
		}
	case "clip_recall":
		for _, prefix := range summaryPrefixes {
			for _, suffix := range []string{"rank", "mrr", "at_1", "at_5", "at_10", "max_rank"} {
				key := prefix + "_clip_recall_" + suffix
				scores[key] = stableScore(seed + key)
			}
		}
	case "content_recall":
		recall := map[string]any{}
		for _, prefix := range summaryPrefixes {
			for _, suffix := range []string{"noun_recall", "verb_recall", "noun_fuzzy_recall", "verb_fuzzy_recall"} {
				key := prefix + "_" + suffix
				recall[key] = stableScore(seed + key)
			}
		}
		scores["content_recall"] = recall
	case "self_bleu":
		scores["self_bleu"] = map[string]any{
			"candidates": stableScore(seed + "self_bleu_candidates"),
			"references": stableScore(seed + "self_bleu_references"),
		}
	case "hallucinations":
		scores["hungarian_matching_score"] = stableScore(seed + "hungarian")
		objects := 3 + int(hash(seed+"objects")%5)
		sample["object_count"] = objects
		sample["hallucinated_object_count"] = int(hash(seed+"hallucinated") % uint64(objects+1))
	}

	sample["scores"] = scores
}

// stableScore maps a seed string to a deterministic value in [0, 1).
func stableScore(seed string) float64 {
	return float64(hash(seed)%1000) / 1000.0
}

func hash(seed string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return h.Sum64()
}

type Config struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TimeoutSeconds int    `yaml:"timeout"`
}

var (
	configOnce sync.Once
	configVal  *Config
	configErr  error
)

func loadConfig() (*Config, error) {
	configOnce.Do(func() {
		path := filepath.Join("servers", "scoring", "scoring.yml")
		data, err := os.ReadFile(path)
		if err != nil {
			configErr = err
			return
		}

		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			configErr = err
			return
		}

		if strings.TrimSpace(cfg.Host) == "" {
			cfg.Host = "0.0.0.0"
		}
		if cfg.Port <= 0 {
			cfg.Port = 5000
		}
		if cfg.TimeoutSeconds <= 0 {
			cfg.TimeoutSeconds = 600
		}

		configVal = &cfg
	})

	return configVal, configErr
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
