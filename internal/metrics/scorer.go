// internal/metrics/scorer.go

// Package metrics connects the pipeline to the external scoring collaborators
// and reduces per-sample scores into the dataset-level report.
package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/capeval/capeval/internal/appconfig"
	"github.com/capeval/capeval/internal/dataset"
	"github.com/capeval/capeval/internal/logging"
)

// Scorer computes one family of per-sample scores over the whole sample set
// and returns the set with its score keys populated. The math behind each
// family lives outside this program.
type Scorer interface {
	// Name identifies the score family (doubles as the stage name).
	Name() string
	// Score returns the samples with this family's keys added.
	Score(ctx context.Context, samples []dataset.Sample) ([]dataset.Sample, error)
}

// ServiceStageNames lists the score families requested from the scoring
// service, in the order their stages run.
var ServiceStageNames = []string{
	"base_metrics",
	"mauve",
	"clip_recall",
	"content_recall",
	"self_bleu",
	"hallucinations",
}

// ServiceScorer implements Scorer against a scoring-service HTTP endpoint:
// the full sample set is posted and comes back with scores attached.
type ServiceScorer struct {
	name    string
	host    appconfig.Host
	keys    dataset.Keys
	client  *http.Client
	timeout time.Duration
}

// NewServiceScorer returns a ServiceScorer for one score family.
func NewServiceScorer(name string, host appconfig.Host, keys dataset.Keys, timeout time.Duration) *ServiceScorer {
	return &ServiceScorer{
		name: name,
		host: host,
		keys: keys,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout: timeout,
	}
}

// Name returns the score family name.
func (s *ServiceScorer) Name() string {
	return s.name
}

// Score posts the sample set to the scoring service and returns the scored
// set. The reply must contain the same number of samples, in order.
func (s *ServiceScorer) Score(ctx context.Context, samples []dataset.Sample) ([]dataset.Sample, error) {
	body, err := dataset.EncodeSamples(samples, s.keys)
	if err != nil {
		return nil, fmt.Errorf("scorer %s: could not encode samples: %w", s.name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	endpoint := s.host.URL + "/score/" + s.name
	logging.LogRequest("CAPEVAL->SCORER", s.host.Name, s.name, fmt.Sprintf("%d samples", len(samples)))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("scorer %s: %w", s.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scorer %s: %w", s.name, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scorer %s: %w", s.name, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("scorer %s: service returned %s: %s", s.name, resp.Status, strings.TrimSpace(string(respBody)))
	}

	scored, err := dataset.DecodeSamples(respBody, s.keys)
	if err != nil {
		return nil, fmt.Errorf("scorer %s: could not parse scored samples: %w", s.name, err)
	}
	if len(scored) != len(samples) {
		return nil, fmt.Errorf("scorer %s: service returned %d samples, want %d", s.name, len(scored), len(samples))
	}
	return scored, nil
}
