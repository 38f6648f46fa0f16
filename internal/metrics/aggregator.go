// internal/metrics/aggregator.go
package metrics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/k0kubun/pp"

	"github.com/capeval/capeval/internal/dataset"
)

// AggregationError reports a sample missing a score the aggregator needs.
// Score stages must complete over the whole sample set before aggregation.
type AggregationError struct {
	SampleIndex int
	Key         string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed: sample %d is missing score key %q", e.SampleIndex, e.Key)
}

// Report group names.
const (
	GroupStandard       = "standard"
	GroupClipRecall     = "clip_recall"
	GroupContentRecall  = "content_recall"
	GroupHallucinations = "hallucinations"
)

var summaryPrefixes = []string{"candidate_summary", "reference_summary", "baseline"}

// meanMetric names one report entry computed as the arithmetic mean of a
// fixed score path across all samples.
type meanMetric struct {
	name string
	path []string
}

func standardMetrics() []meanMetric {
	var metrics []meanMetric
	for _, prefix := range summaryPrefixes {
		for _, suffix := range []string{"bleu_1", "bleu_2", "bleu_3", "bleu_4", "rouge", "cider", "mauve"} {
			key := prefix + "_" + suffix
			metrics = append(metrics, meanMetric{name: key, path: []string{key}})
		}
	}
	metrics = append(metrics,
		meanMetric{name: "candidate_self_bleu", path: []string{"self_bleu", "candidates"}},
		meanMetric{name: "reference_self_bleu", path: []string{"self_bleu", "references"}},
	)
	return metrics
}

func clipRecallMetrics() []meanMetric {
	var metrics []meanMetric
	for _, prefix := range summaryPrefixes {
		for _, suffix := range []string{"rank", "mrr", "at_1", "at_5", "at_10", "max_rank"} {
			key := prefix + "_clip_recall_" + suffix
			metrics = append(metrics, meanMetric{name: key, path: []string{key}})
		}
	}
	return metrics
}

func contentRecallMetrics() []meanMetric {
	var metrics []meanMetric
	for _, prefix := range summaryPrefixes {
		for _, suffix := range []string{"noun_recall", "verb_recall", "noun_fuzzy_recall", "verb_fuzzy_recall"} {
			name := prefix + "_" + suffix
			metrics = append(metrics, meanMetric{name: name, path: []string{"content_recall", name}})
		}
	}
	return metrics
}

// Aggregate reduces per-sample scores into the dataset-level report. Every
// sample must carry every required score key; the first gap aborts with an
// AggregationError naming the sample and key.
func Aggregate(samples []dataset.Sample) (dataset.Report, error) {
	if len(samples) == 0 {
		return nil, errors.New("aggregation failed: no samples")
	}

	report := dataset.Report{}
	groups := []struct {
		name    string
		metrics []meanMetric
	}{
		{GroupStandard, standardMetrics()},
		{GroupClipRecall, clipRecallMetrics()},
		{GroupContentRecall, contentRecallMetrics()},
	}
	for _, group := range groups {
		values := make(map[string]float64, len(group.metrics))
		for _, metric := range group.metrics {
			mean, err := meanAt(samples, metric.path)
			if err != nil {
				return nil, err
			}
			values[metric.name] = mean
		}
		report[group.name] = values
	}

	hallucinations, err := hallucinationMetrics(samples)
	if err != nil {
		return nil, err
	}
	report[GroupHallucinations] = hallucinations
	return report, nil
}

func meanAt(samples []dataset.Sample, path []string) (float64, error) {
	var sum float64
	for i, sample := range samples {
		value, ok := sample.Scores.At(path...)
		if !ok {
			return 0, &AggregationError{SampleIndex: i, Key: strings.Join(path, ".")}
		}
		sum += value
	}
	return sum / float64(len(samples)), nil
}

func hallucinationMetrics(samples []dataset.Sample) (map[string]float64, error) {
	var hallucinated, objects, flaggedCaptions int
	for i, sample := range samples {
		if !sample.HallucinatedObjectCount.IsSet() {
			return nil, &AggregationError{SampleIndex: i, Key: "hallucinated_object_count"}
		}
		if !sample.ObjectCount.IsSet() {
			return nil, &AggregationError{SampleIndex: i, Key: "object_count"}
		}
		hallucinated += sample.HallucinatedObjectCount.Value()
		objects += sample.ObjectCount.Value()
		if sample.HallucinatedObjectCount.Value() > 0 {
			flaggedCaptions++
		}
	}

	matchingMean, err := meanAt(samples, []string{"hungarian_matching_score"})
	if err != nil {
		return nil, err
	}

	var objectPercentage float64
	if objects > 0 {
		objectPercentage = float64(hallucinated) / float64(objects)
	}
	return map[string]float64{
		"hallucinated_objects_percentage":  objectPercentage,
		"hallucinated_captions_percentage": float64(flaggedCaptions) / float64(len(samples)),
		"average_hungarian_matching_score": matchingMean,
	}, nil
}

// PrintReport pretty-prints the final report to the console.
func PrintReport(report dataset.Report) {
	pp.Println(report)
}
