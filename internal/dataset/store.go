// internal/dataset/store.go
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/capeval/capeval/internal/util"
)

// FormatError reports a malformed dataset file. It is fatal before any stage
// runs.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("dataset format error in %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("dataset format error: %s", e.Reason)
}

// Report is the aggregated metrics written next to the samples in the final
// output: group name -> metric name -> value.
type Report map[string]map[string]float64

// Store loads, checkpoints, and finalizes sample sets on disk.
type Store struct {
	keys Keys
}

// NewStore returns a Store using the given field names.
func NewStore(keys Keys) *Store {
	return &Store{keys: keys}
}

// Keys returns the field names the store reads and writes.
func (st *Store) Keys() Keys {
	return st.keys
}

// Load reads a dataset file. The root value must be a JSON array of samples or
// an object with a "samples" key.
func (st *Store) Load(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read dataset %q: %w", path, err)
	}

	samples, err := DecodeSamples(data, st.keys)
	if err != nil {
		var formatErr *FormatError
		if errors.As(err, &formatErr) && formatErr.Path == "" {
			formatErr.Path = path
		}
		return nil, err
	}
	return samples, nil
}

// CheckpointPath returns the checkpoint location for an output path.
func (st *Store) CheckpointPath(outputPath string) string {
	return outputPath + ".tmp"
}

// HasCheckpoint reports whether a checkpoint exists for the output path.
func (st *Store) HasCheckpoint(outputPath string) bool {
	info, err := os.Stat(st.CheckpointPath(outputPath))
	return err == nil && !info.IsDir()
}

// Checkpoint writes the full sample set to <outputPath>.tmp, replacing any
// prior checkpoint. The write goes to a scratch file first and is renamed into
// place, so a crash mid-write leaves either the old or the new checkpoint
// intact.
func (st *Store) Checkpoint(outputPath string, samples []Sample) error {
	data, err := EncodeSamples(samples, st.keys)
	if err != nil {
		return fmt.Errorf("could not encode checkpoint: %w", err)
	}

	checkpointPath := st.CheckpointPath(outputPath)
	dir := filepath.Dir(checkpointPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create checkpoint directory: %w", err)
		}
	}

	scratch, err := os.CreateTemp(dir, filepath.Base(checkpointPath)+".*")
	if err != nil {
		return fmt.Errorf("could not create checkpoint scratch file: %w", err)
	}
	scratchPath := scratch.Name()
	if _, err := scratch.Write(data); err != nil {
		_ = scratch.Close()
		_ = os.Remove(scratchPath)
		return fmt.Errorf("could not write checkpoint: %w", err)
	}
	if err := scratch.Close(); err != nil {
		_ = os.Remove(scratchPath)
		return fmt.Errorf("could not close checkpoint scratch file: %w", err)
	}
	if err := os.Rename(scratchPath, checkpointPath); err != nil {
		_ = os.Remove(scratchPath)
		return fmt.Errorf("could not move checkpoint into place: %w", err)
	}
	return nil
}

// Finalize writes {"samples": ..., "metrics": ...} to the output path, then
// removes the checkpoint. A failed write keeps the checkpoint so a rerun can
// resume.
func (st *Store) Finalize(outputPath string, samples []Sample, report Report) error {
	records := make([]map[string]any, 0, len(samples))
	for _, s := range samples {
		records = append(records, encodeSample(s, st.keys))
	}

	data, err := json.MarshalIndent(map[string]any{
		"samples": records,
		"metrics": report,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode final output: %w", err)
	}
	if err := util.WriteFile(outputPath, data); err != nil {
		return fmt.Errorf("could not write final output %q: %w", outputPath, err)
	}

	checkpointPath := st.CheckpointPath(outputPath)
	if err := os.Remove(checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not remove checkpoint %q: %w", checkpointPath, err)
	}
	return nil
}

// EncodeSamples serializes a sample set with the given field names.
func EncodeSamples(samples []Sample, keys Keys) ([]byte, error) {
	records := make([]map[string]any, 0, len(samples))
	for _, s := range samples {
		records = append(records, encodeSample(s, keys))
	}
	return json.Marshal(records)
}

// DecodeSamples parses a sample set from a JSON array or an object with a
// "samples" key.
func DecodeSamples(data []byte, keys Keys) ([]Sample, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("root value is not valid JSON: %v", err)}
	}

	var rawSamples []json.RawMessage
	switch root.(type) {
	case []any:
		if err := json.Unmarshal(data, &rawSamples); err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("could not parse sample list: %v", err)}
		}
	case map[string]any:
		var wrapper struct {
			Samples []json.RawMessage `json:"samples"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("could not parse sample object: %v", err)}
		}
		if wrapper.Samples == nil {
			return nil, &FormatError{Reason: `root object has no "samples" key`}
		}
		rawSamples = wrapper.Samples
	default:
		return nil, &FormatError{Reason: "root value must be a list of samples or an object with a \"samples\" key"}
	}

	samples := make([]Sample, 0, len(rawSamples))
	for i, raw := range rawSamples {
		sample, err := decodeSample(raw, i, keys)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, nil
}
