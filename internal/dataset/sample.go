// internal/dataset/sample.go
// Package dataset defines the sample record evaluated by the pipeline and the
// store that persists it between stages.
package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Keys names the dataset fields that are configurable per input file.
type Keys struct {
	Candidates string
	References string
	ImagePath  string
}

// DefaultKeys returns the standard field names.
func DefaultKeys() Keys {
	return Keys{
		Candidates: "candidates",
		References: "references",
		ImagePath:  "image_path",
	}
}

// Sample is one evaluated input item. ImagePath and References are immutable
// once loaded; every other field is populated by exactly one pipeline stage.
type Sample struct {
	ImagePath  string
	References []string

	Candidates Field[[]string]
	Baseline   Field[string]

	// PluginOutputs maps plugin name to the raw value the plugin extracted.
	// An absent entry means that plugin has not run yet.
	PluginOutputs map[string]json.RawMessage

	CandidateSummary       Field[string]
	CandidateSummaryPrompt Field[string]
	ReferenceSummary       Field[string]
	ReferenceSummaryPrompt Field[string]

	Scores Scores

	HallucinatedObjectCount Field[int]
	ObjectCount             Field[int]

	// Extra preserves input keys the pipeline does not interpret, so the
	// output file keeps everything the input carried.
	Extra map[string]json.RawMessage
}

// PluginOutputValues returns the plugin outputs in deterministic (sorted-name)
// order for prompt construction.
func (s Sample) PluginOutputValues() []json.RawMessage {
	if len(s.PluginOutputs) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.PluginOutputs))
	for name := range s.PluginOutputs {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make([]json.RawMessage, 0, len(names))
	for _, name := range names {
		values = append(values, s.PluginOutputs[name])
	}
	return values
}

const (
	keyBaseline                = "baseline"
	keyPluginOutputs           = "plugin_outputs"
	keyCandidateSummary        = "candidate_summary"
	keyCandidateSummaryPrompt  = "candidate_summary_prompt"
	keyReferenceSummary        = "reference_summary"
	keyReferenceSummaryPrompt  = "reference_summary_prompt"
	keyScores                  = "scores"
	keyHallucinatedObjectCount = "hallucinated_object_count"
	keyObjectCount             = "object_count"
)

func encodeSample(s Sample, keys Keys) map[string]any {
	record := make(map[string]any, len(s.Extra)+12)
	for k, v := range s.Extra {
		record[k] = v
	}

	record[keys.ImagePath] = s.ImagePath
	record[keys.References] = s.References
	if s.Candidates.IsSet() {
		record[keys.Candidates] = s.Candidates.Value()
	}
	if s.Baseline.IsSet() {
		record[keyBaseline] = s.Baseline.Value()
	}
	if len(s.PluginOutputs) > 0 {
		record[keyPluginOutputs] = s.PluginOutputs
	}
	if s.CandidateSummary.IsSet() {
		record[keyCandidateSummary] = s.CandidateSummary.Value()
	}
	if s.CandidateSummaryPrompt.IsSet() {
		record[keyCandidateSummaryPrompt] = s.CandidateSummaryPrompt.Value()
	}
	if s.ReferenceSummary.IsSet() {
		record[keyReferenceSummary] = s.ReferenceSummary.Value()
	}
	if s.ReferenceSummaryPrompt.IsSet() {
		record[keyReferenceSummaryPrompt] = s.ReferenceSummaryPrompt.Value()
	}
	if len(s.Scores) > 0 {
		record[keyScores] = s.Scores
	}
	if s.HallucinatedObjectCount.IsSet() {
		record[keyHallucinatedObjectCount] = s.HallucinatedObjectCount.Value()
	}
	if s.ObjectCount.IsSet() {
		record[keyObjectCount] = s.ObjectCount.Value()
	}
	return record
}

func decodeSample(raw json.RawMessage, index int, keys Keys) (Sample, error) {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(raw, &record); err != nil {
		return Sample{}, &FormatError{Reason: fmt.Sprintf("sample %d is not a JSON object", index)}
	}

	var s Sample

	imageRaw, ok := record[keys.ImagePath]
	if !ok {
		return Sample{}, &FormatError{Reason: fmt.Sprintf("sample %d is missing required key %q", index, keys.ImagePath)}
	}
	if err := json.Unmarshal(imageRaw, &s.ImagePath); err != nil {
		return Sample{}, &FormatError{Reason: fmt.Sprintf("sample %d: %q is not a string", index, keys.ImagePath)}
	}
	delete(record, keys.ImagePath)

	refsRaw, ok := record[keys.References]
	if !ok {
		return Sample{}, &FormatError{Reason: fmt.Sprintf("sample %d is missing required key %q", index, keys.References)}
	}
	if err := json.Unmarshal(refsRaw, &s.References); err != nil {
		return Sample{}, &FormatError{Reason: fmt.Sprintf("sample %d: %q is not a list of strings", index, keys.References)}
	}
	delete(record, keys.References)

	if raw, ok := record[keys.Candidates]; ok {
		var candidates []string
		if err := json.Unmarshal(raw, &candidates); err != nil {
			return Sample{}, &FormatError{Reason: fmt.Sprintf("sample %d: %q is not a list of strings", index, keys.Candidates)}
		}
		s.Candidates = Set(candidates)
		delete(record, keys.Candidates)
	}

	if err := decodeString(record, keyBaseline, &s.Baseline); err != nil {
		return Sample{}, formatErr(index, keyBaseline, err)
	}
	if raw, ok := record[keyPluginOutputs]; ok {
		if err := json.Unmarshal(raw, &s.PluginOutputs); err != nil {
			return Sample{}, formatErr(index, keyPluginOutputs, err)
		}
		delete(record, keyPluginOutputs)
	}
	if err := decodeString(record, keyCandidateSummary, &s.CandidateSummary); err != nil {
		return Sample{}, formatErr(index, keyCandidateSummary, err)
	}
	if err := decodeString(record, keyCandidateSummaryPrompt, &s.CandidateSummaryPrompt); err != nil {
		return Sample{}, formatErr(index, keyCandidateSummaryPrompt, err)
	}
	if err := decodeString(record, keyReferenceSummary, &s.ReferenceSummary); err != nil {
		return Sample{}, formatErr(index, keyReferenceSummary, err)
	}
	if err := decodeString(record, keyReferenceSummaryPrompt, &s.ReferenceSummaryPrompt); err != nil {
		return Sample{}, formatErr(index, keyReferenceSummaryPrompt, err)
	}
	if raw, ok := record[keyScores]; ok {
		if err := json.Unmarshal(raw, &s.Scores); err != nil {
			return Sample{}, formatErr(index, keyScores, err)
		}
		delete(record, keyScores)
	}
	if err := decodeInt(record, keyHallucinatedObjectCount, &s.HallucinatedObjectCount); err != nil {
		return Sample{}, formatErr(index, keyHallucinatedObjectCount, err)
	}
	if err := decodeInt(record, keyObjectCount, &s.ObjectCount); err != nil {
		return Sample{}, formatErr(index, keyObjectCount, err)
	}

	if len(record) > 0 {
		s.Extra = record
	}
	return s, nil
}

func decodeString(record map[string]json.RawMessage, key string, field *Field[string]) error {
	raw, ok := record[key]
	if !ok {
		return nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}
	*field = Set(value)
	delete(record, key)
	return nil
}

func decodeInt(record map[string]json.RawMessage, key string, field *Field[int]) error {
	raw, ok := record[key]
	if !ok {
		return nil
	}
	var value int
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}
	*field = Set(value)
	delete(record, key)
	return nil
}

func formatErr(index int, key string, err error) error {
	return &FormatError{Reason: fmt.Sprintf("sample %d: invalid %q: %v", index, key, err)}
}
