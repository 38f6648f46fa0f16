// internal/dataset/scores_test.go
package dataset

import (
	"encoding/json"
	"testing"
)

func TestFieldStates(t *testing.T) {
	var f Field[string]
	if f.IsSet() {
		t.Fatal("zero field must be unset")
	}
	f = Set("")
	if !f.IsSet() {
		t.Fatal("empty string is still a computed value")
	}
	if f.Value() != "" {
		t.Fatalf("value: %q", f.Value())
	}
}

func TestScoreValueJSON(t *testing.T) {
	var v ScoreValue
	if err := json.Unmarshal([]byte(`0.25`), &v); err != nil {
		t.Fatalf("number: %v", err)
	}
	if got, ok := v.Float(); !ok || got != 0.25 {
		t.Fatalf("Float: %v %v", got, ok)
	}

	if err := json.Unmarshal([]byte(`{"candidates": 0.1}`), &v); err != nil {
		t.Fatalf("nested: %v", err)
	}
	if _, ok := v.Float(); ok {
		t.Fatal("nested value must not report a scalar")
	}
	if got, ok := v.Lookup("candidates"); !ok || got != 0.1 {
		t.Fatalf("Lookup: %v %v", got, ok)
	}

	if err := json.Unmarshal([]byte(`"text"`), &v); err == nil {
		t.Fatal("expected error for non-numeric score")
	}
}

func TestScoresAt(t *testing.T) {
	s := Scores{
		"bleu":      Num(0.5),
		"self_bleu": Nested(map[string]float64{"candidates": 0.3}),
	}
	if got, ok := s.At("bleu"); !ok || got != 0.5 {
		t.Fatalf("scalar path: %v %v", got, ok)
	}
	if got, ok := s.At("self_bleu", "candidates"); !ok || got != 0.3 {
		t.Fatalf("nested path: %v %v", got, ok)
	}
	if _, ok := s.At("missing"); ok {
		t.Fatal("missing key must not resolve")
	}
	if _, ok := s.At("bleu", "sub"); ok {
		t.Fatal("scalar must not resolve a nested path")
	}
}

func TestPluginOutputValuesOrder(t *testing.T) {
	s := Sample{PluginOutputs: map[string]json.RawMessage{
		"b": json.RawMessage(`2`),
		"a": json.RawMessage(`1`),
		"c": json.RawMessage(`3`),
	}}
	values := s.PluginOutputValues()
	if len(values) != 3 || string(values[0]) != "1" || string(values[2]) != "3" {
		t.Fatalf("plugin outputs not sorted by name: %v", values)
	}
}
