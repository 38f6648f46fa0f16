// internal/dataset/scores.go
package dataset

import (
	"encoding/json"
	"fmt"
)

// Scores maps metric names to per-sample score values. Stages only ever add
// keys; nothing removes one.
type Scores map[string]ScoreValue

// ScoreValue is either a scalar score or a named group of scalars (the
// self_bleu and content_recall entries are nested).
type ScoreValue struct {
	num    float64
	nested map[string]float64
	isMap  bool
}

// Num returns a scalar score value.
func Num(v float64) ScoreValue {
	return ScoreValue{num: v}
}

// Nested returns a nested score value.
func Nested(m map[string]float64) ScoreValue {
	return ScoreValue{nested: m, isMap: true}
}

// Float returns the scalar value; ok is false for nested values.
func (v ScoreValue) Float() (float64, bool) {
	if v.isMap {
		return 0, false
	}
	return v.num, true
}

// Lookup returns the named entry of a nested value.
func (v ScoreValue) Lookup(key string) (float64, bool) {
	if !v.isMap {
		return 0, false
	}
	f, ok := v.nested[key]
	return f, ok
}

// MarshalJSON encodes the scalar or the nested map.
func (v ScoreValue) MarshalJSON() ([]byte, error) {
	if v.isMap {
		return json.Marshal(v.nested)
	}
	return json.Marshal(v.num)
}

// UnmarshalJSON accepts either a number or an object of numbers.
func (v *ScoreValue) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*v = Num(num)
		return nil
	}
	var nested map[string]float64
	if err := json.Unmarshal(data, &nested); err == nil {
		*v = Nested(nested)
		return nil
	}
	return fmt.Errorf("score value is neither a number nor an object of numbers: %s", data)
}

// At resolves a score path: one element for a scalar key, two for an entry
// inside a nested value.
func (s Scores) At(path ...string) (float64, bool) {
	if len(path) == 0 {
		return 0, false
	}
	value, ok := s[path[0]]
	if !ok {
		return 0, false
	}
	if len(path) == 1 {
		return value.Float()
	}
	return value.Lookup(path[1])
}

// Clone returns a copy so stage transforms can extend scores without aliasing
// the input sample.
func (s Scores) Clone() Scores {
	if s == nil {
		return nil
	}
	out := make(Scores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
