// internal/dataset/field.go
package dataset

// Field holds an optional sample value. A zero Field is "not computed"; Set
// marks it computed. Stage preconditions check IsSet rather than comparing
// against zero values, so an engine legitimately returning "" still counts as
// computed.
type Field[T any] struct {
	value T
	set   bool
}

// Set returns a Field holding v in the computed state.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// IsSet reports whether the field has been computed.
func (f Field[T]) IsSet() bool {
	return f.set
}

// Value returns the computed value, or the zero value when unset.
func (f Field[T]) Value() T {
	return f.value
}
