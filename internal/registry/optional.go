// Package registry holds the domain model for the records system: aggregate
// types, their patch structures and the business invariants evaluated against
// merged state before any write transaction opens.
package registry

import (
	"bytes"
	"encoding/json"
)

// Optional is a patch field that distinguishes absent, explicit null and a
// concrete value. A field left out of the JSON payload keeps its existing
// value; a field explicitly present, including null, replaces it.
type Optional[T any] struct {
	Present bool
	Valid   bool
	Value   T
}

// Set builds a present, non-null optional.
func Set[T any](v T) Optional[T] {
	return Optional[T]{Present: true, Valid: true, Value: v}
}

// Null builds a present, explicitly-null optional.
func Null[T any]() Optional[T] {
	return Optional[T]{Present: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Valid = false
		var zero T
		o.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present || !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Or returns the patched value for a non-nullable field: the supplied value
// when present, the zero value on explicit null (validation then flags the
// emptied field), the current value otherwise.
func (o Optional[T]) Or(current T) T {
	if !o.Present {
		return current
	}
	if !o.Valid {
		var zero T
		return zero
	}
	return o.Value
}

// OrPtr returns the patched value for a nullable field: explicit null clears
// it, an absent field keeps the current pointer.
func (o Optional[T]) OrPtr(current *T) *T {
	if !o.Present {
		return current
	}
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}
