// Package optional provides a field wrapper that distinguishes a value that
// was not supplied from one that was explicitly set to null.
package optional

import (
	"bytes"
	"encoding/json"
)

// Value holds an optional T decoded from JSON.
//
//   - absent key      -> Set == false
//   - "key": null     -> Set == true, Null == true
//   - "key": <value>  -> Set == true, Null == false, V holds the value
type Value[T any] struct {
	V    T
	Set  bool
	Null bool
}

// Of returns a present, non-null Value. Of and Null build updates in code;
// request bodies get the same states from UnmarshalJSON.
func Of[T any](v T) Value[T] {
	return Value[T]{V: v, Set: true}
}

// Null returns a present Value that was explicitly cleared.
func Null[T any]() Value[T] {
	return Value[T]{Set: true, Null: true}
}

// Present reports whether the field carries a non-null value.
func (v Value[T]) Present() bool {
	return v.Set && !v.Null
}

// Get returns the value and whether it is present and non-null.
func (v Value[T]) Get() (T, bool) {
	return v.V, v.Present()
}

func (v *Value[T]) UnmarshalJSON(data []byte) error {
	v.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.Null = true
		var zero T
		v.V = zero
		return nil
	}
	v.Null = false
	return json.Unmarshal(data, &v.V)
}

func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}
