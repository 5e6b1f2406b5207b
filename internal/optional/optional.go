// Package optional provides a field type for partial updates that keeps
// "absent from the request" apart from "present with a zero value".  A JSON
// null is treated the same as an absent key.
package optional

import "encoding/json"

// Value is either omitted (Set == false) or explicitly supplied.
type Value[T any] struct {
	Set bool
	V   T
}

// Of returns an explicitly supplied value.
func Of[T any](v T) Value[T] { return Value[T]{Set: true, V: v} }

// Get returns the value and whether it was supplied.
func (o Value[T]) Get() (T, bool) { return o.V, o.Set }

// UnmarshalJSON marks the field as supplied unless the literal is null.
func (o *Value[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Value[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Set = true
	o.V = v
	return nil
}

// MarshalJSON writes null for an omitted value.
func (o Value[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.V)
}
