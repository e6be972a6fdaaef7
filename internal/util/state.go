package util

import (
	"encoding/json"
	"fmt"
)

// DecodeState converts a state value into T through its JSON form. Values
// read back from a store are generic maps and slices; values staged in the
// same invocation may already be typed. A nil value yields the zero T.
func DecodeState[T any](v any) (T, error) {
	var out T
	if v == nil {
		return out, nil
	}
	if typed, ok := v.(T); ok {
		return typed, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("encode state value: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode state value into %T: %w", out, err)
	}
	return out, nil
}

// EncodeState converts v into plain maps, slices and scalars so that it
// persists and deep-copies like any other state value.
func EncodeState(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode state value: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode state value: %w", err)
	}
	return out, nil
}
