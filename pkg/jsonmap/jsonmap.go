// Package jsonmap reads loosely shaped JSON documents.
//
// Carrier responses and checkout payloads arrive with several spellings for
// the same field (snake_case, camelCase, nested under "data" or not). The
// helpers here pick the first present value out of an ordered list of
// candidate paths so callers can declare those spellings in one place.
package jsonmap

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Map is a decoded JSON object.
type Map = map[string]any

// AsMap returns v as a Map when it is a JSON object.
func AsMap(v any) (Map, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, m != nil
	default:
		return nil, false
	}
}

// Present reports whether v carries a value: not nil and not the empty string.
func Present(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// First returns the first present value.
func First(values ...any) any {
	for _, v := range values {
		if Present(v) {
			return v
		}
	}
	return nil
}

// Get walks a dot separated path. Numeric segments index into arrays.
func Get(m Map, path string) any {
	var cur any = m
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[seg]
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// FirstPath returns the first present value found at any of the paths.
func FirstPath(m Map, paths ...string) any {
	if m == nil {
		return nil
	}
	for _, p := range paths {
		if v := Get(m, p); Present(v) {
			return v
		}
	}
	return nil
}

// MapAt returns the first object found at any of the paths.
func MapAt(m Map, paths ...string) (Map, bool) {
	for _, p := range paths {
		if sub, ok := AsMap(Get(m, p)); ok {
			return sub, true
		}
	}
	return nil, false
}

// String renders strings and numbers as a trimmed string. Empty results
// report false.
func String(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case json.Number:
		s = t.String()
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			s = strconv.FormatInt(int64(t), 10)
		} else {
			s = strconv.FormatFloat(t, 'f', -1, 64)
		}
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case int32:
		s = strconv.FormatInt(int64(t), 10)
	default:
		return "", false
	}
	return s, s != ""
}

// StringAt is String(FirstPath(m, paths...)).
func StringAt(m Map, paths ...string) string {
	s, _ := String(FirstPath(m, paths...))
	return s
}

// Number converts JSON numbers and numeric strings to float64.
func Number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Bool accepts booleans, 1/0 and the strings "true"/"false"/"1"/"0".
func Bool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
		return false, false
	default:
		n, ok := Number(v)
		if !ok {
			return false, false
		}
		switch n {
		case 1:
			return true, true
		case 0:
			return false, true
		}
		return false, false
	}
}

// Maps returns the objects contained in a JSON array, skipping other values.
func Maps(v any) []Map {
	arr, ok := v.([]any)
	if !ok {
		if typed, ok := v.([]Map); ok {
			return typed
		}
		return nil
	}
	out := make([]Map, 0, len(arr))
	for _, item := range arr {
		if m, ok := AsMap(item); ok {
			out = append(out, m)
		}
	}
	return out
}

// Clone makes a shallow copy of m.
func Clone(m Map) Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Decode unmarshals raw JSON into a Map, returning an empty map for blank
// input.
func Decode(raw []byte) (Map, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Map{}, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if m, ok := AsMap(v); ok {
		return m, nil
	}
	// Arrays and scalars are kept under "data" so paths stay uniform.
	return Map{"data": v}, nil
}
