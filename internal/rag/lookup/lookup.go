// Package lookup resolves fields from loosely shaped JSON payloads by trying an
// ordered list of accessors until one yields a usable value.
package lookup

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Accessor reads one candidate location from a decoded JSON object.
type Accessor func(m map[string]interface{}) (interface{}, bool)

// Path returns an accessor for a dotted chain of object keys.
func Path(keys ...string) Accessor {
	return func(m map[string]interface{}) (interface{}, bool) {
		var cur interface{} = m
		for _, k := range keys {
			obj, ok := cur.(map[string]interface{})
			if !ok {
				return nil, false
			}
			cur, ok = obj[k]
			if !ok || cur == nil {
				return nil, false
			}
		}
		return cur, true
	}
}

// Paths builds one accessor per dotted path, e.g. Paths("text", "ragContext.text").
func Paths(paths ...string) []Accessor {
	out := make([]Accessor, 0, len(paths))
	for _, p := range paths {
		out = append(out, Path(strings.Split(p, ".")...))
	}
	return out
}

// FirstString returns the first accessor value that is a non-blank string.
func FirstString(m map[string]interface{}, accessors []Accessor) string {
	for _, a := range accessors {
		v, ok := a(m)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// FirstFloat returns the first accessor value that can be read as a number.
func FirstFloat(m map[string]interface{}, accessors []Accessor) (float64, bool) {
	for _, a := range accessors {
		v, ok := a(m)
		if !ok {
			continue
		}
		if f, ok := ToFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

// FirstSlice returns the first accessor value that is a JSON array.
func FirstSlice(m map[string]interface{}, accessors []Accessor) ([]interface{}, bool) {
	for _, a := range accessors {
		v, ok := a(m)
		if !ok {
			continue
		}
		if s, ok := v.([]interface{}); ok {
			return s, true
		}
	}
	return nil, false
}

// ToFloat converts the numeric shapes encoding/json and callers commonly produce.
func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
