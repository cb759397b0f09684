// Package models contains the record types shared by the fetch, enrich and cache layers.
package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is an opaque API object keyed by its "id" field.
// Values decoded from JSON keep numbers as json.Number.
type Record map[string]any

// ID returns the record's id, or "" if it has none.
func (r Record) ID() string {
	s, _ := r["id"].(string)
	return s
}

// String returns a string field, or "" if missing or not a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Int returns an integer field. The second result is false when the
// field is absent or not numeric.
func (r Record) Int(key string) (int64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	return toInt64(v)
}

// Bool returns a boolean field, false if absent.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// List returns a list field as []any. Typed string slices are widened.
func (r Record) List(key string) []any {
	switch v := r[key].(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return nil
	}
}

// Strings returns the string elements of a list field.
func (r Record) Strings(key string) []string {
	list := r.List(key)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
