package llmjson

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number returns m[key] when it holds a JSON number. Numeric strings are rejected.
func Number(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Int returns m[key] when it holds an integral JSON number or a string spelling one ("3").
func Int(m map[string]any, key string) (int, bool) {
	if s, ok := m[key].(string); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	f, ok := Number(m, key)
	if !ok || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// String returns the trimmed value of m[key] when it is a non-blank string.
func String(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Strings returns the non-blank string elements of the list at m[key].
// ok is false when the value is not a list.
func Strings(m map[string]any, key string) ([]string, bool) {
	list, ok := m[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, true
}
