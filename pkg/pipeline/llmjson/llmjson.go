// Package llmjson coerces free-text language model output into validated JSON objects.
//
// Model replies are untrusted text: they may wrap JSON in markdown fences, prefix it with
// prose, or omit fields. Everything in this package is a pure function and never panics on
// malformed input, so stages can apply their own defaults to whatever survives.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var codeFenceRe = regexp.MustCompile("(?is)```(?:json)?(.*?)```")

// Extract returns the most likely JSON object substring of raw.
//
// A fenced block wins over surrounding prose. If the candidate is still not brace-delimited,
// the text between the first '{' and the last '}' is used. Without braces the trimmed input is
// returned unchanged.
func Extract(raw string) string {
	text := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		inner := strings.TrimSpace(m[1])
		if len(inner) >= 4 && strings.EqualFold(inner[:4], "json") {
			inner = strings.TrimSpace(inner[4:])
		}
		text = inner
	}
	if !(strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}")) {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start != -1 && end != -1 && end > start {
			text = text[start : end+1]
		}
	}
	return strings.TrimSpace(text)
}

// Parse strictly decodes candidate as a single JSON value.
//
// Numbers are kept as json.Number so integers and floats survive a round trip unchanged.
func Parse(candidate string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("unexpected end of JSON input")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value at offset %d", dec.InputOffset())
	}
	return v, nil
}

// Validate reports whether value is an object holding every required key.
//
// Missing keys are returned in the order of required. A non-object value misses all of them.
// Value types are not checked here.
func Validate(value any, required []string) (bool, []string) {
	obj, ok := value.(map[string]any)
	if !ok {
		return false, append([]string(nil), required...)
	}
	var missing []string
	for _, k := range required {
		if _, ok := obj[k]; !ok {
			missing = append(missing, k)
		}
	}
	return len(missing) == 0, missing
}

// SafeLoad runs Extract, Parse and Validate and never fails.
//
// A parse failure yields an empty object and one warning. A parsed value that is not an object
// also yields an empty object. Missing keys yield the parsed object and one warning, so callers
// must still default individual fields.
func SafeLoad(raw string, required []string) (map[string]any, []string) {
	var warnings []string
	value, err := Parse(Extract(raw))
	if err != nil {
		warnings = append(warnings, "JSON parse error: "+err.Error())
		return map[string]any{}, warnings
	}
	ok, missing := Validate(value, required)
	if !ok {
		warnings = append(warnings, "Missing keys: "+strings.Join(missing, ", "))
	}
	obj, isObj := value.(map[string]any)
	if !isObj {
		return map[string]any{}, warnings
	}
	return obj, warnings
}
