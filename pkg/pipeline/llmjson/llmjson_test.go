package llmjson_test

import (
	"encoding/json"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/shpitdev/packing-pipeline/pkg/pipeline/llmjson"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain object", in: `{"a": 1}`, want: `{"a": 1}`},
		{name: "json fence", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "upper case tag", in: "```JSON\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "untagged fence", in: "Here you go:\n```\n{\"a\": 1}\n```\nEnjoy", want: `{"a": 1}`},
		{name: "tag inside fence body", in: "``` json {\"a\": 1} ```", want: `{"a": 1}`},
		{name: "prose around braces", in: `Sure! {"a": {"b": 2}} hope that helps`, want: `{"a": {"b": 2}}`},
		{name: "no braces", in: "  no structured data here  ", want: "no structured data here"},
		{name: "reversed braces", in: "} oops {", want: "} oops {"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := llmjson.Extract(tt.in); got != tt.want {
				t.Fatalf("Extract(%q)=%q want=%q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	v, err := llmjson.Parse(`{"latitude": 48.85, "duration": 5}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", v)
	}
	if obj["duration"] != json.Number("5") {
		t.Fatalf("expected json.Number 5, got %#v", obj["duration"])
	}

	for _, in := range []string{"", "not json", `{"a": 1} trailing`, `{"a": }`} {
		if _, err := llmjson.Parse(in); err == nil {
			t.Fatalf("Parse(%q): expected error", in)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	required := []string{"destination", "duration", "travel_type"}

	ok, missing := llmjson.Validate(map[string]any{"duration": json.Number("3")}, required)
	if ok {
		t.Fatalf("expected invalid")
	}
	if !slices.Equal(missing, []string{"destination", "travel_type"}) {
		t.Fatalf("unexpected missing keys: %v", missing)
	}

	ok, missing = llmjson.Validate([]any{"x"}, required)
	if ok || !slices.Equal(missing, required) {
		t.Fatalf("non-object must miss all keys, got ok=%t missing=%v", ok, missing)
	}

	ok, missing = llmjson.Validate(map[string]any{"destination": nil, "duration": "x", "travel_type": 1}, required)
	if !ok || len(missing) != 0 {
		t.Fatalf("present keys of any type must validate, got ok=%t missing=%v", ok, missing)
	}
}

func TestSafeLoad(t *testing.T) {
	t.Parallel()

	t.Run("parse failure", func(t *testing.T) {
		data, warnings := llmjson.SafeLoad("I cannot help with that", []string{"a"})
		if data == nil || len(data) != 0 {
			t.Fatalf("expected empty map, got %#v", data)
		}
		if len(warnings) != 1 || !strings.HasPrefix(warnings[0], "JSON parse error: ") {
			t.Fatalf("unexpected warnings: %v", warnings)
		}
	})

	t.Run("missing keys", func(t *testing.T) {
		data, warnings := llmjson.SafeLoad("```json\n{\"a\": 1}\n```", []string{"a", "b", "c"})
		if _, ok := data["a"]; !ok {
			t.Fatalf("expected parsed data, got %#v", data)
		}
		if len(warnings) != 1 || warnings[0] != "Missing keys: b, c" {
			t.Fatalf("unexpected warnings: %v", warnings)
		}
	})

	t.Run("non-object value", func(t *testing.T) {
		data, warnings := llmjson.SafeLoad(`[1, 2]`, []string{"a"})
		if len(data) != 0 {
			t.Fatalf("expected empty map, got %#v", data)
		}
		if len(warnings) != 1 || warnings[0] != "Missing keys: a" {
			t.Fatalf("unexpected warnings: %v", warnings)
		}
	})

	t.Run("valid", func(t *testing.T) {
		data, warnings := llmjson.SafeLoad(`{"a": "x", "b": [1, 2.5]}`, []string{"a", "b"})
		if len(warnings) != 0 {
			t.Fatalf("unexpected warnings: %v", warnings)
		}
		if data["a"] != "x" {
			t.Fatalf("unexpected data: %#v", data)
		}
	})
}

func TestSafeLoad_RoundTripIsStable(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"```json\n{\"destination\": \"Paris\", \"duration\": 5, \"travel_type\": \"vacation\"}\n```",
		`Coordinates: {"latitude": 48.8566, "longitude": 2.3522, "precision_km": 1.0}`,
		`{"weather_summary": "Mild", "packing_notes": ["jacket", "umbrella"], "nested": {"x": null}}`,
	}
	for _, in := range inputs {
		data, warnings := llmjson.SafeLoad(in, nil)
		if len(warnings) != 0 {
			t.Fatalf("unexpected warnings for %q: %v", in, warnings)
		}
		b, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		again, err := llmjson.Parse(llmjson.Extract(string(b)))
		if err != nil {
			t.Fatalf("reparse: %v", err)
		}
		if !reflect.DeepEqual(again, any(data)) {
			t.Fatalf("round trip mismatch:\n got=%#v\nwant=%#v", again, data)
		}
	}
}

func TestFieldAccessors(t *testing.T) {
	t.Parallel()

	data, _ := llmjson.SafeLoad(`{"lat": 48.85, "lon": "2.35", "days": 5, "nights": " 4 ", "half": 2.5, "name": "  Rome ", "blank": " ", "notes": ["a", 3, " ", "b"], "flag": true}`, nil)

	if v, ok := llmjson.Number(data, "lat"); !ok || v != 48.85 {
		t.Fatalf("Number(lat)=%v,%t", v, ok)
	}
	if _, ok := llmjson.Number(data, "lon"); ok {
		t.Fatalf("numeric strings must be rejected")
	}
	if _, ok := llmjson.Number(data, "flag"); ok {
		t.Fatalf("booleans must be rejected")
	}
	if v, ok := llmjson.Int(data, "days"); !ok || v != 5 {
		t.Fatalf("Int(days)=%v,%t", v, ok)
	}
	if _, ok := llmjson.Int(data, "half"); ok {
		t.Fatalf("non-integral numbers must be rejected by Int")
	}
	if v, ok := llmjson.Int(data, "nights"); !ok || v != 4 {
		t.Fatalf("Int(nights)=%v,%t", v, ok)
	}
	if _, ok := llmjson.Int(data, "lon"); ok {
		t.Fatalf("non-integral numeric strings must be rejected by Int")
	}
	if _, ok := llmjson.Int(data, "name"); ok {
		t.Fatalf("words must be rejected by Int")
	}
	if v, ok := llmjson.String(data, "name"); !ok || v != "Rome" {
		t.Fatalf("String(name)=%q,%t", v, ok)
	}
	if _, ok := llmjson.String(data, "blank"); ok {
		t.Fatalf("blank strings must be rejected")
	}
	if v, ok := llmjson.Strings(data, "notes"); !ok || !slices.Equal(v, []string{"a", "b"}) {
		t.Fatalf("Strings(notes)=%v,%t", v, ok)
	}
	if _, ok := llmjson.Strings(data, "name"); ok {
		t.Fatalf("non-list must be rejected by Strings")
	}
}
