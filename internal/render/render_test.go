package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shpitdev/packing-pipeline/internal/packing"
	"github.com/shpitdev/packing-pipeline/internal/render"
	"github.com/shpitdev/packing-pipeline/internal/weather"
)

func sampleResult() packing.Result {
	temp, wind := 18.0, 3.2
	ec := packing.EnrichedContext{
		TravelInfo: packing.TravelInfo{Destination: "Paris", Duration: 5, TravelType: "vacation"},
		Weather:    &weather.Reading{Temperature: &temp, WindSpeed: &wind, Latitude: 48.85, Longitude: 2.35, Source: weather.SourceOpenMeteo},
		Analysis:   packing.WeatherAssessment{Summary: "Mild", PackingNotes: []string{"Light jacket"}},
	}
	return packing.Result{
		RunID:           "run-1",
		Report:          packing.FormatReport(ec, "- socks"),
		Recommendations: "- socks",
		Context:         ec,
		Warnings:        []string{"weather analysis: Missing keys: packing_notes"},
		Stages:          []packing.Stage{packing.StageExtracting, packing.StageEnriching, packing.StageSynthesizing, packing.StageDone},
	}
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: render.FormatText},
		{in: " TEXT ", want: render.FormatText},
		{in: "json", want: render.FormatJSON},
		{in: "yaml", wantErr: true},
	}
	for _, tt := range tests {
		got, err := render.NormalizeFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%q: err=%v wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("%q: got %q want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderer_PlainTextIsVerbatim(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	res := sampleResult()
	if err := render.New(&buf).Result(res); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != res.Report {
		t.Fatalf("plain output must equal the report:\n%s", buf.String())
	}
}

func TestRenderer_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := render.New(&buf, render.WithFormat(render.FormatJSON)).Result(sampleResult()); err != nil {
		t.Fatalf("render: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	ctx := got["context"].(map[string]any)
	if ctx["destination"] != "Paris" {
		t.Fatalf("unexpected context: %v", ctx)
	}
	if ctx["weather_analysis"].(map[string]any)["weather_summary"] != "Mild" {
		t.Fatalf("unexpected analysis: %v", ctx["weather_analysis"])
	}
	stages := got["stages"].([]any)
	if len(stages) != 4 || stages[3] != "done" {
		t.Fatalf("stages must marshal as names: %v", stages)
	}
}

func TestRenderer_Styled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := render.New(&buf, render.WithStyled(true), render.WithStyle("notty"))
	if err := r.Result(sampleResult()); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Paris", "socks", "Light jacket"} {
		if !strings.Contains(out, want) {
			t.Fatalf("styled output missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	md := render.Markdown(sampleResult())
	for _, want := range []string{
		"# 🎯 Travel Planning Summary",
		"**📅 Duration:** 5 days",
		"18.0°C, wind 3.2 m/s (open-meteo)",
		"## Warnings",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}

	res := sampleResult()
	res.Context.Analysis.Summary = ""
	res.Context.Weather = nil
	if strings.Contains(render.Markdown(res), "Weather:") {
		t.Fatalf("weather line must be omitted without a summary")
	}
}
