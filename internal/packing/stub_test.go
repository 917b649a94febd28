package packing_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shpitdev/packing-pipeline/internal/packing"
	"github.com/shpitdev/packing-pipeline/internal/weather"
)

// scriptedModel answers each stage's prompt with a canned reply and records prompts in order.
type scriptedModel struct {
	extract    string
	geocode    string
	assess     string
	packing    string
	failPrefix string

	mu      sync.Mutex
	prompts []string
}

func (m *scriptedModel) Run(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.failPrefix != "" && strings.HasPrefix(prompt, m.failPrefix) {
		return "", errors.New("model unavailable")
	}
	switch {
	case strings.HasPrefix(prompt, "Extract the destination"):
		return m.extract, nil
	case strings.HasPrefix(prompt, "Provide geographic coordinates"):
		return m.geocode, nil
	case strings.HasPrefix(prompt, "Analyze travel weather"):
		return m.assess, nil
	case strings.HasPrefix(prompt, "Create a comprehensive packing list"):
		return m.packing, nil
	default:
		return "", errors.New("unexpected prompt")
	}
}

func (m *scriptedModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

type stubWeather struct {
	reading *weather.Reading

	mu     sync.Mutex
	calls  int
	closed int
}

func (w *stubWeather) Get(_ context.Context, _, _ float64) *weather.Reading {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	return w.reading
}

func (w *stubWeather) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed++
	return nil
}

type stubConfig struct {
	missing []string
}

func (c stubConfig) IsConfigured() bool { return len(c.missing) == 0 }
func (c stubConfig) Missing() []string  { return c.missing }

type recordingObserver struct {
	mu        sync.Mutex
	stages    []packing.StageEvent
	fallbacks []packing.FallbackEvent
	runs      []packing.RunEvent
}

func (o *recordingObserver) StageDone(e packing.StageEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, e)
}

func (o *recordingObserver) Fallback(e packing.FallbackEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks = append(o.fallbacks, e)
}

func (o *recordingObserver) RunDone(e packing.RunEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, e)
}

func ptr(f float64) *float64 { return &f }

func parisReading() *weather.Reading {
	return &weather.Reading{
		Temperature: ptr(18.0),
		WindSpeed:   ptr(3.2),
		Latitude:    48.85,
		Longitude:   2.35,
		Source:      "open-meteo",
	}
}

func wellFormedModel() *scriptedModel {
	return &scriptedModel{
		extract: `{"destination": "Paris", "duration": 5, "travel_type": "vacation"}`,
		geocode: "```json\n{\"latitude\": 48.85, \"longitude\": 2.35, \"precision_km\": 5}\n```",
		assess:  `{"weather_summary": "Mild at 18.0°C with a light breeze", "packing_notes": ["Light jacket", "Umbrella"]}`,
		packing: "1. Clothing\n- Light layers\n2. Essentials\n- Passport",
	}
}
