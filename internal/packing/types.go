// Package packing turns a free-text travel request into a packing report.
//
// The pipeline is fixed: Extraction, then Enrichment, then Synthesis. Each stage consumes the
// previous stage's value and produces a larger one; nothing downstream mutates what an earlier
// stage produced. Unusable model output never stops a run: every parsing point substitutes a
// stage-specific default and records a warning. Only configuration problems and failures of
// the model caller itself are fatal.
package packing

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/shpitdev/packing-pipeline/internal/weather"
)

const (
	DefaultDestination = "Paris"
	DefaultDuration    = 7
	DefaultTravelType  = "vacation"
)

// ErrNotConfigured is returned by Run before any stage executes when the configuration
// provider reports it is incomplete.
var ErrNotConfigured = errors.New("pipeline is not configured")

// TravelInfo is the Extraction Stage output.
type TravelInfo struct {
	Destination string `json:"destination"`
	Duration    int    `json:"duration"`
	TravelType  string `json:"travel_type"`
}

// FallbackTravelInfo is used when the extraction reply cannot be parsed at all.
func FallbackTravelInfo() TravelInfo {
	return TravelInfo{
		Destination: DefaultDestination,
		Duration:    DefaultDuration,
		TravelType:  DefaultTravelType,
	}
}

// GeoCoordinate is a resolved destination position. It never leaves the Enrichment Stage.
type GeoCoordinate struct {
	Latitude    float64
	Longitude   float64
	PrecisionKm *float64
}

// WeatherAssessment is the model's reading of current conditions for packing purposes.
type WeatherAssessment struct {
	Summary      string   `json:"weather_summary"`
	PackingNotes []string `json:"packing_notes"`
}

// UnavailableAssessment is used when no weather reading could be obtained.
func UnavailableAssessment() WeatherAssessment {
	return WeatherAssessment{
		Summary:      "Weather data unavailable",
		PackingNotes: []string{"Pack for variable weather conditions"},
	}
}

// ReadingFallbackAssessment is used when a reading exists but the model's assessment of it
// could not be parsed.
func ReadingFallbackAssessment(r weather.Reading) WeatherAssessment {
	return WeatherAssessment{
		Summary:      "Temp " + FormatMetric(r.Temperature) + "°C, wind " + FormatMetric(r.WindSpeed) + " m/s",
		PackingNotes: []string{"Layer clothing appropriately", "Consider wind-resistant outerwear"},
	}
}

// EnrichedContext is the Enrichment Stage output: the travel info plus weather.
// Weather is nil when no reading was obtained; Analysis is always populated.
type EnrichedContext struct {
	TravelInfo
	Weather  *weather.Reading  `json:"weather"`
	Analysis WeatherAssessment `json:"weather_analysis"`
}

// Stage identifies a pipeline state.
type Stage int

const (
	StageExtracting Stage = iota
	StageEnriching
	StageSynthesizing
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageExtracting:
		return "extracting"
	case StageEnriching:
		return "enriching"
	case StageSynthesizing:
		return "synthesizing"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FallbackReason names a default that was substituted for unusable model output.
type FallbackReason string

const (
	FallbackTravelInfoReason   FallbackReason = "travel_info"
	FallbackTravelFields       FallbackReason = "travel_fields"
	FallbackCoordinates        FallbackReason = "coordinates_unresolved"
	FallbackWeatherUnavailable FallbackReason = "weather_unavailable"
	FallbackAssessment         FallbackReason = "assessment"
)

// Diagnostics collects the non-fatal issues a stage ran into.
type Diagnostics struct {
	Warnings  []string
	Fallbacks []FallbackReason
}

func (d *Diagnostics) warn(prefix string, warnings []string) {
	for _, w := range warnings {
		d.Warnings = append(d.Warnings, prefix+": "+w)
	}
}

// unusable records a warning for a key the model sent with a value that could not be used.
// Absent keys are skipped; SafeLoad already reports them.
func (d *Diagnostics) unusable(prefix string, data map[string]any, key, using string) {
	raw, present := data[key]
	if !present {
		return
	}
	shown := fmt.Sprint(raw)
	if str, ok := raw.(string); ok {
		shown = strconv.Quote(str)
	} else if b, err := json.Marshal(raw); err == nil {
		shown = string(b)
	}
	d.Warnings = append(d.Warnings, fmt.Sprintf("%s: %s: unusable value %s, using %s", prefix, key, shown, using))
}

func (d *Diagnostics) fallback(r FallbackReason) {
	d.Fallbacks = append(d.Fallbacks, r)
}

func (d *Diagnostics) merge(other Diagnostics) {
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Fallbacks = append(d.Fallbacks, other.Fallbacks...)
}

// FormatMetric renders an optional weather value the way it appears in prompts and fallback
// summaries: whole numbers keep one decimal ("18.0") and absent values read "n/a".
func FormatMetric(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return formatFloat(*v)
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e16 {
		s += ".0"
	}
	return s
}
