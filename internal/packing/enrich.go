package packing

import (
	"context"
	"fmt"

	"github.com/shpitdev/packing-pipeline/internal/weather"
	"github.com/shpitdev/packing-pipeline/pkg/pipeline/core"
	"github.com/shpitdev/packing-pipeline/pkg/pipeline/llmjson"
)

var (
	coordinateKeys = []string{"latitude", "longitude"}
	assessmentKeys = []string{"weather_summary", "packing_notes"}
)

// Enricher adds weather to TravelInfo in three gated steps: geocode, lookup, assess.
type Enricher struct {
	Model   core.ModelCaller
	Weather weather.Lookup
}

// Enrich never leaves Analysis empty. Weather is nil when coordinates could not be resolved
// or the lookup returned nothing.
func (e Enricher) Enrich(ctx context.Context, info TravelInfo) (EnrichedContext, Diagnostics, error) {
	var diag Diagnostics
	out := EnrichedContext{TravelInfo: info}

	coord, ok, err := e.geocode(ctx, info.Destination, &diag)
	if err != nil {
		return EnrichedContext{}, diag, err
	}
	if !ok {
		diag.fallback(FallbackCoordinates)
		out.Analysis = UnavailableAssessment()
		return out, diag, nil
	}

	var reading *weather.Reading
	if e.Weather != nil {
		reading = e.Weather.Get(ctx, coord.Latitude, coord.Longitude)
	}
	if reading == nil {
		diag.fallback(FallbackWeatherUnavailable)
		out.Analysis = UnavailableAssessment()
		return out, diag, nil
	}
	out.Weather = reading

	analysis, err := e.assess(ctx, info.Destination, *reading, &diag)
	if err != nil {
		return EnrichedContext{}, diag, err
	}
	out.Analysis = analysis
	return out, diag, nil
}

func (e Enricher) geocode(ctx context.Context, destination string, diag *Diagnostics) (GeoCoordinate, bool, error) {
	raw, err := e.Model.Run(ctx, geocodePrompt(destination))
	if err != nil {
		return GeoCoordinate{}, false, fmt.Errorf("geocoding model call: %w", err)
	}
	data, warnings := llmjson.SafeLoad(raw, coordinateKeys)
	diag.warn("geo parsing", warnings)

	lat, latOK := llmjson.Number(data, "latitude")
	lon, lonOK := llmjson.Number(data, "longitude")
	if !latOK || !lonOK {
		diag.Warnings = append(diag.Warnings, "could not resolve coordinates for "+destination+"; skipping weather fetch")
		return GeoCoordinate{}, false, nil
	}

	coord := GeoCoordinate{Latitude: lat, Longitude: lon}
	if p, ok := llmjson.Number(data, "precision_km"); ok {
		coord.PrecisionKm = &p
	}
	return coord, true, nil
}

func (e Enricher) assess(ctx context.Context, destination string, r weather.Reading, diag *Diagnostics) (WeatherAssessment, error) {
	raw, err := e.Model.Run(ctx, assessmentPrompt(destination, r))
	if err != nil {
		return WeatherAssessment{}, fmt.Errorf("weather assessment model call: %w", err)
	}
	data, warnings := llmjson.SafeLoad(raw, assessmentKeys)
	diag.warn("weather analysis", warnings)

	fallback := ReadingFallbackAssessment(r)
	if len(data) == 0 {
		diag.fallback(FallbackAssessment)
		return fallback, nil
	}

	out := WeatherAssessment{}
	partial := false
	if v, ok := llmjson.String(data, "weather_summary"); ok {
		out.Summary = v
	} else {
		diag.unusable("weather analysis", data, "weather_summary", fmt.Sprintf("%q", fallback.Summary))
		out.Summary = fallback.Summary
		partial = true
	}
	if v, ok := llmjson.Strings(data, "packing_notes"); ok && len(v) > 0 {
		out.PackingNotes = v
	} else {
		diag.unusable("weather analysis", data, "packing_notes", "reading-based notes")
		out.PackingNotes = fallback.PackingNotes
		partial = true
	}
	if partial {
		diag.fallback(FallbackAssessment)
	}
	return out, nil
}
