package packing

import (
	"fmt"
	"strings"

	"github.com/shpitdev/packing-pipeline/internal/weather"
)

// SystemInstruction returns the role description for the model serving stage s.
func SystemInstruction(s Stage) string {
	switch s {
	case StageExtracting:
		return "You are a travel planning specialist focused on destination analysis. " +
			"Your job is to extract and understand travel destinations from user requests. " +
			"Always respond with valid JSON as requested, no additional text or formatting."
	case StageEnriching:
		return "You are a weather analysis expert for travel planning. " +
			"Analyze weather conditions and provide practical insights for travelers. " +
			"Always respond with valid JSON as requested, no additional text or formatting."
	case StageSynthesizing:
		return "You are a professional travel packing consultant with extensive experience. " +
			"Create comprehensive, practical packing lists tailored to specific destinations, weather, and trip types. " +
			"Be detailed, organized, and helpful in your recommendations."
	default:
		return ""
	}
}

func extractionPrompt(request string) string {
	return strings.TrimSpace(fmt.Sprintf(`
Extract the destination city from the user's travel request: %q

Respond with a JSON object containing:
- "destination": the city name (string)
- "duration": estimated trip duration in days (integer, default to %d if not specified)
- "travel_type": type of travel like "business", "vacation", "adventure" (default to %q)

Example response:
{"destination": "Paris", "duration": 5, "travel_type": "vacation"}

Only respond with the JSON object, no additional text.
`, request, DefaultDuration, DefaultTravelType))
}

func geocodePrompt(destination string) string {
	return strings.TrimSpace(fmt.Sprintf(`
Provide geographic coordinates for the city %q.
Respond ONLY with JSON containing:
{"latitude": <decimal>, "longitude": <decimal>, "precision_km": <approximate precision in km>}
Do not include explanations.
`, destination))
}

func assessmentPrompt(destination string, r weather.Reading) string {
	return strings.TrimSpace(fmt.Sprintf(`
Analyze travel weather for %s at coordinates (%s, %s):
- Temperature: %s°C
- Wind Speed: %s m/s

Provide packing insights considering:
1. Thermal comfort and layering
2. Wind conditions and protective gear
3. Any seasonal context typical for this location

Respond with JSON:
{"weather_summary": "short description", "packing_notes": ["item1", "item2", "item3"]}
`, destination, formatFloat(r.Latitude), formatFloat(r.Longitude), FormatMetric(r.Temperature), FormatMetric(r.WindSpeed)))
}

func packingPrompt(ec EnrichedContext) string {
	summary := ec.Analysis.Summary
	if summary == "" {
		summary = UnavailableAssessment().Summary
	}
	return strings.TrimSpace(fmt.Sprintf(`
Create a comprehensive packing list for:
- Destination: %s
- Duration: %d days
- Travel type: %s
- Weather info: %s
- Weather notes: %s

Provide a detailed packing list organized by categories:
1. Clothing (considering weather and trip type)
2. Essential items (documents, electronics, etc.)
3. Weather-specific gear
4. Travel type specific items
5. Optional items for comfort/convenience

Format as a clear, organized list with explanations where helpful.
Make it practical and personalized for this specific trip.
`, ec.Destination, ec.Duration, ec.TravelType, summary, strings.Join(ec.Analysis.PackingNotes, ", ")))
}
