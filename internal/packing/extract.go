package packing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shpitdev/packing-pipeline/pkg/pipeline/core"
	"github.com/shpitdev/packing-pipeline/pkg/pipeline/llmjson"
)

var travelInfoKeys = []string{"destination", "duration", "travel_type"}

// Extractor turns a raw travel request into TravelInfo with one model call.
type Extractor struct {
	Model core.ModelCaller
}

// Extract always returns a fully populated TravelInfo unless the model call itself fails.
func (e Extractor) Extract(ctx context.Context, request string) (TravelInfo, Diagnostics, error) {
	var diag Diagnostics

	raw, err := e.Model.Run(ctx, extractionPrompt(request))
	if err != nil {
		return TravelInfo{}, diag, fmt.Errorf("extraction model call: %w", err)
	}

	data, warnings := llmjson.SafeLoad(raw, travelInfoKeys)
	diag.warn("destination parsing", warnings)
	if len(data) == 0 {
		diag.fallback(FallbackTravelInfoReason)
		return FallbackTravelInfo(), diag, nil
	}

	info, defaulted := travelInfoFrom(data, &diag)
	if defaulted {
		diag.fallback(FallbackTravelFields)
	}
	return info, diag, nil
}

// travelInfoFrom reads each field with a type check and substitutes its default when the
// value is missing or unusable.
func travelInfoFrom(data map[string]any, diag *Diagnostics) (TravelInfo, bool) {
	info := FallbackTravelInfo()
	defaulted := false

	if v, ok := llmjson.String(data, "destination"); ok {
		info.Destination = v
	} else {
		diag.unusable("destination parsing", data, "destination", info.Destination)
		defaulted = true
	}
	if v, ok := llmjson.Int(data, "duration"); ok && v >= 1 {
		info.Duration = v
	} else {
		diag.unusable("destination parsing", data, "duration", strconv.Itoa(info.Duration))
		defaulted = true
	}
	if v, ok := llmjson.String(data, "travel_type"); ok {
		info.TravelType = v
	} else {
		diag.unusable("destination parsing", data, "travel_type", info.TravelType)
		defaulted = true
	}
	return info, defaulted
}
