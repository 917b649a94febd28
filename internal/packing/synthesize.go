package packing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shpitdev/packing-pipeline/pkg/pipeline/core"
)

// Synthesizer asks the model for the packing list and wraps it in the report template.
// The model's text is used verbatim; it is not parsed.
type Synthesizer struct {
	Model core.ModelCaller
}

// Synthesize returns the final report.
func (s Synthesizer) Synthesize(ctx context.Context, ec EnrichedContext) (string, error) {
	recommendations, err := s.Recommend(ctx, ec)
	if err != nil {
		return "", err
	}
	return FormatReport(ec, recommendations), nil
}

// Recommend returns the model's packing list without the report template.
func (s Synthesizer) Recommend(ctx context.Context, ec EnrichedContext) (string, error) {
	out, err := s.Model.Run(ctx, packingPrompt(ec))
	if err != nil {
		return "", fmt.Errorf("packing model call: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// FormatReport renders the report banner around the model's recommendations. The weather line
// is omitted when the context carries no summary.
func FormatReport(ec EnrichedContext, recommendations string) string {
	var b strings.Builder
	b.WriteString("🎯 TRAVEL PLANNING SUMMARY\n")
	b.WriteString("==========================\n")
	b.WriteString("📍 Destination: " + ec.Destination + "\n")
	b.WriteString("📅 Duration: " + strconv.Itoa(ec.Duration) + " days\n")
	b.WriteString("🎭 Travel Type: " + ec.TravelType + "\n")
	if summary := strings.TrimSpace(ec.Analysis.Summary); summary != "" {
		b.WriteString("🌡️  Weather: " + summary + "\n")
	}
	b.WriteString("\n")
	b.WriteString("🎒 PACKING RECOMMENDATIONS\n")
	b.WriteString("==========================\n")
	b.WriteString(strings.TrimSpace(recommendations) + "\n")
	b.WriteString("\n")
	b.WriteString("✈️ Have a wonderful trip!\n")
	return b.String()
}
