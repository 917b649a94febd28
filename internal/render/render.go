// Package render prints pipeline results for humans and machines.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/shpitdev/packing-pipeline/internal/packing"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// NormalizeFormat maps user input to a supported output format.
func NormalizeFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected text or json)", s)
	}
}

// Renderer writes a packing.Result in the configured format.
//
// Text output goes through glamour when the destination is a terminal and is printed
// verbatim otherwise, so piped output matches the report exactly.
type Renderer struct {
	w      io.Writer
	format string
	styled bool
	style  string
	width  int
}

type Option func(*Renderer)

// WithFormat selects text or json output.
func WithFormat(format string) Option {
	return func(r *Renderer) { r.format = format }
}

// WithStyled forces styled text output on or off regardless of terminal detection.
func WithStyled(on bool) Option {
	return func(r *Renderer) { r.styled = on }
}

// WithStyle selects a glamour standard style ("dark", "light", "notty"...). Empty means auto.
func WithStyle(name string) Option {
	return func(r *Renderer) { r.style = name }
}

func New(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{w: w, format: FormatText, width: 100}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.styled = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 20 {
			r.width = width - 4
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result writes one pipeline result.
func (r *Renderer) Result(res packing.Result) error {
	if r.format == FormatJSON {
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	}
	if !r.styled {
		_, err := io.WriteString(r.w, res.Report)
		return err
	}

	out, err := r.markdown(Markdown(res))
	if err != nil {
		// Styling is cosmetic; fall back to the plain report.
		_, err = io.WriteString(r.w, res.Report)
		return err
	}
	_, err = io.WriteString(r.w, out)
	return err
}

func (r *Renderer) markdown(md string) (string, error) {
	style := glamour.WithAutoStyle()
	if r.style != "" {
		style = glamour.WithStandardStyle(r.style)
	}
	tr, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(r.width), glamour.WithEmoji())
	if err != nil {
		return "", err
	}
	return tr.Render(md)
}

// Markdown renders a result as a markdown document for terminal styling.
func Markdown(res packing.Result) string {
	ec := res.Context

	var b strings.Builder
	b.WriteString("# 🎯 Travel Planning Summary\n\n")
	fmt.Fprintf(&b, "- **📍 Destination:** %s\n", ec.Destination)
	fmt.Fprintf(&b, "- **📅 Duration:** %d days\n", ec.Duration)
	fmt.Fprintf(&b, "- **🎭 Travel Type:** %s\n", ec.TravelType)
	if summary := strings.TrimSpace(ec.Analysis.Summary); summary != "" {
		fmt.Fprintf(&b, "- **🌡️ Weather:** %s\n", summary)
	}
	if w := ec.Weather; w != nil {
		fmt.Fprintf(&b, "- **Conditions:** %s°C, wind %s m/s (%s)\n",
			packing.FormatMetric(w.Temperature), packing.FormatMetric(w.WindSpeed), w.Source)
	}
	if len(ec.Analysis.PackingNotes) > 0 {
		b.WriteString("\n## Weather notes\n\n")
		for _, n := range ec.Analysis.PackingNotes {
			b.WriteString("- " + n + "\n")
		}
	}

	b.WriteString("\n## 🎒 Packing Recommendations\n\n")
	recs := strings.TrimSpace(res.Recommendations)
	if recs == "" {
		recs = "_No recommendations returned._"
	}
	b.WriteString(recs + "\n")

	if len(res.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range res.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	b.WriteString("\n✈️ Have a wonderful trip!\n")
	return b.String()
}
