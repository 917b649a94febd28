package packing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shpitdev/packing-pipeline/internal/weather"
	"github.com/shpitdev/packing-pipeline/pkg/pipeline/core"
)

// Configurer is the configuration provider as seen by the pipeline.
type Configurer interface {
	IsConfigured() bool
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID  string `json:"run_id"`
	Report string `json:"report"`
	// Recommendations is the model's packing list as embedded in Report.
	Recommendations string           `json:"recommendations"`
	Context         EnrichedContext  `json:"context"`
	Warnings        []string         `json:"warnings,omitempty"`
	Fallbacks       []FallbackReason `json:"fallbacks,omitempty"`
	Stages          []Stage          `json:"stages"`
}

// Pipeline runs Extraction, Enrichment and Synthesis in order.
//
// A Pipeline owns its weather lookup: Close releases it exactly once. Runs may be issued
// sequentially or concurrently; each run keeps its own state.
type Pipeline struct {
	cfg      Configurer
	models   map[Stage]core.ModelCaller
	weather  weather.Lookup
	logger   *slog.Logger
	observer Observer

	closeOnce sync.Once
	closeErr  error
}

type Option func(*Pipeline)

// WithLogger sets the logger for stage progress and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver receives stage, fallback and run events.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithStageModel serves stage s with its own model caller instead of the shared one.
func WithStageModel(s Stage, m core.ModelCaller) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.models[s] = m
		}
	}
}

// New builds a pipeline. model serves every stage not overridden by WithStageModel.
func New(cfg Configurer, model core.ModelCaller, lookup weather.Lookup, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg: cfg,
		models: map[Stage]core.ModelCaller{
			StageExtracting:   model,
			StageEnriching:    model,
			StageSynthesizing: model,
		},
		weather:  lookup,
		logger:   slog.Default(),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the three stages strictly in sequence.
//
// It fails before any stage when the configuration is incomplete, and aborts when a model
// call fails. Malformed model output never fails a run.
func (p *Pipeline) Run(ctx context.Context, request string) (Result, error) {
	if err := p.checkConfigured(); err != nil {
		return Result{}, err
	}

	res := Result{RunID: fmt.Sprintf("run-%d", time.Now().UnixNano())}
	logger := p.logger.With("run", res.RunID)
	start := time.Now()

	finish := func(err error) (Result, error) {
		p.observer.RunDone(RunEvent{
			RunID:     res.RunID,
			Duration:  time.Since(start),
			Fallbacks: len(res.Fallbacks),
			Err:       err,
		})
		return res, err
	}

	var info TravelInfo
	err := p.step(&res, logger, StageExtracting, func() (Diagnostics, error) {
		var (
			diag Diagnostics
			err  error
		)
		info, diag, err = Extractor{Model: p.models[StageExtracting]}.Extract(ctx, request)
		return diag, err
	})
	if err != nil {
		return finish(err)
	}
	logger.Info("extracted travel info",
		"destination", info.Destination,
		"duration", info.Duration,
		"travel_type", info.TravelType,
	)

	var enriched EnrichedContext
	err = p.step(&res, logger, StageEnriching, func() (Diagnostics, error) {
		var (
			diag Diagnostics
			err  error
		)
		enriched, diag, err = Enricher{Model: p.models[StageEnriching], Weather: p.weather}.Enrich(ctx, info)
		return diag, err
	})
	if err != nil {
		return finish(err)
	}
	if w := enriched.Weather; w != nil {
		logger.Info("weather resolved",
			"temperature_c", FormatMetric(w.Temperature),
			"wind_ms", FormatMetric(w.WindSpeed),
			"source", w.Source,
		)
	}
	res.Context = enriched

	err = p.step(&res, logger, StageSynthesizing, func() (Diagnostics, error) {
		recs, err := Synthesizer{Model: p.models[StageSynthesizing]}.Recommend(ctx, enriched)
		if err != nil {
			return Diagnostics{}, err
		}
		res.Recommendations = recs
		res.Report = FormatReport(enriched, recs)
		return Diagnostics{}, nil
	})
	if err != nil {
		return finish(err)
	}

	res.Stages = append(res.Stages, StageDone)
	logger.Info("packing report generated", "duration", time.Since(start).Round(time.Millisecond))
	return finish(nil)
}

func (p *Pipeline) step(res *Result, logger *slog.Logger, stage Stage, fn func() (Diagnostics, error)) error {
	res.Stages = append(res.Stages, stage)
	logger.Debug("stage start", "stage", stage)

	start := time.Now()
	diag, err := fn()
	elapsed := time.Since(start)

	for _, w := range diag.Warnings {
		logger.Warn("model output warning", "stage", stage, "warning", w)
	}
	res.Warnings = append(res.Warnings, diag.Warnings...)
	res.Fallbacks = append(res.Fallbacks, diag.Fallbacks...)
	for _, f := range diag.Fallbacks {
		p.observer.Fallback(FallbackEvent{RunID: res.RunID, Stage: stage, Reason: f})
	}
	p.observer.StageDone(StageEvent{RunID: res.RunID, Stage: stage, Duration: elapsed, Err: err})

	if err != nil {
		logger.Error("stage failed", "stage", stage, "error", err)
		return err
	}
	logger.Debug("stage done", "stage", stage, "elapsed", elapsed.Round(time.Millisecond))
	return nil
}

func (p *Pipeline) checkConfigured() error {
	if p.cfg != nil && p.cfg.IsConfigured() {
		return nil
	}
	if m, ok := p.cfg.(interface{ Missing() []string }); ok {
		if missing := m.Missing(); len(missing) > 0 {
			return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
		}
	}
	return ErrNotConfigured
}

// Close releases the weather lookup. Only the first call has an effect.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		if p.weather != nil {
			p.closeErr = p.weather.Close()
		}
	})
	return p.closeErr
}

// Plan runs a single request through a fresh pipeline and closes it on every path,
// including configuration failures.
func Plan(ctx context.Context, cfg Configurer, model core.ModelCaller, lookup weather.Lookup, request string, opts ...Option) (Result, error) {
	p := New(cfg, model, lookup, opts...)
	defer func() {
		if err := p.Close(); err != nil {
			p.logger.Warn("release weather lookup", "error", err)
		}
	}()
	return p.Run(ctx, request)
}
