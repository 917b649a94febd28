// Package app wires configuration into runnable pipeline entry points.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shpitdev/packing-pipeline/internal/config"
	"github.com/shpitdev/packing-pipeline/internal/llm/gemini"
	"github.com/shpitdev/packing-pipeline/internal/packing"
	"github.com/shpitdev/packing-pipeline/internal/weather"
	"github.com/shpitdev/packing-pipeline/pkg/pipeline/core"
)

// Services holds the collaborators every entry point needs.
type Services struct {
	Config config.Config
	Logger *slog.Logger

	// Model serves every stage without an entry in StageModels.
	Model       core.ModelCaller
	StageModels map[packing.Stage]core.ModelCaller

	// NewWeather builds a lookup for one pipeline. The pipeline closes it.
	NewWeather func() weather.Lookup

	Observer packing.Observer
}

// NewServices builds Gemini callers (one per stage role, sharing a client and rate limiter)
// and the weather lookup factory from cfg.
func NewServices(ctx context.Context, cfg config.Config, logger *slog.Logger, obs packing.Observer) (*Services, error) {
	base, err := gemini.New(ctx, gemini.Config{
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		BaseURL:      cfg.ModelEndpoint,
		RateLimitRPS: cfg.RateLimitRPS,
	})
	if err != nil {
		return nil, fmt.Errorf("create model caller: %w", err)
	}

	stages := make(map[packing.Stage]core.ModelCaller, 3)
	for _, s := range []packing.Stage{packing.StageExtracting, packing.StageEnriching, packing.StageSynthesizing} {
		stages[s] = base.WithSystemInstruction(packing.SystemInstruction(s))
	}

	return &Services{
		Config:      cfg,
		Logger:      logger,
		Model:       base,
		StageModels: stages,
		NewWeather:  WeatherFactory(cfg, logger),
		Observer:    obs,
	}, nil
}

// WeatherFactory returns a constructor for the configured weather lookup: Open-Meteo,
// wrapped in a Redis cache when an address is configured.
func WeatherFactory(cfg config.Config, logger *slog.Logger) func() weather.Lookup {
	return func() weather.Lookup {
		var lookup weather.Lookup = weather.NewOpenMeteo(
			weather.WithBaseURL(cfg.WeatherURL),
			weather.WithLogger(logger),
		)
		if cfg.RedisAddr != "" {
			lookup = weather.DialCached(lookup, cfg.RedisAddr,
				weather.WithTTL(cfg.WeatherCacheTTL),
				weather.WithCacheLogger(logger),
			)
		}
		return lookup
	}
}

// Options returns the pipeline options shared by every entry point.
func (s *Services) Options() []packing.Option {
	opts := []packing.Option{
		packing.WithLogger(s.Logger),
		packing.WithObserver(s.Observer),
	}
	for stage, m := range s.StageModels {
		opts = append(opts, packing.WithStageModel(stage, m))
	}
	return opts
}

func (s *Services) weather() weather.Lookup {
	if s.NewWeather == nil {
		return nil
	}
	return s.NewWeather()
}

// NewPipeline builds a long-lived pipeline. The caller must Close it.
func (s *Services) NewPipeline() *packing.Pipeline {
	return packing.New(s.Config, s.Model, s.weather(), s.Options()...)
}
