package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shpitdev/packing-pipeline/internal/packing"
	"github.com/shpitdev/packing-pipeline/internal/pipeline"
	"github.com/shpitdev/packing-pipeline/internal/render"
	localio "github.com/shpitdev/packing-pipeline/pkg/pipeline/io/local"
)

// DefaultRequest is planned when no request text is given.
const DefaultRequest = "I'm planning a 5-day vacation to Paris"

// RunPlan plans a single request and renders the result.
func RunPlan(ctx context.Context, s *Services, request string, r *render.Renderer) error {
	if request == "" {
		request = DefaultRequest
	}
	s.Logger.Info("planning trip", "request", request)

	res, err := packing.Plan(ctx, s.Config, s.Model, s.weather(), request, s.Options()...)
	if err != nil {
		return err
	}
	return r.Result(res)
}

// BatchOptions controls RunBatch.
type BatchOptions struct {
	pipeline.Options

	// Resume reuses ok rows from an existing output file instead of planning them again.
	Resume bool
}

// RunBatch reads a local input CSV of requests and writes a local output CSV of planned rows.
func RunBatch(ctx context.Context, s *Services, inputPath, outputPath string, opts BatchOptions) error {
	runStart := time.Now()

	inF, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = inF.Close()
	}()

	requests, err := localio.ReadRequestsCSV(inF)
	if err != nil {
		return fmt.Errorf("read %s: %w", inputPath, err)
	}

	var prior []pipeline.Row
	if opts.Resume {
		prior, err = readPriorRows(outputPath)
		if err != nil {
			return err
		}
	}
	plan := pipeline.BuildIncrementalPlan(requests, prior)
	s.Logger.Info("batch run start",
		"input", inputPath,
		"output", outputPath,
		"input_rows", len(requests),
		"cached_rows", plan.CachedRows,
		"rows_to_plan", plan.PendingRows,
		"unique_requests", len(plan.Pending),
		"workers", opts.Workers,
		"max_retries", opts.MaxRetries,
		"timeout", opts.RequestTimeout,
		"fail_fast", opts.FailFast,
	)

	if len(plan.Pending) > 0 {
		p := s.NewPipeline()
		defer func() {
			if err := p.Close(); err != nil {
				s.Logger.Warn("release weather lookup", "error", err)
			}
		}()

		if opts.Logger == nil {
			opts.Logger = s.Logger
		}
		fresh, err := pipeline.PlanAll(ctx, plan.Pending, p, opts.Options)
		if err != nil {
			return err
		}
		if err := plan.Apply(fresh); err != nil {
			return err
		}
	}

	okRows, errorRows := pipeline.CountStatuses(plan.Rows)
	s.Logger.Info("batch planning complete",
		"produced", len(plan.Rows),
		"ok", okRows,
		"error", errorRows,
		"duration", time.Since(runStart).Round(time.Millisecond),
	)

	outF, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = outF.Close()
	}()

	if err := pipeline.WriteCSV(outF, plan.Rows); err != nil {
		return err
	}
	return outF.Close()
}

func readPriorRows(path string) ([]pipeline.Row, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	rows, err := pipeline.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse prior output csv: %w", err)
	}
	return rows, nil
}
