// Package pipeline plans a batch of travel requests and shapes the results as stable rows.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shpitdev/packing-pipeline/internal/packing"
	"github.com/shpitdev/packing-pipeline/pkg/pipeline/core"
	"github.com/shpitdev/packing-pipeline/pkg/pipeline/io/local"
	"github.com/shpitdev/packing-pipeline/pkg/pipeline/redact"
	"github.com/shpitdev/packing-pipeline/pkg/pipeline/schema"
	"github.com/shpitdev/packing-pipeline/pkg/pipeline/worker"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Row is the stable output schema contract for batch planning.
type Row struct {
	ID             string
	Request        string
	Destination    string
	Duration       string
	TravelType     string
	WeatherSummary string
	Fallbacks      string
	Report         string
	Status         string
	Error          string
	RunID          string
}

// OutputContract lists the batch output columns in CSV order.
var OutputContract = schema.DatasetContract{Fields: []schema.Field{
	{Name: "id", Type: "string", Nullable: true},
	{Name: "request", Type: "string"},
	{Name: "destination", Type: "string", Nullable: true},
	{Name: "duration", Type: "integer", Nullable: true},
	{Name: "travel_type", Type: "string", Nullable: true},
	{Name: "weather_summary", Type: "string", Nullable: true},
	{Name: "fallbacks", Type: "string", Nullable: true},
	{Name: "report", Type: "string", Nullable: true},
	{Name: "status", Type: "string"},
	{Name: "error", Type: "string", Nullable: true},
	{Name: "run_id", Type: "string", Nullable: true},
}}

// Header returns the stable CSV header for Row.
func Header() []string {
	return OutputContract.Columns()
}

// Planner runs one request through the packing pipeline. *packing.Pipeline satisfies it.
type Planner interface {
	Run(ctx context.Context, request string) (packing.Result, error)
}

type Options struct {
	Workers        int
	MaxRetries     int
	RequestTimeout time.Duration
	FailFast       bool
	Logger         *slog.Logger
}

var errEmptyRequest = errors.New("empty request")

// PlanAll runs the planner over all requests and returns one row per request, in input order.
//
// Errors from a single run are recorded on its row and do not fail the batch unless
// FailFast is set. Configuration errors always fail the batch.
func PlanAll(ctx context.Context, requests []local.Request, planner Planner, opts Options) ([]Row, error) {
	policy := worker.FailurePolicyPartialOutput
	if opts.FailFast {
		policy = worker.FailurePolicyFailFast
	}

	texts := make([]string, len(requests))
	for i, r := range requests {
		texts[i] = strings.TrimSpace(r.Text)
	}

	proc := core.ProcessFunc[string, packing.Result](func(ctx context.Context, request string) (packing.Result, error) {
		if request == "" {
			return packing.Result{}, errEmptyRequest
		}
		return planner.Run(ctx, request)
	})

	out, err := worker.ProcessAll[string, packing.Result](ctx, texts, proc, worker.Options{
		Workers:           opts.Workers,
		MaxRetries:        opts.MaxRetries,
		RequestTimeout:    opts.RequestTimeout,
		FailurePolicy:     policy,
		BackoffInitial:    200 * time.Millisecond,
		BackoffMax:        2 * time.Second,
		BackoffJitterFrac: 0.2,
		Logger:            opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(out))
	for i, item := range out {
		if errors.Is(item.Err, packing.ErrNotConfigured) {
			return nil, item.Err
		}
		row := rowFromResult(item.Input, item.Output, item.Err)
		row.ID = requests[i].ID
		rows = append(rows, row)
	}
	return rows, nil
}

func rowFromResult(request string, res packing.Result, err error) Row {
	if err != nil {
		return Row{
			Request: request,
			Status:  StatusError,
			Error:   redact.Secrets(err.Error()),
			RunID:   res.RunID,
		}
	}

	ec := res.Context
	fallbacks := make([]string, len(res.Fallbacks))
	for i, f := range res.Fallbacks {
		fallbacks[i] = string(f)
	}
	return Row{
		Request:        request,
		Destination:    ec.Destination,
		Duration:       strconv.Itoa(ec.Duration),
		TravelType:     ec.TravelType,
		WeatherSummary: ec.Analysis.Summary,
		Fallbacks:      strings.Join(fallbacks, ";"),
		Report:         res.Report,
		Status:         StatusOK,
		RunID:          res.RunID,
	}
}

// CountStatuses tallies ok and non-ok rows.
func CountStatuses(rows []Row) (okRows int, errorRows int) {
	for _, row := range rows {
		if strings.EqualFold(strings.TrimSpace(row.Status), StatusOK) {
			okRows++
			continue
		}
		errorRows++
	}
	return okRows, errorRows
}
