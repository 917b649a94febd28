package app_test

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/shpitdev/packing-pipeline/internal/app"
	"github.com/shpitdev/packing-pipeline/internal/config"
	"github.com/shpitdev/packing-pipeline/internal/logging"
	"github.com/shpitdev/packing-pipeline/internal/mockweather"
	"github.com/shpitdev/packing-pipeline/internal/packing"
	"github.com/shpitdev/packing-pipeline/internal/pipeline"
	"github.com/shpitdev/packing-pipeline/internal/render"
	"github.com/shpitdev/packing-pipeline/pkg/pipeline/core"
)

func fakeModel(calls *atomic.Int32) core.ModelCaller {
	return core.ModelCallerFunc(func(_ context.Context, prompt string) (string, error) {
		if calls != nil {
			calls.Add(1)
		}
		switch {
		case strings.HasPrefix(prompt, "Extract the destination"):
			if strings.Contains(prompt, "Tokyo") {
				return `{"destination": "Tokyo", "duration": 3, "travel_type": "business"}`, nil
			}
			return `{"destination": "Paris", "duration": 5, "travel_type": "vacation"}`, nil
		case strings.HasPrefix(prompt, "Provide geographic coordinates"):
			if strings.Contains(prompt, "Tokyo") {
				return `{"latitude": 35.68, "longitude": 139.69}`, nil
			}
			return `{"latitude": 48.85, "longitude": 2.35}`, nil
		case strings.HasPrefix(prompt, "Analyze travel weather"):
			return "not json", nil
		default:
			return "- umbrella", nil
		}
	})
}

func testServices(t *testing.T, calls *atomic.Int32) (*app.Services, *mockweather.Server) {
	t.Helper()

	mock := mockweather.New(mockweather.Conditions{Temperature: 18, WindSpeed: 3.2})
	ts := httptest.NewServer(mock.Handler())
	t.Cleanup(ts.Close)

	cfg := config.Defaults()
	cfg.ModelEndpoint = "http://model.invalid"
	cfg.WeatherURL = ts.URL + "/v1/forecast"

	logger := logging.NewNop()
	return &app.Services{
		Config:     cfg,
		Logger:     logger,
		Model:      fakeModel(calls),
		NewWeather: app.WeatherFactory(cfg, logger),
		Observer:   packing.NopObserver{},
	}, mock
}

func TestRunPlan_DefaultRequest(t *testing.T) {
	t.Parallel()

	s, mock := testServices(t, nil)
	var out bytes.Buffer
	if err := app.RunPlan(context.Background(), s, "", render.New(&out)); err != nil {
		t.Fatalf("RunPlan: %v", err)
	}
	for _, want := range []string{"Destination: Paris", "5 days", "Weather: Temp 18.0°C, wind 3.2 m/s", "- umbrella"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}
	if len(mock.Calls()) != 1 {
		t.Fatalf("expected one weather call, got %d", len(mock.Calls()))
	}
}

func TestRunPlan_NotConfigured(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s, _ := testServices(t, &calls)
	s.Config.ModelEndpoint = ""

	err := app.RunPlan(context.Background(), s, "Paris", render.New(&bytes.Buffer{}))
	if !errors.Is(err, packing.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("model must not be called, got %d calls", calls.Load())
	}
}

func TestRunBatch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s, _ := testServices(t, &calls)

	dir := t.TempDir()
	in := filepath.Join(dir, "requests.csv")
	out := filepath.Join(dir, "plans.csv")
	csv := "id,request\n1,I'm planning a 5-day vacation to Paris\n2,Business trip to Tokyo\n3,\n4,i'm planning a 5-day vacation to paris\n"
	if err := os.WriteFile(in, []byte(csv), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	opts := app.BatchOptions{Options: pipeline.Options{Workers: 2, RequestTimeout: 5 * time.Second}}
	if err := app.RunBatch(context.Background(), s, in, out, opts); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	rows := readRows(t, out)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0].ID != "1" || rows[0].Destination != "Paris" || rows[0].Status != "ok" {
		t.Fatalf("unexpected row[0]: %#v", rows[0])
	}
	if rows[1].Destination != "Tokyo" || rows[1].Duration != "3" || rows[1].TravelType != "business" {
		t.Fatalf("unexpected row[1]: %#v", rows[1])
	}
	if rows[2].Status != "error" || rows[2].Error != "empty request" {
		t.Fatalf("unexpected row[2]: %#v", rows[2])
	}
	if rows[3].ID != "4" || rows[3].Destination != "Paris" {
		t.Fatalf("duplicate request must reuse the first plan: %#v", rows[3])
	}
	if got := calls.Load(); got != 8 {
		t.Fatalf("expected 8 model calls for two unique requests, got %d", got)
	}

	calls.Store(0)
	opts.Resume = true
	if err := app.RunBatch(context.Background(), s, in, out, opts); err != nil {
		t.Fatalf("RunBatch resume: %v", err)
	}
	if got := calls.Load(); got != 0 {
		t.Fatalf("resume must reuse ok rows, got %d model calls", got)
	}
	if rows := readRows(t, out); len(rows) != 4 || rows[2].Status != "error" {
		t.Fatalf("unexpected resumed rows: %#v", rows)
	}
}

func TestWeatherFactory_UsesRedisWhenConfigured(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	mock := mockweather.New(mockweather.Conditions{Temperature: 10, WindSpeed: 1})
	ts := httptest.NewServer(mock.Handler())
	t.Cleanup(ts.Close)

	cfg := config.Defaults()
	cfg.WeatherURL = ts.URL + "/v1/forecast"
	cfg.RedisAddr = mr.Addr()

	newLookup := app.WeatherFactory(cfg, logging.NewNop())
	for i := 0; i < 2; i++ {
		lookup := newLookup()
		if r := lookup.Get(context.Background(), 48.85, 2.35); r == nil || *r.Temperature != 10 {
			t.Fatalf("unexpected reading: %#v", r)
		}
		if err := lookup.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	if len(mock.Calls()) != 1 {
		t.Fatalf("second lookup must be served from redis, got %d upstream calls", len(mock.Calls()))
	}
}

func readRows(t *testing.T, path string) []pipeline.Row {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	rows, err := pipeline.ReadCSV(f)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return rows
}
