package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shpitdev/packing-pipeline/internal/logging"
	"github.com/shpitdev/packing-pipeline/internal/metrics"
	"github.com/shpitdev/packing-pipeline/internal/packing"
	"github.com/shpitdev/packing-pipeline/internal/server"
)

type plannerFunc func(ctx context.Context, request string) (packing.Result, error)

func (f plannerFunc) Run(ctx context.Context, request string) (packing.Result, error) {
	return f(ctx, request)
}

func buildRouter(deps server.Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	deps.Logger = logging.NewNop()
	return server.NewRouter(deps)
}

func doRequest(r http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPlan_OK(t *testing.T) {
	var got string
	r := buildRouter(server.Deps{Planner: plannerFunc(func(_ context.Context, request string) (packing.Result, error) {
		got = request
		ec := packing.EnrichedContext{TravelInfo: packing.FallbackTravelInfo(), Analysis: packing.UnavailableAssessment()}
		return packing.Result{RunID: "run-1", Report: packing.FormatReport(ec, "- socks"), Context: ec}, nil
	})})

	w := doRequest(r, http.MethodPost, "/v1/plan", `{"request": "  week in Paris "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got != "week in Paris" {
		t.Fatalf("request must be trimmed, got %q", got)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["run_id"] != "run-1" || !strings.Contains(body["report"].(string), "Paris") {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestPlan_BadRequests(t *testing.T) {
	r := buildRouter(server.Deps{Planner: plannerFunc(func(context.Context, string) (packing.Result, error) {
		t.Fatalf("planner must not be called")
		return packing.Result{}, nil
	})})

	for _, body := range []string{`{`, `{"request": "   "}`} {
		if w := doRequest(r, http.MethodPost, "/v1/plan", body); w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status=%d", body, w.Code)
		}
	}
}

func TestPlan_NotConfigured(t *testing.T) {
	r := buildRouter(server.Deps{Missing: []string{"PACKER_MODEL_ENDPOINT"}})

	w := doRequest(r, http.MethodPost, "/v1/plan", `{"request": "Paris"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "PACKER_MODEL_ENDPOINT") || !strings.Contains(w.Body.String(), "Setup instructions") {
		t.Fatalf("503 must carry setup guidance: %s", w.Body.String())
	}

	w = doRequest(r, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"configured":false`) {
		t.Fatalf("unexpected health: %d %s", w.Code, w.Body.String())
	}
}

func TestPlan_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not configured", fmt.Errorf("%w: missing X", packing.ErrNotConfigured), http.StatusServiceUnavailable},
		{"timeout", fmt.Errorf("extraction model call: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"model failure", errors.New("extraction model call: Bearer abc.def"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := buildRouter(server.Deps{Planner: plannerFunc(func(context.Context, string) (packing.Result, error) {
				return packing.Result{}, tt.err
			})})
			w := doRequest(r, http.MethodPost, "/v1/plan", `{"request": "Paris"}`)
			if w.Code != tt.want {
				t.Fatalf("status=%d want %d", w.Code, tt.want)
			}
			if strings.Contains(w.Body.String(), "abc.def") {
				t.Fatalf("secrets must be redacted: %s", w.Body.String())
			}
		})
	}
}

func TestPlan_AppliesRequestTimeout(t *testing.T) {
	r := buildRouter(server.Deps{
		RequestTimeout: 10 * time.Millisecond,
		Planner: plannerFunc(func(ctx context.Context, _ string) (packing.Result, error) {
			<-ctx.Done()
			return packing.Result{}, ctx.Err()
		}),
	})
	if w := doRequest(r, http.MethodPost, "/v1/plan", `{"request": "Paris"}`); w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := metrics.New(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	obs.RunDone(packing.RunEvent{Duration: time.Second})

	r := buildRouter(server.Deps{Gatherer: reg})
	w := doRequest(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `packer_runs_total{outcome="ok"} 1`) {
		t.Fatalf("unexpected metrics:\n%s", w.Body.String())
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), logging.NewNop())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for shutdown")
	}
}
