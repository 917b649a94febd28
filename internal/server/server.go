// Package server exposes the packing pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shpitdev/packing-pipeline/internal/config"
	"github.com/shpitdev/packing-pipeline/internal/packing"
	"github.com/shpitdev/packing-pipeline/pkg/pipeline/redact"
)

// Planner runs one request through the pipeline. *packing.Pipeline satisfies it.
type Planner interface {
	Run(ctx context.Context, request string) (packing.Result, error)
}

type Deps struct {
	// Planner is nil when the service is not configured; /v1/plan then answers 503.
	Planner Planner
	// Missing names the unset required settings reported with a 503.
	Missing []string

	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
	Setup   string   `json:"setup,omitempty"`
}

type planRequest struct {
	Request string `json:"request"`
}

type handler struct {
	deps Deps
}

// NewRouter registers the API routes.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 2 * time.Minute
	}

	r := gin.New()
	r.Use(recovery(deps.Logger), requestLog(deps.Logger))

	h := &handler{deps: deps}
	r.POST("/v1/plan", h.plan)
	r.GET("/healthz", h.health)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

// plan handles POST /v1/plan.
func (h *handler) plan(c *gin.Context) {
	if h.deps.Planner == nil {
		h.notConfigured(c)
		return
	}

	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	req.Request = strings.TrimSpace(req.Request)
	if req.Request == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "missing request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.RequestTimeout)
	defer cancel()

	res, err := h.deps.Planner.Run(ctx, req.Request)
	if err != nil {
		switch {
		case errors.Is(err, packing.ErrNotConfigured):
			h.notConfigured(c)
		case errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusGatewayTimeout, errorResponse{Error: "planning timed out"})
		default:
			h.deps.Logger.Error("plan failed", "error", redact.Secrets(err.Error()))
			c.JSON(http.StatusBadGateway, errorResponse{Error: redact.Secrets(err.Error())})
		}
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) notConfigured(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, errorResponse{
		Error:   packing.ErrNotConfigured.Error(),
		Missing: h.deps.Missing,
		Setup:   config.SetupInstructions(),
	})
}

// health handles GET /healthz. The service stays healthy while unconfigured.
func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"configured": h.deps.Planner != nil,
	})
}

// Serve runs handler on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
