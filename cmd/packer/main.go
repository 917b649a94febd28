package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/shpitdev/packing-pipeline/internal/app"
	"github.com/shpitdev/packing-pipeline/internal/config"
	"github.com/shpitdev/packing-pipeline/internal/logging"
	"github.com/shpitdev/packing-pipeline/internal/metrics"
	"github.com/shpitdev/packing-pipeline/internal/packing"
	"github.com/shpitdev/packing-pipeline/internal/pipeline"
	"github.com/shpitdev/packing-pipeline/internal/render"
	"github.com/shpitdev/packing-pipeline/internal/server"
	"github.com/shpitdev/packing-pipeline/internal/version"
	"github.com/shpitdev/packing-pipeline/pkg/pipeline/redact"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "version", "--version":
		_, _ = fmt.Fprintln(os.Stdout, version.Current)
		return
	case "plan":
		os.Exit(runPlan(ctx, os.Args[2:]))
	case "batch":
		os.Exit(runBatch(ctx, os.Args[2:]))
	case "serve":
		os.Exit(runServe(ctx, os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

// common holds the flags every command accepts. Flags override env, which overrides the file.
type common struct {
	configPath    string
	logLevel      string
	model         string
	modelEndpoint string
	weatherURL    string
	redisAddr     string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML config file (env: PACKER_CONFIG)")
	fs.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error (env: PACKER_LOG_LEVEL)")
	fs.StringVar(&c.model, "model", "", "Model name (env: PACKER_MODEL)")
	fs.StringVar(&c.modelEndpoint, "model-endpoint", "", "Model API base URL (env: PACKER_MODEL_ENDPOINT)")
	fs.StringVar(&c.weatherURL, "weather-url", "", "Open-Meteo forecast endpoint (env: PACKER_WEATHER_URL)")
	fs.StringVar(&c.redisAddr, "redis-addr", "", "Cache weather readings in Redis at host:port (env: PACKER_REDIS_ADDR)")
}

func (c *common) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	override := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	override(&cfg.LogLevel, c.logLevel)
	override(&cfg.Model, c.model)
	override(&cfg.ModelEndpoint, c.modelEndpoint)
	override(&cfg.WeatherURL, c.weatherURL)
	override(&cfg.RedisAddr, c.redisAddr)

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(level), nil
}

func runPlan(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var c common
	c.register(fs)
	format := fs.String("format", render.FormatText, "Output format: text or json")
	style := fs.String("style", "", "Terminal style for text output (auto when empty)")
	plain := fs.Bool("plain", false, "Print the plain report even on a terminal")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	outFormat, err := render.NormalizeFormat(*format)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, logger, err := c.load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}
	if code, ok := checkConfigured(cfg); !ok {
		return code
	}

	svc, err := app.NewServices(ctx, cfg, logger, packing.NopObserver{})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "model config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	opts := []render.Option{render.WithFormat(outFormat), render.WithStyle(*style)}
	if *plain {
		opts = append(opts, render.WithStyled(false))
	}
	request := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if err := app.RunPlan(ctx, svc, request, render.New(os.Stdout, opts...)); err != nil {
		return fail("plan failed", err)
	}
	return 0
}

func runBatch(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var c common
	c.register(fs)
	inputPath := fs.String("input", "", "Input CSV file path (must include a 'request' column)")
	outputPath := fs.String("output", "", "Output CSV file path")
	workers := fs.Int("workers", 0, "Number of concurrent pipeline runs (env: WORKERS)")
	maxRetries := fs.Int("max-retries", -1, "Max retries per request for transient model failures (env: MAX_RETRIES)")
	requestTimeout := fs.Duration("request-timeout", 0, "Per-request timeout (env: REQUEST_TIMEOUT)")
	failFast := fs.Bool("fail-fast", false, "Stop on the first failed request (env: FAIL_FAST)")
	resume := fs.Bool("resume", false, "Reuse ok rows from an existing output file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inputPath == "" || *outputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "batch requires --input and --output")
		return 2
	}

	cfg, logger, err := c.load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *maxRetries >= 0 {
		cfg.MaxRetries = *maxRetries
	}
	if *requestTimeout > 0 {
		cfg.RequestTimeout = *requestTimeout
	}
	cfg.FailFast = cfg.FailFast || *failFast

	if code, ok := checkConfigured(cfg); !ok {
		return code
	}
	svc, err := app.NewServices(ctx, cfg, logger, packing.NopObserver{})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "model config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	if err := app.RunBatch(ctx, svc, *inputPath, *outputPath, app.BatchOptions{
		Options: pipeline.Options{
			Workers:        cfg.Workers,
			MaxRetries:     cfg.MaxRetries,
			RequestTimeout: cfg.RequestTimeout,
			FailFast:       cfg.FailFast,
			Logger:         logger,
		},
		Resume: *resume,
	}); err != nil {
		return fail("batch run failed", err)
	}
	return 0
}

func runServe(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var c common
	c.register(fs)
	addr := fs.String("addr", envOr("PACKER_ADDR", ":8080"), "Listen address (env: PACKER_ADDR)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, logger, err := c.load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	obs, err := metrics.New(reg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "metrics error: %v\n", err)
		return 1
	}

	deps := server.Deps{
		Missing:        cfg.Missing(),
		Gatherer:       reg,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	}
	if cfg.IsConfigured() {
		svc, err := app.NewServices(ctx, cfg, logger, obs)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "model config error: %s\n", redact.Secrets(err.Error()))
			return 2
		}
		p := svc.NewPipeline()
		defer func() {
			if err := p.Close(); err != nil {
				logger.Warn("release weather lookup", "error", err)
			}
		}()
		deps.Planner = p
	} else {
		logger.Warn("pipeline is not configured; /v1/plan will answer 503", "missing", strings.Join(cfg.Missing(), ","))
	}

	if err := server.Serve(ctx, *addr, server.NewRouter(deps), logger); err != nil {
		return fail("server failed", err)
	}
	return 0
}

func checkConfigured(cfg config.Config) (int, bool) {
	if err := cfg.Validate(); err != nil {
		return fail("configuration error", err), false
	}
	return 0, true
}

func fail(prefix string, err error) int {
	return report(os.Stderr, prefix, err)
}

// report prints err and returns the exit code: 2 with setup instructions for configuration
// problems, 1 otherwise.
func report(w io.Writer, prefix string, err error) int {
	if errors.Is(err, packing.ErrNotConfigured) || config.IsMissing(err) {
		_, _ = fmt.Fprintf(w, "%s: %s\n\n%s\n", prefix, err, config.SetupInstructions())
		return 2
	}
	_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, redact.Secrets(err.Error()))
	return 1
}

func envOr(varName, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(varName)); v != "" {
		return v
	}
	return fallback
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, `packer: travel packing planner

Usage:
  packer <command> [flags]

Commands:
  plan [request...]  Plan one trip and print the report (default request: %q)
  batch              Plan every row of a CSV with a 'request' column
  serve              Run the HTTP API (POST /v1/plan, GET /healthz, GET /metrics)
  version            Print the version

Examples:
  packer plan "Business trip to Tokyo for 3 days"
  packer plan --format json "A week of hiking near Oslo"
  packer batch --input requests.csv --output plans.csv --workers 4

%s
`, app.DefaultRequest, config.SetupInstructions())
}
