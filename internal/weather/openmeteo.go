// Package weather resolves coordinates to current temperature and wind.
//
// Lookups never fail loudly: transport errors and non-200 responses are logged and reported as
// "no reading" (nil), which the pipeline treats as missing weather data rather than a fault.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shpitdev/packing-pipeline/pkg/pipeline/redact"
)

// SourceOpenMeteo attributes readings fetched from Open-Meteo.
const SourceOpenMeteo = "open-meteo"

// Reading is one current-conditions observation. Temperature is in °C, wind speed in m/s.
type Reading struct {
	Temperature *float64 `json:"temperature"`
	WindSpeed   *float64 `json:"wind_speed"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Source      string   `json:"source"`
}

// Lookup resolves coordinates to a reading. Get returns nil when no reading is available.
// Close releases any connection resources; it must be safe to call more than once.
type Lookup interface {
	Get(ctx context.Context, latitude, longitude float64) *Reading
	Close() error
}

// OpenMeteo is a keyless Open-Meteo forecast client.
//
// A single *http.Client is created on first use and reused until Close. A Get after Close
// opens a fresh client.
type OpenMeteo struct {
	baseURL string
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	http   *http.Client
	opened int
}

// Option configures an OpenMeteo client.
type Option func(*OpenMeteo)

// WithBaseURL overrides the forecast endpoint. Useful for proxies/testing.
func WithBaseURL(u string) Option {
	return func(c *OpenMeteo) {
		if u = strings.TrimSpace(u); u != "" {
			c.baseURL = u
		}
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *OpenMeteo) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used to report lookup failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *OpenMeteo) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewOpenMeteo constructs a client. No connection is opened until the first Get.
func NewOpenMeteo(opts ...Option) *OpenMeteo {
	c := &OpenMeteo{
		baseURL: "https://api.open-meteo.com/v1/forecast",
		timeout: 15 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type forecastResponse struct {
	Current struct {
		Temperature *float64 `json:"temperature_2m"`
		WindSpeed   *float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

// Get fetches current temperature and wind speed. It returns nil on any failure.
func (c *OpenMeteo) Get(ctx context.Context, latitude, longitude float64) *Reading {
	reading, err := c.fetch(ctx, latitude, longitude)
	if err != nil {
		c.logger.Warn("open-meteo lookup failed",
			"latitude", latitude,
			"longitude", longitude,
			"error", redact.Secrets(err.Error()),
		)
		return nil
	}
	return reading
}

func (c *OpenMeteo) fetch(ctx context.Context, latitude, longitude float64) (*Reading, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m,wind_speed_10m")
	q.Set("wind_speed_unit", "ms")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open-meteo status=%d", resp.StatusCode)
	}

	var out forecastResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse open-meteo response: %w", err)
	}
	return &Reading{
		Temperature: out.Current.Temperature,
		WindSpeed:   out.Current.WindSpeed,
		Latitude:    latitude,
		Longitude:   longitude,
		Source:      SourceOpenMeteo,
	}, nil
}

func (c *OpenMeteo) client() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http == nil {
		c.http = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   c.timeout,
		}
		c.opened++
	}
	return c.http
}

// Close releases the pooled connections. It is a no-op when nothing is open.
func (c *OpenMeteo) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http == nil {
		return nil
	}
	c.http.CloseIdleConnections()
	c.http = nil
	return nil
}

// Sessions reports how many HTTP clients have been opened over the lifetime of c.
func (c *OpenMeteo) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}
