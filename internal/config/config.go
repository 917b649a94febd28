// Package config loads runtime settings from an optional YAML file and the environment.
//
// Environment variables always win over the file so deployments can override a checked-in
// config without editing it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultModel      = "gemini-2.0-flash"
	DefaultWeatherURL = "https://api.open-meteo.com/v1/forecast"
)

// Config is the full runtime configuration.
type Config struct {
	// ModelEndpoint is the language model API base URL. Required.
	ModelEndpoint string `yaml:"model_endpoint"`
	Model         string `yaml:"model"`
	APIKey        string `yaml:"api_key"`

	WeatherURL      string        `yaml:"weather_url"`
	RedisAddr       string        `yaml:"redis_addr"`
	WeatherCacheTTL time.Duration `yaml:"weather_cache_ttl"`

	// RateLimitRPS paces model calls across the process. Set to <=0 to disable.
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
	LogLevel     string  `yaml:"log_level"`

	Workers        int           `yaml:"workers"`
	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	FailFast       bool          `yaml:"fail_fast"`
}

// MissingError reports required settings that were not provided.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Vars, ", ")
}

// Defaults returns a Config with every optional setting filled in.
func Defaults() Config {
	return Config{
		Model:           DefaultModel,
		WeatherURL:      DefaultWeatherURL,
		WeatherCacheTTL: 10 * time.Minute,
		LogLevel:        "info",
		Workers:         4,
		MaxRetries:      0,
		RequestTimeout:  2 * time.Minute,
	}
}

// Load reads the YAML file at path (if any, falling back to PACKER_CONFIG) and then applies
// environment overrides. It does not require the config to be complete; use Validate for that.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv("PACKER_CONFIG"))
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.ModelEndpoint = envString("PACKER_MODEL_ENDPOINT", c.ModelEndpoint)
	c.Model = envString("PACKER_MODEL", c.Model)
	c.APIKey = envString("GEMINI_API_KEY", c.APIKey)
	c.WeatherURL = envString("PACKER_WEATHER_URL", c.WeatherURL)
	c.RedisAddr = envString("PACKER_REDIS_ADDR", c.RedisAddr)
	c.LogLevel = envString("PACKER_LOG_LEVEL", c.LogLevel)

	var err error
	if c.WeatherCacheTTL, err = envDuration("PACKER_WEATHER_CACHE_TTL", c.WeatherCacheTTL); err != nil {
		return err
	}
	if c.RateLimitRPS, err = envFloat("PACKER_RATE_LIMIT_RPS", c.RateLimitRPS); err != nil {
		return err
	}
	if c.Workers, err = envInt("WORKERS", c.Workers); err != nil {
		return err
	}
	if c.MaxRetries, err = envInt("MAX_RETRIES", c.MaxRetries); err != nil {
		return err
	}
	if c.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.FailFast, err = envBool("FAIL_FAST", c.FailFast); err != nil {
		return err
	}
	return nil
}

// IsConfigured reports whether the model endpoint and model identifier are both set.
func (c Config) IsConfigured() bool {
	return len(c.Missing()) == 0
}

// Missing lists the environment variable names of unset required settings.
func (c Config) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.ModelEndpoint) == "" {
		missing = append(missing, "PACKER_MODEL_ENDPOINT")
	}
	if strings.TrimSpace(c.Model) == "" {
		missing = append(missing, "PACKER_MODEL")
	}
	return missing
}

// Validate returns a *MissingError when required settings are absent.
func (c Config) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return &MissingError{Vars: missing}
	}
	return nil
}

// IsMissing reports whether err (or anything it wraps) is a *MissingError.
func IsMissing(err error) bool {
	var me *MissingError
	return errors.As(err, &me)
}

// SetupInstructions is the remediation text shown when configuration is incomplete.
func SetupInstructions() string {
	return strings.TrimSpace(`
Setup instructions:

1. Language model:
   - PACKER_MODEL_ENDPOINT=<model API base URL> (required)
   - PACKER_MODEL=<model name> (default: ` + DefaultModel + `)
   - GEMINI_API_KEY=<api key>

2. Optional:
   - PACKER_WEATHER_URL   Open-Meteo forecast endpoint override
   - PACKER_REDIS_ADDR    cache weather readings in Redis (host:port)
   - PACKER_CONFIG        YAML file with the same settings (env wins)

Settings may also be placed in a YAML file passed with --config.
`)
}

func envString(varName string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envBool(varName string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
