// Package gemini implements the pipeline's model caller on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/shpitdev/packing-pipeline/pkg/pipeline/core"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	// SystemInstruction is sent with every request when non-empty.
	SystemInstruction string

	// RateLimitRPS paces calls across goroutines sharing this Caller. Zero disables pacing.
	RateLimitRPS float64
}

// Caller sends a single text prompt and returns the model's text reply.
type Caller struct {
	client  *genai.Client
	model   string
	system  string
	limiter *rate.Limiter
}

var _ core.ModelCaller = (*Caller)(nil)

func New(ctx context.Context, cfg Config) (*Caller, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("PACKER_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}
	return &Caller{
		client:  client,
		model:   strings.TrimSpace(cfg.Model),
		system:  strings.TrimSpace(cfg.SystemInstruction),
		limiter: limiter,
	}, nil
}

// WithSystemInstruction returns a Caller that shares the client and limiter but sends
// a different system instruction.
func (c *Caller) WithSystemInstruction(instruction string) *Caller {
	cp := *c
	cp.system = strings.TrimSpace(instruction)
	return &cp
}

func (c *Caller) Model() string { return c.model }

func (c *Caller) Run(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	gc := &genai.GenerateContentConfig{CandidateCount: 1}
	if c.system != "" {
		gc.SystemInstruction = genai.NewContentFromText(c.system, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), gc)
	if err != nil {
		return "", classifyErr(err)
	}
	if resp == nil {
		return "", errors.New("gemini: empty response")
	}
	return resp.Text(), nil
}

func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &core.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && (ne.Timeout() || ne.Temporary()) {
		return &core.TransientError{Err: err}
	}
	return err
}
