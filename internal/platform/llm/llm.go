// Package llm is the single completion function the pipeline and chat use.
// It talks to any OpenAI-compatible endpoint (LM Studio, vLLM, OpenAI).
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

// ErrEmptyCompletion is returned when the model answers with blank text.
var ErrEmptyCompletion = errors.New("empty completion")

type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
}

// Completer produces a text completion for a single user prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

type Client struct {
	log   *logger.Logger
	model llms.Model
	name  string
}

func New(cfg Config, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("llm: model required")
	}
	if log == nil {
		log = logger.Nop()
	}
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, openai.WithBaseURL(base))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return &Client{log: log.With("service", "LLM"), model: model, name: cfg.Model}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	start := time.Now()
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, callOpts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	out = strings.TrimSpace(out)
	c.log.Debug("Completion finished",
		"model", c.name,
		"prompt_chars", len(prompt),
		"output_chars", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}

// Func adapts a plain function to Completer.
type Func func(ctx context.Context, prompt string, opts CompletionOptions) (string, error)

func (f Func) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	return f(ctx, prompt, opts)
}
