package llm

import (
	"context"
	"time"

	"github.com/sells-group/market-radar/internal/config"
	"github.com/sells-group/market-radar/internal/metrics"
	"github.com/sells-group/market-radar/pkg/anthropic"
	"github.com/sells-group/market-radar/pkg/gemini"
	"github.com/sells-group/market-radar/pkg/perplexity"
)

const maxOutputTokens = 512

// GeminiProvider adapts pkg/gemini.
type GeminiProvider struct {
	Client gemini.Client
	Model  string
}

func (p *GeminiProvider) Name() string { return "GEMINI" }

func (p *GeminiProvider) Generate(ctx context.Context, system, user string) (*Result, error) {
	resp, err := p.Client.Generate(ctx, gemini.GenerateRequest{Model: p.Model, System: system, Prompt: user})
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:         resp.Text,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

// AnthropicProvider adapts pkg/anthropic.
type AnthropicProvider struct {
	Client anthropic.Client
	Model  string
}

func (p *AnthropicProvider) Name() string { return "ANTHROPIC" }

func (p *AnthropicProvider) Generate(ctx context.Context, system, user string) (*Result, error) {
	resp, err := p.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.Model,
		MaxTokens: maxOutputTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:         resp.Text(),
		Model:        p.Model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// PerplexityProvider adapts pkg/perplexity.
type PerplexityProvider struct {
	Client perplexity.Client
	Model  string
}

func (p *PerplexityProvider) Name() string { return "PERPLEXITY" }

func (p *PerplexityProvider) Generate(ctx context.Context, system, user string) (*Result, error) {
	resp, err := p.Client.Complete(ctx, perplexity.CompleteRequest{
		Model:     p.Model,
		System:    system,
		Prompt:    user,
		MaxTokens: maxOutputTokens,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:         resp.Text,
		Model:        resp.Model,
		InputTokens:  resp.PromptTokens,
		OutputTokens: resp.CompletionTokens,
	}, nil
}

// NewRouterFromConfig builds a router over every provider that has a key.
func NewRouterFromConfig(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Router, error) {
	var providers []Provider
	if cfg.Gemini.Key != "" {
		gc, err := gemini.NewClient(ctx, cfg.Gemini.Key, gemini.WithModel(cfg.Gemini.Model))
		if err != nil {
			return nil, err
		}
		providers = append(providers, &GeminiProvider{Client: gc, Model: cfg.Gemini.Model})
	}
	if cfg.Anthropic.Key != "" {
		providers = append(providers, &AnthropicProvider{
			Client: anthropic.NewClient(cfg.Anthropic.Key, anthropic.WithMaxRetries(0)),
			Model:  cfg.Anthropic.Model,
		})
	}
	if cfg.Perplexity.Key != "" {
		providers = append(providers, &PerplexityProvider{
			Client: perplexity.NewClient(cfg.Perplexity.Key,
				perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
				perplexity.WithModel(cfg.Perplexity.Model),
				perplexity.WithTimeout(30*time.Second),
			),
			Model: cfg.Perplexity.Model,
		})
	}
	return NewRouter(cfg.LLM.Providers(), m, providers...), nil
}
