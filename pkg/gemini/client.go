// Package gemini wraps the Google GenAI SDK for single-turn text generation.
package gemini

import (
	"context"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

// Client generates text with a Gemini model.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is one system instruction plus one user turn.
type GenerateRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature *float32
}

// GenerateResponse carries the generated text and token usage.
type GenerateResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Option configures the client.
type Option func(*config)

type config struct {
	baseURL string
	model   string
	http    *http.Client
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithHTTPClient overrides the http.Client used by the SDK.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.http = hc
	}
}

// modelsAPI is the slice of *genai.Models the client calls.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type sdkClient struct {
	models modelsAPI
	model  string
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}
	cfg := config{model: defaultModel}
	for _, o := range opts {
		o(&cfg)
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.http,
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{models: client.Models, model: cfg.model}, nil
}

func (c *sdkClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	gc := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)},
		gc,
	)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	out := &GenerateResponse{
		Text:  strings.TrimSpace(resp.Text()),
		Model: model,
	}
	if u := resp.UsageMetadata; u != nil {
		out.InputTokens = int(u.PromptTokenCount)
		out.OutputTokens = int(u.CandidatesTokenCount)
	}
	return out, nil
}
