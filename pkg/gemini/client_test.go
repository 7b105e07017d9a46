package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.cfg = cfg
	return f.resp, f.err
}

func textResponse(text string, in, out int32) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     in,
			CandidatesTokenCount: out,
		},
	}
}

func TestGenerate_Fake(t *testing.T) {
	t.Parallel()

	fake := &fakeModels{resp: textResponse(" 玉晶光擴建新廠 \n", 30, 9)}
	c := &sdkClient{models: fake, model: defaultModel}

	resp, err := c.Generate(context.Background(), GenerateRequest{
		System: "Translate to Traditional Chinese.",
		Prompt: "GSEO expands new plant",
	})
	require.NoError(t, err)
	assert.Equal(t, "玉晶光擴建新廠", resp.Text)
	assert.Equal(t, defaultModel, resp.Model)
	assert.Equal(t, 30, resp.InputTokens)
	assert.Equal(t, 9, resp.OutputTokens)

	assert.Equal(t, defaultModel, fake.model)
	require.Len(t, fake.contents, 1)
	assert.Equal(t, "GSEO expands new plant", fake.contents[0].Parts[0].Text)
	require.NotNil(t, fake.cfg.SystemInstruction)
	assert.Equal(t, "Translate to Traditional Chinese.", fake.cfg.SystemInstruction.Parts[0].Text)
}

func TestGenerate_ModelOverride(t *testing.T) {
	t.Parallel()

	fake := &fakeModels{resp: textResponse("ok", 1, 1)}
	c := &sdkClient{models: fake, model: defaultModel}

	_, err := c.Generate(context.Background(), GenerateRequest{Model: "gemini-2.5-pro", Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", fake.model)
	assert.Nil(t, fake.cfg.SystemInstruction)
}

func TestGenerate_Error(t *testing.T) {
	t.Parallel()

	fake := &fakeModels{err: errors.New("quota exceeded")}
	c := &sdkClient{models: fake, model: defaultModel}

	_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini: generate content")
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key is required")
}

func TestGenerate_HTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash:generateContent")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": "新產品量產"}},
				},
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 12, "candidatesTokenCount": 4},
		})
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	resp, err := c.Generate(context.Background(), GenerateRequest{Prompt: "mass production begins"})
	require.NoError(t, err)
	assert.Equal(t, "新產品量產", resp.Text)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 4, resp.OutputTokens)
}
