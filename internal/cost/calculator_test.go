package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"haiku": {Input: 0.80, Output: 4.00},
		},
		Gemini: map[string]ModelRate{
			"flash": {Input: 0.10, Output: 0.40},
		},
		Tavily:     TavilyRate{PerCredit: 0.008},
		Jina:       JinaRate{PerMTok: 0.02},
		Perplexity: PerplexityRate{PerQuery: 0.005},
	}
}

func TestClaude(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	assert.InDelta(t, 0.80+0.40, calc.Claude("haiku", 1_000_000, 100_000), 1e-9)
	assert.Zero(t, calc.Claude("unknown", 1_000_000, 1_000_000))
}

func TestGemini(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	assert.InDelta(t, 0.05+0.04, calc.Gemini("flash", 500_000, 100_000), 1e-9)
	assert.Zero(t, calc.Gemini("pro", 10, 10))
}

func TestTavily(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name    string
		credits int
		want    float64
	}{
		{"zero", 0, 0},
		{"basic search", 1, 0.008},
		{"advanced search", 2, 0.016},
		{"full scan", 14, 0.112},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Tavily(tt.credits), 1e-9)
		})
	}
}

func TestJina(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	assert.InDelta(t, 0.02, calc.Jina(1_000_000), 1e-9)
	assert.InDelta(t, 0.0001, calc.Jina(5000), 1e-9)
	assert.Zero(t, calc.Jina(0))
}

func TestLLM_ByProvider(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		provider string
		model    string
		want     float64
	}{
		{"ANTHROPIC", "haiku", 0.80 + 4.00},
		{"gemini", "flash", 0.10 + 0.40},
		{"PERPLEXITY", "sonar", 0.005},
		{"OPENAI", "gpt", 0},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.LLM(tt.provider, tt.model, 1_000_000, 1_000_000), 1e-9)
		})
	}
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	rates := DefaultRates()

	assert.Contains(t, rates.Anthropic, "claude-haiku-4-5-20251001")
	assert.Contains(t, rates.Gemini, "gemini-2.0-flash")
	assert.Equal(t, 0.008, rates.Tavily.PerCredit)
	assert.Equal(t, 0.02, rates.Jina.PerMTok)
	assert.Equal(t, 0.005, rates.Perplexity.PerQuery)
}
