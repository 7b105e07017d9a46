package cost

import "strings"

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     map[string]ModelRate `yaml:"gemini" mapstructure:"gemini"`
	Tavily     TavilyRate           `yaml:"tavily" mapstructure:"tavily"`
	Jina       JinaRate             `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityRate       `yaml:"perplexity" mapstructure:"perplexity"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// TavilyRate holds Tavily search pricing.
type TavilyRate struct {
	PerCredit float64 `yaml:"per_credit" mapstructure:"per_credit"`
}

// JinaRate holds Jina Reader and Search pricing.
type JinaRate struct {
	PerMTok float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// PerplexityRate holds Perplexity pricing.
type PerplexityRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Tavily computes the cost of the credits a search consumed.
func (c *Calculator) Tavily(credits int) float64 {
	return float64(credits) * c.rates.Tavily.PerCredit
}

// Jina computes the cost for Jina token usage.
func (c *Calculator) Jina(tokens int) float64 {
	return (float64(tokens) / 1e6) * c.rates.Jina.PerMTok
}

// PerplexityQuery returns the flat cost per Perplexity query.
func (c *Calculator) PerplexityQuery() float64 {
	return c.rates.Perplexity.PerQuery
}

// Claude computes the cost for a Claude API call.
func (c *Calculator) Claude(model string, input, output int) float64 {
	return tokenCost(c.rates.Anthropic, model, input, output)
}

// Gemini computes the cost for a Gemini API call.
func (c *Calculator) Gemini(model string, input, output int) float64 {
	return tokenCost(c.rates.Gemini, model, input, output)
}

// LLM prices a generation by provider name. Unknown providers and models
// cost nothing.
func (c *Calculator) LLM(provider, model string, input, output int) float64 {
	switch strings.ToUpper(provider) {
	case "ANTHROPIC":
		return c.Claude(model, input, output)
	case "GEMINI":
		return c.Gemini(model, input, output)
	case "PERPLEXITY":
		return c.PerplexityQuery()
	default:
		return 0
	}
}

func tokenCost(table map[string]ModelRate, model string, input, output int) float64 {
	rate, ok := table[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		Gemini: map[string]ModelRate{
			"gemini-2.0-flash": {Input: 0.10, Output: 0.40},
			"gemini-2.5-flash": {Input: 0.30, Output: 2.50},
		},
		Tavily:     TavilyRate{PerCredit: 0.008},
		Jina:       JinaRate{PerMTok: 0.02},
		Perplexity: PerplexityRate{PerQuery: 0.005},
	}
}
