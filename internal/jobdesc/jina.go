package jobdesc

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-radar/internal/resilience"
	"github.com/sells-group/market-radar/pkg/jina"
)

// challengeSignatures mark an anti-bot interstitial instead of a posting.
var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"cloudflare",
	"attention required",
	"sign in to view",
}

// JinaAdapter reads postings through Jina Reader behind a circuit breaker.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.Breaker
}

// NewJinaAdapter creates a JinaAdapter. A nil breaker gets a private one.
func NewJinaAdapter(client jina.Client, breaker *resilience.Breaker) *JinaAdapter {
	if breaker == nil {
		breaker = resilience.NewBreaker("jina_reader", resilience.BreakerConfig{FailureThreshold: 3})
	}
	return &JinaAdapter{client: client, breaker: breaker}
}

func (j *JinaAdapter) Name() string { return "jina" }

// Supports returns true unless the breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return j.breaker.State() != resilience.StateOpen
}

// Scrape reads a URL via Jina Reader and rejects challenge pages.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := resilience.Call(ctx, j.breaker, func(ctx context.Context) (*jina.ReadResponse, error) {
		resp, err := j.client.Read(ctx, targetURL)
		var apiErr *jina.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.StatusError("jina reader", apiErr.StatusCode, []byte(apiErr.Body))
		}
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	if needsFallback(resp) {
		return nil, eris.New("jina: response needs fallback")
	}
	return &Result{
		URL:    targetURL,
		Title:  resp.Data.Title,
		Text:   resp.Data.Content,
		Source: j.Name(),
	}, nil
}

// needsFallback reports a response too thin to hold a description or one
// that is a short anti-bot page.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Code != 0 && resp.Code != 200 {
		return true
	}

	content := strings.TrimSpace(resp.Data.Content)
	if len([]rune(content)) < 40 {
		return true
	}

	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) && len(content) < 1000 {
			return true
		}
	}
	return false
}
