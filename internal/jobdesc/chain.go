package jobdesc

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// MaxTextLen caps the description handed to the radar, in runes.
const MaxTextLen = 2000

// Chain tries scrapers in priority order, returning the first success.
type Chain struct {
	PathMatcher *PathMatcher
	scrapers    []Scraper
}

// NewChain creates a Chain with the given path matcher and scrapers.
func NewChain(matcher *PathMatcher, scrapers ...Scraper) *Chain {
	if matcher == nil {
		matcher = NewPathMatcher(nil)
	}
	return &Chain{
		PathMatcher: matcher,
		scrapers:    scrapers,
	}
}

// Scrape tries each supporting scraper in order for a single URL.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if c.PathMatcher.IsExcluded(targetURL) {
		return nil, eris.Errorf("jobdesc: url excluded by path matcher: %s", targetURL)
	}

	var lastErr error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		result, err := s.Scrape(ctx, targetURL)
		if err == nil && result != nil && strings.TrimSpace(result.Text) != "" {
			return result, nil
		}
		if err == nil {
			err = eris.Errorf("jobdesc: %s returned no text", s.Name())
		}
		zap.L().Debug("jobdesc: scraper failed, trying next",
			zap.String("scraper", s.Name()),
			zap.String("url", targetURL),
			zap.Error(err),
		)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "jobdesc: all scrapers failed")
	}
	return nil, eris.Errorf("jobdesc: no suitable scraper for url: %s", targetURL)
}

// Fetch returns the posting text for url, capped at MaxTextLen runes, or ""
// when nothing could be read.
func (c *Chain) Fetch(ctx context.Context, url string) string {
	res, err := c.Scrape(ctx, url)
	if err != nil {
		zap.L().Debug("jobdesc: fetch failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return truncate(collapseSpace(res.Text), MaxTextLen)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
