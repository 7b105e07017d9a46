// Package search executes planned web-search queries and turns provider hits
// into scan candidates.
package search

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-radar/internal/model"
)

// Provider names recorded on candidates and signals.
const (
	ProviderTavily = "TAVILY"
	ProviderJina   = "JINA"
)

// ErrNotConfigured is returned by Ready when no search provider has a key.
var ErrNotConfigured = eris.New("search: no search provider configured (set RADAR_TAVILY_KEY)")

// Query is one planned search.
type Query struct {
	Label          string
	Text           string
	Topic          string // "general" or "news"
	IncludeDomains []string
	MaxResults     int
	// Fallback marks recall backstops issued in addition to the primary
	// query for a region.
	Fallback bool
}

// Response is the outcome of one Search call.
type Response struct {
	Candidates []model.Candidate
	Provider   string
	LatencyMs  int
	// Credits and Tokens are the billable usage of this call.
	Credits int
	Tokens  int
}

// Gateway runs a single query against a search provider.
type Gateway interface {
	Search(ctx context.Context, q Query, lookbackDays int) (*Response, error)
	// Ready reports ErrNotConfigured when no provider can serve a scan.
	Ready() error
}

// SourceHost returns the lower-cased host of rawURL without a leading "www.".
func SourceHost(rawURL string) string {
	host, _ := splitURL(rawURL)
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// URLPath returns the path of rawURL. Like SourceHost it tolerates URLs
// that net/url rejects, such as a bare "%" in a headline slug.
func URLPath(rawURL string) string {
	_, path := splitURL(rawURL)
	return path
}

func splitURL(rawURL string) (host, path string) {
	rawURL = strings.TrimSpace(rawURL)
	if u, err := url.Parse(rawURL); err == nil {
		return u.Hostname(), u.Path
	}

	rest := rawURL
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	i := strings.Index(rest, "://")
	if i < 0 {
		return "", rest
	}
	rest = rest[i+3:]
	authority := rest
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		authority, path = rest[:j], rest[j:]
	}
	if j := strings.LastIndexByte(authority, '@'); j >= 0 {
		authority = authority[j+1:]
	}
	if j := strings.LastIndexByte(authority, ':'); j >= 0 && !strings.Contains(authority[j:], "]") {
		authority = authority[:j]
	}
	return strings.Trim(authority, "[]"), path
}

// ParsePublished parses provider date strings leniently. Blank or
// unparseable values yield nil.
func ParsePublished(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil || t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}
