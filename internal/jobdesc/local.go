package jobdesc

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const maxBodyBytes = 1 << 20

// LocalScraper fetches the posting page directly. It prefers the schema.org
// JobPosting embedded as JSON-LD and falls back to readability extraction.
type LocalScraper struct {
	client    *http.Client
	userAgent string
	robotsTag string

	checkRobots bool
	robotsMu    sync.Mutex
	robots      map[string]*robotstxt.Group
}

// LocalOption configures a LocalScraper.
type LocalOption func(*LocalScraper)

// WithLocalHTTPClient overrides the default http.Client.
func WithLocalHTTPClient(hc *http.Client) LocalOption {
	return func(l *LocalScraper) { l.client = hc }
}

// WithRobots makes the scraper honor each host's robots.txt. A robots.txt
// that cannot be fetched or parsed allows everything.
func WithRobots() LocalOption {
	return func(l *LocalScraper) { l.checkRobots = true }
}

// NewLocalScraper creates a LocalScraper.
func NewLocalScraper(opts ...LocalOption) *LocalScraper {
	l := &LocalScraper{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: "Mozilla/5.0 (compatible; MarketRadar/1.0)",
		robotsTag: "MarketRadar",
		robots:    make(map[string]*robotstxt.Group),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL, detects blocks and extracts the description.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	pageURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: parse url")
	}
	if l.checkRobots && !l.allowed(ctx, pageURL) {
		return nil, eris.Errorf("local_http: disallowed by robots.txt: %s", pageURL.Path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	body = toUTF8(body, resp.Header.Get("Content-Type"))

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", blockType)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: parse html")
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())

	if text := jobPostingText(doc); text != "" {
		return &Result{URL: targetURL, Title: title, Text: text, Source: l.Name()}, nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: readability")
	}
	text := htmlText(article.Content)
	if text == "" {
		return nil, eris.New("local_http: empty page")
	}
	if article.Title != "" {
		title = article.Title
	}
	return &Result{URL: targetURL, Title: title, Text: text, Source: l.Name()}, nil
}

// toUTF8 decodes a Big5 or other legacy-encoded page using the declared or
// sniffed charset. Undecodable bodies are returned as is.
func toUTF8(body []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return decoded
}

// allowed consults the host's robots.txt, fetched once per host.
func (l *LocalScraper) allowed(ctx context.Context, u *url.URL) bool {
	l.robotsMu.Lock()
	group, seen := l.robots[u.Host]
	l.robotsMu.Unlock()
	if !seen {
		group = l.fetchRobots(ctx, u)
		l.robotsMu.Lock()
		l.robots[u.Host] = group
		l.robotsMu.Unlock()
	}
	if group == nil {
		return true
	}
	return group.Test(u.EscapedPath())
}

func (l *LocalScraper) fetchRobots(ctx context.Context, u *url.URL) *robotstxt.Group {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		zap.L().Debug("jobdesc: robots.txt unavailable", zap.String("host", u.Host), zap.Error(err))
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		zap.L().Debug("jobdesc: robots.txt unparseable", zap.String("host", u.Host), zap.Error(err))
		return nil
	}
	return data.FindGroup(l.robotsTag)
}

// jobPosting is the part of a schema.org JobPosting the radar reads.
type jobPosting struct {
	Type        any    `json:"@type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Skills      any    `json:"skills"`
}

func (p jobPosting) isJobPosting() bool {
	switch t := p.Type.(type) {
	case string:
		return t == "JobPosting"
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s == "JobPosting" {
				return true
			}
		}
	}
	return false
}

// jobPostingText returns the title and description of the first JobPosting
// found in the page's JSON-LD blocks.
func jobPostingText(doc *goquery.Document) string {
	var out string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, p := range decodePostings([]byte(s.Text())) {
			if !p.isJobPosting() || p.Description == "" {
				continue
			}
			parts := []string{p.Title, htmlText(p.Description)}
			if skills, ok := p.Skills.(string); ok {
				parts = append(parts, skills)
			}
			out = strings.TrimSpace(strings.Join(parts, " "))
			return false
		}
		return true
	})
	return out
}

// decodePostings accepts a single object, an array, or an @graph wrapper.
func decodePostings(data []byte) []jobPosting {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if data[0] == '[' {
		var list []jobPosting
		if err := json.Unmarshal(data, &list); err != nil {
			return nil
		}
		return list
	}
	var graph struct {
		Graph []jobPosting `json:"@graph"`
	}
	if err := json.Unmarshal(data, &graph); err == nil && len(graph.Graph) > 0 {
		return graph.Graph
	}
	var one jobPosting
	if err := json.Unmarshal(data, &one); err != nil {
		return nil
	}
	return []jobPosting{one}
}

// htmlText flattens an HTML fragment to whitespace-collapsed text. Block
// elements are separated so words from adjacent paragraphs do not merge.
func htmlText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	// JSON-LD descriptions are often entity-escaped HTML.
	if strings.Contains(fragment, "&lt;") {
		fragment = html.UnescapeString(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	doc.Find("script, style, nav, footer").Remove()
	doc.Find("p, div, li, br, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return collapseSpace(doc.Text())
}
