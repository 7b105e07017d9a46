// Package jobdesc fetches job-description text for hiring signals. Each
// source is a Scraper and a Chain tries them in order.
package jobdesc

import (
	"context"
)

// Result is the text read from one posting.
type Result struct {
	URL    string
	Title  string
	Text   string
	Source string // e.g. "job104", "jina", "local_http"
}

// Scraper reads a single posting URL.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
