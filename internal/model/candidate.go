package model

import (
	"time"
)

// Candidate is a raw search result that has not yet been verified. It only
// lives for the duration of a single scan.
type Candidate struct {
	Title        string     `json:"title"`
	Snippet      string     `json:"snippet"`
	URL          string     `json:"url"`
	SourceHost   string     `json:"source_host"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	Provider     string     `json:"provider"`
	LatencyMs    int        `json:"latency_ms"`
	FallbackUsed bool       `json:"fallback_used"`
	QueryLabel   string     `json:"query_label"`
}

// Combined returns title and snippet joined by a space, the text most
// relevance and classification checks run against.
func (c Candidate) Combined() string {
	return c.Title + " " + c.Snippet
}
