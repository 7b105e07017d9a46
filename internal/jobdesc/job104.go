package jobdesc

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-radar/pkg/job104"
)

// Job104Scraper reads 104 postings through the job bank's content API.
type Job104Scraper struct {
	client job104.Client
}

// NewJob104Scraper wraps a 104 client.
func NewJob104Scraper(client job104.Client) *Job104Scraper {
	return &Job104Scraper{client: client}
}

func (s *Job104Scraper) Name() string { return "job104" }

// Supports reports whether url carries a 104 posting id.
func (s *Job104Scraper) Supports(url string) bool {
	_, ok := job104.JobID(url)
	return ok
}

func (s *Job104Scraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	id, ok := job104.JobID(targetURL)
	if !ok {
		return nil, eris.Errorf("job104: no job id in %s", targetURL)
	}
	job, err := s.client.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Result{
		URL:    targetURL,
		Title:  job.Header.JobName,
		Text:   job.Text(),
		Source: s.Name(),
	}, nil
}
