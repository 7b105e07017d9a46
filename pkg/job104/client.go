// Package job104 reads job descriptions from the 104 job bank's content API.
package job104

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://www.104.com.tw"

var jobIDRe = regexp.MustCompile(`104\.com\.tw/job/([A-Za-z0-9]+)`)

// JobID extracts the posting id from a 104 job URL.
func JobID(rawURL string) (string, bool) {
	m := jobIDRe.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Client fetches job postings.
type Client interface {
	GetJob(ctx context.Context, jobID string) (*Job, error)
}

// Job is the subset of the content API response the radar reads.
type Job struct {
	Header struct {
		JobName  string `json:"jobName"`
		CustName string `json:"custName"`
	} `json:"header"`
	JobDetail struct {
		JobDescription string `json:"jobDescription"`
	} `json:"jobDetail"`
	Condition struct {
		Skill []struct {
			Description string `json:"description"`
		} `json:"skill"`
		Other string `json:"other"`
	} `json:"condition"`
	Welfare struct {
		Welfare string `json:"welfare"`
	} `json:"welfare"`
}

type envelope struct {
	Data Job `json:"data"`
}

// Text flattens the posting into one string of at most 1200 runes: title,
// description (600), skills, other conditions (200) and welfare (200).
func (j *Job) Text() string {
	var skills []string
	for _, s := range j.Condition.Skill {
		if s.Description != "" {
			skills = append(skills, s.Description)
		}
	}
	parts := []string{
		j.Header.JobName,
		runePrefix(j.JobDetail.JobDescription, 600),
		strings.Join(skills, " "),
		runePrefix(j.Condition.Other, 200),
		runePrefix(j.Welfare.Welfare, 200),
	}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return runePrefix(strings.TrimSpace(strings.Join(kept, " ")), 1200)
}

func runePrefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default site URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a 104 content API client. The API needs no key but
// rejects requests without a same-site Referer.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) GetJob(ctx context.Context, jobID string) (*Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/job/ajax/content/"+jobID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "job104: create request")
	}
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "job104: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "job104: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("job104: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "job104: unmarshal response")
	}
	return &env.Data, nil
}
