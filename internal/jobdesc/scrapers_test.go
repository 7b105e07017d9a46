package jobdesc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/traditionalchinese"

	"github.com/sells-group/market-radar/internal/resilience"
	"github.com/sells-group/market-radar/pkg/jina"
	"github.com/sells-group/market-radar/pkg/job104"
)

func TestJob104Scraper(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/job/ajax/content/7abcd", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"header":{"jobName":"製程工程師","custName":"玉晶光電"},` +
			`"jobDetail":{"jobDescription":"負責鏡頭產線良率改善與 AOI 導入"},` +
			`"condition":{"skill":[{"description":"SPC"}],"other":""},"welfare":{"welfare":""}}}`))
	}))
	defer srv.Close()

	s := NewJob104Scraper(job104.NewClient(job104.WithBaseURL(srv.URL)))
	assert.Equal(t, "job104", s.Name())
	assert.True(t, s.Supports("https://www.104.com.tw/job/7abcd"))
	assert.False(t, s.Supports("https://www.linkedin.com/jobs/view/1"))

	res, err := s.Scrape(context.Background(), "https://www.104.com.tw/job/7abcd?jobsource=hotjob")
	require.NoError(t, err)
	assert.Equal(t, "製程工程師", res.Title)
	assert.Contains(t, res.Text, "良率改善")
	assert.Contains(t, res.Text, "SPC")
	assert.Equal(t, "job104", res.Source)
}

func TestJob104Scraper_Error(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewJob104Scraper(job104.NewClient(job104.WithBaseURL(srv.URL)))
	_, err := s.Scrape(context.Background(), "https://www.104.com.tw/job/7abcd")
	assert.Error(t, err)

	_, err = s.Scrape(context.Background(), "https://example.com/careers")
	assert.Error(t, err)
}

func jinaServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/https://"), r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJinaAdapter_Scrape(t *testing.T) {
	t.Parallel()
	srv := jinaServer(t, http.StatusOK, `{"code":200,"data":{"title":"Process Engineer","url":"https://www.linkedin.com/jobs/view/12345",`+
		`"content":"Process Engineer at GSEO. Improve yield with AOI tools and help us build a new team."}}`)

	a := NewJinaAdapter(jina.NewClient("", jina.WithBaseURL(srv.URL)), nil)
	assert.Equal(t, "jina", a.Name())
	assert.True(t, a.Supports(postingURL))

	res, err := a.Scrape(context.Background(), postingURL)
	require.NoError(t, err)
	assert.Equal(t, "Process Engineer", res.Title)
	assert.Contains(t, res.Text, "AOI tools")
}

func TestJinaAdapter_ChallengePageFallsBack(t *testing.T) {
	t.Parallel()
	srv := jinaServer(t, http.StatusOK, `{"code":200,"data":{"content":"Just a moment... checking your browser before accessing linkedin.com"}}`)

	a := NewJinaAdapter(jina.NewClient("", jina.WithBaseURL(srv.URL)), nil)
	_, err := a.Scrape(context.Background(), postingURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs fallback")
}

func TestJinaAdapter_OpenBreakerNotSupported(t *testing.T) {
	t.Parallel()
	b := resilience.NewBreaker("jina_reader", resilience.BreakerConfig{
		FailureThreshold: 1,
		Trips:            func(error) bool { return true },
	})
	a := NewJinaAdapter(jina.NewClient("", jina.WithBaseURL("http://127.0.0.1:1")), b)

	_, err := a.Scrape(context.Background(), postingURL)
	require.Error(t, err)
	assert.False(t, a.Supports(postingURL))
}

func TestNeedsFallback(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("responsibilities include yield analysis ", 5)
	tests := []struct {
		name string
		resp *jina.ReadResponse
		want bool
	}{
		{"nil", nil, true},
		{"error code", &jina.ReadResponse{Code: 451, Data: jina.ReadData{Content: long}}, true},
		{"too short", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "Sign in"}}, true},
		{"auth wall", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "Sign in to view this job. Join LinkedIn today."}}, true},
		{"usable", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: long}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, needsFallback(tt.resp))
		})
	}
}

func TestLocalScraper_JSONLD(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>GSEO hiring Process Engineer</title>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Organization","name":"GSEO"}</script>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"JobPosting","title":"Process Engineer",
"description":"<p>Improve <b>yield</b> of lens lines.</p><p>Own AOI tooling.</p>","skills":"SPC, MES"}</script>
</head><body><nav>Menu</nav><p>Unrelated body</p></body></html>`))
	}))
	defer srv.Close()

	res, err := NewLocalScraper().Scrape(context.Background(), srv.URL+"/jobs/view/1")
	require.NoError(t, err)
	assert.Equal(t, "local_http", res.Source)
	assert.Equal(t, "GSEO hiring Process Engineer", res.Title)
	assert.Equal(t, "Process Engineer Improve yield of lens lines. Own AOI tooling. SPC, MES", res.Text)
}

func TestLocalScraper_ReadabilityFallback(t *testing.T) {
	t.Parallel()
	para := strings.Repeat("The engineer will drive yield improvement across the optical lens production line. ", 6)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Careers</title></head><body>
<nav><a href="/">Home</a></nav>
<article><h1>Process Engineer</h1><p>` + para + `</p><p>` + para + `</p></article>
<footer>Copyright 2026</footer></body></html>`))
	}))
	defer srv.Close()

	res, err := NewLocalScraper().Scrape(context.Background(), srv.URL+"/careers/process-engineer")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "yield improvement")
	assert.NotContains(t, res.Text, "Copyright 2026")
}

const postingPage = `<html><head><title>Careers</title>
<script type="application/ld+json">{"@type":"JobPosting","title":"Process Engineer","description":"Own AOI tooling."}</script>
</head><body></body></html>`

func TestLocalScraper_Robots(t *testing.T) {
	t.Parallel()
	var robotsHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		robotsHits.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(postingPage))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := NewLocalScraper(WithRobots())

	res, err := l.Scrape(context.Background(), srv.URL+"/jobs/view/2")
	require.NoError(t, err)
	assert.Equal(t, "Process Engineer Own AOI tooling.", res.Text)

	_, err = l.Scrape(context.Background(), srv.URL+"/private/jobs/3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "robots.txt")
	assert.Equal(t, int32(1), robotsHits.Load())

	// Without the option robots.txt is never requested.
	_, err = NewLocalScraper().Scrape(context.Background(), srv.URL+"/private/jobs/3")
	require.NoError(t, err)
	assert.Equal(t, int32(1), robotsHits.Load())
}

func TestLocalScraper_MissingRobotsAllows(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(postingPage))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(WithRobots()).Scrape(context.Background(), srv.URL+"/private/jobs/3")
	require.NoError(t, err)
}

func TestLocalScraper_Big5Page(t *testing.T) {
	t.Parallel()
	page := `<html><head><title>徵才</title>
<script type="application/ld+json">{"@type":"JobPosting","title":"製程工程師","description":"提升鏡頭良率"}</script>
</head><body></body></html>`
	encoded, err := traditionalchinese.Big5.NewEncoder().String(page)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=big5")
		_, _ = w.Write([]byte(encoded))
	}))
	defer srv.Close()

	res, err := NewLocalScraper().Scrape(context.Background(), srv.URL+"/job/1")
	require.NoError(t, err)
	assert.Equal(t, "徵才", res.Title)
	assert.Equal(t, "製程工程師 提升鏡頭良率", res.Text)
}

func TestLocalScraper_Blocked(t *testing.T) {
	t.Parallel()

	t.Run("cloudflare", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Cf-Ray", "abc123")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`<html><body>Access denied</body></html>`))
		}))
		defer srv.Close()

		_, err := NewLocalScraper().Scrape(context.Background(), srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "blocked")
	})

	t.Run("linkedin 999", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(999)
		}))
		defer srv.Close()

		_, err := NewLocalScraper().Scrape(context.Background(), srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth_wall")
	})

	t.Run("not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<html><body>` + strings.Repeat("missing ", 400) + `</body></html>`))
		}))
		defer srv.Close()

		_, err := NewLocalScraper().Scrape(context.Background(), srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
	})
}

func TestDetectBlock(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   BlockType
	}{
		{"clean", 200, http.Header{}, `<html><body>` + strings.Repeat("a", 2100) + `</body></html>`, BlockNone},
		{"cloudflare header", 503, http.Header{"Server": []string{"cloudflare"}}, "", BlockCloudflare},
		{"cloudflare body", 200, http.Header{}, "Checking your browser before accessing", BlockCloudflare},
		{"captcha", 200, http.Header{}, "please solve the hCaptcha", BlockCaptcha},
		{"auth wall", 999, http.Header{}, "", BlockAuthWall},
		{"js shell", 200, http.Header{}, `<noscript>Enable JavaScript</noscript>`, BlockJSShell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			blocked, typ := DetectBlock(&http.Response{StatusCode: tt.status, Header: tt.header}, []byte(tt.body))
			assert.Equal(t, tt.want, typ)
			assert.Equal(t, tt.want != BlockNone, blocked)
		})
	}

	blocked, typ := DetectBlock(nil, nil)
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, typ)
}

func TestHTMLText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Own AOI tooling. Improve yield.", htmlText("&lt;p&gt;Own AOI tooling.&lt;/p&gt;&lt;p&gt;Improve yield.&lt;/p&gt;"))
	assert.Equal(t, "plain text", htmlText("plain   text"))
	assert.Empty(t, htmlText("  "))
}
