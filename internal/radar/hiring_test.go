package radar

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestIsHiringURLs(t *testing.T) {
	t.Parallel()

	assert.True(t, IsHiringJobURL("https://www.104.com.tw/job/7abcd"))
	assert.True(t, IsHiringJobURL("https://www.LinkedIn.com/jobs/view/123"))
	assert.False(t, IsHiringJobURL("https://www.104.com.tw/company/a1b2"))

	assert.True(t, IsHiringCompanyPageURL("https://www.104.com.tw/company/a1b2"))
	assert.True(t, IsHiringCompanyPageURL("https://www.linkedin.com/company/gseo/jobs/"))
	assert.False(t, IsHiringCompanyPageURL("https://www.linkedin.com/company/gseo/about/"))
}

func TestOpeningsCount(t *testing.T) {
	t.Parallel()
	lex := DefaultLexicon()

	tests := []struct {
		text   string
		want   int
		wantOK bool
	}{
		{"工作機會(12)", 12, true},
		{"職缺 ( 3 )", 3, true},
		{"目前有 8 個職缺", 8, true},
		{"35 jobs in Taiwan", 35, true},
		{"1 opening", 1, true},
		{"no numbers here", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			n, ok := lex.OpeningsCount(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestHasHiringDetail(t *testing.T) {
	t.Parallel()
	lex := DefaultLexicon()

	tests := []struct {
		name    string
		title   string
		snippet string
		url     string
		want    bool
	}{
		{"job url", "GSEO engineer", "", "https://www.104.com.tw/job/7abcd", true},
		{"no openings beats job url", "GSEO engineer", "no current openings", "https://www.104.com.tw/job/7abcd", false},
		{"no openings beats active phrase", "GSEO", "暫無職缺，徵才中", "https://www.104.com.tw/company/a1", false},
		{"openings count", "GSEO", "工作機會(12)", "https://news.example.com/a", true},
		{"zero openings", "GSEO", "工作機會(0)", "https://news.example.com/a", false},
		{"active phrase", "GSEO", "GSEO is actively hiring", "https://news.example.com/a", true},
		{"detail plus role", "GSEO", "工作內容: 設備工程師", "https://news.example.com/a", true},
		{"detail without role", "GSEO", "工作內容待定", "https://news.example.com/a", false},
		{"company page detail", "GSEO", "工作地點 台中 徵才", "https://www.104.com.tw/company/a1", true},
		{"bare keyword", "GSEO hiring", "GSEO is hiring", "https://news.example.com/a", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, lex.HasHiringDetail(tt.title, tt.snippet, tt.url))
		})
	}
}

func TestExtractJDSignals(t *testing.T) {
	t.Parallel()
	lex := DefaultLexicon()

	sig := lex.ExtractJDSignals("Improve yield with AOI tools and help us build a new team.")
	assert.Equal(t, []string{"yield", "AOI"}, sig.Keywords)
	assert.Len(t, sig.PainPoints, 2)
	assert.Contains(t, sig.PainPoints[0], "良率")
	assert.Equal(t, []string{"新部門成立"}, sig.ExpansionSignals)

	empty := lex.ExtractJDSignals("")
	assert.Empty(t, empty.Keywords)
	assert.Empty(t, empty.PainPoints)
	assert.Empty(t, empty.ExpansionSignals)
}

func TestBuildHiringSummary(t *testing.T) {
	t.Parallel()
	lex := DefaultLexicon()

	t.Run("job description", func(t *testing.T) {
		t.Parallel()
		got := lex.BuildHiringSummary("玉晶光 製程工程師", "負責鏡頭產線製程改善與設備導入", "https://www.104.com.tw/job/7abcd",
			"Improve yield with AOI tools and help us build a new team.")
		assert.Contains(t, got, "技術需求: yield、AOI")
		assert.Contains(t, got, "擴張訊號: 新部門成立")
		assert.LessOrEqual(t, utf8.RuneCountInString(got), lex.Summary.HiringMaxLen)
	})

	t.Run("job description without matches", func(t *testing.T) {
		t.Parallel()
		got := lex.BuildHiringSummary("玉晶光 製程工程師", "負責鏡頭產線製程改善", "https://www.104.com.tw/job/7abcd", "Plain text.")
		assert.Contains(t, got, "技術需求: —")
	})

	t.Run("listing excerpt", func(t *testing.T) {
		t.Parallel()
		got := lex.BuildHiringSummary("玉晶光", "【徵才職缺】製程工程師、設備工程師【公司簡介】光學鏡頭", "https://www.104.com.tw/company/a1", "")
		assert.Equal(t, "職缺重點: 製程工程師、設備工程師", got)
	})

	t.Run("104 openings", func(t *testing.T) {
		t.Parallel()
		got := lex.BuildHiringSummary("玉晶光 徵才", "工作機會(12)", "https://www.104.com.tw/company/a1", "")
		assert.Equal(t, "104 顯示目前約有 12 個職缺，建議進一步追蹤職務別與招募節奏。", got)
	})

	t.Run("linkedin openings", func(t *testing.T) {
		t.Parallel()
		got := lex.BuildHiringSummary("GSEO jobs", "35 jobs", "https://www.linkedin.com/company/gseo/jobs/", "")
		assert.Equal(t, "LinkedIn 顯示目前約有 35 個職缺，建議追蹤關鍵職務與地區分布。", got)
	})

	t.Run("zero openings", func(t *testing.T) {
		t.Parallel()
		got := lex.BuildHiringSummary("玉晶光 徵才", "工作機會(0)", "https://www.104.com.tw/company/a1", "")
		assert.Equal(t, lex.Templates.NoOpenings, got)
	})

	t.Run("active hiring", func(t *testing.T) {
		t.Parallel()
		got := lex.BuildHiringSummary("玉晶光", "徵才中", "https://www.104.com.tw/company/a1", "")
		assert.Equal(t, lex.Templates.ActiveHiring, got)
	})
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "玉晶", truncateRunes("玉晶光", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "", truncateRunes("abc", 0))
}
