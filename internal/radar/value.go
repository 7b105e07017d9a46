package radar

import (
	"sort"
	"strings"

	"github.com/sells-group/market-radar/internal/model"
	"github.com/sells-group/market-radar/internal/search"
)

// ValueScore rates how much business content a candidate likely carries:
// 18 per high-value pattern hit in the title, 10 per hit in the snippet,
// plus a per-source quality boost.
func (l *Lexicon) ValueScore(c model.Candidate) int {
	score := 0
	for _, re := range l.highValue {
		if re.MatchString(c.Title) {
			score += 18
		}
		if re.MatchString(c.Snippet) {
			score += 10
		}
	}
	return score + l.SourceBoost[candidateHost(c)]
}

// HiringPriority is the extra pre-sort weight for results from job boards.
func (l *Lexicon) HiringPriority(c model.Candidate) int {
	b := l.HiringBonus
	text := strings.ToLower(c.Combined())
	u := strings.ToLower(c.URL)

	bonus := 0
	if l.bonusHosts[candidateHost(c)] {
		bonus += b.Host
	}
	if strings.Contains(u, "104.com.tw/company/") || strings.Contains(u, "104.com.tw/job/") {
		bonus += b.Page104
	}
	if strings.Contains(u, "linkedin.com/company/") && strings.Contains(u, "/jobs") {
		bonus += b.LinkedInCompanyJobs
	}
	if containsAny(text, b.TokenList) {
		bonus += b.Tokens
	}
	return bonus
}

// presort orders candidates by value score plus hiring priority, highest
// first. Ties keep collection order.
func (l *Lexicon) presort(cands []model.Candidate) []model.Candidate {
	type scored struct {
		c     model.Candidate
		score int
	}
	ss := make([]scored, len(cands))
	for i, c := range cands {
		ss[i] = scored{c: c, score: l.ValueScore(c) + l.HiringPriority(c)}
	}
	sort.SliceStable(ss, func(i, j int) bool { return ss[i].score > ss[j].score })

	out := make([]model.Candidate, len(ss))
	for i := range ss {
		out[i] = ss[i].c
	}
	return out
}

func candidateHost(c model.Candidate) string {
	host := c.SourceHost
	if host == "" {
		return search.SourceHost(c.URL)
	}
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
