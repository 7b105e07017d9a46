package radar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// IsHiringJobURL reports whether url points at a single job posting.
func IsHiringJobURL(url string) bool {
	u := strings.ToLower(url)
	return strings.Contains(u, "104.com.tw/job/") || strings.Contains(u, "linkedin.com/jobs/view/")
}

// IsHiringCompanyPageURL reports whether url is a company-level job listing
// rather than a single posting.
func IsHiringCompanyPageURL(url string) bool {
	u := strings.ToLower(url)
	if strings.Contains(u, "104.com.tw/company/") {
		return true
	}
	return strings.Contains(u, "linkedin.com/company/") && strings.Contains(u, "/jobs")
}

// OpeningsCount extracts an explicit openings count such as "工作機會(12)"
// or "35 jobs". The second result is false when no count is present.
func (l *Lexicon) OpeningsCount(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	for _, re := range l.openings {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 0 {
			continue
		}
		return n, true
	}
	return 0, false
}

// statesNoOpenings reports an explicit "no openings" statement.
func (l *Lexicon) statesNoOpenings(text string) bool {
	for _, re := range l.noOpenings {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// hasOpeningsSignal reports a positive openings count or an active-hiring
// phrase, unless the text states there are no openings.
func (l *Lexicon) hasOpeningsSignal(text string) bool {
	lowered := strings.ToLower(text)
	if l.statesNoOpenings(lowered) {
		return false
	}
	if n, ok := l.OpeningsCount(text); ok && n > 0 {
		return true
	}
	return containsAny(lowered, l.Hiring.ActiveTerms)
}

// HasHiringDetail decides whether a HIRING candidate carries real hiring
// evidence. An explicit "no openings" statement always rejects it.
func (l *Lexicon) HasHiringDetail(title, snippet, url string) bool {
	combined := strings.TrimSpace(title + " " + snippet)
	lowered := strings.ToLower(combined)
	if l.statesNoOpenings(lowered) {
		return false
	}
	if IsHiringJobURL(url) || l.hasOpeningsSignal(combined) {
		return true
	}

	hasDetail := containsAny(lowered, l.Hiring.DetailTerms)
	if hasDetail && containsAny(lowered, l.Hiring.RoleTerms) {
		return true
	}
	return IsHiringCompanyPageURL(url) && hasDetail && containsAny(lowered, l.Hiring.CompanyPageTerms)
}

// JDSignals are the labelled findings pulled from a job description.
type JDSignals struct {
	Keywords         []string
	PainPoints       []string
	ExpansionSignals []string
}

// ExtractJDSignals scans a job description against the pain-point and
// expansion maps. Keywords holds up to three matched fragments.
func (l *Lexicon) ExtractJDSignals(jd string) JDSignals {
	var s JDSignals
	for _, p := range l.PainPoints {
		m := p.re.FindString(jd)
		if m == "" {
			continue
		}
		s.PainPoints = append(s.PainPoints, p.Label)
		if len(s.Keywords) < 3 {
			s.Keywords = append(s.Keywords, truncateRunes(m, 20))
		}
	}
	for _, p := range l.ExpansionSignals {
		if p.re.MatchString(jd) {
			s.ExpansionSignals = append(s.ExpansionSignals, p.Label)
		}
	}
	return s
}

// BuildHiringSummary renders the summary for a HIRING candidate. A fetched
// job description takes precedence; otherwise the listing excerpt, openings
// count or active-hiring phrase is used before the generic cleaner.
func (l *Lexicon) BuildHiringSummary(title, snippet, url, jd string) string {
	t := l.Templates
	combined := title + " " + snippet

	if jd != "" {
		sig := l.ExtractJDSignals(jd)
		base := l.CleanSummary(strings.TrimSpace(title + ". " + snippet))
		if base == "" {
			base = title
		}
		summary := fmt.Sprintf(t.JDSummary,
			base,
			l.joinOrEmpty(sig.Keywords, 3),
			l.joinOrEmpty(sig.PainPoints, 3),
			l.joinOrEmpty(sig.ExpansionSignals, 2),
		)
		return truncateRunes(summary, l.Summary.HiringMaxLen)
	}

	if m := l.jobListing.FindStringSubmatch(strings.TrimSpace(snippet)); m != nil {
		jobs := strings.Trim(whitespaceRe.ReplaceAllString(m[1], " "), "。;； ")
		if jobs != "" {
			return fmt.Sprintf(t.JobListing, truncateRunes(jobs, l.Summary.HiringMaxLen))
		}
	}

	if n, ok := l.OpeningsCount(combined); ok {
		lowerURL := strings.ToLower(url)
		switch {
		case n == 0:
			return t.NoOpenings
		case strings.Contains(lowerURL, "104.com.tw"):
			return fmt.Sprintf(t.Openings104, n)
		case strings.Contains(lowerURL, "linkedin.com"):
			return fmt.Sprintf(t.OpeningsLinkedIn, n)
		default:
			return fmt.Sprintf(t.OpeningsGeneric, n)
		}
	}

	if containsAny(strings.ToLower(combined), l.Hiring.ActiveTerms) {
		return t.ActiveHiring
	}
	return l.CleanSummary(strings.TrimSpace(title + ". " + snippet))
}

func (l *Lexicon) joinOrEmpty(items []string, limit int) string {
	if len(items) == 0 {
		return l.Templates.EmptyMarker
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return strings.Join(items, l.Templates.ListSeparator)
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
