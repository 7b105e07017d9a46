package radar

import (
	"strings"
	"time"

	"github.com/sells-group/market-radar/internal/model"
	"github.com/sells-group/market-radar/internal/search"
)

// Rejection reasons, in the order the rules run.
const (
	ReasonJunkURL                 = "junk_url"
	ReasonSourceNotAllowed        = "source_not_allowed"
	ReasonNotRelevant             = "not_relevant"
	ReasonAggregatorTitleMismatch = "aggregator_title_mismatch"
	ReasonHiringUnverified        = "hiring_unverified"
	ReasonLowValue                = "low_value"
	ReasonStale                   = "stale"
	ReasonSummaryUnusable         = "summary_unusable"
)

// review is one candidate under evaluation together with what the rules
// need to judge it.
type review struct {
	cand    model.Candidate
	typ     model.SignalType
	host    string
	aliases Aliases
	cutoff  time.Time
}

func (r *review) hiring() bool { return r.typ == model.SignalHiring }

// filterRule rejects a candidate with reason when reject reports true.
type filterRule struct {
	reason string
	reject func(r *review) bool
}

// Filter is the ordered relevance and noise rule chain.
type Filter struct {
	lex       *Lexicon
	allowlist []string
	rules     []filterRule
}

// NewFilter builds the rule chain. An empty allow-list admits every host.
func NewFilter(lex *Lexicon, allowlist []string) *Filter {
	f := &Filter{lex: lex, allowlist: allowlist}
	f.rules = []filterRule{
		{ReasonJunkURL, f.isJunkURL},
		{ReasonSourceNotAllowed, f.isSourceNotAllowed},
		{ReasonNotRelevant, f.isNotRelevant},
		{ReasonAggregatorTitleMismatch, f.isAggregatorTitleMismatch},
		{ReasonHiringUnverified, f.isHiringUnverified},
		{ReasonLowValue, f.isLowValue},
		{ReasonStale, f.isStale},
	}
	return f
}

// Check runs the rules in order and returns the first rejection reason, or
// "" when the candidate passes. cutoff is the oldest acceptable published
// date; candidates without one are never stale.
func (f *Filter) Check(c model.Candidate, typ model.SignalType, aliases Aliases, cutoff time.Time) string {
	r := &review{
		cand:    c,
		typ:     typ,
		host:    candidateHost(c),
		aliases: aliases,
		cutoff:  cutoff,
	}
	for _, rule := range f.rules {
		if rule.reject(r) {
			return rule.reason
		}
	}
	return ""
}

func (f *Filter) isJunkURL(r *review) bool {
	path := strings.ToLower(search.URLPath(r.cand.URL))
	return containsAny(path, f.lex.JunkPathSegments)
}

func (f *Filter) trustedHiring(r *review) bool {
	return r.hiring() && f.lex.IsTrustedHiringHost(r.host)
}

func (f *Filter) isSourceNotAllowed(r *review) bool {
	if len(f.allowlist) == 0 || hostMatchesAny(r.host, f.allowlist) {
		return false
	}
	return !f.trustedHiring(r)
}

func (f *Filter) isNotRelevant(r *review) bool {
	text := r.cand.Combined() + " " + r.cand.URL
	return !IsRelevant(text, r.aliases.Match, f.lex)
}

// Company listing pages carry "related companies" snippets, so the title
// alone must name the target.
func (f *Filter) isAggregatorTitleMismatch(r *review) bool {
	if !r.hiring() || !IsHiringCompanyPageURL(r.cand.URL) {
		return false
	}
	return !IsRelevant(r.cand.Title, r.aliases.Match, f.lex)
}

func (f *Filter) isHiringUnverified(r *review) bool {
	return r.hiring() && !f.lex.HasHiringDetail(r.cand.Title, r.cand.Snippet, r.cand.URL)
}

func (f *Filter) isLowValue(r *review) bool {
	if f.trustedHiring(r) {
		return false
	}
	text := r.cand.Combined()
	for _, re := range f.lex.lowValueText {
		if re.MatchString(text) {
			return true
		}
	}
	for _, re := range f.lex.lowValueURL {
		if re.MatchString(r.cand.URL) {
			return true
		}
	}
	return false
}

func (f *Filter) isStale(r *review) bool {
	return r.cand.PublishedAt != nil && r.cand.PublishedAt.Before(r.cutoff)
}
