package radar

import (
	"slices"
	"strings"

	"github.com/sells-group/market-radar/internal/search"
)

// Query labels, in the order the planner emits them.
const (
	QueryLocalBusiness     = "local_business"
	QueryLocalSegment      = "local_segment"
	QueryBroad             = "broad"
	QueryLocalName         = "local_name"
	QueryHiring            = "hiring"
	QueryHiring104         = "hiring_104"
	QueryHiring104Job      = "hiring_104_job"
	QueryHiringLinkedInJob = "hiring_linkedin_job"
)

var job104Domains = []string{"104.com.tw", "jobs.104.com.tw"}

// PlanQueries builds the ordered search plan for one company. Regions with
// local news sources are searched there first in Chinese; the global query
// then acts as a backstop. Hiring queries always run against job boards.
func PlanQueries(aliases Aliases, keywords []string, region string, maxResults int, lex *Lexicon) []search.Query {
	terms := lex.QueryTerms
	regionName := lex.NormalizeRegion(region)
	profile := lex.Region(regionName)

	company := quoteTerms(aliases.Query)
	keywordClause := quoteTerms(keywords)
	if keywordClause == "" {
		keywordClause = quoteTerms(terms.KeywordFallback)
	}
	signalEN := quoteTerms(terms.SignalEN)
	signalZH := quoteTerms(terms.SignalZH)
	hiringEN := quoteTerms(terms.HiringEN)
	hiringZH := quoteTerms(terms.HiringZH)

	var plan []search.Query
	hasLocal := len(profile.LocalDomains) > 0
	if hasLocal {
		plan = append(plan,
			search.Query{
				Label:          QueryLocalBusiness,
				Text:           and(company, signalZH),
				Topic:          "general",
				IncludeDomains: profile.LocalDomains,
				MaxResults:     max(3, maxResults),
			},
			search.Query{
				Label:          QueryLocalSegment,
				Text:           and(company, keywordClause),
				Topic:          "general",
				IncludeDomains: profile.LocalDomains,
				MaxResults:     max(3, maxResults/2),
			},
		)
	}

	broad := search.Query{
		Label:      QueryBroad,
		Text:       and(company, keywordClause, signalEN+" OR "+signalZH),
		Topic:      "general",
		MaxResults: maxResults,
	}
	lang := profile.Lang
	if lang == "" {
		lang = "en"
	}
	if strings.HasPrefix(lang, "en") {
		broad.Topic = "news"
	}
	if hasLocal {
		broad.MaxResults = max(2, maxResults/2)
		broad.Fallback = true
	}
	plan = append(plan, broad)

	if hasLocal {
		plan = append(plan, search.Query{
			Label:          QueryLocalName,
			Text:           and(company),
			Topic:          "general",
			IncludeDomains: profile.LocalDomains,
			MaxResults:     2,
			Fallback:       true,
		})
	}

	hiringDomains := profile.HiringDomains
	if len(hiringDomains) == 0 {
		hiringDomains = lex.DefaultHiringDomains
	}
	plan = append(plan, search.Query{
		Label:          QueryHiring,
		Text:           and(company, hiringEN+" OR "+hiringZH),
		Topic:          "general",
		IncludeDomains: hiringDomains,
		MaxResults:     max(3, maxResults/2),
	})

	if slices.ContainsFunc(hiringDomains, func(d string) bool { return slices.Contains(job104Domains, d) }) {
		plan = append(plan,
			search.Query{
				Label:          QueryHiring104,
				Text:           and(company, quoteTerms(terms.Hiring104)),
				Topic:          "general",
				IncludeDomains: job104Domains,
				MaxResults:     max(3, maxResults/2),
			},
			search.Query{
				Label:          QueryHiring104Job,
				Text:           and(company, hiringZH+" OR "+hiringEN, "site:104.com.tw/job OR site:jobs.104.com.tw/job"),
				Topic:          "general",
				IncludeDomains: job104Domains,
				MaxResults:     max(4, maxResults),
			},
		)
	}

	plan = append(plan, search.Query{
		Label:          QueryHiringLinkedInJob,
		Text:           and(company, hiringEN+" OR "+hiringZH) + " AND site:linkedin.com/jobs/view",
		Topic:          "general",
		IncludeDomains: []string{"linkedin.com"},
		MaxResults:     max(3, maxResults/2),
	})
	return plan
}

// quoteTerms renders terms as a quoted OR-clause, skipping blanks.
func quoteTerms(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t != "" {
			quoted = append(quoted, `"`+t+`"`)
		}
	}
	return strings.Join(quoted, " OR ")
}

// and parenthesises each clause and joins them with AND.
func and(clauses ...string) string {
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = "(" + c + ")"
	}
	return strings.Join(parts, " AND ")
}
