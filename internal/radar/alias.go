package radar

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	abbrRe      = regexp.MustCompile(`\(([^)]+)\)`)
	parenPartRe = regexp.MustCompile(`\s*\(.*?\)`)
)

// Aliases holds the name forms of one company.
type Aliases struct {
	// Match holds case-folded variants for relevance checks, in order:
	// local-language form, abbreviation, expanded full name, raw name.
	Match []string
	// Query holds the same forms in original case for search clauses.
	Query []string
}

// ResolveAliases derives every usable name form from a display name such as
// "玉晶光 (GSEO)". Both lists are de-duplicated, keep first-seen order and are
// never empty.
func ResolveAliases(name string, lex *Lexicon) Aliases {
	raw := strings.TrimSpace(norm.NFKC.String(name))

	var abbr, local string
	if m := abbrRe.FindStringSubmatch(raw); m != nil {
		abbr = strings.TrimSpace(m[1])
		local = strings.TrimSpace(parenPartRe.ReplaceAllString(raw, ""))
	}

	lookup := abbr
	if lookup == "" {
		lookup = raw
	}
	expanded, _ := lex.FullName(lookup)

	queryName := abbr
	if queryName == "" {
		queryName = raw
	}

	a := Aliases{
		Match: dedup([]string{local, abbr, expanded, raw}, true),
		Query: dedup([]string{local, queryName, expanded}, false),
	}
	if len(a.Match) == 0 {
		a.Match = []string{strings.ToLower(raw)}
	}
	if len(a.Query) == 0 {
		a.Query = []string{raw}
	}
	return a
}

// dedup drops empty and case-insensitively repeated values, lower-casing the
// survivors when lower is set.
func dedup(values []string, lower bool) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if lower {
			v = key
		}
		out = append(out, v)
	}
	return out
}
