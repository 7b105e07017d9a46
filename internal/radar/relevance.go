package radar

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// IsRelevant reports whether text (usually title, snippet and URL) names the
// company through at least one of the case-folded alias variants.
//
// CJK variants match as raw substrings. A Latin variant that is a single
// token of at most six characters is treated like a ticker and must stand as
// a whole word. Longer Latin names match as a normalized phrase, as a compact
// run of at least eight characters, or when two or more significant tokens
// each appear as whole words.
func IsRelevant(text string, variants []string, lex *Lexicon) bool {
	raw := strings.ToLower(norm.NFKC.String(text))
	normalized := normalizeLatin(raw)
	compact := strings.ReplaceAll(normalized, " ", "")

	for _, variant := range variants {
		candidate := strings.ToLower(strings.TrimSpace(variant))
		if candidate == "" {
			continue
		}

		if hasCJK(candidate) {
			if strings.Contains(raw, candidate) {
				return true
			}
			continue
		}

		tokens := strings.Fields(normalizeLatin(candidate))
		if len(tokens) == 0 {
			continue
		}

		if len(tokens) == 1 && len(tokens[0]) <= 6 {
			if containsWord(raw, tokens[0]) {
				return true
			}
			continue
		}

		phrase := strings.Join(tokens, " ")
		if strings.Contains(normalized, phrase) {
			return true
		}
		if compactPhrase := strings.Join(tokens, ""); len(compactPhrase) >= 8 && strings.Contains(compact, compactPhrase) {
			return true
		}

		var significant []string
		for _, tok := range tokens {
			if len(tok) >= 3 && !lex.stopwords[tok] {
				significant = append(significant, tok)
			}
		}
		if len(significant) >= 2 && allWords(normalized, significant[:min(3, len(significant))]) {
			return true
		}
	}
	return false
}

// normalizeLatin lower-cases s and collapses every run of characters outside
// [a-z0-9] into a single space.
func normalizeLatin(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range strings.ToLower(s) {
		if isLatinAlnum(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// containsWord reports whether tok occurs in text with no ASCII letter or
// digit immediately before or after it.
func containsWord(text, tok string) bool {
	for start := 0; start <= len(text)-len(tok); {
		i := strings.Index(text[start:], tok)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(tok)
		before := i == 0 || !isLatinAlnum(rune(text[i-1]))
		after := end == len(text) || !isLatinAlnum(rune(text[end]))
		if before && after {
			return true
		}
		start = i + 1
	}
	return false
}

func allWords(text string, words []string) bool {
	for _, w := range words {
		if !containsWord(text, w) {
			return false
		}
	}
	return true
}

func isLatinAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// isHan matches the CJK Unified Ideographs block.
func isHan(r rune) bool {
	return r >= 0x4e00 && r <= 0x9fff
}

// isKana matches Hiragana and Katakana.
func isKana(r rune) bool {
	return r >= 0x3040 && r <= 0x30ff
}

func hasCJK(s string) bool {
	return strings.IndexFunc(s, isHan) >= 0
}

func countRunes(s string, pred func(rune) bool) int {
	n := 0
	for _, r := range s {
		if pred(r) {
			n++
		}
	}
	return n
}

// isTokenRune matches ASCII letters, digits and Han characters.
func isTokenRune(r rune) bool {
	if r <= unicode.MaxASCII {
		return isLatinAlnum(unicode.ToLower(r))
	}
	return isHan(r)
}

// hostMatchesAny reports whether host equals, or is a subdomain of, one of
// the domains.
func hostMatchesAny(host string, domains []string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if host == "" {
		return false
	}
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
