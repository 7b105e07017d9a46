package radar

import (
	"strings"
	"unicode/utf8"
)

const summaryTrimSet = " -|,.;"

// CleanSummary strips page chrome from text and keeps the first two
// informative sentence-like chunks, truncated to the lexicon's limit.
func (l *Lexicon) CleanSummary(text string) string {
	if loc := l.sidebarCutoff.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	cleaned := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	for _, re := range l.noise {
		cleaned = re.ReplaceAllString(cleaned, " ")
	}
	cleaned = strings.Trim(whitespaceRe.ReplaceAllString(cleaned, " "), summaryTrimSet)
	if cleaned == "" {
		return ""
	}

	chunks := splitSentences(cleaned)
	var informative []string
	for _, c := range chunks {
		if l.isInformative(c) {
			informative = append(informative, c)
		}
	}
	if len(informative) == 0 {
		informative = chunks
	}
	summary := strings.TrimSpace(strings.Join(informative[:min(2, len(informative))], " "))

	maxLen := l.Summary.MaxLen
	if utf8.RuneCountInString(summary) > maxLen {
		summary = strings.TrimRight(truncateRunes(summary, maxLen-1), " \t\n") + "…"
	}
	return summary
}

// isInformative rejects boilerplate, short fragments and ticker scrolls.
func (l *Lexicon) isInformative(chunk string) bool {
	c := strings.Trim(chunk, summaryTrimSet)
	if c == "" {
		return false
	}
	if l.boilerplate[strings.ToLower(c)] {
		return false
	}
	if countRunes(c, isTokenRune) < 8 {
		return false
	}
	if len(l.ticker.FindAllStringIndex(c, 2)) >= 2 {
		return false
	}
	// Long Han-heavy runs without sentence punctuation are scrolling
	// company-name tickers.
	if n := utf8.RuneCountInString(c); n > 50 {
		if float64(countRunes(c, isHan))/float64(n) > 0.4 && !strings.ContainsAny(c, "，。；：") {
			return false
		}
	}
	return true
}

// splitSentences splits after '.', '!' or '?' when whitespace follows.
func splitSentences(s string) []string {
	var out []string
	start := 0
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && isSpace(runes[j]) {
			j++
		}
		if j == i+1 {
			continue
		}
		out = append(out, string(runes[start:i+1]))
		start = j
		i = j - 1
	}
	return append(out, string(runes[start:]))
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

// IsSummaryUsable applies the acceptance gate for non-hiring summaries.
// Han-dense text carries more per character, so its threshold is lower.
func IsSummaryUsable(summary string) bool {
	return usable(summary, 8, 20, 40)
}

// IsHiringSummaryUsable applies the looser gate for hiring summaries.
func IsHiringSummaryUsable(summary string) bool {
	return usable(summary, 4, 12, 24)
}

func usable(summary string, hanThreshold, denseMin, sparseMin int) bool {
	if summary == "" {
		return false
	}
	n := utf8.RuneCountInString(summary)
	if countRunes(summary, isHan) >= hanThreshold {
		return n >= denseMin
	}
	return n >= sparseMin
}

// IsLatinDominant reports whether fewer than 15% of the runes in text are Han
// or kana, which marks a summary for translation.
func IsLatinDominant(text string) bool {
	if text == "" {
		return false
	}
	cjk := countRunes(text, func(r rune) bool { return isHan(r) || isKana(r) })
	return float64(cjk)/float64(utf8.RuneCountInString(text)) < 0.15
}
