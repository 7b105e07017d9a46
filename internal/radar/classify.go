package radar

import (
	"math"
	"strings"
	"time"

	"github.com/sells-group/market-radar/internal/model"
)

// classifierRule assigns typ when match reports true. Rules run in order and
// the first match wins.
type classifierRule struct {
	typ   model.SignalType
	match func(text, url string) bool
}

// Classifier assigns a signal category to candidate text.
type Classifier struct {
	lex   *Lexicon
	rules []classifierRule
}

// NewClassifier builds the ordered rule chain from the lexicon. URL shape is
// checked before any keyword so a capex word inside a job posting stays HIRING.
func NewClassifier(lex *Lexicon) *Classifier {
	terms := lex.Classifier
	return &Classifier{
		lex: lex,
		rules: []classifierRule{
			{typ: model.SignalHiring, match: func(_, url string) bool {
				return containsAny(url, terms.HiringURLMarkers) || IsHiringCompanyPageURL(url)
			}},
			{typ: model.SignalCapex, match: func(text, _ string) bool {
				return containsAny(text, terms.Capex)
			}},
			{typ: model.SignalNPI, match: func(text, _ string) bool {
				return containsAny(text, terms.NPI)
			}},
			{typ: model.SignalHiring, match: func(text, _ string) bool {
				return containsAny(text, terms.Hiring)
			}},
			{typ: model.SignalSupplyChain, match: func(text, _ string) bool {
				return containsAny(text, terms.SupplyChain)
			}},
		},
	}
}

// Classify returns the category of text found at url. Both are compared
// case-insensitively. Text with no recognised marker is EXPANSION.
func (c *Classifier) Classify(text, url string) model.SignalType {
	text = strings.ToLower(text)
	url = strings.ToLower(url)
	for _, r := range c.rules {
		if r.match(text, url) {
			return r.typ
		}
	}
	return model.SignalExpansion
}

// Strength returns the category weight decayed by the age of published at
// now. Without a published date the weight is returned unchanged.
func (c *Classifier) Strength(typ model.SignalType, published *time.Time, now time.Time) int {
	weight, ok := c.lex.Strength.Weights[typ]
	if !ok {
		weight = c.lex.Strength.DefaultWeight
	}
	if published == nil {
		return weight
	}

	age := ageDays(*published, now)
	switch {
	case age > 180:
		return min(weight, 60)
	case age > 90:
		return max(weight-15, 30)
	default:
		return weight
	}
}

// ageDays returns whole days elapsed from t to now, rounded down.
func ageDays(t, now time.Time) int {
	return int(math.Floor(now.Sub(t).Hours() / 24))
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
