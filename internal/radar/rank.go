package radar

import (
	"sort"
	"time"

	"github.com/sells-group/market-radar/internal/model"
)

// RecencyScore is 180 minus the age in days of the source publication,
// floored at zero. Signals without a published date score zero.
func RecencyScore(s model.Signal, now time.Time) int {
	if s.SourcePublishedAt == nil {
		return 0
	}
	return max(0, 180-ageDays(*s.SourcePublishedAt, now))
}

// Rank orders signals by strength, then recency, then fetch time, all
// descending. The sort is stable and the input slice is not modified.
func Rank(signals []model.Signal, now time.Time) []model.Signal {
	out := make([]model.Signal, len(signals))
	copy(out, signals)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Strength != b.Strength {
			return a.Strength > b.Strength
		}
		if ra, rb := RecencyScore(a, now), RecencyScore(b, now); ra != rb {
			return ra > rb
		}
		return a.FetchedAt.After(b.FetchedAt)
	})
	return out
}

// TopN returns at most n of the highest ranked signals.
func TopN(signals []model.Signal, n int, now time.Time) []model.Signal {
	ranked := Rank(signals, now)
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
