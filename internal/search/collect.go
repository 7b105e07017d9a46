package search

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-radar/internal/model"
)

// Pool is the merged candidate set for one company.
type Pool struct {
	Candidates []model.Candidate
	Credits    int
	Tokens     int
	Queries    int
	Failed     int
}

// PoolCap is the number of candidates kept for evaluation.
func PoolCap(maxResults, minPool int) int {
	return max(maxResults*4, minPool)
}

// Collect runs queries in order, skipping any that fail, merges hits by URL
// in first-seen order, and keeps the first limit candidates. Only context
// cancellation aborts collection.
func Collect(ctx context.Context, gw Gateway, queries []Query, lookbackDays, limit int) (*Pool, error) {
	pool := &Pool{}
	seen := make(map[string]bool)

	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "search: collect")
		}
		pool.Queries++

		resp, err := gw.Search(ctx, q, lookbackDays)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "search: collect")
			}
			pool.Failed++
			zap.L().Warn("search: query failed, skipping",
				zap.String("label", q.Label),
				zap.Error(err),
			)
			continue
		}

		pool.Credits += resp.Credits
		pool.Tokens += resp.Tokens
		for _, c := range resp.Candidates {
			if c.URL == "" || seen[c.URL] {
				continue
			}
			seen[c.URL] = true
			if q.Fallback {
				c.FallbackUsed = true
			}
			if c.QueryLabel == "" {
				c.QueryLabel = q.Label
			}
			pool.Candidates = append(pool.Candidates, c)
		}
	}

	if limit > 0 && len(pool.Candidates) > limit {
		pool.Candidates = pool.Candidates[:limit]
	}
	return pool, nil
}
