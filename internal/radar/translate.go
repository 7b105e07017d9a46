package radar

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/market-radar/internal/llm"
)

// Generator produces text from a system instruction and user input.
type Generator interface {
	Generate(ctx context.Context, system, user string) (*llm.Result, error)
}

// translateSummary asks gen to translate a Latin-dominant summary. Any error
// or empty reply keeps the original text. The generator result is returned
// for cost accounting and is nil when no call succeeded.
func (s *Scanner) translateSummary(ctx context.Context, summary string) (string, *llm.Result) {
	if s.gen == nil || !IsLatinDominant(summary) {
		return summary, nil
	}
	res, err := s.gen.Generate(ctx, s.lex.TranslationPrompt(s.locale), summary)
	if err != nil {
		zap.L().Debug("radar: summary translation failed", zap.Error(err))
		return summary, nil
	}
	translated := strings.TrimSpace(res.Text)
	if translated == "" {
		return summary, res
	}
	return translated, res
}
