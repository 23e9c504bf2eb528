package predict

import (
	"github.com/newsatlas/hubcrawler/internal/hub"
)

// FallbackStrategy emits generic URL shapes that work on a surprising number
// of news sites when nothing better is known. Confidence is deliberately low.
type FallbackStrategy struct{}

// Name implements Strategy.
func (s *FallbackStrategy) Name() hub.Strategy { return hub.StrategyFallback }

const fallbackConfidence = 0.30

// fallbackPrefixes are joined with the entity slug; the empty prefix yields
// the bare /{slug} shape.
var fallbackPrefixes = []string{"world", "news", "", "tag", "topics"}

// Generate expands the generic shapes with the entity slug.
func (s *FallbackStrategy) Generate(entity hub.Entity, domain string, ctx Context) []hub.Candidate {
	if entity.Slug == "" {
		return nil
	}
	out := make([]hub.Candidate, 0, len(fallbackPrefixes))
	for _, prefix := range fallbackPrefixes {
		out = append(out, baseCandidate(entity, ctx, hub.StrategyFallback, fallbackConfidence,
			hubURL(domain, prefix, entity.Slug)))
	}
	return out
}
