package predict

import (
	"strings"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// SlugPlaceholder is the template hole a learned pattern fills with the
// entity slug.
const SlugPlaceholder = "{slug}"

// LearnedStrategy expands learned per-domain URL templates. It only trusts
// patterns that have succeeded at least MinSuccesses times.
type LearnedStrategy struct {
	MinSuccesses int
}

// Name implements Strategy.
func (s *LearnedStrategy) Name() hub.Strategy { return hub.StrategyLearnedPattern }

// Generate expands each eligible pattern with the entity slug. Confidence
// grows with the pattern's success count, capped; patterns are assumed to
// arrive best-yield first from the store.
func (s *LearnedStrategy) Generate(entity hub.Entity, _ string, ctx Context) []hub.Candidate {
	min := s.MinSuccesses
	if min <= 0 {
		min = defaultMinPatternSuccesses
	}
	var out []hub.Candidate
	for _, p := range ctx.Patterns {
		if p.Successes < min || !strings.Contains(p.Template, SlugPlaceholder) {
			continue
		}
		url := strings.ReplaceAll(p.Template, SlugPlaceholder, entity.Slug)
		out = append(out, baseCandidate(entity, ctx, hub.StrategyLearnedPattern, PatternConfidence(p.Successes), url))
	}
	return out
}

// PatternConfidence is the confidence assigned to a learned-pattern
// prediction. It grows monotonically with successes and is capped so even a
// well-worn template never reads as certain.
func PatternConfidence(successes int) float64 {
	const (
		base    = 0.60
		step    = 0.035
		ceiling = 0.95
	)
	if successes < 0 {
		successes = 0
	}
	c := base + step*float64(successes)
	if c > ceiling {
		return ceiling
	}
	return c
}
