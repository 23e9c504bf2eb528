package predict

import (
	"github.com/newsatlas/hubcrawler/internal/hub"
)

// RegionalStrategy builds composite-hub URLs by joining a parent entity's
// confirmed hub URL with the child (or second) entity's slug. It only fires
// for composite kinds and only when the planner supplies a confirmed parent.
type RegionalStrategy struct{}

// Name implements Strategy.
func (s *RegionalStrategy) Name() hub.Strategy { return hub.StrategyRegional }

const regionalConfidence = 0.45

// Generate joins the parent hub URL with the slug of the entity being
// composed in. For place+topic and cross-place kinds the second entity's
// slug is appended; for hierarchical kinds the child entity itself is the
// one passed as the primary entity.
func (s *RegionalStrategy) Generate(entity hub.Entity, _ string, ctx Context) []hub.Candidate {
	if !ctx.Kind.IsComposite() || ctx.ParentHubURL == "" {
		return nil
	}
	// For hierarchical hubs the primary entity is the child being composed
	// under its parent's URL; for the other composite kinds the second
	// entity is the one appended.
	slug := entity.Slug
	if ctx.Kind != hub.CandidateHierarchicalHub && ctx.SecondEntity != nil {
		slug = ctx.SecondEntity.Slug
	}
	if slug == "" {
		return nil
	}
	return []hub.Candidate{
		baseCandidate(entity, ctx, hub.StrategyRegional, regionalConfidence,
			joinURL(ctx.ParentHubURL, slug)),
	}
}

func joinURL(base, segment string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + "/" + segment
}
