package predict

import (
	"github.com/newsatlas/hubcrawler/internal/hub"
)

// GazetteerStrategy composes URLs from the entity's canonical gazetteer
// naming plus the section prefixes news sites conventionally use for that
// entity kind.
type GazetteerStrategy struct{}

// Name implements Strategy.
func (s *GazetteerStrategy) Name() hub.Strategy { return hub.StrategyGazetteer }

const gazetteerConfidence = 0.55

var sectionPrefixes = map[hub.EntityKind][]string{
	hub.KindCountry: {"world", "news/world", "international"},
	hub.KindRegion:  {"news", "world", "regions"},
	hub.KindCity:    {"news", "local", "city"},
	hub.KindTopic:   {"news", "section", "topics"},
}

// Generate emits one candidate per conventional prefix, slug first, then
// short-code and alias variants for the leading prefix only (aliases are
// speculative enough without multiplying them across every prefix).
func (s *GazetteerStrategy) Generate(entity hub.Entity, domain string, ctx Context) []hub.Candidate {
	prefixes := sectionPrefixes[entity.Kind]
	if len(prefixes) == 0 {
		return nil
	}
	var out []hub.Candidate
	for _, prefix := range prefixes {
		out = append(out, baseCandidate(entity, ctx, hub.StrategyGazetteer, gazetteerConfidence,
			hubURL(domain, prefix, entity.Slug)))
	}
	if entity.ID != entity.Slug {
		out = append(out, baseCandidate(entity, ctx, hub.StrategyGazetteer, gazetteerConfidence,
			hubURL(domain, prefixes[0], entity.ID)))
	}
	for _, alias := range entity.Aliases {
		slug := alias
		if slug == entity.Slug || slug == entity.ID {
			continue
		}
		out = append(out, baseCandidate(entity, ctx, hub.StrategyGazetteer, gazetteerConfidence,
			hubURL(domain, prefixes[0], slug)))
	}
	return out
}
