// Package predict generates candidate hub URLs for entities from partial
// knowledge: learned per-domain templates, gazetteer naming conventions,
// generic fallbacks, and regional composition. All strategies are pure; they
// perform no I/O and mutate nothing.
package predict

import (
	"strings"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Context carries the per-call knowledge a strategy may draw on.
type Context struct {
	// Kind is the candidate kind being predicted.
	Kind hub.CandidateKind
	// Patterns are the learned patterns for (domain, Kind), best first.
	Patterns []hub.LearnedPattern
	// SecondEntity is set for composite kinds (place+topic, place+place).
	SecondEntity *hub.Entity
	// ParentHubURL is the confirmed hub URL of the parent entity, when known.
	ParentHubURL string
}

// Strategy proposes candidate URLs for one entity on one domain.
type Strategy interface {
	Name() hub.Strategy
	Generate(entity hub.Entity, domain string, ctx Context) []hub.Candidate
}

// Library runs strategies in fixed precedence: learned pattern, gazetteer
// composition, generic fallback, regional composition.
type Library struct {
	strategies []Strategy
}

// NewLibrary builds the default strategy chain.
func NewLibrary() *Library {
	return &Library{strategies: []Strategy{
		&LearnedStrategy{MinSuccesses: defaultMinPatternSuccesses},
		&GazetteerStrategy{},
		&FallbackStrategy{},
		&RegionalStrategy{},
	}}
}

// Generate returns candidates ordered by strategy precedence, deduplicated
// by URL (first writer wins, so higher-precedence strategies shadow lower).
func (l *Library) Generate(entity hub.Entity, domain string, ctx Context) []hub.Candidate {
	seen := make(map[string]struct{})
	var out []hub.Candidate
	for _, s := range l.strategies {
		for _, c := range s.Generate(entity, domain, ctx) {
			if c.URL == "" {
				continue
			}
			if _, dup := seen[c.URL]; dup {
				continue
			}
			seen[c.URL] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

const defaultMinPatternSuccesses = 2

// KindForEntity maps an entity kind to the single-entity candidate kind.
func KindForEntity(kind hub.EntityKind) hub.CandidateKind {
	switch kind {
	case hub.KindCountry:
		return hub.CandidateCountryHub
	case hub.KindRegion:
		return hub.CandidateRegionHub
	case hub.KindCity:
		return hub.CandidateCityHub
	case hub.KindTopic:
		return hub.CandidateTopicHub
	default:
		return ""
	}
}

func hubURL(domain string, segments ...string) string {
	var b strings.Builder
	b.WriteString("https://")
	b.WriteString(strings.TrimSuffix(domain, "/"))
	for _, seg := range segments {
		seg = strings.Trim(seg, "/")
		if seg == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(seg)
	}
	return b.String()
}

func baseCandidate(entity hub.Entity, ctx Context, strategy hub.Strategy, confidence float64, url string) hub.Candidate {
	c := hub.Candidate{
		URL:        url,
		EntityID:   entity.ID,
		Kind:       ctx.Kind,
		Strategy:   strategy,
		Confidence: confidence,
		Bonus:      hub.BonusDiscovery,
		Importance: entity.Importance,
	}
	if ctx.SecondEntity != nil {
		c.SecondEntityID = ctx.SecondEntity.ID
	}
	return c
}
