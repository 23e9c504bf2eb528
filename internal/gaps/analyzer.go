// Package gaps compares confirmed hub coverage against what the gazetteer
// says should exist, and turns the missing set into ranked candidates.
package gaps

import (
	"sort"

	"github.com/newsatlas/hubcrawler/internal/gazetteer"
	"github.com/newsatlas/hubcrawler/internal/hub"
	"github.com/newsatlas/hubcrawler/internal/predict"
)

// Gap is an entity (or entity pair) with no confirmed hub yet.
type Gap struct {
	Kind   hub.CandidateKind
	Entity hub.Entity
	Second *hub.Entity
}

// Key is the coverage key the gap would close.
func (g Gap) Key() string {
	if g.Second != nil {
		return g.Entity.ID + "+" + g.Second.ID
	}
	return g.Entity.ID
}

// Importance ranks the gap for ordering; pairs rank by their weaker half so
// a marginal pairing never outranks a missing major hub.
func (g Gap) Importance() int {
	if g.Second == nil {
		return g.Entity.Importance
	}
	if g.Second.Importance < g.Entity.Importance {
		return g.Second.Importance
	}
	return g.Entity.Importance
}

// ContextFunc supplies the prediction context for a gap: learned patterns
// for the domain and, for composite kinds, the confirmed parent hub URL.
type ContextFunc func(gap Gap) predict.Context

// Options bound analyzer output.
type Options struct {
	// MaxCandidatesPerCycle caps ProposeForGaps output (default 50).
	MaxCandidatesPerCycle int
	// MaxPairSide bounds how many entities of each side composite analyzers
	// combine (default 5).
	MaxPairSide int
	// DomainHints narrow the gazetteer listing for the domain.
	DomainHints []string
}

func (o Options) withDefaults() Options {
	if o.MaxCandidatesPerCycle <= 0 {
		o.MaxCandidatesPerCycle = 50
	}
	if o.MaxPairSide <= 0 {
		o.MaxPairSide = 5
	}
	return o
}

// Analyzer finds and proposes for the gaps of a single candidate kind.
type Analyzer struct {
	kind hub.CandidateKind
	gaz  hub.Gazetteer
	lib  *predict.Library
	opts Options
}

// NewAnalyzer builds an analyzer for one candidate kind.
func NewAnalyzer(kind hub.CandidateKind, gaz hub.Gazetteer, lib *predict.Library, opts Options) *Analyzer {
	return &Analyzer{kind: kind, gaz: gaz, lib: lib, opts: opts.withDefaults()}
}

// Kind returns the candidate kind this analyzer covers.
func (a *Analyzer) Kind() hub.CandidateKind { return a.kind }

// FindGaps returns the entities (or pairs) of this analyzer's kind that lack
// a confirmed hub on the domain, ordered by importance descending with ties
// broken by coverage key for determinism.
func (a *Analyzer) FindGaps(domain string, confirmed map[string]struct{}) []Gap {
	var gaps []Gap
	switch a.kind {
	case hub.CandidatePlaceTopicHub:
		gaps = a.pairGaps(hub.KindCountry, hub.KindTopic, confirmed, true, false)
	case hub.CandidateHierarchicalHub:
		gaps = a.childGaps(confirmed)
	case hub.CandidateCrossPlaceHub:
		gaps = a.pairGaps(hub.KindCountry, hub.KindCountry, confirmed, true, true)
	default:
		gaps = a.singleGaps(confirmed)
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].Importance() != gaps[j].Importance() {
			return gaps[i].Importance() > gaps[j].Importance()
		}
		return gaps[i].Key() < gaps[j].Key()
	})
	return gaps
}

// ProposeForGaps turns gaps into candidates via the prediction library,
// capped per cycle to bound frontier growth.
func (a *Analyzer) ProposeForGaps(domain string, gaps []Gap, ctxFor ContextFunc) []hub.Candidate {
	var out []hub.Candidate
	for _, gap := range gaps {
		if len(out) >= a.opts.MaxCandidatesPerCycle {
			break
		}
		ctx := predict.Context{Kind: a.kind, SecondEntity: gap.Second}
		if ctxFor != nil {
			ctx = ctxFor(gap)
			ctx.Kind = a.kind
			ctx.SecondEntity = gap.Second
		}
		for _, c := range a.lib.Generate(gap.Entity, domain, ctx) {
			if len(out) >= a.opts.MaxCandidatesPerCycle {
				break
			}
			c.GapFill = true
			c.Importance = gap.Importance()
			out = append(out, c)
		}
	}
	return out
}

func (a *Analyzer) singleGaps(confirmed map[string]struct{}) []Gap {
	var entityKind hub.EntityKind
	switch a.kind {
	case hub.CandidateCountryHub:
		entityKind = hub.KindCountry
	case hub.CandidateRegionHub:
		entityKind = hub.KindRegion
	case hub.CandidateCityHub:
		entityKind = hub.KindCity
	case hub.CandidateTopicHub:
		entityKind = hub.KindTopic
	default:
		return nil
	}
	var gaps []Gap
	for _, e := range a.entities(entityKind) {
		if _, covered := confirmed[e.ID]; covered {
			continue
		}
		gaps = append(gaps, Gap{Kind: a.kind, Entity: e})
	}
	return gaps
}

// entities lists the gazetteer entities for a kind, falling back to the
// global seed list so a brand-new domain still yields candidates.
func (a *Analyzer) entities(kind hub.EntityKind) []hub.Entity {
	entities := a.gaz.ListEntities(kind, a.opts.DomainHints)
	if len(entities) == 0 {
		entities = gazetteer.SeedEntities(kind)
	}
	return entities
}
