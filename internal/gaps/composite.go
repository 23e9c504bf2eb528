package gaps

import (
	"github.com/newsatlas/hubcrawler/internal/hub"
)

// pairGaps combines the top entities of two kinds into missing pairs. The
// first entity must already have a confirmed hub (composition needs a parent
// URL to build on); when unordered is set both halves must be confirmed and
// pairs are canonicalized so (a,b) and (b,a) are the same gap.
func (a *Analyzer) pairGaps(firstKind, secondKind hub.EntityKind, confirmed map[string]struct{}, requireFirst, unordered bool) []Gap {
	firsts := topN(a.entities(firstKind), a.opts.MaxPairSide)
	seconds := topN(a.entities(secondKind), a.opts.MaxPairSide)

	seen := make(map[string]struct{})
	var gaps []Gap
	for _, f := range firsts {
		if requireFirst {
			if _, ok := confirmed[f.ID]; !ok {
				continue
			}
		}
		for _, s := range seconds {
			if s.ID == f.ID {
				continue
			}
			first, second := f, s
			if unordered {
				if _, ok := confirmed[s.ID]; !ok {
					continue
				}
				if second.ID < first.ID {
					first, second = second, first
				}
			}
			gap := Gap{Kind: a.kind, Entity: first, Second: &second}
			if _, dup := seen[gap.Key()]; dup {
				continue
			}
			if _, covered := confirmed[gap.Key()]; covered {
				continue
			}
			seen[gap.Key()] = struct{}{}
			gaps = append(gaps, gap)
		}
	}
	return gaps
}

// childGaps finds regions and cities whose parent has a confirmed hub but
// which themselves lack one under the parent.
func (a *Analyzer) childGaps(confirmed map[string]struct{}) []Gap {
	var gaps []Gap
	for _, kind := range []hub.EntityKind{hub.KindRegion, hub.KindCity} {
		for _, child := range a.entities(kind) {
			if child.ParentID == "" {
				continue
			}
			if _, parentCovered := confirmed[child.ParentID]; !parentCovered {
				continue
			}
			parent, ok := a.gaz.Entity(child.ParentID)
			if !ok {
				continue
			}
			p := parent
			gap := Gap{Kind: a.kind, Entity: child, Second: &p}
			if _, covered := confirmed[gap.Key()]; covered {
				continue
			}
			gaps = append(gaps, gap)
		}
	}
	return gaps
}

func topN(entities []hub.Entity, n int) []hub.Entity {
	if len(entities) <= n {
		return entities
	}
	return entities[:n]
}
