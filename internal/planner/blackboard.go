// Package planner turns proposals from independent reasoners and gap
// analyzers into a single ranked batch of work per scheduling cycle.
package planner

import (
	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Blackboard is the per-cycle collection of proposals. It is created fresh
// for every planning cycle, passed to each reasoner in turn, and discarded
// once the cycle's batch has been ranked; nothing on it survives between
// cycles.
type Blackboard struct {
	// Domain is the site being planned for.
	Domain string
	// Mode is the scoring mode in effect for this cycle.
	Mode hub.Mode
	// Confirmed holds the coverage snapshot keys already satisfied.
	Confirmed map[string]struct{}
	// Progress is a read-only copy of the run counters.
	Progress hub.Progress

	proposals []proposal
	seq       int
}

type proposal struct {
	cand hub.Candidate
	seq  int
}

// NewBlackboard builds the value object for one cycle.
func NewBlackboard(domain string, mode hub.Mode, confirmed map[string]struct{}, progress hub.Progress) *Blackboard {
	if confirmed == nil {
		confirmed = make(map[string]struct{})
	}
	return &Blackboard{Domain: domain, Mode: mode, Confirmed: confirmed, Progress: progress}
}

// Propose records a candidate onto the blackboard, preserving insertion
// order for stable tie-breaking later.
func (b *Blackboard) Propose(cands ...hub.Candidate) {
	for _, c := range cands {
		if c.URL == "" {
			continue
		}
		b.proposals = append(b.proposals, proposal{cand: c, seq: b.seq})
		b.seq++
	}
}

// Annotate lets a reasoner rewrite fields on every proposal collected so
// far; the cost estimator uses it to fill in missing cost estimates.
func (b *Blackboard) Annotate(fn func(c *hub.Candidate)) {
	for i := range b.proposals {
		fn(&b.proposals[i].cand)
	}
}

// Len reports the number of proposals collected so far.
func (b *Blackboard) Len() int { return len(b.proposals) }

// truncate drops every proposal recorded after position n.
func (b *Blackboard) truncate(n int) {
	if n >= 0 && n < len(b.proposals) {
		b.proposals = b.proposals[:n]
	}
}
