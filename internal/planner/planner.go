package planner

import (
	"sort"

	"go.uber.org/zap"

	"github.com/newsatlas/hubcrawler/internal/gaps"
	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Config tunes a Planner.
type Config struct {
	// TopN bounds the batch size returned per cycle (default 100).
	TopN int
}

const defaultTopN = 100

// Planner runs the scheduling cycle: reasoners and gap analyzers write
// proposals onto a fresh blackboard, the planner dedupes and scores them,
// and the best N come back as the next batch of work.
type Planner struct {
	cfg       Config
	reasoners []Reasoner
	analyzers []*gaps.Analyzer
	ctxFor    gaps.ContextFunc
	logger    *zap.Logger
}

// Ranked is a scored candidate in its final batch position.
type Ranked struct {
	Candidate hub.Candidate
	Score     float64
}

// New constructs a Planner. Reasoners contribute in registration order, so
// annotating reasoners (the cost estimator) should be registered last.
func New(cfg Config, reasoners []Reasoner, analyzers []*gaps.Analyzer, ctxFor gaps.ContextFunc, logger *zap.Logger) *Planner {
	if cfg.TopN <= 0 {
		cfg.TopN = defaultTopN
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{cfg: cfg, reasoners: reasoners, analyzers: analyzers, ctxFor: ctxFor, logger: logger}
}

// Plan executes one cycle for a domain and returns at most TopN candidates
// in descending score order. Ties keep insertion order, so equal-scored
// proposals come back in the order their proposers ranked them.
func (p *Planner) Plan(domain string, mode hub.Mode, confirmed map[string]struct{}, progress hub.Progress) []Ranked {
	board := NewBlackboard(domain, mode, confirmed, progress)

	for _, a := range p.analyzers {
		found := a.FindGaps(domain, board.Confirmed)
		board.Propose(a.ProposeForGaps(domain, found, p.ctxFor)...)
	}
	for _, r := range p.reasoners {
		p.contribute(r, board)
	}

	merged := dedupe(board.proposals)
	ranked := make([]Ranked, 0, len(merged))
	for _, prop := range merged {
		ranked = append(ranked, Ranked{Candidate: prop.cand, Score: Score(prop.cand, mode)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > p.cfg.TopN {
		ranked = ranked[:p.cfg.TopN]
	}
	return ranked
}

// contribute runs one reasoner, containing any panic so a broken plugin
// costs only its own proposals for this cycle. Proposals the reasoner wrote
// before panicking are rolled back with it.
func (p *Planner) contribute(r Reasoner, board *Blackboard) {
	mark := board.Len()
	defer func() {
		if rec := recover(); rec != nil {
			board.truncate(mark)
			p.logger.Warn("planner reasoner panicked, skipping for this cycle",
				zap.String("reasoner", r.Name()),
				zap.Any("panic", rec),
			)
		}
	}()
	r.Contribute(board)
}

// dedupe collapses proposals sharing a URL, keeping the one with the
// highest raw bonus, or on an exact bonus tie the lower estimated cost.
// Surviving proposals keep the insertion order of their first appearance.
func dedupe(props []proposal) []proposal {
	byURL := make(map[string]int, len(props))
	out := make([]proposal, 0, len(props))
	for _, prop := range props {
		idx, seen := byURL[prop.cand.URL]
		if !seen {
			byURL[prop.cand.URL] = len(out)
			out = append(out, prop)
			continue
		}
		kept := out[idx].cand
		switch {
		case BaseBonus(prop.cand.Bonus) > BaseBonus(kept.Bonus):
			out[idx].cand = prop.cand
		case BaseBonus(prop.cand.Bonus) == BaseBonus(kept.Bonus) &&
			prop.cand.EstimatedCost > 0 &&
			(kept.EstimatedCost <= 0 || prop.cand.EstimatedCost < kept.EstimatedCost):
			out[idx].cand = prop.cand
		}
	}
	return out
}
