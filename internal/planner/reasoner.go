package planner

import (
	"sort"
	"sync"
	"time"

	"github.com/newsatlas/hubcrawler/internal/hub"
	"github.com/newsatlas/hubcrawler/internal/predict"
)

// Reasoner is a planning plugin. Each registered reasoner gets the cycle's
// blackboard in turn and may add or annotate proposals. Reasoners must not
// retain the blackboard past the call.
type Reasoner interface {
	Name() string
	Contribute(b *Blackboard)
}

// GazetteerReasoner proposes discovery candidates for the most important
// entities that have no confirmed hub yet, independent of the per-kind gap
// analyzers. Overlap with gap proposals is resolved by the planner's
// dedup pass.
type GazetteerReasoner struct {
	gaz     hub.Gazetteer
	library *predict.Library
	// MaxEntities bounds how many uncovered entities are expanded per
	// cycle.
	MaxEntities int
}

// NewGazetteerReasoner builds the reasoner over the run's gazetteer.
func NewGazetteerReasoner(gaz hub.Gazetteer, library *predict.Library) *GazetteerReasoner {
	return &GazetteerReasoner{gaz: gaz, library: library, MaxEntities: 10}
}

// Name implements Reasoner.
func (r *GazetteerReasoner) Name() string { return "gazetteer" }

// Contribute implements Reasoner.
func (r *GazetteerReasoner) Contribute(b *Blackboard) {
	kinds := []hub.EntityKind{hub.KindCountry, hub.KindTopic}
	var uncovered []hub.Entity
	for _, kind := range kinds {
		for _, e := range r.gaz.ListEntities(kind, []string{b.Domain}) {
			if _, ok := b.Confirmed[e.ID]; ok {
				continue
			}
			uncovered = append(uncovered, e)
		}
	}
	sort.SliceStable(uncovered, func(i, j int) bool {
		if uncovered[i].Importance != uncovered[j].Importance {
			return uncovered[i].Importance > uncovered[j].Importance
		}
		return uncovered[i].ID < uncovered[j].ID
	})
	if r.MaxEntities > 0 && len(uncovered) > r.MaxEntities {
		uncovered = uncovered[:r.MaxEntities]
	}
	for _, e := range uncovered {
		ctx := predict.Context{Kind: predict.KindForEntity(e.Kind)}
		for _, c := range r.library.Generate(e, b.Domain, ctx) {
			c.Bonus = hub.BonusDiscovery
			c.Importance = e.Importance
			b.Propose(c)
		}
	}
}

// CostEstimator annotates proposals with an estimated fetch cost derived
// from observed fetch durations per domain. It runs after the proposing
// reasoners so every candidate carries an estimate before scoring.
type CostEstimator struct {
	mu      sync.Mutex
	avg     map[string]time.Duration
	samples map[string]int

	// Default is used for domains with no observed fetches yet.
	Default time.Duration
}

// NewCostEstimator builds an estimator with a 300ms default.
func NewCostEstimator() *CostEstimator {
	return &CostEstimator{
		avg:     make(map[string]time.Duration),
		samples: make(map[string]int),
		Default: 300 * time.Millisecond,
	}
}

// Name implements Reasoner.
func (e *CostEstimator) Name() string { return "cost-estimator" }

// Contribute implements Reasoner: fills EstimatedCost on every proposal
// that does not already carry one.
func (e *CostEstimator) Contribute(b *Blackboard) {
	est := e.Estimate(b.Domain)
	b.Annotate(func(c *hub.Candidate) {
		if c.EstimatedCost <= 0 {
			c.EstimatedCost = est
		}
	})
}

// Estimate returns the current per-fetch cost estimate for a domain.
func (e *CostEstimator) Estimate(domain string) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if avg, ok := e.avg[domain]; ok {
		return avg
	}
	return e.Default
}

// RecordSample folds an observed fetch duration into the domain's running
// average. Called from the outcome-processing path.
func (e *CostEstimator) RecordSample(domain string, d time.Duration) {
	if d <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.samples[domain] + 1
	e.samples[domain] = n
	e.avg[domain] += (d - e.avg[domain]) / time.Duration(n)
}
