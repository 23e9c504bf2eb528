package pattern

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Learner turns confirmed hub outcomes into learned URL templates. It is
// mutated only from the controller's single outcome-processing path, so it
// needs no internal locking.
type Learner struct {
	store  hub.Store
	clock  hub.Clock
	logger *zap.Logger

	patterns map[string]*hub.LearnedPattern
	observed map[string]struct{}
	rejected map[string]int
	primed   map[string]struct{}
}

// NewLearner builds a Learner backed by the given store.
func NewLearner(store hub.Store, clock hub.Clock, logger *zap.Logger) *Learner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Learner{
		store:    store,
		clock:    clock,
		logger:   logger,
		patterns: make(map[string]*hub.LearnedPattern),
		observed: make(map[string]struct{}),
		rejected: make(map[string]int),
		primed:   make(map[string]struct{}),
	}
}

// Observation is what the controller feeds back after validation.
type Observation struct {
	Domain  string
	Kind    hub.CandidateKind
	URL     string
	Entity  hub.Entity
	Verdict hub.Verdict
	// Yield is the number of article links discovered on the page.
	Yield int
}

// Observe records a validated fetch outcome. On a confirmed outcome the
// URL's template is extracted and the matching pattern created or
// reinforced; the updated pattern is returned with learned=true. Rejected
// outcomes are tallied for telemetry but never weaken existing patterns.
// Re-observing the same (domain, url) is a no-op, so state converges no
// matter how many times an outcome is delivered.
func (l *Learner) Observe(ctx context.Context, obs Observation) (hub.LearnedPattern, bool, error) {
	if obs.Verdict != hub.VerdictConfirmed {
		if obs.Verdict == hub.VerdictRejected {
			l.rejected[obs.Domain]++
		}
		return hub.LearnedPattern{}, false, nil
	}

	seenKey := obs.Domain + "|" + obs.URL
	if _, dup := l.observed[seenKey]; dup {
		if p, ok := l.lookupByURL(obs); ok {
			return p, false, nil
		}
		return hub.LearnedPattern{}, false, nil
	}

	template, ok := ExtractTemplate(obs.URL, obs.Entity)
	if !ok {
		l.logger.Debug("no entity segment in confirmed hub url",
			zap.String("domain", obs.Domain),
			zap.String("url", obs.URL),
			zap.String("entity", obs.Entity.ID),
		)
		return hub.LearnedPattern{}, false, nil
	}
	l.observed[seenKey] = struct{}{}

	key := patternKey(obs.Domain, obs.Kind, template)
	p, exists := l.patterns[key]
	if !exists {
		p = &hub.LearnedPattern{
			Domain:   obs.Domain,
			Kind:     obs.Kind,
			Template: template,
		}
		l.patterns[key] = p
	}
	p.Successes++
	p.AvgYield += (float64(obs.Yield) - p.AvgYield) / float64(p.Successes)
	if l.clock != nil {
		p.UpdatedAt = l.clock.Now()
	}

	if err := l.store.PutLearnedPattern(ctx, *p); err != nil {
		return *p, true, fmt.Errorf("persist learned pattern: %w", err)
	}
	return *p, true, nil
}

// BestPatterns returns the patterns for (domain, kind) ranked by average
// yield, then success count, then template for determinism. Higher-yield
// templates supersede lower ones purely by outranking them here.
func (l *Learner) BestPatterns(ctx context.Context, domain string, kind hub.CandidateKind) ([]hub.LearnedPattern, error) {
	if err := l.prime(ctx, domain, kind); err != nil {
		return nil, err
	}
	var out []hub.LearnedPattern
	prefix := domain + "|" + string(kind) + "|"
	for key, p := range l.patterns {
		if strings.HasPrefix(key, prefix) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgYield != out[j].AvgYield {
			return out[i].AvgYield > out[j].AvgYield
		}
		if out[i].Successes != out[j].Successes {
			return out[i].Successes > out[j].Successes
		}
		return out[i].Template < out[j].Template
	})
	return out, nil
}

// Rejections reports how many rejected outcomes a domain has accumulated.
func (l *Learner) Rejections(domain string) int {
	return l.rejected[domain]
}

// prime loads previously persisted patterns for (domain, kind) once.
func (l *Learner) prime(ctx context.Context, domain string, kind hub.CandidateKind) error {
	primeKey := domain + "|" + string(kind)
	if _, done := l.primed[primeKey]; done {
		return nil
	}
	l.primed[primeKey] = struct{}{}
	stored, err := l.store.GetLearnedPatterns(ctx, domain, kind)
	if err != nil {
		return fmt.Errorf("load learned patterns: %w", err)
	}
	for _, p := range stored {
		key := patternKey(p.Domain, p.Kind, p.Template)
		if _, exists := l.patterns[key]; !exists {
			loaded := p
			l.patterns[key] = &loaded
		}
	}
	return nil
}

func (l *Learner) lookupByURL(obs Observation) (hub.LearnedPattern, bool) {
	template, ok := ExtractTemplate(obs.URL, obs.Entity)
	if !ok {
		return hub.LearnedPattern{}, false
	}
	if p, exists := l.patterns[patternKey(obs.Domain, obs.Kind, template)]; exists {
		return *p, true
	}
	return hub.LearnedPattern{}, false
}

func patternKey(domain string, kind hub.CandidateKind, template string) string {
	return domain + "|" + string(kind) + "|" + template
}
