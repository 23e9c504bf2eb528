// Package memory provides an in-memory Store for development and tests.
package memory

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Store keeps hub records, learned patterns, and coverage in maps. It is
// safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	records  map[string]hub.HubRecord
	patterns map[string]hub.LearnedPattern
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		records:  make(map[string]hub.HubRecord),
		patterns: make(map[string]hub.LearnedPattern),
	}
}

// GetHubRecord returns the record for a URL, or (nil, nil) when absent.
func (s *Store) GetHubRecord(_ context.Context, url string) (*hub.HubRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[url]; ok {
		cp := rec
		cp.ArticleURLs = append([]string(nil), rec.ArticleURLs...)
		return &cp, nil
	}
	return nil, nil
}

// GetConfirmedHub returns the confirmed single-entity record for entityID on
// domain, preferring the most recent visit and breaking ties by URL so the
// answer is stable. Returns (nil, nil) when the entity has no confirmed hub.
func (s *Store) GetConfirmedHub(_ context.Context, domain, entityID string) (*hub.HubRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *hub.HubRecord
	for _, rec := range s.records {
		if rec.Verdict != hub.VerdictConfirmed || rec.EntityID != entityID || rec.SecondEntityID != "" {
			continue
		}
		if !hostMatches(rec.URL, domain) {
			continue
		}
		if best == nil || rec.VisitedAt.After(best.VisitedAt) ||
			(rec.VisitedAt.Equal(best.VisitedAt) && rec.URL < best.URL) {
			cp := rec
			best = &cp
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	cp.ArticleURLs = append([]string(nil), best.ArticleURLs...)
	return &cp, nil
}

// PutHubRecord inserts or replaces the record keyed by URL. Article URLs are
// merged and deduplicated with any prior visit.
func (s *Store) PutHubRecord(_ context.Context, record hub.HubRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.records[record.URL]; ok {
		record.ArticleURLs = mergeURLs(prev.ArticleURLs, record.ArticleURLs)
	} else {
		record.ArticleURLs = mergeURLs(nil, record.ArticleURLs)
	}
	s.records[record.URL] = record
	return nil
}

// GetLearnedPatterns returns patterns for (domain, kind) sorted by yield desc.
func (s *Store) GetLearnedPatterns(_ context.Context, domain string, kind hub.CandidateKind) ([]hub.LearnedPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []hub.LearnedPattern
	for _, p := range s.patterns {
		if p.Domain == domain && p.Kind == kind {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgYield != out[j].AvgYield {
			return out[i].AvgYield > out[j].AvgYield
		}
		return out[i].Template < out[j].Template
	})
	return out, nil
}

// PutLearnedPattern upserts a pattern keyed by (domain, kind, template).
func (s *Store) PutLearnedPattern(_ context.Context, pattern hub.LearnedPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[pattern.Domain+"|"+string(pattern.Kind)+"|"+pattern.Template] = pattern
	return nil
}

// GetCoverageSnapshot returns the entity IDs with a confirmed hub on domain.
func (s *Store) GetCoverageSnapshot(_ context.Context, domain string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{})
	for _, rec := range s.records {
		if rec.Verdict != hub.VerdictConfirmed {
			continue
		}
		if hostMatches(rec.URL, domain) {
			out[coverageKey(rec)] = struct{}{}
		}
	}
	return out, nil
}

func hostMatches(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func coverageKey(rec hub.HubRecord) string {
	if rec.SecondEntityID != "" {
		return rec.EntityID + "+" + rec.SecondEntityID
	}
	return rec.EntityID
}

func mergeURLs(prev, next []string) []string {
	seen := make(map[string]struct{}, len(prev)+len(next))
	out := make([]string, 0, len(prev)+len(next))
	for _, lists := range [][]string{prev, next} {
		for _, u := range lists {
			if _, dup := seen[u]; dup || u == "" {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}
