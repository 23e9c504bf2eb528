package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/newsatlas/hubcrawler/internal/telemetry"
)

// PrometheusSink exports crawl counters. It owns all of its collectors and
// registers them once at construction.
type PrometheusSink struct {
	candidatesProposed   *prometheus.CounterVec
	candidatesDispatched *prometheus.CounterVec
	hubOutcomes          *prometheus.CounterVec
	gapsFilled           *prometheus.CounterVec
	patternsLearned      *prometheus.CounterVec
	lifecycleChanges     *prometheus.CounterVec
	fetchDuration        *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against reg (the default
// registerer when nil).
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		candidatesProposed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hubcrawler_candidates_proposed_total",
			Help: "Candidates proposed per domain and kind.",
		}, []string{"domain", "kind"}),
		candidatesDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hubcrawler_candidates_dispatched_total",
			Help: "Candidates dispatched to the fetch pipeline per domain.",
		}, []string{"domain", "kind"}),
		hubOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hubcrawler_hub_outcomes_total",
			Help: "Validated hub outcomes per domain and verdict.",
		}, []string{"domain", "verdict"}),
		gapsFilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hubcrawler_gaps_filled_total",
			Help: "Coverage gaps closed per domain.",
		}, []string{"domain"}),
		patternsLearned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hubcrawler_patterns_learned_total",
			Help: "URL templates learned per domain.",
		}, []string{"domain"}),
		lifecycleChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hubcrawler_lifecycle_changes_total",
			Help: "Lifecycle stage transitions per stage.",
		}, []string{"stage"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hubcrawler_validation_duration_seconds",
			Help:    "Fetch-to-verdict duration per domain and verdict.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"domain", "verdict"}),
	}
	for _, collector := range []prometheus.Collector{
		s.candidatesProposed,
		s.candidatesDispatched,
		s.hubOutcomes,
		s.gapsFilled,
		s.patternsLearned,
		s.lifecycleChanges,
		s.fetchDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register telemetry collector: %w", err)
		}
	}
	return s, nil
}

// Consume implements telemetry.Sink.
func (s *PrometheusSink) Consume(_ context.Context, batch []telemetry.Event) error {
	for _, evt := range batch {
		s.consume(evt)
	}
	return nil
}

func (s *PrometheusSink) consume(evt telemetry.Event) {
	switch evt.Type {
	case telemetry.TypeCandidateProposed:
		s.candidatesProposed.WithLabelValues(evt.Domain, string(evt.Kind)).Inc()
	case telemetry.TypeCandidateDispatched:
		s.candidatesDispatched.WithLabelValues(evt.Domain, string(evt.Kind)).Inc()
	case telemetry.TypeHubConfirmed, telemetry.TypeHubRejected:
		s.hubOutcomes.WithLabelValues(evt.Domain, string(evt.Verdict)).Inc()
		if evt.Dur > 0 {
			s.fetchDuration.WithLabelValues(evt.Domain, string(evt.Verdict)).Observe(evt.Dur.Seconds())
		}
	case telemetry.TypeGapFilled:
		s.gapsFilled.WithLabelValues(evt.Domain).Inc()
	case telemetry.TypePatternLearned:
		s.patternsLearned.WithLabelValues(evt.Domain).Inc()
	case telemetry.TypeLifecycleChanged:
		s.lifecycleChanges.WithLabelValues(evt.Stage).Inc()
	}
}

// Close implements telemetry.Sink.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
