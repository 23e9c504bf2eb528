// Package hub defines core types shared across the hub-discovery subsystems.
package hub

import (
	"time"
)

// EntityKind classifies a reference entity.
type EntityKind string

// Entity kinds known to the gazetteer.
const (
	KindCountry EntityKind = "country"
	KindRegion  EntityKind = "region"
	KindCity    EntityKind = "city"
	KindTopic   EntityKind = "topic"
)

// Entity is a place or topic the crawler wants a hub page for. Entities are
// loaded once per run from the gazetteer and never mutated.
type Entity struct {
	ID         string     `json:"id" yaml:"id"`
	Kind       EntityKind `json:"kind" yaml:"kind"`
	Name       string     `json:"name" yaml:"name"`
	Slug       string     `json:"slug" yaml:"slug"`
	Importance int        `json:"importance" yaml:"importance"`
	ParentID   string     `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Aliases    []string   `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// CandidateKind classifies what sort of hub a candidate URL is predicted to be.
type CandidateKind string

// Candidate kinds proposed by gap analyzers and reasoners.
const (
	CandidateCountryHub      CandidateKind = "country-hub"
	CandidateRegionHub       CandidateKind = "region-hub"
	CandidateCityHub         CandidateKind = "city-hub"
	CandidateTopicHub        CandidateKind = "topic-hub"
	CandidatePlaceTopicHub   CandidateKind = "place-topic-hub"
	CandidateHierarchicalHub CandidateKind = "hierarchical-place-hub"
	CandidateCrossPlaceHub   CandidateKind = "cross-place-hub"
	CandidateArticle         CandidateKind = "article"
)

// IsHubDiscovery reports whether the kind represents hub-discovery work
// rather than article follow-up work.
func (k CandidateKind) IsHubDiscovery() bool {
	return k != CandidateArticle && k != ""
}

// IsComposite reports whether the kind pairs two entities.
func (k CandidateKind) IsComposite() bool {
	switch k {
	case CandidatePlaceTopicHub, CandidateHierarchicalHub, CandidateCrossPlaceHub:
		return true
	default:
		return false
	}
}

// Strategy labels the generator that produced a candidate URL.
type Strategy string

// Prediction strategies, in precedence order.
const (
	StrategyLearnedPattern Strategy = "learned-pattern"
	StrategyGazetteer      Strategy = "gazetteer-derived"
	StrategyFallback       Strategy = "fallback-pattern"
	StrategyRegional       Strategy = "regional-composition"
)

// Bonus labels explain why a candidate was proposed; the scorer maps each
// label to a base bonus.
type Bonus string

// Bonus labels used by proposers.
const (
	BonusDiscovery      Bonus = "discovery"
	BonusArticleFromHub Bonus = "article-from-hub"
	BonusRevisit        Bonus = "revisit"
)

// Candidate is a proposed hub URL for an entity (or entity pair). Candidates
// live for one planning cycle; only their validation outcome is persisted.
type Candidate struct {
	URL            string
	EntityID       string
	SecondEntityID string
	Kind           CandidateKind
	Strategy       Strategy
	Confidence     float64
	EstimatedCost  time.Duration
	Bonus          Bonus
	GapFill        bool
	Importance     int
}

// Verdict is the validation state of a candidate.
type Verdict string

// Validator state machine states.
const (
	VerdictPending      Verdict = "pending"
	VerdictFetched      Verdict = "fetched"
	VerdictConfirmed    Verdict = "confirmed"
	VerdictRejected     Verdict = "rejected"
	VerdictInconclusive Verdict = "inconclusive"
)

// LearnedPattern is a per (domain, kind) URL template inferred from a
// confirmed hub. Patterns are never deleted, only outranked by higher-yield
// alternatives.
type LearnedPattern struct {
	Domain    string    `json:"domain"`
	Kind      CandidateKind `json:"kind"`
	Template  string    `json:"template"`
	Successes int       `json:"successes"`
	AvgYield  float64   `json:"avg_yield"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HubRecord is the persisted outcome of a validation attempt.
type HubRecord struct {
	URL            string        `json:"url"`
	EntityID       string        `json:"entity_id"`
	SecondEntityID string        `json:"second_entity_id,omitempty"`
	Kind           CandidateKind `json:"kind"`
	Verdict        Verdict       `json:"verdict"`
	ArticleURLs    []string      `json:"article_urls"`
	VisitedAt      time.Time     `json:"visited_at"`
	Evidence       string        `json:"evidence"`
	EvidenceURI    string        `json:"evidence_uri,omitempty"`
}

// Phase labels the coarse stage a run is in.
type Phase string

// Run phases, in order.
const (
	PhaseDiscovery  Phase = "discovery"
	PhaseValidation Phase = "validation"
	PhaseIndexing   Phase = "indexing"
	PhaseCompletion Phase = "completion"
)

// Progress holds per-run counters. It is mutated only by the lifecycle
// controller's outcome path and read by the scorer.
type Progress struct {
	EntitiesDiscovered int   `json:"entities_discovered"`
	EntitiesValidated  int   `json:"entities_validated"`
	ArticlesSurfaced   int   `json:"articles_surfaced"`
	Phase              Phase `json:"phase"`
}

// Mode selects the scorer's behavioral emphasis.
type Mode string

// Supported behavioral modes.
const (
	ModeNormal   Mode = "normal"
	ModeHubFocus Mode = "hub-focus"
)

// ParseMode converts a string into a Mode, defaulting to ModeNormal.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeNormal, "":
		return ModeNormal, true
	case ModeHubFocus:
		return ModeHubFocus, true
	default:
		return ModeNormal, false
	}
}

// FetchRequest captures everything needed to fetch a candidate URL.
type FetchRequest struct {
	RunID       string
	URL         string
	UseHeadless bool
	Timeout     time.Duration
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	FinalURL     string
	StatusCode   int
	ContentType  string
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}
