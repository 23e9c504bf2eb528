package hub

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata. Implementations
// must honor ctx cancellation and the per-request timeout.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Gazetteer exposes the read-only reference entity set loaded at run start.
type Gazetteer interface {
	ListEntities(kind EntityKind, domainHints []string) []Entity
	ImportanceRank(entityID string) int
	Entity(entityID string) (Entity, bool)
}

// Store persists hub records, learned patterns, and coverage. The core treats
// it purely as a key/record store.
type Store interface {
	GetHubRecord(ctx context.Context, url string) (*HubRecord, error)
	// GetConfirmedHub returns the confirmed single-entity hub record for
	// entityID on domain, or (nil, nil) when the entity has none yet.
	GetConfirmedHub(ctx context.Context, domain, entityID string) (*HubRecord, error)
	PutHubRecord(ctx context.Context, record HubRecord) error
	GetLearnedPatterns(ctx context.Context, domain string, kind CandidateKind) ([]LearnedPattern, error)
	PutLearnedPattern(ctx context.Context, pattern LearnedPattern) error
	GetCoverageSnapshot(ctx context.Context, domain string) (map[string]struct{}, error)
}

// PageCache caches fetched page bodies for the duration of a run so the
// validator never re-fetches a URL it already has.
type PageCache interface {
	Get(url string) (FetchResponse, bool)
	Put(url string, resp FetchResponse)
}

// Clock returns the current time (swappable for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Controls is the operator-facing control surface. All methods are safe to
// call at any time; redundant calls are no-ops.
type Controls interface {
	Pause()
	Resume()
	Abort()
	SetMode(mode Mode)
}
