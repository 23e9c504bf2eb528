// Package postgres provides the Postgres-backed Store implementation.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store persists hub records, learned patterns, and coverage in Postgres.
//
// Expected schema:
//
//	CREATE TABLE hub_records (
//	    url TEXT PRIMARY KEY,
//	    domain TEXT NOT NULL,
//	    entity_id TEXT NOT NULL,
//	    second_entity_id TEXT NOT NULL DEFAULT '',
//	    kind TEXT NOT NULL,
//	    verdict TEXT NOT NULL,
//	    article_urls JSONB NOT NULL DEFAULT '[]',
//	    visited_at TIMESTAMPTZ NOT NULL,
//	    evidence TEXT NOT NULL DEFAULT '',
//	    evidence_uri TEXT NOT NULL DEFAULT ''
//	);
//	CREATE TABLE learned_patterns (
//	    domain TEXT NOT NULL,
//	    kind TEXT NOT NULL,
//	    template TEXT NOT NULL,
//	    successes INT NOT NULL,
//	    avg_yield DOUBLE PRECISION NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (domain, kind, template)
//	);
type Store struct {
	pool dbPool
}

// NewStore connects a pool and pings it so a dead database fails startup
// rather than the first planning cycle.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewStoreWithPool constructs a Store from an existing pool (for tests).
func NewStoreWithPool(pool dbPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// GetHubRecord returns the record for a URL, or (nil, nil) when absent.
func (s *Store) GetHubRecord(ctx context.Context, pageURL string) (*hub.HubRecord, error) {
	const query = `
SELECT url, entity_id, second_entity_id, kind, verdict, article_urls, visited_at, evidence, evidence_uri
FROM hub_records WHERE url = $1`
	var (
		rec      hub.HubRecord
		articles []byte
	)
	err := s.pool.QueryRow(ctx, query, pageURL).Scan(
		&rec.URL,
		&rec.EntityID,
		&rec.SecondEntityID,
		&rec.Kind,
		&rec.Verdict,
		&articles,
		&rec.VisitedAt,
		&rec.Evidence,
		&rec.EvidenceURI,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select hub record: %w", err)
	}
	if err := json.Unmarshal(articles, &rec.ArticleURLs); err != nil {
		return nil, fmt.Errorf("decode article urls: %w", err)
	}
	return &rec, nil
}

// GetConfirmedHub returns the confirmed single-entity record for entityID on
// domain, latest visit first, or (nil, nil) when the entity has none.
func (s *Store) GetConfirmedHub(ctx context.Context, domain, entityID string) (*hub.HubRecord, error) {
	const query = `
SELECT url, entity_id, second_entity_id, kind, verdict, article_urls, visited_at, evidence, evidence_uri
FROM hub_records
WHERE domain = $1 AND entity_id = $2 AND second_entity_id = '' AND verdict = 'confirmed'
ORDER BY visited_at DESC, url ASC
LIMIT 1`
	var (
		rec      hub.HubRecord
		articles []byte
	)
	err := s.pool.QueryRow(ctx, query, domain, entityID).Scan(
		&rec.URL,
		&rec.EntityID,
		&rec.SecondEntityID,
		&rec.Kind,
		&rec.Verdict,
		&articles,
		&rec.VisitedAt,
		&rec.Evidence,
		&rec.EvidenceURI,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select confirmed hub: %w", err)
	}
	if err := json.Unmarshal(articles, &rec.ArticleURLs); err != nil {
		return nil, fmt.Errorf("decode article urls: %w", err)
	}
	return &rec, nil
}

// PutHubRecord upserts the record keyed by URL, merging article URLs on
// revisit so earlier discoveries survive.
func (s *Store) PutHubRecord(ctx context.Context, record hub.HubRecord) error {
	if record.URL == "" {
		return fmt.Errorf("record url is required")
	}
	articles, err := json.Marshal(dedupURLs(record.ArticleURLs))
	if err != nil {
		return fmt.Errorf("encode article urls: %w", err)
	}
	const query = `
INSERT INTO hub_records (url, domain, entity_id, second_entity_id, kind, verdict, article_urls, visited_at, evidence, evidence_uri)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (url) DO UPDATE SET
	verdict = EXCLUDED.verdict,
	article_urls = (
		SELECT jsonb_agg(DISTINCT u) FROM jsonb_array_elements(hub_records.article_urls || EXCLUDED.article_urls) AS u
	),
	visited_at = EXCLUDED.visited_at,
	evidence = EXCLUDED.evidence,
	evidence_uri = EXCLUDED.evidence_uri`
	_, err = s.pool.Exec(ctx, query,
		record.URL,
		domainOf(record.URL),
		record.EntityID,
		record.SecondEntityID,
		string(record.Kind),
		string(record.Verdict),
		articles,
		record.VisitedAt,
		record.Evidence,
		record.EvidenceURI,
	)
	if err != nil {
		return fmt.Errorf("upsert hub record: %w", err)
	}
	return nil
}

// GetLearnedPatterns returns patterns for (domain, kind) best yield first.
func (s *Store) GetLearnedPatterns(ctx context.Context, domain string, kind hub.CandidateKind) ([]hub.LearnedPattern, error) {
	const query = `
SELECT domain, kind, template, successes, avg_yield, updated_at
FROM learned_patterns
WHERE domain = $1 AND kind = $2
ORDER BY avg_yield DESC, template ASC`
	rows, err := s.pool.Query(ctx, query, domain, string(kind))
	if err != nil {
		return nil, fmt.Errorf("select learned patterns: %w", err)
	}
	defer rows.Close()

	var out []hub.LearnedPattern
	for rows.Next() {
		var p hub.LearnedPattern
		if err := rows.Scan(&p.Domain, &p.Kind, &p.Template, &p.Successes, &p.AvgYield, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan learned pattern: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate learned patterns: %w", err)
	}
	return out, nil
}

// PutLearnedPattern upserts a pattern keyed by (domain, kind, template).
func (s *Store) PutLearnedPattern(ctx context.Context, pattern hub.LearnedPattern) error {
	const query = `
INSERT INTO learned_patterns (domain, kind, template, successes, avg_yield, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (domain, kind, template) DO UPDATE SET
	successes = EXCLUDED.successes,
	avg_yield = EXCLUDED.avg_yield,
	updated_at = EXCLUDED.updated_at`
	_, err := s.pool.Exec(ctx, query,
		pattern.Domain,
		string(pattern.Kind),
		pattern.Template,
		pattern.Successes,
		pattern.AvgYield,
		pattern.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert learned pattern: %w", err)
	}
	return nil
}

// GetCoverageSnapshot returns the entity IDs (and entity pairs, joined with
// '+') that have a confirmed hub on the domain.
func (s *Store) GetCoverageSnapshot(ctx context.Context, domain string) (map[string]struct{}, error) {
	const query = `
SELECT entity_id, second_entity_id FROM hub_records
WHERE domain = $1 AND verdict = 'confirmed'`
	rows, err := s.pool.Query(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("select coverage: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var entityID, secondID string
		if err := rows.Scan(&entityID, &secondID); err != nil {
			return nil, fmt.Errorf("scan coverage row: %w", err)
		}
		key := entityID
		if secondID != "" {
			key = entityID + "+" + secondID
		}
		out[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coverage: %w", err)
	}
	return out, nil
}

// Ping verifies the connection, used by the controller's startup checks.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func dedupURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, dup := seen[u]; dup || u == "" {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
