package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestPutHubRecordUpserts(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	now := time.Unix(1760000000, 0).UTC()

	rec := hub.HubRecord{
		URL:         "https://example.com/world/france",
		EntityID:    "fr",
		Kind:        hub.CandidateCountryHub,
		Verdict:     hub.VerdictConfirmed,
		ArticleURLs: []string{"https://example.com/a1", "https://example.com/a1", "https://example.com/a2"},
		VisitedAt:   now,
		Evidence:    "link-density=0.62",
	}

	mock.ExpectExec("INSERT INTO hub_records").
		WithArgs(
			rec.URL,
			"example.com",
			rec.EntityID,
			"",
			string(rec.Kind),
			string(rec.Verdict),
			[]byte(`["https://example.com/a1","https://example.com/a2"]`),
			rec.VisitedAt,
			rec.Evidence,
			"",
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.PutHubRecord(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHubRecordMissingReturnsNil(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT url, entity_id").
		WithArgs("https://example.com/none").
		WillReturnError(pgx.ErrNoRows)

	rec, err := store.GetHubRecord(context.Background(), "https://example.com/none")
	require.NoError(t, err)
	require.Nil(t, rec)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConfirmedHubScansRow(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	now := time.Unix(1760000000, 0).UTC()

	rows := pgxmock.NewRows([]string{
		"url", "entity_id", "second_entity_id", "kind", "verdict",
		"article_urls", "visited_at", "evidence", "evidence_uri",
	}).AddRow(
		"https://example.com/news/france", "fr", "",
		string(hub.CandidateCountryHub), string(hub.VerdictConfirmed),
		[]byte(`["https://example.com/a1"]`), now, "link-density=0.62", "",
	)
	mock.ExpectQuery("SELECT url, entity_id").
		WithArgs("example.com", "fr").
		WillReturnRows(rows)

	rec, err := store.GetConfirmedHub(context.Background(), "example.com", "fr")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "https://example.com/news/france", rec.URL)
	require.Equal(t, hub.VerdictConfirmed, rec.Verdict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConfirmedHubMissingReturnsNil(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT url, entity_id").
		WithArgs("example.com", "de").
		WillReturnError(pgx.ErrNoRows)

	rec, err := store.GetConfirmedHub(context.Background(), "example.com", "de")
	require.NoError(t, err)
	require.Nil(t, rec)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLearnedPatternsScansRows(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)
	now := time.Unix(1760000000, 0).UTC()

	rows := pgxmock.NewRows([]string{"domain", "kind", "template", "successes", "avg_yield", "updated_at"}).
		AddRow("example.com", string(hub.CandidateCountryHub), "https://example.com/world/{slug}", 4, 18.5, now)
	mock.ExpectQuery("SELECT domain, kind, template").
		WithArgs("example.com", string(hub.CandidateCountryHub)).
		WillReturnRows(rows)

	got, err := store.GetLearnedPatterns(context.Background(), "example.com", hub.CandidateCountryHub)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 4, got[0].Successes)
	require.Equal(t, 18.5, got[0].AvgYield)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCoverageSnapshotBuildsPairKeys(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{"entity_id", "second_entity_id"}).
		AddRow("fr", "").
		AddRow("fr", "politics")
	mock.ExpectQuery("SELECT entity_id, second_entity_id FROM hub_records").
		WithArgs("example.com").
		WillReturnRows(rows)

	got, err := store.GetCoverageSnapshot(context.Background(), "example.com")
	require.NoError(t, err)
	require.Contains(t, got, "fr")
	require.Contains(t, got, "fr+politics")
	require.NoError(t, mock.ExpectationsWereMet())
}
