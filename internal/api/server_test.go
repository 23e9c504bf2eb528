package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newsatlas/hubcrawler/internal/controller"
	"github.com/newsatlas/hubcrawler/internal/hub"
	"github.com/newsatlas/hubcrawler/internal/store/memory"
	"github.com/newsatlas/hubcrawler/internal/telemetry"
	"github.com/newsatlas/hubcrawler/internal/telemetry/sinks"
)

// fakeCrawl records control calls and answers canned status.
type fakeCrawl struct {
	mu      sync.Mutex
	paused  int
	resumed int
	aborted int
	mode    hub.Mode
	state   controller.State
}

func newFakeCrawl() *fakeCrawl {
	return &fakeCrawl{mode: hub.ModeNormal, state: controller.StateRunning}
}

func (f *fakeCrawl) Pause()  { f.mu.Lock(); f.paused++; f.mu.Unlock() }
func (f *fakeCrawl) Resume() { f.mu.Lock(); f.resumed++; f.mu.Unlock() }
func (f *fakeCrawl) Abort()  { f.mu.Lock(); f.aborted++; f.mu.Unlock() }

func (f *fakeCrawl) SetMode(mode hub.Mode) {
	f.mu.Lock()
	f.mode = mode
	f.mu.Unlock()
}

func (f *fakeCrawl) State() controller.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeCrawl) Progress() hub.Progress {
	return hub.Progress{EntitiesDiscovered: 3, EntitiesValidated: 12, ArticlesSurfaced: 40, Phase: hub.PhaseValidation}
}

func (f *fakeCrawl) Mode() hub.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *fakeCrawl) CompletedWithGaps() bool { return false }

func newTestServer(crawl *fakeCrawl, events *sinks.MemorySink, cfg Config) *Server {
	store := memory.NewStore()
	if cfg.Domain == "" {
		cfg.Domain = "news.example"
	}
	var c Crawl
	if crawl != nil {
		c = crawl
	}
	return NewServer(c, store, events, cfg, nil)
}

func doRequest(s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Probes(t *testing.T) {
	t.Parallel()

	s := newTestServer(newFakeCrawl(), nil, Config{})
	require.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/healthz", nil).Code)
	require.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/readyz", nil).Code)

	detached := newTestServer(nil, nil, Config{})
	require.Equal(t, http.StatusServiceUnavailable, doRequest(detached, http.MethodGet, "/readyz", nil).Code)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	s := newTestServer(newFakeCrawl(), nil, Config{})
	rec := doRequest(s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_LifecycleControls(t *testing.T) {
	t.Parallel()

	crawl := newFakeCrawl()
	s := newTestServer(crawl, nil, Config{})

	require.Equal(t, http.StatusAccepted, doRequest(s, http.MethodPost, "/v1/crawl/pause", nil).Code)
	require.Equal(t, http.StatusAccepted, doRequest(s, http.MethodPost, "/v1/crawl/resume", nil).Code)
	require.Equal(t, http.StatusAccepted, doRequest(s, http.MethodPost, "/v1/crawl/abort", nil).Code)

	crawl.mu.Lock()
	defer crawl.mu.Unlock()
	require.Equal(t, 1, crawl.paused)
	require.Equal(t, 1, crawl.resumed)
	require.Equal(t, 1, crawl.aborted)
}

func TestServer_SetMode(t *testing.T) {
	t.Parallel()

	crawl := newFakeCrawl()
	s := newTestServer(crawl, nil, Config{})

	rec := doRequest(s, http.MethodPost, "/v1/crawl/mode", []byte(`{"mode":"hub-focus"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, hub.ModeHubFocus, crawl.Mode())

	rec = doRequest(s, http.MethodPost, "/v1/crawl/mode", []byte(`{"mode":"turbo"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, hub.ModeHubFocus, crawl.Mode())

	rec = doRequest(s, http.MethodPost, "/v1/crawl/mode", []byte(`{invalid`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Status(t *testing.T) {
	t.Parallel()

	s := newTestServer(newFakeCrawl(), nil, Config{Domain: "news.example"})
	rec := doRequest(s, http.MethodGet, "/v1/crawl/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "news.example", status.Domain)
	require.Equal(t, string(controller.StateRunning), status.State)
	require.Equal(t, 3, status.Progress.EntitiesDiscovered)
	require.False(t, status.CompletedWithGaps)
}

func TestServer_RecentEvents(t *testing.T) {
	t.Parallel()

	events := sinks.NewMemorySink(100)
	now := time.Now().UTC()
	batch := make([]telemetry.Event, 0, 5)
	for i := 0; i < 5; i++ {
		batch = append(batch, telemetry.Event{
			Type:   telemetry.TypeCandidateProposed,
			Domain: "news.example",
			URL:    "https://news.example/world/france",
			TS:     now,
		})
	}
	require.NoError(t, events.Consume(context.Background(), batch))

	s := newTestServer(newFakeCrawl(), events, Config{})

	rec := doRequest(s, http.MethodGet, "/v1/crawl/events?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Events []telemetry.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Events, 2)

	require.Equal(t, http.StatusBadRequest, doRequest(s, http.MethodGet, "/v1/crawl/events?limit=zero", nil).Code)

	disabled := newTestServer(newFakeCrawl(), nil, Config{})
	require.Equal(t, http.StatusServiceUnavailable, doRequest(disabled, http.MethodGet, "/v1/crawl/events", nil).Code)
}

func TestServer_Coverage(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	require.NoError(t, store.PutHubRecord(context.Background(), hub.HubRecord{
		URL:      "https://news.example/world/france",
		EntityID: "fr",
		Kind:     hub.CandidateCountryHub,
		Verdict:  hub.VerdictConfirmed,
	}))
	s := NewServer(newFakeCrawl(), store, nil, Config{Domain: "news.example"}, nil)

	rec := doRequest(s, http.MethodGet, "/v1/coverage", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Domain   string   `json:"domain"`
		Count    int      `json:"count"`
		Coverage []string `json:"coverage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "news.example", payload.Domain)
	require.Equal(t, 1, payload.Count)
	require.Contains(t, payload.Coverage, "fr")
}

func TestServer_APIKeyGuardsV1Routes(t *testing.T) {
	t.Parallel()

	s := newTestServer(newFakeCrawl(), nil, Config{APIKey: "secret"})

	require.Equal(t, http.StatusForbidden, doRequest(s, http.MethodPost, "/v1/crawl/pause", nil).Code)
	require.Equal(t, http.StatusForbidden, doRequest(s, http.MethodGet, "/v1/crawl/status", nil).Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/crawl/pause", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Probes stay open.
	require.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/healthz", nil).Code)
}
