package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newsatlas/hubcrawler/internal/hub"
	"github.com/newsatlas/hubcrawler/internal/pagecache"
)

type scriptedFetcher struct {
	responses map[string][]hub.FetchResponse
	errs      map[string]error
	calls     map[string]int
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		responses: make(map[string][]hub.FetchResponse),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (f *scriptedFetcher) Fetch(_ context.Context, req hub.FetchRequest) (hub.FetchResponse, error) {
	f.calls[req.URL]++
	if err, ok := f.errs[req.URL]; ok {
		return hub.FetchResponse{}, err
	}
	queue := f.responses[req.URL]
	if len(queue) == 0 {
		return hub.FetchResponse{URL: req.URL, StatusCode: 404}, nil
	}
	resp := queue[0]
	if len(queue) > 1 {
		f.responses[req.URL] = queue[1:]
	}
	return resp, nil
}

func hubHTML(linkCount int) []byte {
	var b strings.Builder
	b.WriteString("<html><body><nav>")
	for i := 0; i < linkCount; i++ {
		fmt.Fprintf(&b, `<a href="/world/france/macron-wins-election-round-%d-latest">headline %d</a>`, i, i)
	}
	b.WriteString("</nav></body></html>")
	return []byte(b.String())
}

func articleHTML() []byte {
	text := strings.Repeat("The quick brown fox jumped over the lazy dog again and again. ", 40)
	return []byte("<html><body><article><p>" + text + "</p></article></body></html>")
}

var (
	franceE  = hub.Entity{ID: "fr", Kind: hub.KindCountry, Name: "France", Slug: "france"}
	politics = hub.Entity{ID: "politics", Kind: hub.KindTopic, Name: "Politics", Slug: "politics"}
)

func newValidator(f hub.Fetcher) *Validator {
	return New(f, pagecache.New(16), Config{RetryBackoff: time.Millisecond, FetchTimeout: time.Second}, nil)
}

func countryCandidate(url string) hub.Candidate {
	return hub.Candidate{URL: url, EntityID: "fr", Kind: hub.CandidateCountryHub}
}

func TestValidateConfirmsHubPage(t *testing.T) {
	f := newScriptedFetcher()
	url := "https://example.com/world/france"
	f.responses[url] = []hub.FetchResponse{{URL: url, StatusCode: 200, Body: hubHTML(12)}}

	res, err := newValidator(f).Validate(context.Background(), countryCandidate(url), franceE, nil)
	require.NoError(t, err)
	require.Equal(t, hub.VerdictConfirmed, res.Verdict)
	require.NotEmpty(t, res.ArticleURLs)
	require.Contains(t, res.Evidence, "article_links=")
}

func TestValidate404RejectsWithoutRetry(t *testing.T) {
	f := newScriptedFetcher()
	url := "https://example.com/world/france"
	f.responses[url] = []hub.FetchResponse{{URL: url, StatusCode: 404}}

	res, err := newValidator(f).Validate(context.Background(), countryCandidate(url), franceE, nil)
	require.NoError(t, err)
	require.Equal(t, hub.VerdictRejected, res.Verdict)
	require.False(t, res.Retried)
	require.Equal(t, 1, f.calls[url], "404 must not be retried")
}

func TestValidateRejectsSingleArticlePage(t *testing.T) {
	f := newScriptedFetcher()
	url := "https://example.com/world/france"
	f.responses[url] = []hub.FetchResponse{{URL: url, StatusCode: 200, Body: articleHTML()}}

	res, err := newValidator(f).Validate(context.Background(), countryCandidate(url), franceE, nil)
	require.NoError(t, err)
	require.Equal(t, hub.VerdictRejected, res.Verdict)
	require.Contains(t, res.Evidence, "single-article")
}

func TestValidateRejectsURLStructureMismatchWithoutFetch(t *testing.T) {
	f := newScriptedFetcher()
	res, err := newValidator(f).Validate(context.Background(),
		countryCandidate("https://example.com/login/france"), franceE, nil)
	require.NoError(t, err)
	require.Equal(t, hub.VerdictRejected, res.Verdict)
	require.Empty(t, f.calls, "structural rejection must not hit the network")
}

func TestValidateEmptyPageRetriedOnceThenRejected(t *testing.T) {
	f := newScriptedFetcher()
	url := "https://example.com/world/france"
	empty := hub.FetchResponse{URL: url, StatusCode: 200, Body: []byte("")}
	f.responses[url] = []hub.FetchResponse{empty, empty}

	res, err := newValidator(f).Validate(context.Background(), countryCandidate(url), franceE, nil)
	require.NoError(t, err)
	require.Equal(t, hub.VerdictRejected, res.Verdict)
	require.True(t, res.Retried)
	require.Equal(t, 2, f.calls[url], "exactly one retry")
}

func TestValidateAmbiguousThenHubOnRetry(t *testing.T) {
	f := newScriptedFetcher()
	url := "https://example.com/world/france"
	f.responses[url] = []hub.FetchResponse{
		{URL: url, StatusCode: 200, Body: []byte("")},
		{URL: url, StatusCode: 200, Body: hubHTML(12)},
	}

	res, err := newValidator(f).Validate(context.Background(), countryCandidate(url), franceE, nil)
	require.NoError(t, err)
	require.Equal(t, hub.VerdictConfirmed, res.Verdict)
	require.True(t, res.Retried)
}

func TestValidateFetchErrorIsInconclusive(t *testing.T) {
	f := newScriptedFetcher()
	url := "https://example.com/world/france"
	f.errs[url] = errors.New("connection refused")

	res, err := newValidator(f).Validate(context.Background(), countryCandidate(url), franceE, nil)
	require.NoError(t, err)
	require.Equal(t, hub.VerdictInconclusive, res.Verdict)
}

func TestValidateUsesCacheBeforeFetching(t *testing.T) {
	f := newScriptedFetcher()
	url := "https://example.com/world/france"
	cache := pagecache.New(16)
	cache.Put(url, hub.FetchResponse{URL: url, StatusCode: 200, Body: hubHTML(12)})
	v := New(f, cache, Config{RetryBackoff: time.Millisecond}, nil)

	res, err := v.Validate(context.Background(), countryCandidate(url), franceE, nil)
	require.NoError(t, err)
	require.Equal(t, hub.VerdictConfirmed, res.Verdict)
	require.True(t, res.FromCache)
	require.Empty(t, f.calls, "cached page must not be re-fetched")
}

func TestCompositeValidationIsConjunctive(t *testing.T) {
	f := newScriptedFetcher()
	// A hub-shaped page that names France but never politics: the topic
	// half fails, so the composite must not confirm.
	url := "https://example.com/world/france/politics"
	body := hubHTML(12)
	f.responses[url] = []hub.FetchResponse{
		// FinalURL drops the politics segment, so URL evidence for the
		// topic half is gone too.
		{URL: url, FinalURL: "https://example.com/world/france/news", StatusCode: 200, Body: body},
	}
	cand := hub.Candidate{URL: url, EntityID: "fr", SecondEntityID: "politics", Kind: hub.CandidatePlaceTopicHub}

	res, err := newValidator(f).Validate(context.Background(), cand, franceE, &politics)
	require.NoError(t, err)
	require.Equal(t, hub.VerdictRejected, res.Verdict)
	require.Contains(t, res.Evidence, "composite-partial-evidence")
}

func TestCompositeValidationConfirmsWhenBothHalvesPass(t *testing.T) {
	f := newScriptedFetcher()
	url := "https://example.com/world/france/politics"
	f.responses[url] = []hub.FetchResponse{{URL: url, StatusCode: 200, Body: hubHTML(12)}}
	cand := hub.Candidate{URL: url, EntityID: "fr", SecondEntityID: "politics", Kind: hub.CandidatePlaceTopicHub}

	res, err := newValidator(f).Validate(context.Background(), cand, franceE, &politics)
	require.NoError(t, err)
	require.Equal(t, hub.VerdictConfirmed, res.Verdict)
}

func TestRedirectToRootIsAmbiguous(t *testing.T) {
	f := newScriptedFetcher()
	url := "https://example.com/world/france"
	rooted := hub.FetchResponse{URL: url, FinalURL: "https://example.com/", StatusCode: 200, Body: hubHTML(12)}
	f.responses[url] = []hub.FetchResponse{rooted, rooted}

	res, err := newValidator(f).Validate(context.Background(), countryCandidate(url), franceE, nil)
	require.NoError(t, err)
	require.Equal(t, hub.VerdictRejected, res.Verdict, "still ambiguous after retry finalizes as rejected")
	require.True(t, res.Retried)
}

func TestCheckURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		kind hub.CandidateKind
		want bool
	}{
		{"country hub", "https://example.com/world/france", hub.CandidateCountryHub, true},
		{"entity missing", "https://example.com/world/germany", hub.CandidateCountryHub, false},
		{"article slug", "https://example.com/france/macron-wins-big-in-runoff-vote", hub.CandidateCountryHub, false},
		{"dated path", "https://example.com/world/france/2026/05/12", hub.CandidateCountryHub, false},
		{"asset extension", "https://example.com/world/france.pdf", hub.CandidateCountryHub, false},
		{"utility segment", "https://example.com/search/france", hub.CandidateCountryHub, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CheckURL(tc.url, tc.kind, franceE, nil))
		})
	}
}
