package validate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Config controls Validator behavior.
type Config struct {
	// MinArticleLinks is the hub-confirmation link threshold.
	MinArticleLinks int
	// RetryBackoff is waited before the single inconclusive retry.
	RetryBackoff time.Duration
	// FetchTimeout bounds each fetch issued by the validator.
	FetchTimeout time.Duration
}

// Validator runs the candidate validation state machine:
// Pending -> Fetched -> {Confirmed | Rejected | Inconclusive}.
type Validator struct {
	fetcher  hub.Fetcher
	cache    hub.PageCache
	analyzer *Analyzer
	cfg      Config
	logger   *zap.Logger
}

// Result is the final state of one validation.
type Result struct {
	Verdict     hub.Verdict
	StatusCode  int
	ArticleURLs []string
	Evidence    string
	FromCache   bool
	Retried     bool
	Body        []byte
}

// New constructs a Validator.
func New(fetcher hub.Fetcher, cache hub.PageCache, cfg Config, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	return &Validator{
		fetcher:  fetcher,
		cache:    cache,
		analyzer: &Analyzer{MinArticleLinks: cfg.MinArticleLinks},
		cfg:      cfg,
		logger:   logger,
	}
}

// Validate decides whether the candidate URL really is the hub it was
// predicted to be. The page cache is consulted before any fetch; an
// ambiguous page is re-fetched at most once after a backoff, then finalized
// as Rejected. A fetch error yields Inconclusive (the candidate may be
// re-proposed next run). Composite kinds must pass the checks for both
// entities independently.
func (v *Validator) Validate(ctx context.Context, cand hub.Candidate, entity hub.Entity, second *hub.Entity) (Result, error) {
	if !CheckURL(cand.URL, cand.Kind, entity, second) {
		return Result{Verdict: hub.VerdictRejected, Evidence: "url-structure-mismatch"}, nil
	}

	resp, fromCache, err := v.page(ctx, cand.URL, false)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Verdict: hub.VerdictInconclusive, Evidence: "canceled"}, ctx.Err()
		}
		return Result{Verdict: hub.VerdictInconclusive, Evidence: "fetch-error: " + err.Error()}, nil
	}

	result := v.judge(resp, cand, entity, second)
	result.FromCache = fromCache
	if result.Verdict != hub.VerdictInconclusive {
		return result, nil
	}

	// One retry with backoff, bypassing the cache; still ambiguous means
	// Rejected, so a flaky page cannot pin the candidate forever.
	if !v.backoff(ctx) {
		return result, ctx.Err()
	}
	retryResp, _, err := v.page(ctx, cand.URL, true)
	if err != nil {
		result.Retried = true
		return result, nil
	}
	final := v.judge(retryResp, cand, entity, second)
	final.Retried = true
	if final.Verdict == hub.VerdictInconclusive {
		final.Verdict = hub.VerdictRejected
		final.Evidence = "ambiguous-after-retry: " + final.Evidence
	}
	return final, nil
}

// judge maps a fetched page to a verdict. This is the Fetched state of the
// machine.
func (v *Validator) judge(resp hub.FetchResponse, cand hub.Candidate, entity hub.Entity, second *hub.Entity) Result {
	res := Result{StatusCode: resp.StatusCode, Body: resp.Body}

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		res.Verdict = hub.VerdictRejected
		res.Evidence = fmt.Sprintf("http-status=%d", resp.StatusCode)
		return res
	case resp.StatusCode >= 400:
		res.Verdict = hub.VerdictInconclusive
		res.Evidence = fmt.Sprintf("http-status=%d", resp.StatusCode)
		return res
	}

	if redirectLoop(cand.URL, resp.FinalURL) {
		res.Verdict = hub.VerdictInconclusive
		res.Evidence = "redirect-loop"
		return res
	}

	metrics, err := v.analyzer.Analyze(pageURL(resp), resp.Body)
	if err != nil {
		res.Verdict = hub.VerdictRejected
		res.Evidence = "unparseable-content"
		return res
	}
	res.Evidence = metrics.Evidence()
	res.ArticleURLs = metrics.ArticleURLs

	switch v.analyzer.Classify(metrics) {
	case ClassArticle:
		res.Verdict = hub.VerdictRejected
		res.Evidence = "single-article " + res.Evidence
		return res
	case ClassAmbiguous:
		res.Verdict = hub.VerdictInconclusive
		return res
	}

	// Composite hubs need both halves evidenced, not just a hub-shaped page.
	if cand.Kind.IsComposite() {
		if !v.entityEvidenced(resp, metrics, entity) || second == nil || !v.entityEvidenced(resp, metrics, *second) {
			res.Verdict = hub.VerdictRejected
			res.Evidence = "composite-partial-evidence " + res.Evidence
			return res
		}
	}

	res.Verdict = hub.VerdictConfirmed
	return res
}

// entityEvidenced checks one half of a composite hub: the entity must be
// named in the final URL path or in the page's own text.
func (v *Validator) entityEvidenced(resp hub.FetchResponse, metrics ContentMetrics, entity hub.Entity) bool {
	u := strings.ToLower(pageURL(resp))
	names := append([]string{entity.Slug, entity.ID, entity.Name}, entity.Aliases...)
	for _, n := range names {
		if n == "" {
			continue
		}
		n = strings.ToLower(n)
		if strings.Contains(u, "/"+n) || strings.Contains(u, n+"/") {
			return true
		}
	}
	body := strings.ToLower(string(resp.Body))
	if entity.Name != "" && strings.Contains(body, strings.ToLower(entity.Name)) && metrics.InternalLinks > 0 {
		return true
	}
	return false
}

// page returns the cached response for url unless refresh is set, fetching
// and caching on miss.
func (v *Validator) page(ctx context.Context, url string, refresh bool) (hub.FetchResponse, bool, error) {
	if !refresh && v.cache != nil {
		if resp, ok := v.cache.Get(url); ok {
			return resp, true, nil
		}
	}
	fetchCtx, cancel := context.WithTimeout(ctx, v.cfg.FetchTimeout)
	defer cancel()
	resp, err := v.fetcher.Fetch(fetchCtx, hub.FetchRequest{URL: url, Timeout: v.cfg.FetchTimeout})
	if err != nil {
		return hub.FetchResponse{}, false, fmt.Errorf("validator fetch: %w", err)
	}
	if v.cache != nil {
		v.cache.Put(url, resp)
	}
	return resp, false, nil
}

func (v *Validator) backoff(ctx context.Context) bool {
	timer := time.NewTimer(v.cfg.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func pageURL(resp hub.FetchResponse) string {
	if resp.FinalURL != "" {
		return resp.FinalURL
	}
	return resp.URL
}

// redirectLoop reports whether the fetch was redirected to the site root,
// discarding the path we asked about. Such a page says nothing about the
// candidate URL, so it is treated as ambiguous.
func redirectLoop(requested, final string) bool {
	if final == "" || final == requested {
		return false
	}
	reqU, err := url.Parse(requested)
	if err != nil {
		return false
	}
	finU, err := url.Parse(final)
	if err != nil {
		return false
	}
	reqPath := strings.Trim(reqU.Path, "/")
	finPath := strings.Trim(finU.Path, "/")
	return reqPath != "" && finPath == ""
}
