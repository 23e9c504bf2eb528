// Package fetch implements the fetch pipeline behind the hub.Fetcher
// boundary: a fast HTTP probe, a headless renderer for script-heavy
// pages, a promotion heuristic between them, and a retry wrapper for
// transient failures.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// ProbeConfig controls the plain-HTTP probe fetcher.
type ProbeConfig struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Probe is the first-pass fetcher: a colly collector doing a single GET
// per call. Each Fetch clones the base collector, so the Probe is safe for
// concurrent use.
type Probe struct {
	cfg  ProbeConfig
	base *colly.Collector
}

// NewProbe builds a Probe.
func NewProbe(cfg ProbeConfig) *Probe {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Probe{cfg: cfg, base: c}
}

// Fetch implements hub.Fetcher.
func (p *Probe) Fetch(ctx context.Context, req hub.FetchRequest) (hub.FetchResponse, error) {
	var (
		result   hub.FetchResponse
		fetchErr error
	)
	collector := p.buildCollector(req, &result, &fetchErr)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(req.URL)
	}()

	select {
	case <-ctx.Done():
		return hub.FetchResponse{}, fmt.Errorf("probe fetch canceled: %w", ctx.Err())
	case err := <-done:
		// Colly reports error statuses through both OnError and the Visit
		// return; a captured error-status response still goes to the
		// caller so the validator can judge it.
		if result.StatusCode >= 400 {
			return result, nil
		}
		if err != nil {
			return hub.FetchResponse{}, fmt.Errorf("probe visit %s: %w", req.URL, err)
		}
		if fetchErr != nil {
			return hub.FetchResponse{}, fmt.Errorf("probe response %s: %w", req.URL, fetchErr)
		}
		return result, nil
	}
}

func (p *Probe) buildCollector(req hub.FetchRequest, result *hub.FetchResponse, fetchErr *error) *colly.Collector {
	collector := p.base.Clone()
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !p.cfg.RespectRobots

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = p.cfg.Timeout
	}
	collector.SetRequestTimeout(timeout)

	start := time.Now()
	collector.OnResponse(func(r *colly.Response) {
		*result = hub.FetchResponse{
			URL:         req.URL,
			FinalURL:    r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        append([]byte(nil), r.Body...),
			Duration:    time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode >= 400 {
			// Error-status pages are still meaningful to the validator.
			*result = hub.FetchResponse{
				URL:        req.URL,
				StatusCode: r.StatusCode,
				Body:       append([]byte(nil), r.Body...),
				Duration:   time.Since(start),
			}
			return
		}
		*fetchErr = err
	})
	return collector
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
