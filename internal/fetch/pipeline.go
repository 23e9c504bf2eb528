package fetch

import (
	"context"

	"go.uber.org/zap"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Pipeline composes the probe and headless fetchers behind one hub.Fetcher:
// probe first, then a headless re-fetch when the detector says the probe
// result is a script shell. A request with UseHeadless set skips the probe.
type Pipeline struct {
	probe    hub.Fetcher
	headless hub.Fetcher
	detector Detector
	logger   *zap.Logger
}

// NewPipeline assembles the pipeline. headless and detector may be nil, in
// which case probe responses are returned as-is.
func NewPipeline(probe, headless hub.Fetcher, detector Detector, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{probe: probe, headless: headless, detector: detector, logger: logger}
}

// Fetch implements hub.Fetcher.
func (p *Pipeline) Fetch(ctx context.Context, req hub.FetchRequest) (hub.FetchResponse, error) {
	if req.UseHeadless && p.headless != nil {
		return p.headless.Fetch(ctx, req)
	}

	resp, err := p.probe.Fetch(ctx, req)
	if err != nil {
		return hub.FetchResponse{}, err
	}
	if p.headless == nil || p.detector == nil || !p.detector.ShouldPromote(resp) {
		return resp, nil
	}

	p.logger.Debug("promoting to headless fetch", zap.String("url", req.URL))
	rendered, err := p.headless.Fetch(ctx, req)
	if err != nil {
		// The probe response is still usable evidence; promotion failing
		// should not turn a fetched page into a fetch error.
		p.logger.Warn("headless promotion failed, keeping probe response",
			zap.String("url", req.URL), zap.Error(err))
		return resp, nil
	}
	return rendered, nil
}
