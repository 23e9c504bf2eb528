package fetch

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// RetryPolicy decides whether and when a failed fetch is re-attempted.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// ExponentialRetryPolicy implements RetryPolicy with jittered backoff.
type ExponentialRetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewExponentialRetryPolicy builds a policy with sane defaults.
func NewExponentialRetryPolicy() *ExponentialRetryPolicy {
	return &ExponentialRetryPolicy{
		maxAttempts: 3,
		baseDelay:   250 * time.Millisecond,
		maxDelay:    5 * time.Second,
	}
}

// ShouldRetry retries transient failures only: timeouts and wrapped
// transient errors. Cancellation is never retried.
func (p *ExponentialRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if hub.IsTransient(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}

// Backoff returns the wait duration before the next attempt.
func (p *ExponentialRetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// Retrying wraps a Fetcher with the retry policy. When attempts are
// exhausted the last error comes back wrapped as transient, so the caller
// can mark the candidate Inconclusive for this run instead of rejecting it.
type Retrying struct {
	next   hub.Fetcher
	policy RetryPolicy
	logger *zap.Logger
}

// NewRetrying wraps next.
func NewRetrying(next hub.Fetcher, policy RetryPolicy, logger *zap.Logger) *Retrying {
	if policy == nil {
		policy = NewExponentialRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{next: next, policy: policy, logger: logger}
}

// Fetch implements hub.Fetcher.
func (r *Retrying) Fetch(ctx context.Context, req hub.FetchRequest) (hub.FetchResponse, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := r.next.Fetch(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !r.policy.ShouldRetry(err, attempt+1) {
			break
		}
		r.logger.Debug("retrying fetch",
			zap.String("url", req.URL),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return hub.FetchResponse{}, fmt.Errorf("fetch retry canceled: %w", ctx.Err())
		case <-time.After(r.policy.Backoff(attempt)):
		}
	}
	if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
		return hub.FetchResponse{}, lastErr
	}
	return hub.FetchResponse{}, &hub.TransientError{Err: lastErr}
}
