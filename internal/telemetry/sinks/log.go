// Package sinks provides the telemetry.Sink implementations shipped with
// the crawler.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/newsatlas/hubcrawler/internal/telemetry"
)

// LogSink writes every event as a structured log line. Intended for CLI
// runs and debugging, not as the primary consumer.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink builds the sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume implements telemetry.Sink.
func (s *LogSink) Consume(_ context.Context, batch []telemetry.Event) error {
	for _, evt := range batch {
		s.logger.Info("telemetry",
			zap.String("type", string(evt.Type)),
			zap.String("run_id", evt.RunID.String()),
			zap.String("domain", evt.Domain),
			zap.String("url", evt.URL),
			zap.String("entity", evt.EntityID),
			zap.String("verdict", string(evt.Verdict)),
			zap.String("stage", evt.Stage),
			zap.Duration("dur", evt.Dur),
		)
	}
	return nil
}

// Close implements telemetry.Sink.
func (s *LogSink) Close(context.Context) error {
	return nil
}
