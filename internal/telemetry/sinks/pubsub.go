package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/newsatlas/hubcrawler/internal/telemetry"
)

// PubSubSink publishes events to a Google Cloud Pub/Sub topic as JSON, one
// message per event, so downstream consumers (UI, indexers) can subscribe
// without touching the crawler.
type PubSubSink struct {
	topic *pubsub.Topic
}

// NewPubSubSink wraps an existing topic handle; the caller owns the client.
func NewPubSubSink(topic *pubsub.Topic) (*PubSubSink, error) {
	if topic == nil {
		return nil, fmt.Errorf("pubsub topic is not configured")
	}
	return &PubSubSink{topic: topic}, nil
}

// Consume implements telemetry.Sink. Publish results are awaited per batch
// so a dead topic surfaces as an error instead of unbounded buffering.
func (s *PubSubSink) Consume(ctx context.Context, batch []telemetry.Event) error {
	results := make([]*pubsub.PublishResult, 0, len(batch))
	for _, evt := range batch {
		data, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("marshal telemetry event: %w", err)
		}
		results = append(results, s.topic.Publish(ctx, &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"type":   string(evt.Type),
				"domain": evt.Domain,
			},
		}))
	}
	for _, res := range results {
		if _, err := res.Get(ctx); err != nil {
			return fmt.Errorf("publish telemetry event: %w", err)
		}
	}
	return nil
}

// Close implements telemetry.Sink.
func (s *PubSubSink) Close(context.Context) error {
	s.topic.Stop()
	return nil
}
