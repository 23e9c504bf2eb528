package sinks

import (
	"context"
	"sync"

	"github.com/newsatlas/hubcrawler/internal/telemetry"
)

// MemorySink retains events in memory. Used by tests and by the control
// API's recent-events endpoint.
type MemorySink struct {
	mu     sync.Mutex
	events []telemetry.Event
	// Limit caps retained events; oldest are discarded first (0 = no cap).
	Limit int
}

// NewMemorySink builds a sink retaining at most limit events.
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{Limit: limit}
}

// Consume implements telemetry.Sink.
func (s *MemorySink) Consume(_ context.Context, batch []telemetry.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	if s.Limit > 0 && len(s.events) > s.Limit {
		s.events = s.events[len(s.events)-s.Limit:]
	}
	return nil
}

// Close implements telemetry.Sink.
func (s *MemorySink) Close(context.Context) error {
	return nil
}

// Events returns a copy of everything retained.
func (s *MemorySink) Events() []telemetry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]telemetry.Event(nil), s.events...)
}
