package telemetry

import "context"

// Sink consumes batches of events. Implementations must honor ctx
// deadlines and tolerate repeated Close calls; batches may arrive from a
// single goroutine but sinks should not assume so.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events. Hub satisfies it, so the rest of
// the crawler stays agnostic about buffering and delivery.
type Emitter interface {
	Emit(evt Event)
}
