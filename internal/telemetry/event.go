// Package telemetry defines the structured events the crawl emits and the
// hub that fans them out to sinks without ever blocking the emitter.
package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Type names a telemetry event.
type Type string

// Event types emitted by the crawl.
const (
	TypeCandidateProposed   Type = "candidate-proposed"
	TypeCandidateDispatched Type = "candidate-dispatched"
	TypeHubConfirmed        Type = "hub-confirmed"
	TypeHubRejected         Type = "hub-rejected"
	TypeGapFilled           Type = "gap-filled"
	TypePatternLearned      Type = "pattern-learned"
	TypeLifecycleChanged    Type = "lifecycle-stage-changed"
)

// Event is one telemetry record. Consumers subscribe through sinks; the
// core never waits for them.
type Event struct {
	// RunID identifies the crawl run.
	RunID uuid.UUID `json:"run_id"`
	// TS is the UTC timestamp recorded by the emitter.
	TS   time.Time `json:"ts"`
	Type Type      `json:"type"`
	// Domain scopes the event to a site.
	Domain string `json:"domain,omitempty"`
	URL    string `json:"url,omitempty"`
	// EntityID and SecondEntityID reference gazetteer entries.
	EntityID       string            `json:"entity_id,omitempty"`
	SecondEntityID string            `json:"second_entity_id,omitempty"`
	Kind           hub.CandidateKind `json:"kind,omitempty"`
	// Strategy names the predictor that produced a proposed candidate.
	Strategy hub.Strategy `json:"strategy,omitempty"`
	Verdict  hub.Verdict  `json:"verdict,omitempty"`
	// Stage carries the new lifecycle stage for lifecycle events.
	Stage string `json:"stage,omitempty"`
	// Score is the priority the candidate was dispatched with.
	Score float64       `json:"score,omitempty"`
	Dur   time.Duration `json:"dur,omitempty"`
	// Note attaches low-volume context such as evidence strings.
	Note string `json:"note,omitempty"`
}

// Validate performs coarse validation before an event enters the hub.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Type {
	case TypeCandidateProposed, TypeCandidateDispatched, TypeHubConfirmed, TypeHubRejected:
		if e.URL == "" {
			return fmt.Errorf("%s requires url", e.Type)
		}
		if e.Domain == "" {
			return fmt.Errorf("%s requires domain", e.Type)
		}
	case TypeGapFilled:
		if e.EntityID == "" {
			return errors.New("gap-filled requires entity id")
		}
	case TypePatternLearned:
		if e.Domain == "" {
			return errors.New("pattern-learned requires domain")
		}
	case TypeLifecycleChanged:
		if e.Stage == "" {
			return errors.New("lifecycle-stage-changed requires stage")
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
