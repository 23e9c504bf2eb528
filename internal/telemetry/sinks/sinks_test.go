package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/newsatlas/hubcrawler/internal/hub"
	"github.com/newsatlas/hubcrawler/internal/telemetry"
)

func event(typ telemetry.Type) telemetry.Event {
	return telemetry.Event{
		RunID:   uuid.New(),
		TS:      time.Now().UTC(),
		Type:    typ,
		Domain:  "example.com",
		URL:     "https://example.com/world/france",
		Kind:    hub.CandidateCountryHub,
		Verdict: hub.VerdictConfirmed,
		Dur:     120 * time.Millisecond,
	}
}

func TestPrometheusSinkCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	batch := []telemetry.Event{
		event(telemetry.TypeCandidateDispatched),
		event(telemetry.TypeHubConfirmed),
		event(telemetry.TypeHubConfirmed),
	}
	require.NoError(t, s.Consume(context.Background(), batch))

	dispatched := testutil.ToFloat64(s.candidatesDispatched.WithLabelValues("example.com", string(hub.CandidateCountryHub)))
	require.Equal(t, 1.0, dispatched)
	confirmed := testutil.ToFloat64(s.hubOutcomes.WithLabelValues("example.com", string(hub.VerdictConfirmed)))
	require.Equal(t, 2.0, confirmed)
}

func TestPrometheusSinkDoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}

func TestMemorySinkRetainsWithLimit(t *testing.T) {
	s := NewMemorySink(2)
	batch := []telemetry.Event{
		event(telemetry.TypeCandidateProposed),
		event(telemetry.TypeCandidateDispatched),
		event(telemetry.TypeHubConfirmed),
	}
	require.NoError(t, s.Consume(context.Background(), batch))

	kept := s.Events()
	require.Len(t, kept, 2)
	require.Equal(t, telemetry.TypeCandidateDispatched, kept[0].Type)
	require.Equal(t, telemetry.TypeHubConfirmed, kept[1].Type)
}
