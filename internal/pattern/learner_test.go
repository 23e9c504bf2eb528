package pattern

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newsatlas/hubcrawler/internal/hub"
	"github.com/newsatlas/hubcrawler/internal/store/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testClock = fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

var franceEntity = hub.Entity{ID: "fr", Kind: hub.KindCountry, Name: "France", Slug: "france", Aliases: []string{"french-republic"}}

func TestExtractTemplate(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		entity hub.Entity
		want   string
		ok     bool
	}{
		{
			name:   "slug segment",
			url:    "https://example.com/world/france",
			entity: franceEntity,
			want:   "https://example.com/world/{slug}",
			ok:     true,
		},
		{
			name:   "id segment case-insensitive",
			url:    "https://example.com/world/FR",
			entity: franceEntity,
			want:   "https://example.com/world/{slug}",
			ok:     true,
		},
		{
			name:   "alias segment",
			url:    "https://example.com/news/french-republic",
			entity: franceEntity,
			want:   "https://example.com/news/{slug}",
			ok:     true,
		},
		{
			name:   "query and fragment stripped",
			url:    "https://example.com/world/france?page=2#top",
			entity: franceEntity,
			want:   "https://example.com/world/{slug}",
			ok:     true,
		},
		{
			name:   "no entity segment",
			url:    "https://example.com/world/germany",
			entity: franceEntity,
			ok:     false,
		},
		{
			name:   "relative url",
			url:    "/world/france",
			entity: franceEntity,
			ok:     false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractTemplate(tc.url, tc.entity)
			require.Equal(t, tc.ok, ok)
			if ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestObserveLearnsAndReinforces(t *testing.T) {
	ctx := context.Background()
	learner := NewLearner(memory.NewStore(), testClock, nil)

	first, learned, err := learner.Observe(ctx, Observation{
		Domain: "example.com", Kind: hub.CandidateCountryHub,
		URL: "https://example.com/world/france", Entity: franceEntity,
		Verdict: hub.VerdictConfirmed, Yield: 10,
	})
	require.NoError(t, err)
	require.True(t, learned)
	require.Equal(t, "https://example.com/world/{slug}", first.Template)
	require.Equal(t, 1, first.Successes)
	require.Equal(t, 10.0, first.AvgYield)

	germany := hub.Entity{ID: "de", Kind: hub.KindCountry, Name: "Germany", Slug: "germany"}
	second, learned, err := learner.Observe(ctx, Observation{
		Domain: "example.com", Kind: hub.CandidateCountryHub,
		URL: "https://example.com/world/germany", Entity: germany,
		Verdict: hub.VerdictConfirmed, Yield: 20,
	})
	require.NoError(t, err)
	require.True(t, learned)
	require.Equal(t, 2, second.Successes)
	require.Equal(t, 15.0, second.AvgYield)
}

func TestObserveIsIdempotentPerURL(t *testing.T) {
	ctx := context.Background()
	learner := NewLearner(memory.NewStore(), testClock, nil)
	obs := Observation{
		Domain: "example.com", Kind: hub.CandidateCountryHub,
		URL: "https://example.com/world/france", Entity: franceEntity,
		Verdict: hub.VerdictConfirmed, Yield: 10,
	}

	_, _, err := learner.Observe(ctx, obs)
	require.NoError(t, err)
	again, learned, err := learner.Observe(ctx, obs)
	require.NoError(t, err)
	require.False(t, learned)
	require.Equal(t, 1, again.Successes, "re-observation must not double count")
	require.Equal(t, 10.0, again.AvgYield)
}

func TestObserveRejectionLeavesPatternsUntouched(t *testing.T) {
	ctx := context.Background()
	learner := NewLearner(memory.NewStore(), testClock, nil)

	_, _, err := learner.Observe(ctx, Observation{
		Domain: "example.com", Kind: hub.CandidateCountryHub,
		URL: "https://example.com/world/france", Entity: franceEntity,
		Verdict: hub.VerdictConfirmed, Yield: 10,
	})
	require.NoError(t, err)

	_, learned, err := learner.Observe(ctx, Observation{
		Domain: "example.com", Kind: hub.CandidateCountryHub,
		URL: "https://example.com/world/atlantis", Entity: hub.Entity{ID: "at", Slug: "atlantis"},
		Verdict: hub.VerdictRejected,
	})
	require.NoError(t, err)
	require.False(t, learned)
	require.Equal(t, 1, learner.Rejections("example.com"))

	patterns, err := learner.BestPatterns(ctx, "example.com", hub.CandidateCountryHub)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	require.Equal(t, 1, patterns[0].Successes)
}

func TestBestPatternsRanksByYield(t *testing.T) {
	ctx := context.Background()
	learner := NewLearner(memory.NewStore(), testClock, nil)

	seed := []Observation{
		{Domain: "example.com", Kind: hub.CandidateCountryHub, URL: "https://example.com/world/france", Entity: franceEntity, Verdict: hub.VerdictConfirmed, Yield: 5},
		{Domain: "example.com", Kind: hub.CandidateCountryHub, URL: "https://example.com/news/france", Entity: franceEntity, Verdict: hub.VerdictConfirmed, Yield: 50},
	}
	for _, obs := range seed {
		_, _, err := learner.Observe(ctx, obs)
		require.NoError(t, err)
	}

	patterns, err := learner.BestPatterns(ctx, "example.com", hub.CandidateCountryHub)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	require.Equal(t, "https://example.com/news/{slug}", patterns[0].Template, "higher yield outranks")
}

func TestBestPatternsPrimesFromStore(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	require.NoError(t, st.PutLearnedPattern(ctx, hub.LearnedPattern{
		Domain: "example.com", Kind: hub.CandidateCountryHub,
		Template: "https://example.com/intl/{slug}", Successes: 4, AvgYield: 12,
	}))

	learner := NewLearner(st, testClock, nil)
	patterns, err := learner.BestPatterns(ctx, "example.com", hub.CandidateCountryHub)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	require.Equal(t, 4, patterns[0].Successes)
}
