package frontier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

func cand(url string) hub.Candidate {
	return hub.Candidate{URL: url, Kind: hub.CandidateCountryHub}
}

func TestPushPopOrdersByScore(t *testing.T) {
	f := New(10)
	for i, score := range []float64{40, 110, 75} {
		ok, err := f.Push(cand(fmt.Sprintf("https://example.com/p%d", i)), score)
		require.NoError(t, err)
		require.True(t, ok)
	}

	var got []float64
	for {
		it, ok := f.Pop()
		if !ok {
			break
		}
		got = append(got, it.Score)
	}
	require.Equal(t, []float64{110, 75, 40}, got)
}

func TestEqualScoresPopInInsertionOrder(t *testing.T) {
	f := New(10)
	urls := []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	}
	for _, u := range urls {
		_, err := f.Push(cand(u), 100)
		require.NoError(t, err)
	}
	for _, want := range urls {
		it, ok := f.Pop()
		require.True(t, ok)
		require.Equal(t, want, it.Candidate.URL)
	}
}

func TestPushDeduplicatesEquivalentURLs(t *testing.T) {
	f := New(10)
	ok, err := f.Push(cand("https://Example.com:443/world/france/?b=2&a=1"), 100)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.Push(cand("https://example.com/world/france?a=1&b=2&utm_source=x#top"), 120)
	require.NoError(t, err)
	require.False(t, ok, "same canonical URL must not occupy a second slot")
	require.Equal(t, 1, f.Len())
}

func TestPoppedURLMayBeRepushed(t *testing.T) {
	f := New(10)
	url := "https://example.com/world/france"
	_, err := f.Push(cand(url), 100)
	require.NoError(t, err)
	_, ok := f.Pop()
	require.True(t, ok)

	ok, err = f.Push(cand(url), 90)
	require.NoError(t, err)
	require.True(t, ok, "throttled candidates return to the frontier")
}

func TestCapacityEvictsLowestScore(t *testing.T) {
	f := New(2)
	_, err := f.Push(cand("https://example.com/low"), 10)
	require.NoError(t, err)
	_, err = f.Push(cand("https://example.com/high"), 100)
	require.NoError(t, err)

	// Beats the lowest entry: evicts it.
	ok, err := f.Push(cand("https://example.com/mid"), 50)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, f.Len())

	// Does not beat the current lowest: refused.
	ok, err = f.Push(cand("https://example.com/lower"), 20)
	require.ErrorIs(t, err, hub.ErrFrontierFull)
	require.False(t, ok)

	it, _ := f.Pop()
	require.Equal(t, "https://example.com/high", it.Candidate.URL)
	it, _ = f.Pop()
	require.Equal(t, "https://example.com/mid", it.Candidate.URL)
}

func TestDrainEmptiesAndReturnsDescending(t *testing.T) {
	f := New(10)
	for i, score := range []float64{30, 90, 60} {
		_, err := f.Push(cand(fmt.Sprintf("https://example.com/p%d", i)), score)
		require.NoError(t, err)
	}

	drained := f.Drain()
	require.Len(t, drained, 3)
	require.Equal(t, 0, f.Len())
	require.Equal(t, []float64{90, 60, 30}, []float64{drained[0].Score, drained[1].Score, drained[2].Score})

	_, ok := f.Pop()
	require.False(t, ok)
}

func TestPushRejectsUnparseableURL(t *testing.T) {
	f := New(10)
	ok, err := f.Push(cand("not a url"), 100)
	require.Error(t, err)
	require.False(t, ok)
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host", "https://Example.COM/World", "https://example.com/World"},
		{"default https port", "https://example.com:443/a", "https://example.com/a"},
		{"default http port", "http://example.com:80/a", "http://example.com/a"},
		{"custom port kept", "https://example.com:8443/a", "https://example.com:8443/a"},
		{"trailing slash", "https://example.com/world/france/", "https://example.com/world/france"},
		{"dot segments", "https://example.com/a/../b/./c", "https://example.com/b/c"},
		{"fragment dropped", "https://example.com/a#section", "https://example.com/a"},
		{"query sorted", "https://example.com/a?z=1&a=2", "https://example.com/a?a=2&z=1"},
		{"tracking stripped", "https://example.com/a?utm_source=tw&fbclid=x&id=7", "https://example.com/a?id=7"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Canonicalize(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err := Canonicalize("")
	require.Error(t, err)
	_, err = Canonicalize("/relative/only")
	require.Error(t, err)
}

func TestURLKeyCollidesForEquivalentURLs(t *testing.T) {
	a, err := URLKey("https://example.com/world/france?b=2&a=1")
	require.NoError(t, err)
	b, err := URLKey("https://EXAMPLE.com:443/world/france/?a=1&b=2&gclid=zzz")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)

	c, err := URLKey("https://example.com/world/germany")
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}
