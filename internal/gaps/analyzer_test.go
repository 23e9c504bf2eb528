package gaps

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/newsatlas/hubcrawler/internal/gazetteer"
	"github.com/newsatlas/hubcrawler/internal/hub"
	"github.com/newsatlas/hubcrawler/internal/predict"
)

func testGazetteer(t *testing.T) *gazetteer.Gazetteer {
	t.Helper()
	g, err := gazetteer.New(gazetteer.File{Entities: []hub.Entity{
		{ID: "us", Kind: hub.KindCountry, Name: "United States", Slug: "united-states", Importance: 90},
		{ID: "fr", Kind: hub.KindCountry, Name: "France", Slug: "france", Importance: 60},
		{ID: "nz", Kind: hub.KindCountry, Name: "New Zealand", Slug: "new-zealand", Importance: 30},
		{ID: "politics", Kind: hub.KindTopic, Name: "Politics", Slug: "politics", Importance: 80},
		{ID: "sport", Kind: hub.KindTopic, Name: "Sport", Slug: "sport", Importance: 70},
		{ID: "idf", Kind: hub.KindRegion, Name: "Ile de France", Slug: "ile-de-france", Importance: 40, ParentID: "fr"},
		{ID: "paris", Kind: hub.KindCity, Name: "Paris", Slug: "paris", Importance: 50, ParentID: "fr"},
	}})
	require.NoError(t, err)
	return g
}

func TestFindGapsOrdersByImportanceThenKey(t *testing.T) {
	a := NewAnalyzer(hub.CandidateCountryHub, testGazetteer(t), predict.NewLibrary(), Options{})

	gaps := a.FindGaps("example.com", nil)
	require.Len(t, gaps, 3)
	require.Equal(t, "us", gaps[0].Entity.ID)
	require.Equal(t, "fr", gaps[1].Entity.ID)
	require.Equal(t, "nz", gaps[2].Entity.ID)
}

func TestFindGapsExcludesConfirmedCoverage(t *testing.T) {
	a := NewAnalyzer(hub.CandidateCountryHub, testGazetteer(t), predict.NewLibrary(), Options{})

	gaps := a.FindGaps("example.com", map[string]struct{}{"fr": {}})
	for _, g := range gaps {
		require.NotEqual(t, "fr", g.Entity.ID, "confirmed entities must never be listed as gaps")
	}
	require.Len(t, gaps, 2)
}

func TestFindGapsFallsBackToSeedsOnEmptyGazetteer(t *testing.T) {
	empty, err := gazetteer.New(gazetteer.File{})
	require.NoError(t, err)
	a := NewAnalyzer(hub.CandidateCountryHub, empty, predict.NewLibrary(), Options{})

	gaps := a.FindGaps("brandnew.example", nil)
	require.NotEmpty(t, gaps, "a new domain must still produce candidates")
}

func TestPlaceTopicGapsRequireConfirmedPlace(t *testing.T) {
	a := NewAnalyzer(hub.CandidatePlaceTopicHub, testGazetteer(t), predict.NewLibrary(), Options{})

	require.Empty(t, a.FindGaps("example.com", nil), "no confirmed places, nothing to compose")

	confirmed := map[string]struct{}{"fr": {}}
	gaps := a.FindGaps("example.com", confirmed)
	require.NotEmpty(t, gaps)
	for _, g := range gaps {
		require.Equal(t, "fr", g.Entity.ID)
		require.NotNil(t, g.Second)
	}
}

func TestPlaceTopicGapsExcludeCoveredPairs(t *testing.T) {
	a := NewAnalyzer(hub.CandidatePlaceTopicHub, testGazetteer(t), predict.NewLibrary(), Options{})
	confirmed := map[string]struct{}{"fr": {}, "fr+politics": {}}

	gaps := a.FindGaps("example.com", confirmed)
	for _, g := range gaps {
		require.NotEqual(t, "fr+politics", g.Key())
	}
}

func TestCrossPlaceGapsRequireBothConfirmedAndCanonicalOrder(t *testing.T) {
	a := NewAnalyzer(hub.CandidateCrossPlaceHub, testGazetteer(t), predict.NewLibrary(), Options{})

	require.Empty(t, a.FindGaps("example.com", map[string]struct{}{"fr": {}}))

	gaps := a.FindGaps("example.com", map[string]struct{}{"fr": {}, "us": {}})
	require.Len(t, gaps, 1)
	require.Equal(t, "fr+us", gaps[0].Key(), "pairs are canonicalized")
}

func TestHierarchicalGapsRequireConfirmedParent(t *testing.T) {
	a := NewAnalyzer(hub.CandidateHierarchicalHub, testGazetteer(t), predict.NewLibrary(), Options{})

	require.Empty(t, a.FindGaps("example.com", nil))

	gaps := a.FindGaps("example.com", map[string]struct{}{"fr": {}})
	keys := make([]string, 0, len(gaps))
	for _, g := range gaps {
		keys = append(keys, g.Key())
	}
	require.ElementsMatch(t, []string{"idf+fr", "paris+fr"}, keys)
}

func TestProposeForGapsCapsOutput(t *testing.T) {
	a := NewAnalyzer(hub.CandidateCountryHub, testGazetteer(t), predict.NewLibrary(), Options{MaxCandidatesPerCycle: 4})

	gaps := a.FindGaps("example.com", nil)
	candidates := a.ProposeForGaps("example.com", gaps, nil)
	require.Len(t, candidates, 4)
	for _, c := range candidates {
		require.True(t, c.GapFill)
		require.Equal(t, hub.CandidateCountryHub, c.Kind)
	}
}

func TestProposeForGapsUsesContextFunc(t *testing.T) {
	a := NewAnalyzer(hub.CandidateHierarchicalHub, testGazetteer(t), predict.NewLibrary(), Options{})
	confirmed := map[string]struct{}{"fr": {}}
	gaps := a.FindGaps("example.com", confirmed)
	require.NotEmpty(t, gaps)

	candidates := a.ProposeForGaps("example.com", gaps, func(gap Gap) predict.Context {
		return predict.Context{ParentHubURL: "https://example.com/world/france"}
	})
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		urls = append(urls, c.URL)
	}
	require.Contains(t, urls, "https://example.com/world/france/paris")
	require.Contains(t, urls, "https://example.com/world/france/ile-de-france")
}

func TestFirstCycleProposesEveryCountryByImportance(t *testing.T) {
	// A domain with zero learned patterns and a three-country gazetteer must
	// propose candidates for exactly those three countries, most important
	// first.
	g, err := gazetteer.New(gazetteer.File{Entities: []hub.Entity{
		{ID: "aa", Kind: hub.KindCountry, Name: "Alpha", Slug: "alpha", Importance: 90},
		{ID: "bb", Kind: hub.KindCountry, Name: "Beta", Slug: "beta", Importance: 60},
		{ID: "cc", Kind: hub.KindCountry, Name: "Gamma", Slug: "gamma", Importance: 30},
	}})
	require.NoError(t, err)
	a := NewAnalyzer(hub.CandidateCountryHub, g, predict.NewLibrary(), Options{})

	gaps := a.FindGaps("example.com", nil)
	require.Len(t, gaps, 3)
	require.Equal(t, []int{90, 60, 30}, []int{gaps[0].Importance(), gaps[1].Importance(), gaps[2].Importance()})

	seenEntities := map[string]bool{}
	for _, c := range a.ProposeForGaps("example.com", gaps, nil) {
		seenEntities[c.EntityID] = true
	}
	require.Len(t, seenEntities, 3)
}
