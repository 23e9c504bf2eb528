package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzeResolvesAndDedupesArticleLinks(t *testing.T) {
	body := `<html><body>
		<a href="/fr/macron-wins-big-in-runoff-vote">one</a>
		<a href="/fr/macron-wins-big-in-runoff-vote">dup</a>
		<a href="https://example.com/fr/senate-passes-pension-reform-bill">two</a>
		<a href="https://other.com/fr/elsewhere-story-about-something-else">external</a>
		<a href="/fr">nav</a>
	</body></html>`

	a := &Analyzer{}
	m, err := a.Analyze("https://example.com/fr", []byte(body))
	require.NoError(t, err)
	require.Len(t, m.ArticleURLs, 2, "dups and external links excluded")
	require.Equal(t, 4, m.InternalLinks)
	require.Contains(t, m.ArticleURLs, "https://example.com/fr/macron-wins-big-in-runoff-vote")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		m    ContentMetrics
		want PageClass
	}{
		{"many article links", ContentMetrics{ArticleURLs: make([]string, 10), InternalLinks: 10}, ClassHub},
		{"long prose few links", ContentMetrics{BodyTextRunes: 2000, InternalLinks: 2, Paragraphs: 12}, ClassArticle},
		{"empty page", ContentMetrics{}, ClassAmbiguous},
		{"link farm without article slugs", ContentMetrics{InternalLinks: 30}, ClassHub},
		{"middling page", ContentMetrics{InternalLinks: 5, BodyTextRunes: 400}, ClassAmbiguous},
	}
	a := &Analyzer{}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, a.Classify(tc.m))
		})
	}
}

func TestURLLooksLikeArticle(t *testing.T) {
	require.True(t, URLLooksLikeArticle("https://example.com/fr/macron-wins-big-in-runoff-vote"))
	require.True(t, URLLooksLikeArticle("https://example.com/fr/2026/05/12/story"))
	require.False(t, URLLooksLikeArticle("https://example.com/world/france"))
	require.False(t, URLLooksLikeArticle("https://example.com/topics/climate-change"))
}

func TestAnalyzeCountsParagraphText(t *testing.T) {
	body := "<html><body><p>" + strings.Repeat("word ", 100) + "</p><p>short</p></body></html>"
	a := &Analyzer{}
	m, err := a.Analyze("https://example.com/fr", []byte(body))
	require.NoError(t, err)
	require.Equal(t, 2, m.Paragraphs)
	require.Greater(t, m.BodyTextRunes, 400)
}
