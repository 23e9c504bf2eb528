package validate

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageClass is the coarse result of content analysis.
type PageClass string

// Content classifications.
const (
	ClassHub       PageClass = "hub"
	ClassArticle   PageClass = "article"
	ClassAmbiguous PageClass = "ambiguous"
)

// ContentMetrics summarizes the link structure of a fetched page.
type ContentMetrics struct {
	TotalLinks    int
	InternalLinks int
	ArticleLinks  int
	Paragraphs    int
	BodyTextRunes int
	// ArticleURLs are the absolute, deduplicated article links found.
	ArticleURLs []string
}

// Analyzer performs link-density content analysis on fetched pages.
type Analyzer struct {
	// MinArticleLinks is the hub threshold (default 8).
	MinArticleLinks int
}

const defaultMinArticleLinks = 8

// Analyze parses the HTML and counts navigation and article links. An error
// is returned only for unparseable input; empty pages parse fine and simply
// score zero.
func (a *Analyzer) Analyze(pageURL string, body []byte) (ContentMetrics, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ContentMetrics{}, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ContentMetrics{}, fmt.Errorf("parse page url: %w", err)
	}

	var m ContentMetrics
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		m.TotalLinks++
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Hostname() != base.Hostname() {
			return
		}
		m.InternalLinks++
		absStr := abs.String()
		if URLLooksLikeArticle(absStr) {
			m.ArticleLinks++
			if _, dup := seen[absStr]; !dup {
				seen[absStr] = struct{}{}
				m.ArticleURLs = append(m.ArticleURLs, absStr)
			}
		}
	})

	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			m.Paragraphs++
			m.BodyTextRunes += len([]rune(text))
		}
	})
	return m, nil
}

// Classify turns metrics into a page class. A page with enough distinct
// article links is a hub; a page dominated by body text with few links is a
// single article; anything else is ambiguous and worth one retry.
func (a *Analyzer) Classify(m ContentMetrics) PageClass {
	threshold := a.MinArticleLinks
	if threshold <= 0 {
		threshold = defaultMinArticleLinks
	}
	if len(m.ArticleURLs) >= threshold {
		return ClassHub
	}
	// Long-form text with hardly any internal links reads as an article.
	if m.BodyTextRunes > 1500 && m.InternalLinks < threshold {
		return ClassArticle
	}
	if m.TotalLinks == 0 && m.BodyTextRunes == 0 {
		return ClassAmbiguous
	}
	if m.InternalLinks >= threshold*3 {
		// Link-heavy page without obvious article slugs; still hub-shaped.
		return ClassHub
	}
	return ClassAmbiguous
}

// Evidence renders the metrics as the compact string persisted with a hub
// record.
func (m ContentMetrics) Evidence() string {
	return fmt.Sprintf("links=%d internal=%d article_links=%d paragraphs=%d text_runes=%d",
		m.TotalLinks, m.InternalLinks, m.ArticleLinks, m.Paragraphs, m.BodyTextRunes)
}
