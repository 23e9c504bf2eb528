// Package validate decides whether a fetched page really is the hub it was
// predicted to be. The URL-structure check and the content analysis are
// independent sub-checks; both must pass for a Confirmed verdict.
package validate

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// nonHubSegments are path segments that rule a URL out as a hub page.
var nonHubSegments = map[string]bool{
	"login": true, "signin": true, "signup": true, "register": true,
	"search": true, "contact": true, "about": true, "privacy": true,
	"terms": true, "author": true, "feed": true, "rss": true,
	"sitemap": true, "admin": true, "account": true,
}

// nonHubExtensions are file extensions that indicate non-page resources.
var nonHubExtensions = map[string]bool{
	".pdf": true, ".xml": true, ".json": true, ".css": true, ".js": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".ico": true, ".zip": true, ".mp3": true, ".mp4": true,
}

var datePathPattern = regexp.MustCompile(`(^|/)(19|20)\d{2}/\d{1,2}(/|$)`)

// Article slugs tend to be long hyphenated headlines; hub slugs are short.
const articleSlugWords = 4

// CheckURL verifies that a candidate URL structurally matches an accepted
// hub shape for its kind: it must name the entity (and, for composite
// kinds, both entities) in its path, and must not look like a single
// article or a utility page.
func CheckURL(rawURL string, kind hub.CandidateKind, entity hub.Entity, second *hub.Entity) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	p := strings.ToLower(strings.Trim(u.Path, "/"))
	if nonHubExtensions[strings.ToLower(path.Ext(p))] {
		return false
	}
	segments := strings.Split(p, "/")
	for _, seg := range segments {
		if nonHubSegments[seg] {
			return false
		}
	}
	if URLLooksLikeArticle(rawURL) {
		return false
	}
	if !pathNamesEntity(segments, entity) {
		return false
	}
	if kind.IsComposite() && second != nil && !pathNamesEntity(segments, *second) {
		return false
	}
	return true
}

// URLLooksLikeArticle reports whether a URL has the shape of a single
// article rather than an index page: a dated path or a long hyphenated
// headline slug in its final segment.
func URLLooksLikeArticle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := strings.Trim(u.Path, "/")
	if datePathPattern.MatchString(p) {
		return true
	}
	segments := strings.Split(p, "/")
	last := segments[len(segments)-1]
	last = strings.TrimSuffix(last, path.Ext(last))
	return strings.Count(last, "-") >= articleSlugWords
}

func pathNamesEntity(segments []string, entity hub.Entity) bool {
	names := map[string]bool{}
	for _, n := range append([]string{entity.Slug, entity.ID}, entity.Aliases...) {
		if n != "" {
			names[strings.ToLower(n)] = true
		}
	}
	for _, seg := range segments {
		if names[seg] {
			return true
		}
	}
	return false
}
