// Package pattern learns per-domain URL templates from confirmed hubs so
// future predictions skip straight to known-good shapes.
package pattern

import (
	"net/url"
	"strings"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Placeholder marks the entity segment inside a learned template.
const Placeholder = "{slug}"

// ExtractTemplate derives the structural template of a confirmed hub URL by
// replacing the path segment that names the entity with the placeholder.
// The entity segment is matched against the slug, ID, and aliases,
// case-insensitively. Returns false when no segment names the entity, in
// which case nothing can be learned from the URL.
func ExtractTemplate(rawURL string, entity hub.Entity) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	names := entityNames(entity)
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	replaced := false
	for i, seg := range segments {
		if _, ok := names[strings.ToLower(seg)]; ok {
			segments[i] = Placeholder
			replaced = true
		}
	}
	if !replaced {
		return "", false
	}
	u.Path = "/" + strings.Join(segments, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), true
}

func entityNames(entity hub.Entity) map[string]struct{} {
	names := make(map[string]struct{}, 2+len(entity.Aliases))
	if entity.Slug != "" {
		names[strings.ToLower(entity.Slug)] = struct{}{}
	}
	if entity.ID != "" {
		names[strings.ToLower(entity.ID)] = struct{}{}
	}
	for _, a := range entity.Aliases {
		if a != "" {
			names[strings.ToLower(a)] = struct{}{}
		}
	}
	return names
}
