// Package frontier holds the bounded priority queue of scored candidates
// between planning and dispatch. Candidates are deduplicated by a
// normalized form of their URL, so the same hub expressed with different
// query ordering, casing, or tracking junk occupies one slot.
package frontier

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
)

// trackingParams never affect page identity and are dropped before hashing.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {},
	"utm_term": {}, "utm_content": {},
	"fbclid": {}, "gclid": {}, "gclsrc": {}, "dclid": {}, "msclkid": {},
}

// Canonicalize rewrites a URL into its deduplication form: scheme and host
// lowercased, default ports dropped, dot-segments resolved, trailing slash
// trimmed, fragment removed, tracking parameters stripped, and the
// remaining query keys sorted. The fetchable URL is kept as-is elsewhere;
// this form exists only so equivalent URLs collide.
func Canonicalize(rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", fmt.Errorf("canonicalize: empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("canonicalize %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("canonicalize %q: missing scheme or host", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = canonicalHost(u)
	u.Fragment = ""
	u.RawQuery = canonicalQuery(u.Query())
	if u.Path != "" {
		u.Path = strings.TrimRight(path.Clean(u.Path), "/")
	}
	return u.String(), nil
}

// URLKey returns the SHA-256 hex digest of the canonical URL, used as the
// frontier's dedup key.
func URLKey(rawURL string) (string, error) {
	canonical, err := Canonicalize(rawURL)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// Host returns the lowercased hostname for throttling, without the port.
func Host(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("frontier host %q: unparseable", rawURL)
	}
	return strings.ToLower(u.Hostname()), nil
}

func canonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	switch {
	case port == "":
		return host
	case u.Scheme == "http" && port == "80", u.Scheme == "https" && port == "443":
		return host
	}
	return host + ":" + port
}

func canonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if _, tracking := trackingParams[key]; !tracking {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	clean := url.Values{}
	for _, key := range keys {
		clean[key] = values[key]
	}
	return clean.Encode()
}
