// Package archive defines the blob store that keeps raw page snapshots as
// validation evidence. The abstraction keeps the crawl core independent of
// the backing medium (Google Cloud Storage, the local filesystem, or memory
// for development runs).
package archive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/newsatlas/hubcrawler/internal/hash/sha256"
)

// Store writes an evidence object and returns the URI it is reachable at.
type Store interface {
	Put(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Noop discards evidence. Useful for dry runs where pages are validated but
// nothing is archived.
type Noop struct{}

// Put for Noop drops the data and returns an empty URI.
func (Noop) Put(_ context.Context, _ string, _ string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return "", nil
}

// ObjectPath derives a stable object key for one validated page: snapshots
// group by domain and run, and the leaf name is the URL digest so repeated
// archival of the same page overwrites rather than accumulates.
func ObjectPath(domain, runID, url string) string {
	digest, err := sha256.New().Hash([]byte(url))
	if err != nil {
		// SHA-256 over a byte slice cannot fail; keep a usable key anyway.
		digest = strings.NewReplacer("/", "_", ":", "_").Replace(url)
	}
	return fmt.Sprintf("%s/%s/%s.html", domain, runID, digest)
}
