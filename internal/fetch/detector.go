package fetch

import (
	"bytes"
	"strings"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Detector decides whether a probe response needs a headless re-fetch.
type Detector interface {
	ShouldPromote(resp hub.FetchResponse) bool
}

// Heuristic promotes responses that look like client-rendered shells: an
// empty body, a small body dominated by script, or a known SPA mount point.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates the rule-based detector.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = 2048
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
}

// ShouldPromote implements Detector.
func (h *Heuristic) ShouldPromote(resp hub.FetchResponse) bool {
	if resp.StatusCode != 200 || resp.UsedHeadless {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptHeavy(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// scriptHeavy reports whether script tags cover at least a quarter of the
// document.
func scriptHeavy(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	covered := 0
	pos := 0
	for {
		start := strings.Index(lower[pos:], "<script")
		if start == -1 {
			break
		}
		start += pos

		end := strings.Index(lower[start:], "</script>")
		if end == -1 {
			covered += total - start
			break
		}
		end += start + len("</script>")
		covered += end - start
		pos = end
	}
	return covered*100/total >= 25
}
