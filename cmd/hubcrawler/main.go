// Package main hosts the hubcrawler entrypoint.
//
// Architecture overview:
//   - Planning: gap analyzers compare the gazetteer's reference entities
//     against confirmed coverage and propose candidate hub URLs through the
//     prediction strategy library; blackboard reasoners add estimates and
//     extra candidates, and the scorer ranks the merged batch.
//   - Crawl loop: the controller pushes ranked candidates onto a priority
//     frontier, dispatches fetches under per-host politeness and a global
//     in-flight cap, and feeds every outcome through a single validation
//     and learning path.
//   - Fetching: a Colly probe handles the fast path; a heuristic detector
//     promotes script-shell pages to a Chromedp headless fetch; transient
//     failures retry with exponential backoff.
//   - Persistence & fanout: hub records, learned patterns, and coverage go
//     to Postgres (or memory for development); confirmed-page snapshots go
//     to the evidence archive (GCS, local disk, or memory); telemetry
//     events batch out to zap logs, Prometheus, and optionally Pub/Sub.
//   - Control: 'crawl' runs once to completion; 'serve' attaches the HTTP
//     control surface for pause/resume/abort/mode plus status, coverage,
//     and recent-event reads.
package main

import "github.com/newsatlas/hubcrawler/cmd"

func main() {
	cmd.Execute()
}
