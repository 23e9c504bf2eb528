// Package api hosts the HTTP control surface for a crawl run. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/crawl/{pause,resume,abort,mode} for lifecycle control.
//   - GET /v1/crawl/status, /v1/crawl/events, and /v1/coverage for operator
//     visibility into the running crawl.
package api
