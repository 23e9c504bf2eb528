// Package store groups the persistence backends for hub records, learned
// patterns, and coverage. The memory implementation backs development and
// tests; the postgres implementation backs real runs. Both satisfy the
// hub.Store interface, so the crawl core never names a driver.
package store
