// Package internal documents the AusCal server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses and routing
// - domain: event rules, validation and the list query language
// - storage: database access and repositories (pgx + Postgres)
// - enrichment, geocoding, fetch: weather, holiday and location lookups
// - calendar, render: iCalendar feeds and PNG charts and maps
// - jobs: cron-scheduled background work
// - audit, cache, config, metrics, sanitize, telemetry, validation: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
