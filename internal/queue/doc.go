// Package queue persists scan runs in SQLite and exposes helpers for driving
// their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-run recovery, and status transitions
// that mirror the public workflow enum. Run rows capture progress, stage
// artifacts, and aggregate counts so stages can coordinate without
// additional state.
//
// The database is treated as transient storage for in-flight and recent runs
// rather than a long-term archive. Schema changes bump the version in
// schema.go; users clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for run semantics; when
// you add new statuses or artifact columns, update schema.sql and bump
// schemaVersion.
package queue
