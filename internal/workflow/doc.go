// Package workflow advances scan runs through the configured processing
// stages.
//
// The Manager polls the run queue, reclaims stale work via heartbeats, and
// feeds runs into registered stage handlers (ingester, prober, selector,
// publisher) while capturing progress and failure metadata. It also
// aggregates queue stats, calls stage health checks, and emits scan-level
// notifications when a run starts or fails.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition runs; this package is
// the authoritative home for that coordination logic.
package workflow
