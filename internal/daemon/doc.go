// Package daemon coordinates the long-running Aerial process and system
// integration points.
//
// It wires configuration, run storage, the workflow manager, the HTTP API,
// and the scan scheduler into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon exposes run maintenance helpers,
// enforces the single-scan-at-a-time rule at enqueue, and emits dependency
// health summaries.
//
// Keep orchestration logic here: individual workflow stages should live in
// their respective packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
