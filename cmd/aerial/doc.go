// Package main hosts the Aerial CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP API
// calls against a running daemon, run maintenance operations, one-off stream
// checks, and configuration scaffolding. Commands that manage runs fall back
// to direct database access when no daemon is reachable, so maintenance works
// whether or not aeriald is up.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
