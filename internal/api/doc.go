// Package api defines the transport DTOs shared by the daemon's HTTP
// surface and the CLI, the read-only run query service behind both, and
// the client the CLI uses to reach a running daemon.
package api
