// Package notifications delivers scan lifecycle events via Bark push.
//
// The default implementation issues Bark GET requests against the server and
// device key configured in config.toml and gracefully degrades to a no-op
// when no device key is set. The Service interface covers the major scan
// milestones so workflow code can emit consistent, user-friendly messages
// without duplicating HTTP glue.
//
// Extend this package if you need alternative transports; all workflow code
// depends only on the simple Service interface.
package notifications
