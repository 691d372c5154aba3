// Package preflight provides readiness checks for the directories, sources,
// and external binaries Aerial depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs failures before the
//     workflow manager starts accepting runs.
//   - The CLI "aerial status" command uses individual check functions
//     (CheckSystemDeps, CheckNotificationsFromConfig) to display
//     environment health.
//
// Validator binaries are never required: a missing one downgrades deep
// stream validation to a pass-through instead of blocking startup.
package preflight
