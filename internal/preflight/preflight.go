package preflight

import (
	"context"

	"aerial/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Data directory (always checked, holds the run database)
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))

	// Output directory (always checked, publish target)
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))

	// Local sources directory (when configured)
	if cfg.Sources.LocalDir != "" {
		results = append(results, CheckDirectoryAccess("Sources directory", cfg.Sources.LocalDir))
	}

	// At least one playlist source must exist or every run fails in ingest
	results = append(results, CheckSourcesConfigured(cfg))

	return results
}
