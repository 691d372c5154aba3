package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"aerial/internal/config"
	"aerial/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSourcesConfigured verifies at least one playlist source is configured.
// Runs cannot succeed without one, so the daemon surfaces this before the
// first scan rather than failing every run in ingest.
func CheckSourcesConfigured(cfg *config.Config) Result {
	const name = "Playlist sources"

	remotes := 0
	for _, raw := range cfg.Sources.Remote {
		if strings.TrimSpace(raw) != "" {
			remotes++
		}
	}
	local := strings.TrimSpace(cfg.Sources.LocalDir) != ""

	if remotes == 0 && !local {
		return Result{Name: name, Detail: "no remote URLs and no local directory configured"}
	}

	detail := fmt.Sprintf("%d remote", remotes)
	if local {
		detail += ", local directory configured"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckSystemDeps evaluates the validator binaries for the given config.
// Both the daemon and the CLI status command use this to avoid duplicating
// the requirements list. All validator binaries are optional; availability
// decides which deep checks run, not whether the daemon starts.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.ValidatorRequirements(cfg))
}
