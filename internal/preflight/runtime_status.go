package preflight

import (
	"strings"

	"aerial/internal/config"
)

// CheckNotificationsFromConfig evaluates Bark notification readiness from
// config alone. Notifications are optional, so an empty device key passes
// with a Disabled detail instead of failing.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.BarkDeviceKey) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: "Bark configured"}
}

// CheckEPGFromConfig reports whether the published playlist will carry an
// EPG reference.
func CheckEPGFromConfig(cfg *config.Config) Result {
	const name = "EPG"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Output.EPGURL) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Output.EPGURL}
}
