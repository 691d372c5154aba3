// Package deps detects the external binaries the deep stream validators
// shell out to. Availability is probed once at startup; everything here is
// optional, so a miss downgrades a validator rather than failing the run.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names one external binary and what it is used for.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the probed availability of a Requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries resolves each requirement's command on PATH and reports
// the outcome in input order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, locate(req))
	}
	return results
}

func locate(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	switch {
	case status.Command == "":
		status.Detail = "no command configured"
	default:
		if _, err := exec.LookPath(status.Command); err != nil {
			status.Detail = fmt.Sprintf("%q not found on PATH", status.Command)
		} else {
			status.Available = true
		}
	}
	return status
}
