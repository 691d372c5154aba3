package stage

import (
	"encoding/json"
	"errors"
	"strings"

	"aerial/internal/services"
)

// DecodeArtifact unmarshals a stage artifact JSON column into dst. On failure
// it returns a services.ErrValidation suitable for stage Execute methods.
func DecodeArtifact(raw, what string, dst any) error {
	if strings.TrimSpace(raw) == "" {
		return services.Wrap(
			services.ErrValidation, "stage", "decode "+what,
			"Run is missing its "+what+" artifact; rerun the earlier stage",
			errors.New("empty artifact"))
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return services.Wrap(
			services.ErrValidation, "stage", "decode "+what,
			"Stored "+what+" artifact is not valid JSON; rerun the earlier stage", err)
	}
	return nil
}

// EncodeArtifact marshals a stage artifact for storage on the run row.
func EncodeArtifact(what string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "stage", "encode "+what, "", err)
	}
	return string(data), nil
}
