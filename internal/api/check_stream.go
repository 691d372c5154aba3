package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"aerial/internal/config"
	"aerial/internal/deepcheck"
	"aerial/internal/endpoint"
	"aerial/internal/logging"
	"aerial/internal/probe"
)

// CheckStreamRequest carries everything needed to verify one stream URL.
type CheckStreamRequest struct {
	Config *config.Config
	URL    string
	Logger *slog.Logger
}

// CheckStreamResult reports the probe verdict for a single URL.
type CheckStreamResult struct {
	URL      string        `json:"url"`
	Host     string        `json:"host"`
	Manifest bool          `json:"manifest"`
	Alive    bool          `json:"alive"`
	Kind     string        `json:"kind"`
	Reason   string        `json:"reason,omitempty"`
	Latency  time.Duration `json:"latencyNs"`
}

// CheckStream probes a single stream URL the same way a scan run would,
// including deep validation when validator binaries are available.
func CheckStream(ctx context.Context, req CheckStreamRequest) (CheckStreamResult, error) {
	cfg := req.Config
	if cfg == nil {
		return CheckStreamResult{}, fmt.Errorf("configuration is required")
	}
	logger := req.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	raw := strings.TrimSpace(req.URL)
	if raw == "" {
		return CheckStreamResult{}, fmt.Errorf("stream URL is required")
	}
	host, err := endpoint.FromURL(raw)
	if err != nil {
		return CheckStreamResult{}, err
	}

	checks := deepcheck.NewSuite(cfg, logger)
	prober := probe.New(cfg, checks, logger)
	verdict := prober.Probe(ctx, raw)

	return CheckStreamResult{
		URL:      raw,
		Host:     host.Key(),
		Manifest: endpoint.IsManifest(raw),
		Alive:    verdict.Alive,
		Kind:     string(verdict.Kind),
		Reason:   verdict.Reason,
		Latency:  verdict.Latency,
	}, nil
}
