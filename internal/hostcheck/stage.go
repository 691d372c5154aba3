package hostcheck

import (
	"context"
	"fmt"
	"log/slog"

	"aerial/internal/config"
	"aerial/internal/deepcheck"
	"aerial/internal/ingest"
	"aerial/internal/logging"
	"aerial/internal/probe"
	"aerial/internal/queue"
	"aerial/internal/stage"
)

// ProbeStage screens every endpoint named by the ingestion snapshot and
// stores one quality verdict per host on the run. The prober is shared with
// the selection stage so all probing draws from one worker budget.
type ProbeStage struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	prober *probe.Prober
	checks *deepcheck.Suite
	tester *Tester
}

// NewProbeStage constructs the probe stage handler over the shared prober.
func NewProbeStage(cfg *config.Config, store *queue.Store, prober *probe.Prober, checks *deepcheck.Suite, logger *slog.Logger) *ProbeStage {
	ps := &ProbeStage{
		cfg:    cfg,
		store:  store,
		prober: prober,
		checks: checks,
		tester: NewTester(cfg, prober, logger),
	}
	ps.SetLogger(logger)
	return ps
}

// SetLogger updates the stage's logging destination.
func (s *ProbeStage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "probe-stage")
}

// Prepare initializes progress messaging prior to Execute.
func (s *ProbeStage) Prepare(ctx context.Context, run *queue.Run) error {
	run.InitProgress("Probe", "Screening stream hosts")
	logging.WithContext(ctx, s.logger).Debug("starting host screening")
	return nil
}

// Execute decodes the snapshot, screens every endpoint, and persists the
// quality map. Interruption surfaces as the context error so the run rolls
// back and screens again on the next pass.
func (s *ProbeStage) Execute(ctx context.Context, run *queue.Run) error {
	logger := logging.WithContext(ctx, s.logger)

	var snap ingest.Snapshot
	if err := stage.DecodeArtifact(run.SnapshotJSON, "snapshot", &snap); err != nil {
		return err
	}

	endpoints := GroupByHost(snap.Channels)
	run.Endpoints = len(endpoints)
	run.SetProgress("Probe", fmt.Sprintf("Screening %d hosts across %d channels", len(endpoints), len(snap.Channels)), 10)
	if s.store != nil {
		_ = s.store.UpdateProgress(ctx, run)
	}

	quality := s.tester.Run(ctx, endpoints)
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := stage.EncodeArtifact("quality", quality)
	if err != nil {
		return err
	}

	stats := Summarize(quality)
	run.QualityJSON = encoded
	run.AliveEndpoints = stats.Alive
	run.Status = queue.StatusProbed
	run.SetProgressComplete("Probed",
		fmt.Sprintf("%d/%d hosts alive (%.1f%%)", stats.Alive, stats.Total, stats.SurvivalRate()*100))

	logger.Info("host screening stored",
		logging.Int("endpoints", stats.Total),
		logging.Int("alive", stats.Alive))
	return nil
}

// HealthCheck reports the prober's readiness and which deep validators are
// active.
func (s *ProbeStage) HealthCheck(ctx context.Context) stage.Health {
	if s.cfg == nil {
		return stage.Unhealthy("probe", "configuration unavailable")
	}
	if s.prober == nil || s.prober.Workers() <= 0 {
		return stage.Unhealthy("probe", "worker pool not configured")
	}
	if s.checks != nil {
		structural, visual := s.checks.Capabilities()
		switch {
		case !structural && !visual:
			return stage.Degraded("probe", "deep validation disabled")
		case !structural:
			return stage.Degraded("probe", "structural validation unavailable")
		case !visual:
			return stage.Degraded("probe", "visual validation unavailable")
		}
	}
	return stage.Healthy("probe")
}
