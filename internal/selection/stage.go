package selection

import (
	"context"
	"fmt"
	"log/slog"

	"aerial/internal/config"
	"aerial/internal/endpoint"
	"aerial/internal/hostcheck"
	"aerial/internal/ingest"
	"aerial/internal/logging"
	"aerial/internal/queue"
	"aerial/internal/stage"
)

// Outcome is the selection artifact persisted on the run.
type Outcome struct {
	Picks      []Pick       `json:"picks"`
	Unresolved []Unresolved `json:"unresolved"`
}

// SelectStage resolves every channel against the stored quality map.
type SelectStage struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	resolver *Resolver
}

// NewSelectStage constructs the select stage handler. The confirmer is the
// shared prober, so confirmatory rechecks run under the same worker budget
// as screening.
func NewSelectStage(cfg *config.Config, store *queue.Store, confirmer Confirmer, logger *slog.Logger) *SelectStage {
	st := &SelectStage{
		cfg:      cfg,
		store:    store,
		resolver: NewResolver(confirmer, logger),
	}
	st.SetLogger(logger)
	return st
}

// SetLogger updates the stage's logging destination.
func (s *SelectStage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "select-stage")
}

// Prepare initializes progress messaging prior to Execute.
func (s *SelectStage) Prepare(ctx context.Context, run *queue.Run) error {
	run.InitProgress("Select", "Resolving channel candidates")
	logging.WithContext(ctx, s.logger).Debug("starting channel selection")
	return nil
}

// Execute decodes the snapshot and quality artifacts, resolves one confirmed
// URL per channel, and persists the outcome.
func (s *SelectStage) Execute(ctx context.Context, run *queue.Run) error {
	logger := logging.WithContext(ctx, s.logger)

	var snap ingest.Snapshot
	if err := stage.DecodeArtifact(run.SnapshotJSON, "snapshot", &snap); err != nil {
		return err
	}
	var quality map[endpoint.Host]hostcheck.Quality
	if err := stage.DecodeArtifact(run.QualityJSON, "quality", &quality); err != nil {
		return err
	}

	run.SetProgress("Select", fmt.Sprintf("Confirming candidates for %d channels", len(snap.Channels)), 10)
	if s.store != nil {
		_ = s.store.UpdateProgress(ctx, run)
	}

	picks, unresolved := s.resolver.Resolve(ctx, snap.Channels, quality)
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := stage.EncodeArtifact("selection", Outcome{Picks: picks, Unresolved: unresolved})
	if err != nil {
		return err
	}

	run.SelectionJSON = encoded
	run.SelectedChannels = len(picks)
	run.Status = queue.StatusSelected
	run.SetProgressComplete("Selected",
		fmt.Sprintf("%d channels resolved, %d without a working source", len(picks), len(unresolved)))

	logger.Info("channel selection stored",
		logging.Int("selected", len(picks)),
		logging.Int("unresolved", len(unresolved)))
	return nil
}

// HealthCheck reports the resolver's readiness.
func (s *SelectStage) HealthCheck(ctx context.Context) stage.Health {
	if s.cfg == nil {
		return stage.Unhealthy("select", "configuration unavailable")
	}
	if s.resolver == nil || s.resolver.confirmer == nil {
		return stage.Unhealthy("select", "confirmer not configured")
	}
	return stage.Healthy("select")
}
