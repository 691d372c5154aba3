// Package ingest loads playlist sources and distills them into the channel
// snapshot every later stage works from.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"aerial/internal/blacklist"
	"aerial/internal/channelid"
	"aerial/internal/config"
	"aerial/internal/endpoint"
	"aerial/internal/logging"
	"aerial/internal/playlist"
	"aerial/internal/queue"
	"aerial/internal/services"
	"aerial/internal/sources"
	"aerial/internal/stage"
)

// Snapshot is the ingestion artifact persisted on the run. It carries the
// consolidated channels plus the source details the final report needs.
type Snapshot struct {
	Channels    []channelid.Channel `json:"channels"`
	Sources     []sources.Detail    `json:"sources"`
	RawEntries  int                 `json:"raw_entries"`
	Blacklisted int                 `json:"blacklisted"`
}

// Ingester loads sources, filters blocked hosts, and consolidates channels.
type Ingester struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	loader *sources.Loader
}

// NewIngester constructs the ingest stage handler.
func NewIngester(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Ingester {
	ing := &Ingester{
		cfg:    cfg,
		store:  store,
		loader: sources.NewLoader(cfg, logger),
	}
	ing.SetLogger(logger)
	return ing
}

// SetLogger updates the ingester's logging destination.
func (g *Ingester) SetLogger(logger *slog.Logger) {
	g.logger = logging.NewComponentLogger(logger, "ingest")
}

// Prepare initializes progress messaging prior to Execute.
func (g *Ingester) Prepare(ctx context.Context, run *queue.Run) error {
	run.InitProgress("Ingest", "Loading playlist sources")
	logging.WithContext(ctx, g.logger).Debug("starting source ingestion")
	return nil
}

// Execute fetches every configured source, applies the host blocklist, and
// stores the consolidated snapshot on the run.
func (g *Ingester) Execute(ctx context.Context, run *queue.Run) error {
	logger := logging.WithContext(ctx, g.logger)

	result, err := g.loader.Load(ctx)
	if err != nil {
		return services.Wrap(
			services.ErrTransient,
			"ingest",
			"load sources",
			"No playlist entries could be loaded; check source configuration and network reachability",
			err,
		)
	}

	run.SetProgress("Ingest", fmt.Sprintf("Loaded %d entries from %d sources", len(result.Entries), len(result.Details)), 40)
	if g.store != nil {
		_ = g.store.UpdateProgress(ctx, run)
	}

	blocked, err := blacklist.Load(g.cfg.Sources.BlacklistPath)
	if err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"ingest",
			"load blacklist",
			"Blacklist file exists but could not be read; fix its permissions or remove it",
			err,
		)
	}

	kept, dropped := applyBlacklist(result.Entries, blocked)
	if dropped > 0 {
		logger.Info("blacklist applied",
			logging.Int("blocked_hosts", blocked.Len()),
			logging.Int("entries_dropped", dropped))
	}

	channels := channelid.Consolidate(kept)
	if len(channels) == 0 {
		return services.Wrap(
			services.ErrValidation,
			"ingest",
			"consolidate",
			"Every loaded entry was filtered out; verify the sources carry playable streams",
			fmt.Errorf("0 channels from %d entries", len(result.Entries)),
		)
	}

	encoded, err := stage.EncodeArtifact("snapshot", Snapshot{
		Channels:    channels,
		Sources:     result.Details,
		RawEntries:  len(result.Entries),
		Blacklisted: dropped,
	})
	if err != nil {
		return err
	}

	run.SnapshotJSON = encoded
	run.SourcesLoaded = loadedSources(result.Details)
	run.RawEntries = len(result.Entries)
	run.Channels = len(channels)
	run.Status = queue.StatusIngested
	run.SetProgressComplete("Ingested", fmt.Sprintf("%d channels from %d entries", len(channels), len(result.Entries)))

	logger.Info("ingestion complete",
		logging.Int("sources", len(result.Details)),
		logging.Int("entries", len(result.Entries)),
		logging.Int("channels", len(channels)),
		logging.Int("blacklisted", dropped))
	return nil
}

// HealthCheck reports whether any playlist source is configured.
func (g *Ingester) HealthCheck(ctx context.Context) stage.Health {
	if g.cfg == nil {
		return stage.Unhealthy("ingest", "configuration unavailable")
	}
	if len(g.cfg.Sources.Remote) == 0 && strings.TrimSpace(g.cfg.Sources.LocalDir) == "" {
		return stage.Unhealthy("ingest", "no playlist sources configured")
	}
	return stage.Healthy("ingest")
}

// applyBlacklist drops entries whose endpoint is blocked. Entries with
// unparseable URLs pass through; host grouping discards them later.
func applyBlacklist(entries []playlist.Entry, blocked blacklist.Set) ([]playlist.Entry, int) {
	if blocked.Len() == 0 {
		return entries, 0
	}
	kept := make([]playlist.Entry, 0, len(entries))
	dropped := 0
	for _, entry := range entries {
		host, err := endpoint.FromURL(entry.URL)
		if err == nil && blocked.Contains(host.Key()) {
			dropped++
			continue
		}
		kept = append(kept, entry)
	}
	return kept, dropped
}

func loadedSources(details []sources.Detail) int {
	count := 0
	for _, detail := range details {
		if detail.Success {
			count++
		}
	}
	return count
}
