// Package publish renders the cleaned playlist and the scan report, then
// announces the finished run. It is the terminal stage: everything it needs
// arrives through the artifacts earlier stages stored on the run.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"aerial/internal/channelid"
	"aerial/internal/config"
	"aerial/internal/endpoint"
	"aerial/internal/fileutil"
	"aerial/internal/hostcheck"
	"aerial/internal/ingest"
	"aerial/internal/logging"
	"aerial/internal/notifications"
	"aerial/internal/playlist"
	"aerial/internal/queue"
	"aerial/internal/report"
	"aerial/internal/selection"
	"aerial/internal/services"
	"aerial/internal/stage"
)

// Publisher writes the playlist and report files and sends the completion
// notification.
type Publisher struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
}

// NewPublisher constructs the publish stage handler.
func NewPublisher(cfg *config.Config, store *queue.Store, notifier notifications.Service, logger *slog.Logger) *Publisher {
	p := &Publisher{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
	}
	p.SetLogger(logger)
	return p
}

// SetLogger updates the publisher's logging destination.
func (p *Publisher) SetLogger(logger *slog.Logger) {
	p.logger = logging.NewComponentLogger(logger, "publish")
}

// Prepare initializes progress messaging prior to Execute.
func (p *Publisher) Prepare(ctx context.Context, run *queue.Run) error {
	run.InitProgress("Publish", "Rendering playlist and report")
	logging.WithContext(ctx, p.logger).Debug("starting publication")
	return nil
}

// Execute renders every output artifact. The playlist write is the critical
// step; notification failure is logged but never fails a run that already
// published its files.
func (p *Publisher) Execute(ctx context.Context, run *queue.Run) error {
	logger := logging.WithContext(ctx, p.logger)

	var snap ingest.Snapshot
	if err := stage.DecodeArtifact(run.SnapshotJSON, "snapshot", &snap); err != nil {
		return err
	}
	var quality map[endpoint.Host]hostcheck.Quality
	if err := stage.DecodeArtifact(run.QualityJSON, "quality", &quality); err != nil {
		return err
	}
	var outcome selection.Outcome
	if err := stage.DecodeArtifact(run.SelectionJSON, "selection", &outcome); err != nil {
		return err
	}

	groups := groupPicks(outcome.Picks, p.cfg.Output.GroupOrder)

	rows := make([]playlist.Channel, 0, len(outcome.Picks))
	for _, group := range groups {
		for _, pick := range group.picks {
			rows = append(rows, playlist.Channel{
				Name:  pick.Channel,
				Group: group.name,
				Logo:  playlist.LogoURL(p.cfg.Output.LogoTemplate, pick.Channel),
				URL:   pick.URL,
			})
		}
	}

	playlistPath := filepath.Join(p.cfg.Paths.OutputDir, p.cfg.Output.PlaylistName)
	content := playlist.Render(p.cfg.Output.EPGURL, rows)
	if err := fileutil.WriteFileVerified(playlistPath, []byte(content)); err != nil {
		return services.Wrap(
			services.ErrTransient,
			"publish",
			"write playlist",
			"Could not write the published playlist; check the output directory",
			err,
		)
	}

	run.SetProgress("Publish", "Playlist written, rendering report", 60)
	if p.store != nil {
		_ = p.store.UpdateProgress(ctx, run)
	}

	stats := hostcheck.Summarize(quality)
	reportPath := filepath.Join(p.cfg.Paths.OutputDir, p.cfg.Output.ReportName)
	if err := report.Write(reportPath, reportData(snap, quality, outcome, groups, stats)); err != nil {
		return services.Wrap(
			services.ErrTransient,
			"publish",
			"write report",
			"Could not write the scan report; check the output directory",
			err,
		)
	}

	run.PlaylistPath = playlistPath
	run.ReportPath = reportPath
	run.Status = queue.StatusCompleted
	run.SetProgressComplete("Completed", fmt.Sprintf("%d channels published", len(outcome.Picks)))

	logger.Info("outputs published",
		logging.Int("channels", len(outcome.Picks)),
		logging.Int("unresolved", len(outcome.Unresolved)),
		logging.String("playlist", playlistPath),
		logging.String("report", reportPath))

	p.notifyCompleted(ctx, logger, snap, stats, groups, len(outcome.Picks))
	return nil
}

// HealthCheck reports whether the output directory is configured.
func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	if p.cfg == nil {
		return stage.Unhealthy("publish", "configuration unavailable")
	}
	if p.cfg.Paths.OutputDir == "" {
		return stage.Unhealthy("publish", "output directory not configured")
	}
	if p.cfg.Output.PlaylistName == "" {
		return stage.Unhealthy("publish", "playlist name not configured")
	}
	return stage.Healthy("publish")
}

func (p *Publisher) notifyCompleted(ctx context.Context, logger *slog.Logger, snap ingest.Snapshot, stats hostcheck.Stats, groups []pickGroup, finalChannels int) {
	if p.notifier == nil {
		return
	}
	summary := notifications.ScanSummary{
		RawChannels:   snap.RawEntries,
		UniqueHosts:   stats.Total,
		AliveHosts:    stats.Alive,
		SurvivalRate:  stats.SurvivalRate() * 100,
		FinalChannels: finalChannels,
		ReportName:    p.cfg.Output.ReportName,
	}
	for _, group := range groups {
		summary.Groups = append(summary.Groups, notifications.GroupCount{
			Name:  group.name,
			Count: len(group.picks),
		})
	}
	if err := p.notifier.NotifyScanCompleted(ctx, summary); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}
}

type pickGroup struct {
	name  string
	picks []selection.Pick
}

// groupPicks buckets selections by display group and orders the buckets by
// the configured sequence. Groups the configuration does not name follow in
// encounter order.
func groupPicks(picks []selection.Pick, order []string) []pickGroup {
	buckets := make(map[string][]selection.Pick)
	encounter := make([]string, 0)
	for _, pick := range picks {
		name := channelid.GroupFor(pick.DisplayName)
		if _, seen := buckets[name]; !seen {
			encounter = append(encounter, name)
		}
		buckets[name] = append(buckets[name], pick)
	}

	groups := make([]pickGroup, 0, len(buckets))
	taken := make(map[string]bool, len(buckets))
	for _, name := range order {
		if picks, ok := buckets[name]; ok {
			groups = append(groups, pickGroup{name: name, picks: picks})
			taken[name] = true
		}
	}
	for _, name := range encounter {
		if !taken[name] {
			groups = append(groups, pickGroup{name: name, picks: buckets[name]})
		}
	}
	return groups
}

func reportData(snap ingest.Snapshot, quality map[endpoint.Host]hostcheck.Quality, outcome selection.Outcome, groups []pickGroup, stats hostcheck.Stats) report.Data {
	data := report.Data{
		GeneratedAt:   time.Now(),
		SurvivalRate:  stats.SurvivalRate(),
		RawChannels:   snap.RawEntries,
		UniqueHosts:   stats.Total,
		AliveHosts:    stats.Alive,
		FinalChannels: len(outcome.Picks),
		Sources:       snap.Sources,
	}
	for _, group := range groups {
		data.Groups = append(data.Groups, report.GroupCount{Name: group.name, Count: len(group.picks)})
	}
	for _, pick := range outcome.Picks {
		data.Available = append(data.Available, pick.Channel)
	}
	for _, miss := range outcome.Unresolved {
		data.Unavailable = append(data.Unavailable, miss.Channel)
	}
	failures := make(map[string]int)
	for host, record := range quality {
		if !record.Alive {
			failures[string(record.Kind)]++
			continue
		}
		data.Ranking = append(data.Ranking, report.HostRecord{
			Host:      host.Key(),
			URL:       record.URL,
			LatencyMS: int(record.Latency.Milliseconds()),
			Kind:      string(record.Kind),
			Trials:    record.Trials,
		})
	}
	for kind, count := range failures {
		data.Failures = append(data.Failures, report.FailureCount{Kind: kind, Count: count})
	}
	return data
}
