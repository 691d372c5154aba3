package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"aerial/internal/config"
	"aerial/internal/logging"
	"aerial/internal/queue"
)

// scanScheduler enqueues scan runs on a fixed interval so playlists stay
// fresh without operator involvement.
type scanScheduler struct {
	daemon   *Daemon
	interval time.Duration
	logger   *slog.Logger
}

// newScanScheduler returns nil when scheduled scans are disabled.
func newScanScheduler(cfg *config.Config, d *Daemon, logger *slog.Logger) *scanScheduler {
	if cfg == nil || d == nil || cfg.Workflow.ScanInterval <= 0 {
		return nil
	}
	return &scanScheduler{
		daemon:   d,
		interval: time.Duration(cfg.Workflow.ScanInterval) * time.Second,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
	}
}

func (s *scanScheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scan scheduler started", logging.String("interval", s.interval.String()))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run, created, err := s.daemon.Scan(ctx, queue.OriginScheduler)
			switch {
			case errors.Is(err, context.Canceled):
				return
			case err != nil:
				s.logger.Error("scheduled scan failed to enqueue", logging.Error(err))
			case created:
				s.logger.Info("scheduled scan enqueued", logging.Int64(logging.FieldRunID, run.ID))
			default:
				s.logger.Debug("scheduled scan skipped, run already active",
					logging.Int64(logging.FieldRunID, run.ID))
			}
		}
	}
}
