package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"aerial/internal/config"
	"aerial/internal/deps"
	"aerial/internal/logging"
	"aerial/internal/notifications"
	"aerial/internal/preflight"
	"aerial/internal/queue"
	"aerial/internal/workflow"
)

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	api       *apiServer
	scheduler *scanScheduler

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	DatabasePath string
	LockFilePath string
	PlaylistPath string
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "aeriald.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, launches the workflow manager, and brings
// up the HTTP API and scan scheduler.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another aerial daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		d.rollbackStart()
		return fmt.Errorf("start workflow: %w", err)
	}

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.workflow.Stop()
		d.rollbackStart()
		return fmt.Errorf("configure api server: %w", err)
	}
	d.api = api
	if err := d.api.start(d.ctx); err != nil {
		d.workflow.Stop()
		d.rollbackStart()
		return err
	}

	if d.scheduler = newScanScheduler(d.cfg, d, d.logger); d.scheduler != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.scheduler.run(d.ctx)
		}()
	}

	d.running.Store(true)
	d.logger.Info("aerial daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) rollbackStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("aerial daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Scan enqueues a new scan run. When a run already occupies the lane, that
// run is returned instead and created is false.
func (d *Daemon) Scan(ctx context.Context, origin string) (*queue.Run, bool, error) {
	if d.store == nil {
		return nil, false, errors.New("run store unavailable")
	}
	if existing, err := d.store.NextForStatuses(ctx, queue.ActiveStatuses()...); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}
	run, err := d.store.NewRun(ctx, origin)
	if err != nil {
		return nil, false, err
	}
	d.logger.Info("scan enqueued",
		logging.Int64(logging.FieldRunID, run.ID),
		logging.String("origin", origin))
	return run, true, nil
}

// ListRuns returns runs filtered by optional statuses.
func (d *Daemon) ListRuns(ctx context.Context, statuses []queue.Status) ([]*queue.Run, error) {
	if d.store == nil {
		return nil, errors.New("run store unavailable")
	}
	return d.store.List(ctx, statuses...)
}

// ClearRuns removes all runs that are not currently processing.
func (d *Daemon) ClearRuns(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("run store unavailable")
	}
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed runs.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("run store unavailable")
	}
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes only failed and review runs.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("run store unavailable")
	}
	return d.store.ClearFailed(ctx)
}

// ResetStuck rolls in-flight runs back to the start of their stage.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("run store unavailable")
	}
	return d.store.ResetStuckProcessing(ctx)
}

// RetryFailed resets failed runs (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("run store unavailable")
	}
	return d.store.RetryFailed(ctx, ids...)
}

// RunHealth returns aggregate run diagnostics.
func (d *Daemon) RunHealth(ctx context.Context) (*queue.HealthSummary, error) {
	if d.store == nil {
		return nil, errors.New("run store unavailable")
	}
	return d.store.Stats(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (*queue.DatabaseHealth, error) {
	if d.store == nil {
		return nil, errors.New("run store unavailable")
	}
	return d.store.CheckHealth(ctx), nil
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.BarkDeviceKey) == "" {
		return false, "bark device key not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// APIAddr returns the listen address of the HTTP API, or empty when the API
// is disabled or the daemon is stopped.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		PlaylistPath: d.cfg.PlaylistPath(),
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
	}
}
