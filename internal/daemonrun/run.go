// Package daemonrun boots the aerial daemon process: logging, storage, the
// shared prober, workflow stages, and the daemon lifecycle.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"aerial/internal/config"
	"aerial/internal/daemon"
	"aerial/internal/deepcheck"
	"aerial/internal/hostcheck"
	"aerial/internal/ingest"
	"aerial/internal/logging"
	"aerial/internal/notifications"
	"aerial/internal/preflight"
	"aerial/internal/probe"
	"aerial/internal/publish"
	"aerial/internal/queue"
	"aerial/internal/selection"
	"aerial/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the aerial daemon runtime loop and blocks until the context is
// canceled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("aerial-%s.log", runID))
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update aerial.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "aerial-*.log", cfg.Logging.RetentionDays, logPath)
	pidPath := filepath.Join(cfg.Paths.LogDir, "aeriald.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logPreflight(signalCtx, logger, cfg)
	logDependencySnapshot(logger, cfg)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open run store", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	workflowManager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	workflowManager.ConfigureStages(Stages(cfg, store, notifier, logger))

	d, err := daemon.New(cfg, store, logger, workflowManager)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check configuration and database access"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("aerial daemon shutting down")
	return nil
}

// Stages builds the full pipeline stage set. The probe and select stages
// share one prober so screening, fallback, and confirmation draw from the
// same worker pool and rate limiter.
func Stages(cfg *config.Config, store *queue.Store, notifier notifications.Service, logger *slog.Logger) workflow.StageSet {
	checks := deepcheck.NewSuite(cfg, logger)
	prober := probe.New(cfg, checks, logger)
	return workflow.StageSet{
		Ingester:  ingest.NewIngester(cfg, store, logger),
		Prober:    hostcheck.NewProbeStage(cfg, store, prober, checks, logger),
		Selector:  selection.NewSelectStage(cfg, store, prober, logger),
		Publisher: publish.NewPublisher(cfg, store, notifier, logger),
	}
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "scans may fail until resolved"))
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "aerial.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffprobe := cfg.FFprobeBinary()
	ffmpeg := cfg.FFmpegBinary()
	tesseract := cfg.TesseractBinary()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Int("remote_sources", len(cfg.Sources.Remote)),
		logging.Bool("local_sources", strings.TrimSpace(cfg.Sources.LocalDir) != ""),
		logging.Bool("bark_configured", strings.TrimSpace(cfg.Notifications.BarkDeviceKey) != ""),
		logging.Bool("structural_validation", cfg.Validators.StructuralEnabled),
		logging.Bool("ffprobe_available", binaryAvailable(ffprobe)),
		logging.String("ffprobe_binary", ffprobe),
		logging.Bool("visual_validation", cfg.Validators.VisualEnabled),
		logging.Bool("ffmpeg_available", binaryAvailable(ffmpeg)),
		logging.Bool("tesseract_available", binaryAvailable(tesseract)),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
