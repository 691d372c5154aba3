// Package daemonctl orchestrates the daemon process on behalf of the CLI:
// launching it detached, waiting for its API to answer, and stopping it with
// SIGTERM before escalating to SIGKILL.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"aerial/internal/api"
	"aerial/internal/config"
)

// Control files the daemon maintains in its log directory.
const (
	PIDFileName  = "aeriald.pid"
	LockFileName = "aeriald.lock"
)

const pollInterval = 200 * time.Millisecond

// ErrDaemonNotRunning indicates no daemon answered at the API address.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior. The daemon reads
// its bind address from configuration, so only config location and log level
// are forwarded.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	PID      int
}

// StopResult captures daemon stop outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// Launch starts a detached aerial daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return errors.New("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if path := strings.TrimSpace(opts.ConfigPath); path != "" {
		args = append(args, "--config", path)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForAPI polls the daemon API until it answers or the timeout elapses.
func WaitForAPI(ctx context.Context, addr string, timeout time.Duration) (api.DaemonStatus, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		status, err := probeStatus(ctx, addr)
		if err == nil {
			return status, nil
		}
		lastErr = err
		if !time.Now().Before(deadline) {
			return api.DaemonStatus{}, fmt.Errorf("daemon failed to start: %w", lastErr)
		}
		select {
		case <-ctx.Done():
			return api.DaemonStatus{}, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// EnsureStarted reports the daemon's state, launching the process first when
// nothing answers at addr.
func EnsureStarted(ctx context.Context, addr, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if strings.TrimSpace(addr) == "" {
		return StartResult{}, errors.New("daemon API address is not configured")
	}

	if status, err := probeStatus(ctx, addr); err == nil {
		return StartResult{State: StartStateAlreadyRunning, PID: status.PID}, nil
	}

	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	status, err := WaitForAPI(ctx, addr, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, Launched: true, PID: status.PID}, nil
}

// WaitForShutdown polls until the daemon API stops answering or the timeout
// elapses.
func WaitForShutdown(ctx context.Context, addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := probeStatus(ctx, addr); err != nil {
			return nil
		}
		if !time.Now().Before(deadline) {
			return errors.New("daemon did not stop in time")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// StopAndTerminate signals the daemon to shut down and force-kills the
// process if it is still alive after gracePeriod. SIGTERM is used first so
// the daemon runs its full shutdown path.
func StopAndTerminate(ctx context.Context, addr string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	status, err := probeStatus(ctx, addr)
	if err != nil {
		return StopResult{}, ErrDaemonNotRunning
	}

	logDir := deriveLogDir(status.LockFilePath, cfg)
	pid := status.PID
	if pid <= 0 && logDir != "" {
		pid, _ = readPIDFile(filepath.Join(logDir, PIDFileName))
	}
	if err := terminate(pid); err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: pid}

	if WaitForShutdown(ctx, addr, gracePeriod) == nil {
		return result, nil
	}
	if logDir == "" {
		return result, errors.New("daemon still running and its log directory is unknown")
	}

	killedPID, killErr := ForceKillProcess(
		filepath.Join(logDir, PIDFileName),
		filepath.Join(logDir, LockFileName),
		pid,
	)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// Restart stops the daemon if running, then ensures it is started again.
func Restart(ctx context.Context, addr string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGrace, startWait time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(ctx, addr, cfg, stopGrace)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(ctx, addr, executablePath, opts, startWait)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// ForceKillProcess sends SIGKILL to the daemon process and removes its pid
// and lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	data, err := os.ReadFile(pidPath)
	if err == nil {
		if parsed, parseErr := strconv.Atoi(strings.TrimSpace(string(data))); parseErr == nil && parsed > 0 {
			pid = parsed
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

func probeStatus(ctx context.Context, addr string) (api.DaemonStatus, error) {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return api.NewClient(addr).Status(probeCtx)
}

// terminate sends SIGTERM to the daemon process.
func terminate(pid int) error {
	if pid <= 0 {
		return errors.New("unable to determine daemon pid")
	}
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	return nil
}

// deriveLogDir locates the daemon's control files from its reported lock
// path, falling back to the configured log directory.
func deriveLogDir(lockPath string, cfg *config.Config) string {
	if strings.TrimSpace(lockPath) != "" {
		return filepath.Dir(lockPath)
	}
	if cfg != nil {
		return cfg.Paths.LogDir
	}
	return ""
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %q", path)
	}
	return pid, nil
}
