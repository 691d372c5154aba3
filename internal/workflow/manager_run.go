package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"aerial/internal/logging"
	"aerial/internal/queue"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.statusOrder) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runLoop(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLoop(ctx context.Context) {
	defer m.wg.Done()
	logger := m.runnerLogger()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStaleRuns(ctx, logger, m.processingStatuses()); err != nil {
			logger.Warn("reclaim stale processing failed; stuck runs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check run database access"),
			)
		}

		run, err := m.nextRun(ctx)
		if err != nil {
			m.handleNextRunError(ctx, logger, err)
			continue
		}
		if run == nil {
			m.waitForRunOrShutdown(ctx)
			continue
		}

		if err := m.processRun(ctx, logger, run); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// RunOnce processes a single run synchronously until it reaches a terminal
// status. Used by the CLI when running a scan without the daemon.
func (m *Manager) RunOnce(ctx context.Context, runID int64) error {
	logger := m.runnerLogger()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		run, err := m.store.GetByID(ctx, runID)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %d not found", runID)
		}
		if run.Status.IsTerminal() {
			if run.Status == queue.StatusCompleted {
				return nil
			}
			message := strings.TrimSpace(run.ErrorMessage)
			if message == "" {
				message = fmt.Sprintf("run finished with status %s", run.Status)
			}
			return errors.New(message)
		}
		if _, ok := m.stageForStatus(run.Status); !ok {
			return fmt.Errorf("no stage configured for status %s", run.Status)
		}
		if err := m.processRun(ctx, logger, run); err != nil {
			return err
		}
	}
}

func (m *Manager) nextRun(ctx context.Context) (*queue.Run, error) {
	m.mu.RLock()
	order := m.statusOrder
	m.mu.RUnlock()
	if len(order) == 0 {
		return nil, nil
	}
	return m.store.NextForStatuses(ctx, order...)
}

func (m *Manager) handleNextRunError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to fetch next run",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check run database access"),
	)
	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForRunOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.pollInterval):
	}
}
