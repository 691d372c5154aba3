package workflow

import (
	"context"
	"errors"
	"fmt"

	"aerial/internal/logging"
	"aerial/internal/queue"
)

func (m *Manager) notifyScanStarted(ctx context.Context, run *queue.Run) {
	if m.notifier == nil || run == nil {
		return
	}
	if err := m.notifier.NotifyScanStarted(ctx, run.Origin); err != nil {
		if errors.Is(err, context.Canceled) {
			m.runnerLogger().Debug("daemon shutting down, could not send scan start notification")
			return
		}
		m.runnerLogger().Debug("scan start notification failed", logging.Error(err))
	}
}

func (m *Manager) notifyStageError(ctx context.Context, stageName string, run *queue.Run, stageErr error) {
	if m.notifier == nil || run == nil {
		return
	}
	contextLabel := fmt.Sprintf("%s (run #%d)", stageName, run.ID)
	if err := m.notifier.NotifyScanFailed(ctx, contextLabel, stageErr); err != nil {
		if errors.Is(err, context.Canceled) {
			m.runnerLogger().Debug("daemon shutting down, could not send scan failure notification")
			return
		}
		m.runnerLogger().Debug("scan failure notification failed", logging.Error(err))
	}
}
