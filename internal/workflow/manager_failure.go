package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aerial/internal/logging"
	"aerial/internal/queue"
	"aerial/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, run *queue.Run, stageErr error) {
	if run == nil {
		return
	}

	kind := services.Classify(stageErr)
	resolved := queue.FailureStatus(kind)
	message := classifyStageFailure(stageName, stageErr)
	run.SetFailed(message)
	if resolved == queue.StatusReview {
		run.Status = queue.StatusReview
		run.ProgressStage = "Review"
	}

	logger := logging.WithContext(ctx, m.baseLogger().With(logging.String(logging.FieldComponent, "workflow-manager")))
	logger.Error(
		"stage failed",
		logging.String("resolved_status", string(run.Status)),
		logging.String("error_message", message),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldErrorKind, kind),
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "stage_failure"),
	)

	if err := m.store.Update(ctx, run); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastRun(run)
	m.notifyStageError(ctx, stageName, run, stageErr)
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return stageFailureMessage(stageName, "failed without error detail")
	}
	detail := strings.TrimSpace(stageErr.Error())
	if detail == "" {
		detail = "failed"
	}
	return stageFailureMessage(stageName, detail)
}

func stageFailureMessage(stageName, detail string) string {
	name := strings.TrimSpace(stageName)
	if name == "" {
		return fmt.Sprintf("workflow %s", detail)
	}
	return fmt.Sprintf("%s %s", name, detail)
}
