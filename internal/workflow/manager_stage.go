package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"aerial/internal/logging"
	"aerial/internal/queue"
	"aerial/internal/stage"
)

func (m *Manager) processRun(ctx context.Context, loopLogger *slog.Logger, run *queue.Run) error {
	stg, ok := m.stageForStatus(run.Status)
	if !ok {
		if loopLogger == nil {
			loopLogger = m.runnerLogger()
		}
		loopLogger.Warn("no stage configured for status", logging.String("status", string(run.Status)))
		m.waitForRunOrShutdown(ctx)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, stg.name, run, requestID)
	stageLogger := m.stageLoggerFor(stageCtx, loopLogger)

	if err := m.transitionToProcessing(stageCtx, stg, run); err != nil {
		stageLogger.Error("failed to transition run to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, run)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, run *queue.Run) error {
	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("origin", strings.TrimSpace(run.Origin)),
	)

	handler := stg.handler
	if handler == nil {
		stageLogger.Warn("missing stage handler", logging.String(logging.FieldStage, stg.name))
		run.SetFailed(fmt.Sprintf("stage %s missing handler", stg.name))
		if err := m.store.Update(ctx, run); err != nil {
			stageLogger.Error("failed to persist missing handler failure", logging.Error(err))
		}
		m.setLastRun(run)
		err := errors.New("stage handler unavailable")
		m.setLastError(err)
		return err
	}

	if err := handler.Prepare(ctx, run); err != nil {
		m.handleStageFailure(ctx, stg.name, run, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, run); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, handler, run)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg.name, run, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if run.Status == stg.processingStatus || run.Status == "" {
		run.Status = stg.doneStatus
	}
	run.LastHeartbeat = nil
	if run.Status == queue.StatusCompleted {
		if run.ProgressPercent < 100 {
			run.ProgressPercent = 100
		}
		if strings.TrimSpace(run.ProgressStage) == "" {
			run.ProgressStage = deriveStageLabel(queue.StatusCompleted)
		}
		if strings.TrimSpace(run.ProgressMessage) == "" {
			run.ProgressMessage = deriveStageLabel(queue.StatusCompleted)
		}
	}
	if err := m.store.Update(ctx, run); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(run.Status)),
		logging.String("progress_stage", strings.TrimSpace(run.ProgressStage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastRun(run)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, run *queue.Run) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, run.ID)

	execErr := handler.Execute(ctx, run)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, stg pipelineStage, run *queue.Run) error {
	if stg.processingStatus == "" {
		return errors.New("processing status must not be empty")
	}

	m.setRunProcessingState(run, stg.processingStatus)
	if err := m.store.Update(ctx, run); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastRun(run)
	if stg.startStatus == queue.StatusPending {
		m.notifyScanStarted(ctx, run)
	}
	return nil
}

func (m *Manager) setRunProcessingState(run *queue.Run, processing queue.Status) {
	now := time.Now().UTC()
	run.Status = processing
	if run.ProgressStage == "" {
		run.ProgressStage = deriveStageLabel(processing)
	}
	if run.ProgressMessage == "" {
		run.ProgressMessage = fmt.Sprintf("%s started", deriveStageLabel(processing))
	}
	run.ProgressPercent = 0
	run.ErrorMessage = ""
	run.LastHeartbeat = &now
}
