package workflow

import (
	"context"

	"aerial/internal/logging"
	"aerial/internal/queue"
	"aerial/internal/stage"
)

// StatusSummary captures a point-in-time view of the workflow for the
// status command and the API.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastRun     *queue.Run
	QueueStats  *queue.HealthSummary
	StageHealth map[string]stage.Health
}

// Status reports whether the workflow loop is running, the most recent
// error, queue statistics, and the health of each configured stage.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := ""
	if m.lastErr != nil {
		lastErr = m.lastErr.Error()
	}
	stages := make([]pipelineStage, len(m.stages))
	copy(stages, m.stages)
	var lastRun *queue.Run
	if m.lastRun != nil {
		copied := *m.lastRun
		lastRun = &copied
	}
	m.mu.RUnlock()

	summary := StatusSummary{
		Running:     running,
		LastError:   lastErr,
		LastRun:     lastRun,
		StageHealth: make(map[string]stage.Health, len(stages)),
	}

	if m.store != nil {
		stats, err := m.store.Stats(ctx)
		if err != nil {
			m.runnerLogger().Warn("failed to read run stats", logging.Error(err))
		} else {
			summary.QueueStats = stats
		}
	}

	for _, stg := range stages {
		if stg.handler == nil {
			summary.StageHealth[stg.name] = stage.Unhealthy(stg.name, "handler not configured")
			continue
		}
		summary.StageHealth[stg.name] = stg.handler.HealthCheck(ctx)
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastRun(run *queue.Run) {
	m.mu.Lock()
	if run == nil {
		m.lastRun = nil
	} else {
		copied := *run
		m.lastRun = &copied
	}
	m.mu.Unlock()
}
