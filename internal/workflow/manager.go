package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"aerial/internal/config"
	"aerial/internal/notifications"
	"aerial/internal/queue"
	"aerial/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Ingester  stage.Handler
	Prober    stage.Handler
	Selector  stage.Handler
	Publisher stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// Manager coordinates run processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration
	notifier     notifications.Service

	heartbeat *HeartbeatMonitor

	stages       []pipelineStage
	stageByStart map[queue.Status]pipelineStage
	statusOrder  []queue.Status
	processing   []queue.Status

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastRun *queue.Run
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	var stages []pipelineStage
	if set.Ingester != nil {
		stages = append(stages, pipelineStage{
			name:             "ingest",
			handler:          set.Ingester,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusIngesting,
			doneStatus:       queue.StatusIngested,
		})
	}
	if set.Prober != nil {
		stages = append(stages, pipelineStage{
			name:             "probe",
			handler:          set.Prober,
			startStatus:      queue.StatusIngested,
			processingStatus: queue.StatusProbing,
			doneStatus:       queue.StatusProbed,
		})
	}
	if set.Selector != nil {
		stages = append(stages, pipelineStage{
			name:             "select",
			handler:          set.Selector,
			startStatus:      queue.StatusProbed,
			processingStatus: queue.StatusSelecting,
			doneStatus:       queue.StatusSelected,
		})
	}
	if set.Publisher != nil {
		stages = append(stages, pipelineStage{
			name:             "publish",
			handler:          set.Publisher,
			startStatus:      queue.StatusSelected,
			processingStatus: queue.StatusPublishing,
			doneStatus:       queue.StatusCompleted,
		})
	}

	stageByStart := make(map[queue.Status]pipelineStage, len(stages))
	statusOrder := make([]queue.Status, 0, len(stages))
	processing := make([]queue.Status, 0, len(stages))
	for _, stg := range stages {
		stageByStart[stg.startStatus] = stg
		statusOrder = append(statusOrder, stg.startStatus)
		processing = append(processing, stg.processingStatus)
	}

	m.mu.Lock()
	m.stages = stages
	m.stageByStart = stageByStart
	m.statusOrder = statusOrder
	m.processing = processing
	m.mu.Unlock()
}

func (m *Manager) stageForStatus(status queue.Status) (pipelineStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stg, ok := m.stageByStart[status]
	return stg, ok
}

func (m *Manager) processingStatuses() []queue.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.processing
}
