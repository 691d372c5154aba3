package workflow_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"aerial/internal/config"
	"aerial/internal/logging"
	"aerial/internal/notifications"
	"aerial/internal/queue"
	"aerial/internal/services"
	"aerial/internal/stage"
	"aerial/internal/testsupport"
	"aerial/internal/workflow"
)

type stubStage struct {
	name        string
	prepareHook func(*queue.Run)
	executeHook func(*queue.Run)
	prepareErr  error
	executeErr  error
	executions  atomic.Int64
	health      stage.Health
}

func newStubStage(name string) *stubStage {
	return &stubStage{name: name, health: stage.Healthy(name)}
}

func (s *stubStage) Prepare(_ context.Context, run *queue.Run) error {
	if s.prepareHook != nil {
		s.prepareHook(run)
	}
	return s.prepareErr
}

func (s *stubStage) Execute(_ context.Context, run *queue.Run) error {
	s.executions.Add(1)
	if s.executeHook != nil {
		s.executeHook(run)
	}
	return s.executeErr
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return s.health
}

type recordingNotifier struct {
	scanStarts []string
	failures   []string
}

func (r *recordingNotifier) NotifyScanStarted(_ context.Context, origin string) error {
	r.scanStarts = append(r.scanStarts, origin)
	return nil
}

func (r *recordingNotifier) NotifyScanCompleted(context.Context, notifications.ScanSummary) error {
	return nil
}

func (r *recordingNotifier) NotifyScanFailed(_ context.Context, contextLabel string, _ error) error {
	r.failures = append(r.failures, contextLabel)
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func workflowConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0
	return cfg
}

func fullStageSet() (workflow.StageSet, *stubStage, *stubStage, *stubStage, *stubStage) {
	ingester := newStubStage("ingest")
	prober := newStubStage("probe")
	selector := newStubStage("select")
	publisher := newStubStage("publish")
	return workflow.StageSet{
		Ingester:  ingester,
		Prober:    prober,
		Selector:  selector,
		Publisher: publisher,
	}, ingester, prober, selector, publisher
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Run {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", want)
		default:
		}
		run, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if run != nil && run.Status == want {
			return run
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func TestManagerProcessesRunThroughAllStages(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set, ingester, prober, selector, publisher := fullStageSet()
	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	run, err := store.NewRun(ctx, queue.OriginCLI)
	if err != nil {
		t.Fatalf("NewRun failed: %v", err)
	}

	final := waitForStatus(t, store, run.ID, queue.StatusCompleted)
	if final.ProgressPercent != 100 {
		t.Fatalf("expected completed run at 100%%, got %.1f", final.ProgressPercent)
	}
	if final.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared after completion")
	}
	for _, stg := range []*stubStage{ingester, prober, selector, publisher} {
		if stg.executions.Load() != 1 {
			t.Fatalf("expected %s to execute once, got %d", stg.name, stg.executions.Load())
		}
	}
	mgr.Stop()
	if len(notifier.scanStarts) != 1 {
		t.Fatalf("expected one scan start notification, got %d", len(notifier.scanStarts))
	}
	if notifier.scanStarts[0] != queue.OriginCLI {
		t.Fatalf("expected origin %q, got %q", queue.OriginCLI, notifier.scanStarts[0])
	}
	if len(notifier.failures) != 0 {
		t.Fatalf("expected no failure notifications, got %v", notifier.failures)
	}
}

func TestManagerStatusIncludesStageHealth(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set, _, prober, _, _ := fullStageSet()
	prober.health = stage.Unhealthy("probe", "ffprobe missing")

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.ConfigureStages(set)

	status := mgr.Status(context.Background())
	health, ok := status.StageHealth["probe"]
	if !ok {
		t.Fatal("expected stage health entry for probe")
	}
	if health.Ready {
		t.Fatalf("expected not ready health, got %+v", health)
	}
	if health.Detail != "ffprobe missing" {
		t.Fatalf("expected detail %q, got %q", "ffprobe missing", health.Detail)
	}
	if !status.StageHealth["ingest"].Ready {
		t.Fatal("expected ingest stage to stay healthy")
	}
}

func TestManagerRoutesValidationFailureToReview(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set, _, prober, _, _ := fullStageSet()
	prober.executeErr = services.Wrap(services.ErrValidation, "prober", "decode snapshot", "run is missing its snapshot artifact", nil)

	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	run, err := store.NewRun(ctx, queue.OriginScheduler)
	if err != nil {
		t.Fatalf("NewRun failed: %v", err)
	}
	run.Status = queue.StatusIngested
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	final := waitForStatus(t, store, run.ID, queue.StatusReview)
	if final.ProgressStage != "Review" {
		t.Fatalf("expected progress stage Review, got %s", final.ProgressStage)
	}
	if !strings.Contains(final.ErrorMessage, "validation error") {
		t.Fatalf("expected validation marker in error message, got %s", final.ErrorMessage)
	}
	mgr.Stop()
	if len(notifier.failures) != 1 {
		t.Fatalf("expected one failure notification, got %d", len(notifier.failures))
	}
	if !strings.Contains(notifier.failures[0], "probe") {
		t.Fatalf("expected stage name in failure context, got %q", notifier.failures[0])
	}
}

func TestManagerDefaultsFailureToFailed(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set, _, prober, _, _ := fullStageSet()
	prober.executeErr = errors.New("connection reset")

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.ConfigureStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	run, err := store.NewRun(ctx, queue.OriginCLI)
	if err != nil {
		t.Fatalf("NewRun failed: %v", err)
	}
	run.Status = queue.StatusIngested
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	final := waitForStatus(t, store, run.ID, queue.StatusFailed)
	if final.ProgressStage != "Failed" {
		t.Fatalf("expected progress stage Failed, got %s", final.ProgressStage)
	}
	if !strings.Contains(final.ErrorMessage, "probe connection reset") {
		t.Fatalf("expected stage-prefixed message, got %s", final.ErrorMessage)
	}
}

func TestManagerReclaimsStaleProcessingRun(t *testing.T) {
	cfg := workflowConfig(t)
	cfg.Workflow.HeartbeatTimeout = 1
	store := testsupport.MustOpenStore(t, cfg)

	set, _, prober, _, _ := fullStageSet()

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.ConfigureStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run, err := store.NewRun(ctx, queue.OriginCLI)
	if err != nil {
		t.Fatalf("NewRun failed: %v", err)
	}
	stale := time.Now().UTC().Add(-time.Hour)
	run.Status = queue.StatusProbing
	run.LastHeartbeat = &stale
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	waitForStatus(t, store, run.ID, queue.StatusCompleted)
	if prober.executions.Load() == 0 {
		t.Fatal("expected prober to rerun after reclaim")
	}
}

func TestRunOnceProcessesRunSynchronously(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set, ingester, _, _, publisher := fullStageSet()
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.ConfigureStages(set)

	ctx := context.Background()
	run, err := store.NewRun(ctx, queue.OriginCLI)
	if err != nil {
		t.Fatalf("NewRun failed: %v", err)
	}

	if err := mgr.RunOnce(ctx, run.ID); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	final, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != queue.StatusCompleted {
		t.Fatalf("expected completed run, got %s", final.Status)
	}
	if ingester.executions.Load() != 1 || publisher.executions.Load() != 1 {
		t.Fatal("expected every stage to execute exactly once")
	}
}

func TestRunOnceSurfacesFailureMessage(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set, _, _, selector, _ := fullStageSet()
	selector.executeErr = errors.New("no candidates decoded")

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.ConfigureStages(set)

	ctx := context.Background()
	run, err := store.NewRun(ctx, queue.OriginCLI)
	if err != nil {
		t.Fatalf("NewRun failed: %v", err)
	}
	run.Status = queue.StatusProbed
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	err = mgr.RunOnce(ctx, run.ID)
	if err == nil {
		t.Fatal("expected RunOnce to report the stage failure")
	}
	if !strings.Contains(err.Error(), "no candidates decoded") {
		t.Fatalf("expected failure detail in error, got %v", err)
	}

	final, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != queue.StatusFailed {
		t.Fatalf("expected failed run, got %s", final.Status)
	}
}

func TestStartRequiresConfiguredStages(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail without configured stages")
	}
}
