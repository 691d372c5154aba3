package daemon_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"aerial/internal/api"
	"aerial/internal/daemon"
	"aerial/internal/logging"
	"aerial/internal/queue"
	"aerial/internal/stage"
	"aerial/internal/testsupport"
	"aerial/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *queue.Run) error { return nil }
func (noopStage) Execute(context.Context, *queue.Run) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

func newTestDaemon(t *testing.T) (*daemon.Daemon, *queue.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{
		Ingester:  noopStage{},
		Prober:    noopStage{},
		Selector:  noopStage{},
		Publisher: noopStage{},
	})
	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	d, _ := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.PID <= 0 {
		t.Fatalf("expected positive pid, got %d", status.PID)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()

	storeA := testsupport.MustOpenStore(t, cfg)
	mgrA := workflow.NewManager(cfg, storeA, logger)
	mgrA.ConfigureStages(workflow.StageSet{Ingester: noopStage{}})
	first, err := daemon.New(cfg, storeA, logger, mgrA)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(first.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	storeB := testsupport.MustOpenStore(t, cfg)
	mgrB := workflow.NewManager(cfg, storeB, logger)
	mgrB.ConfigureStages(workflow.StageSet{Ingester: noopStage{}})
	second, err := daemon.New(cfg, storeB, logger, mgrB)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	err = second.Start(ctx)
	if err == nil {
		second.Stop()
		t.Fatal("expected second daemon instance to fail startup")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected startup error: %v", err)
	}
}

func TestDaemonScanEnqueuesOnce(t *testing.T) {
	d, _ := newTestDaemon(t)
	ctx := context.Background()

	run, created, err := d.Scan(ctx, queue.OriginCLI)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !created {
		t.Fatal("expected first scan to create a run")
	}
	if run.Status != queue.StatusPending {
		t.Fatalf("expected pending run, got %s", run.Status)
	}

	again, created, err := d.Scan(ctx, queue.OriginAPI)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if created {
		t.Fatal("expected second scan to reuse the active run")
	}
	if again.ID != run.ID {
		t.Fatalf("expected run %d, got %d", run.ID, again.ID)
	}
}

func TestDaemonAPIServesStatusAndScan(t *testing.T) {
	d, _ := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("expected api server to be listening")
	}

	client := api.NewClient(addr)
	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("client.Status: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running daemon status over the api")
	}
	if status.PID <= 0 {
		t.Fatalf("expected positive pid, got %d", status.PID)
	}

	scan, err := client.Scan(ctx)
	if err != nil {
		t.Fatalf("client.Scan: %v", err)
	}
	if !scan.Created {
		t.Fatal("expected api scan to create a run")
	}
	if scan.Run.Origin != queue.OriginAPI {
		t.Fatalf("expected api origin, got %s", scan.Run.Origin)
	}

	runs, err := client.Runs(ctx)
	if err != nil {
		t.Fatalf("client.Runs: %v", err)
	}
	if len(runs) == 0 {
		t.Fatal("expected at least one run in the listing")
	}
}

func TestDaemonTestNotificationUnconfigured(t *testing.T) {
	d, _ := newTestDaemon(t)

	ok, detail, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if ok {
		t.Fatal("expected unconfigured notifications to report failure")
	}
	if !strings.Contains(detail, "not configured") {
		t.Fatalf("unexpected detail: %q", detail)
	}
}

func TestDaemonSchedulerEnqueuesRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.ScanInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{
		Ingester:  noopStage{},
		Prober:    noopStage{},
		Selector:  noopStage{},
		Publisher: noopStage{},
	})
	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		runs, err := store.List(ctx)
		if err != nil {
			t.Fatalf("store.List: %v", err)
		}
		for _, run := range runs {
			if run.Origin == queue.OriginScheduler {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("expected the scheduler to enqueue a scan run")
}
