package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"aerial/internal/config"
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

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	addr       string
	configPath string
	baseDir    string
}

// setupOfflineEnv prepares a config file and run store without a daemon so
// tests can exercise the direct-database command paths.
func setupOfflineEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)

	configPath := filepath.Join(homeDir, ".config", "aerial", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		configPath: configPath,
		baseDir:    base,
	}
}

// setupCLITestEnv builds the offline environment and starts a daemon with
// noop stages on top of it, for exercising the API command paths.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	env := setupOfflineEnv(t)

	logger := logging.NewNop()
	mgr := workflow.NewManager(env.cfg, env.store, logger)
	mgr.ConfigureStages(workflow.StageSet{
		Ingester:  noopStage{},
		Prober:    noopStage{},
		Selector:  noopStage{},
		Publisher: noopStage{},
	})

	d, err := daemon.New(env.cfg, env.store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	env.daemon = d
	env.addr = d.APIAddr()
	if env.addr == "" {
		t.Fatal("daemon API address not assigned")
	}
	return env
}

func runCLI(t *testing.T, args []string, addr, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := make([]string, 0, 4)
	if addr != "" {
		flags = append(flags, "--addr", addr)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func seedRun(t *testing.T, store *queue.Store, status queue.Status) *queue.Run {
	t.Helper()
	run := testsupport.NewRun(t, store, queue.OriginCLI)
	if status == queue.StatusPending {
		return run
	}
	run.Status = status
	if err := store.Update(context.Background(), run); err != nil {
		t.Fatalf("store.Update: %v", err)
	}
	return run
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
