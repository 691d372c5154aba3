package daemonrun

import (
	"testing"

	"aerial/internal/logging"
	"aerial/internal/notifications"
	"aerial/internal/testsupport"
	"aerial/internal/workflow"
)

func TestStagesBuildsFullSet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	set := Stages(cfg, store, notifications.NewService(cfg), logger)
	if set.Ingester == nil || set.Prober == nil || set.Selector == nil || set.Publisher == nil {
		t.Fatal("expected handlers for all four stages")
	}

	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(set)
}
