package daemon_test

import (
	"context"
	"testing"

	"lectern/internal/daemon"
	"lectern/internal/logging"
	"lectern/internal/pipeline"
	"lectern/internal/testsupport"
)

func TestDaemonEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	orch := pipeline.New(cfg, store, logger)
	sched := pipeline.NewScheduler(orch, logger)
	first, err := daemon.New(cfg, store, logger, orch, sched)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	secondSched := pipeline.NewScheduler(orch, logger)
	second, err := daemon.New(cfg, store, logger, orch, secondSched)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
}

func TestDaemonStatusReportsPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	orch := pipeline.New(cfg, store, logger)
	sched := pipeline.NewScheduler(orch, logger)
	d, err := daemon.New(cfg, store, logger, orch, sched)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	status := d.Status()
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.StateDBPath != store.Path() {
		t.Fatalf("unexpected db path %q", status.StateDBPath)
	}
	if status.LockFilePath == "" {
		t.Fatal("expected lock file path")
	}
	if d.APIAddr() == "" {
		t.Fatal("expected bound api address")
	}
}
