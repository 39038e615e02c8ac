package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lectern/internal/config"
	"lectern/internal/daemon"
	"lectern/internal/logging"
	"lectern/internal/pipeline"
	"lectern/internal/procstate"
	"lectern/internal/testsupport"
)

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigInitAndValidate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output: %q", out)
	}

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, configPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}

func TestConfigShowPrintsSections(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "[paths]") || !strings.Contains(out, "[pipeline]") {
		t.Fatalf("expected toml sections in output, got %q", out)
	}
}

func TestUnitsListReadsStoreDirectly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	unit := testsupport.NewUnit(t, store, 12, "Shortest Paths")
	state := testsupport.NewState(t, store, unit.ID)
	state.Phase = procstate.PhaseTranscribing
	if err := store.UpdateState(context.Background(), state); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}

	out, _, err := runCLI(t, configPath, "units", "list")
	if err != nil {
		t.Fatalf("units list: %v", err)
	}
	if !strings.Contains(out, "Shortest Paths") || !strings.Contains(out, "transcribing") {
		t.Fatalf("unexpected list output: %q", out)
	}

	out, _, err = runCLI(t, configPath, "units", "show", "1")
	if err != nil {
		t.Fatalf("units show: %v", err)
	}
	if !strings.Contains(out, "Phase:") || !strings.Contains(out, "transcribing") {
		t.Fatalf("unexpected show output: %q", out)
	}
}

func TestUnitsCommandsAgainstDaemon(t *testing.T) {
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
	t.Cleanup(d.Stop)

	// Point the CLI at the port the daemon actually bound.
	clientCfg := *cfg
	clientCfg.Paths.APIBind = d.APIAddr()
	configPath := writeTestConfig(t, &clientCfg)

	out, _, err := runCLI(t, configPath, "units", "add", "--lecture", "3", "--title", "Hashing")
	if err != nil {
		t.Fatalf("units add: %v", err)
	}
	if !strings.Contains(out, "Saved unit") {
		t.Fatalf("unexpected add output: %q", out)
	}

	out, _, err = runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Daemon: running") {
		t.Fatalf("unexpected status output: %q", out)
	}

	out, _, err = runCLI(t, configPath, "units", "cancel", "1")
	if err != nil {
		t.Fatalf("units cancel: %v", err)
	}
	if !strings.Contains(out, "Cancelled unit 1") {
		t.Fatalf("unexpected cancel output: %q", out)
	}

	out, _, err = runCLI(t, configPath, "units", "delete", "1")
	if err != nil {
		t.Fatalf("units delete: %v", err)
	}
	if !strings.Contains(out, "Deleted unit 1") {
		t.Fatalf("unexpected delete output: %q", out)
	}
}

func TestStatusFallsBackWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Daemon: not running") {
		t.Fatalf("expected fallback output, got %q", out)
	}
}
