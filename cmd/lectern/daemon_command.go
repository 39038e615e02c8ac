package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"lectern/internal/daemon"
	"lectern/internal/logging"
	"lectern/internal/pipeline"
	"lectern/internal/procstate"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the lectern daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(ctx, cmd)
		},
	}
}

func runDaemonProcess(ctx *commandContext, cmd *cobra.Command) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "lectern.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := procstate.Open(cfg)
	if err != nil {
		logger.Error("open state store", logging.Error(err))
		return err
	}
	defer store.Close()

	orch := pipeline.New(cfg, store, logger)
	scheduler := pipeline.NewScheduler(orch, logger)

	d, err := daemon.New(cfg, store, logger, orch, scheduler)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	logger.Info("daemon started",
		logging.Int("pid", os.Getpid()),
		logging.String("state_db", store.Path()))

	<-signalCtx.Done()
	logger.Info("shutdown signal received")
	d.Stop()
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
