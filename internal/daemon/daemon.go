package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/pipeline"
	"lectern/internal/procstate"
)

// Daemon coordinates the processing pipeline, recovery scheduler, and HTTP
// API, and enforces single-instance execution via a lock file.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *procstate.Store
	orch      *pipeline.Orchestrator
	scheduler *pipeline.Scheduler
	apiSrv    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StateDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *procstate.Store, logger *slog.Logger, orch *pipeline.Orchestrator, scheduler *pipeline.Scheduler) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || orch == nil || scheduler == nil {
		return nil, errors.New("daemon requires config, store, logger, orchestrator, and scheduler")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "lectern.lock")
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		orch:      orch,
		scheduler: scheduler,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiSrv = srv
	return d, nil
}

// Start acquires the daemon lock and launches the scheduler and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lectern daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.scheduler.Start(runCtx)
	if err := d.apiSrv.start(runCtx); err != nil {
		d.scheduler.Stop()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("lectern daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.apiSrv.stop()
	d.scheduler.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("lectern daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports daemon runtime information.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StateDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
}

// APIAddr returns the bound API listener address, or "" when the server is
// not running. Tests bind port 0 and need the resolved address.
func (d *Daemon) APIAddr() string {
	if d.apiSrv == nil {
		return ""
	}
	return d.apiSrv.addr()
}
