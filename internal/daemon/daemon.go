package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"claimcheck/internal/api"
	"claimcheck/internal/claims"
	"claimcheck/internal/config"
	"claimcheck/internal/logging"
	"claimcheck/internal/notifications"
	"claimcheck/internal/pipeline"
	"claimcheck/internal/preflight"
	"claimcheck/internal/stage"
	"claimcheck/internal/storage"
	"claimcheck/internal/tasks"
)

// OracleChecker reports whether the oracle client is configured.
type OracleChecker interface {
	Configured() error
}

// Dependencies are the services the daemon exposes over HTTP.
type Dependencies struct {
	Repository claims.Repository
	Evidence   storage.Store
	Pipeline   *pipeline.Orchestrator
	Documents  pipeline.DocumentAnalyzer
	Runner     *tasks.Runner
	Oracle     OracleChecker
	Notifier   notifications.Service
	Logger     *slog.Logger
}

// Daemon coordinates the API server and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	deps     Dependencies
	claimSvc *api.ClaimService
	server   *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Dependencies) (*Daemon, error) {
	if cfg == nil || deps.Repository == nil || deps.Evidence == nil || deps.Pipeline == nil || deps.Runner == nil {
		return nil, errors.New("daemon requires config, repository, evidence store, pipeline, and runner")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewNoop()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "claimcheckd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		deps:     deps,
		claimSvc: api.NewClaimService(deps.Repository, deps.Evidence),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another claimcheck daemon instance is already running")
	}

	for _, failed := range preflight.Failed(preflight.Directories(d.cfg)) {
		d.logger.Warn("preflight check failed",
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldErrorHint, "fix directory permissions or paths in the config file"),
		)
	}

	if err := d.server.start(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("claimcheck daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("address", d.Addr()),
		logging.String("database", d.deps.Repository.Driver()),
		logging.String("storage", d.deps.Evidence.Backend()),
	)
	return nil
}

// Stop stops accepting requests, waits for in-flight runs up to the shutdown
// grace period, and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.server.stop()
	grace := d.cfg.ShutdownGrace()
	if err := d.deps.Runner.Close(grace); err != nil {
		d.logger.Warn("in-flight runs abandoned at shutdown",
			logging.Error(err),
			logging.String(logging.FieldEventType, "shutdown_runs_abandoned"),
			logging.String(logging.FieldErrorHint, "increase pipeline.shutdown_grace_seconds"),
			logging.String(logging.FieldImpact, "abandoned runs leave no claim rows"),
		)
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file manually if restart fails"),
		)
	}
	d.running.Store(false)
	d.logger.Info("claimcheck daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if err := d.deps.Notifier.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.deps.Repository.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Running reports whether the daemon is serving.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Addr returns the bound API address, or the configured bind before Start.
func (d *Daemon) Addr() string {
	if d.server != nil && d.server.listener != nil {
		return d.server.listener.Addr().String()
	}
	return d.cfg.API.Bind
}

// Handler returns the API handler, including auth and request ids.
func (d *Daemon) Handler() http.Handler {
	return d.server.handler
}

// Health reports component readiness.
func (d *Daemon) Health(ctx context.Context) api.HealthResponse {
	checks := []stage.Checker{
		stage.CheckerFunc(func(ctx context.Context) stage.Health {
			name := "database:" + d.deps.Repository.Driver()
			if err := d.deps.Repository.Ping(ctx); err != nil {
				return stage.Unhealthy(name, err.Error())
			}
			return stage.Healthy(name)
		}),
		stage.CheckerFunc(func(context.Context) stage.Health {
			return stage.Healthy("storage:" + d.deps.Evidence.Backend())
		}),
		stage.CheckerFunc(func(context.Context) stage.Health {
			if d.deps.Oracle == nil {
				return stage.Unhealthy("oracle", "oracle client not configured")
			}
			if err := d.deps.Oracle.Configured(); err != nil {
				return stage.Unhealthy("oracle", err.Error())
			}
			return stage.Healthy("oracle")
		}),
	}
	for _, dir := range preflight.Directories(d.cfg) {
		checks = append(checks, stage.CheckerFunc(func(context.Context) stage.Health { return dir }))
	}
	components, ready := stage.Collect(ctx, checks...)
	return api.HealthResponse{
		Ready:      ready,
		Components: components,
		Tasks:      d.deps.Runner.Stats(),
	}
}

// TestNotification sends a test event through every configured publisher.
func (d *Daemon) TestNotification(ctx context.Context) error {
	return d.deps.Notifier.TestNotification(ctx)
}
