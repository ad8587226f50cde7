// Package daemonrun wires configuration into the running claimcheck services.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"claimcheck/internal/claims"
	"claimcheck/internal/config"
	"claimcheck/internal/contentanalysis"
	"claimcheck/internal/daemon"
	"claimcheck/internal/docanalysis"
	"claimcheck/internal/logging"
	"claimcheck/internal/notifications"
	"claimcheck/internal/pipeline"
	"claimcheck/internal/services/oracle"
	"claimcheck/internal/storage"
	"claimcheck/internal/suggest"
	"claimcheck/internal/tasks"
	"claimcheck/internal/textextract"
)

// Runtime holds every service built from one configuration.
type Runtime struct {
	Config     *config.Config
	Logger     *slog.Logger
	Repository claims.Repository
	Evidence   storage.Store
	Oracle     *oracle.Client
	Documents  *docanalysis.Analyzer
	Photos     *contentanalysis.Analyzer
	Runner     *tasks.Runner
	Notifier   notifications.Service
	Pipeline   *pipeline.Orchestrator
}

// Open builds the runtime. The caller owns Close.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	repo, err := claims.OpenRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("open claim repository: %w", err)
	}
	rt := &Runtime{Config: cfg, Logger: logger, Repository: repo}

	rt.Evidence, err = storage.New(ctx, cfg)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("open evidence store: %w", err)
	}
	rt.Notifier, err = notifications.NewService(ctx, cfg, logger)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("init notifications: %w", err)
	}

	rt.Oracle = oracle.NewClient(oracle.Config{
		URL:            cfg.Oracle.URL,
		Model:          cfg.Oracle.Model,
		AccessKey:      cfg.Oracle.AccessKey,
		TimeoutSeconds: cfg.Oracle.TimeoutSeconds,
	}, oracle.WithRetryMaxAttempts(cfg.Oracle.RetryMaxAttempts))
	rt.Documents = docanalysis.New(textextract.New(), rt.Oracle, logger)
	rt.Photos = contentanalysis.New(rt.Oracle, cfg.Adjudication.MatchThreshold, logger)
	rt.Runner = tasks.NewRunner(logger)

	rt.Pipeline, err = pipeline.New(cfg, pipeline.Dependencies{
		Documents: rt.Documents,
		Photos:    rt.Photos,
		Evidence:  rt.Evidence,
		Claims:    repo,
		Runner:    rt.Runner,
		Notifier:  rt.Notifier,
		Suggester: suggest.New(rt.Oracle, repo, logger),
		Logger:    logger,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

// NewDaemon builds the HTTP daemon over the runtime's services. Closing the
// daemon closes the repository and notifier.
func (rt *Runtime) NewDaemon() (*daemon.Daemon, error) {
	return daemon.New(rt.Config, daemon.Dependencies{
		Repository: rt.Repository,
		Evidence:   rt.Evidence,
		Pipeline:   rt.Pipeline,
		Documents:  rt.Documents,
		Runner:     rt.Runner,
		Oracle:     rt.Oracle,
		Notifier:   rt.Notifier,
		Logger:     rt.Logger,
	})
}

// Close waits for background tasks and releases the runtime's resources.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Runner != nil {
		if err := rt.Runner.Close(rt.Config.ShutdownGrace()); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.Notifier != nil {
		if err := rt.Notifier.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.Repository != nil {
		if err := rt.Repository.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
