package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"claimcheck/internal/config"
	"claimcheck/internal/logging"
	"claimcheck/internal/notifications"
	"claimcheck/internal/recency"
	"claimcheck/internal/services"
	"claimcheck/internal/storage"
	"claimcheck/internal/tasks"
)

// Dependencies are the collaborators a run talks to.
type Dependencies struct {
	Documents DocumentAnalyzer
	Photos    PhotoAnalyzer
	Evidence  storage.Store
	Claims    Committer
	Runner    *tasks.Runner
	Notifier  notifications.Service
	// Suggester is optional; nil disables post-commit suggestions.
	Suggester Suggester
	Logger    *slog.Logger
}

// Orchestrator executes claim runs.
type Orchestrator struct {
	docs      DocumentAnalyzer
	content   PhotoAnalyzer
	evidence  storage.Store
	claims    Committer
	runner    *tasks.Runner
	notifier  notifications.Service
	suggester Suggester
	validator recency.Validator

	photoLimit  int
	uploadLimit int
	maxPhotos   int

	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New constructs an Orchestrator from configuration and its dependencies.
func New(cfg *config.Config, deps Dependencies) (*Orchestrator, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "config is required", nil)
	}
	switch {
	case deps.Documents == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "document analyzer is required", nil)
	case deps.Photos == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "photo analyzer is required", nil)
	case deps.Evidence == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "evidence store is required", nil)
	case deps.Claims == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "claim repository is required", nil)
	case deps.Runner == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "task runner is required", nil)
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	suggester := deps.Suggester
	if !cfg.Pipeline.Suggestions {
		suggester = nil
	}
	return &Orchestrator{
		docs:        deps.Documents,
		content:     deps.Photos,
		evidence:    deps.Evidence,
		claims:      deps.Claims,
		runner:      deps.Runner,
		notifier:    notifier,
		suggester:   suggester,
		validator:   recency.NewValidator(cfg.Adjudication.RecencyWindowDays),
		photoLimit:  positiveOr(cfg.Pipeline.PhotoConcurrency, 4),
		uploadLimit: positiveOr(cfg.Pipeline.UploadConcurrency, 4),
		maxPhotos:   cfg.API.MaxImages,
		logger:      logging.NewComponentLogger(deps.Logger, "pipeline"),
		now:         time.Now,
		newID:       func() string { return ulid.Make().String() },
	}, nil
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

// Validate checks a submission before any work is started.
func (o *Orchestrator) Validate(sub Submission) error {
	if len(sub.Document.Data) == 0 {
		return services.Wrap(services.ErrValidation, "pipeline", "submit", "a claim document is required", nil)
	}
	if len(sub.Photos) == 0 {
		return services.Wrap(services.ErrValidation, "pipeline", "submit", "at least one photo is required", nil)
	}
	if o.maxPhotos > 0 && len(sub.Photos) > o.maxPhotos {
		return services.Wrap(services.ErrValidation, "pipeline", "submit",
			fmt.Sprintf("at most %d photos are accepted", o.maxPhotos), nil)
	}
	for _, photo := range sub.Photos {
		if len(photo.Data) == 0 {
			return services.Wrap(services.ErrValidation, "pipeline", "submit",
				fmt.Sprintf("photo %q is empty", photo.Name), nil)
		}
	}
	return nil
}

// Run executes a submission and blocks until it is committed or failed. The
// returned error is the run's terminal failure, also available as Result.Err.
func (o *Orchestrator) Run(ctx context.Context, sub Submission) (Result, error) {
	if err := o.Validate(sub); err != nil {
		return Result{}, err
	}
	rs := newRunState(o.newID(), sub, o.logger, o.now())
	res := o.execute(ctx, rs)
	return res, res.Err
}

// Submit hands the submission to the task runner and returns immediately.
// The outcome is only observable through persisted claims and run events.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) (Ticket, error) {
	if err := o.Validate(sub); err != nil {
		return Ticket{}, err
	}
	rs := newRunState(o.newID(), sub, o.logger, o.now())
	err := o.runner.Go(rs.context(ctx), "claim-run", func(taskCtx context.Context) error {
		return o.execute(taskCtx, rs).Err
	})
	if err != nil {
		if errors.Is(err, tasks.ErrClosed) {
			return Ticket{}, services.Wrap(services.ErrConfiguration, "pipeline", "submit", "daemon is shutting down", err)
		}
		return Ticket{}, err
	}
	rs.logger.Info("claim run accepted",
		logging.String(logging.FieldEventType, "run_accepted"),
		logging.Int("photos", len(rs.photos)),
	)
	return Ticket{RunID: rs.id, Accepted: rs.started}, nil
}
