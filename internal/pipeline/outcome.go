package pipeline

import (
	"context"
	"errors"

	"claimcheck/internal/logging"
	"claimcheck/internal/notifications"
	"claimcheck/internal/services"
	"claimcheck/internal/stage"
)

func (o *Orchestrator) fail(ctx context.Context, rs *runState, err error) Result {
	failedAt := rs.state
	_ = rs.advance(stage.Failed)
	logging.ErrorWithContext(rs.logger.With(logging.String(logging.FieldState, string(failedAt))),
		"claim run failed", "run_failed",
		logging.String("failure_kind", services.FailureKind(err)),
		logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
		logging.Error(err),
	)
	res := rs.result(err, o.now())
	o.notify(ctx, rs, "run failed", func(ctx context.Context) error {
		return o.notifier.NotifyRunFailed(ctx, notifications.RunFailure{
			RunID:   rs.id,
			ClaimID: rs.facts.ClaimID,
			State:   string(failedAt),
			Kind:    services.FailureKind(err),
			Error:   err.Error(),
		})
	})
	return res
}

func (o *Orchestrator) finish(ctx context.Context, rs *runState) Result {
	res := rs.result(nil, o.now())
	authorized, rejected, dropped := res.Counts()
	rs.stateLogger().Info("claim committed",
		logging.String(logging.FieldEventType, "run_committed"),
		logging.Int("authorized", authorized),
		logging.Int("rejected", rejected),
		logging.Int("dropped", dropped),
		logging.Duration("duration", res.Duration),
	)
	o.notify(ctx, rs, "claim committed", func(ctx context.Context) error {
		return o.notifier.NotifyClaimCommitted(ctx, notifications.RunSummary{
			RunID:      rs.id,
			ClaimID:    rs.facts.ClaimID,
			AIStatus:   rs.facts.ClaimStatus,
			Photos:     len(rs.photos),
			Authorized: authorized,
			Rejected:   rejected,
			Dropped:    dropped,
			Duration:   res.Duration,
		})
	})
	o.scheduleSuggestion(ctx, rs)
	return res
}

// scheduleSuggestion starts the synthesizer as a separate task so the run's
// outcome never depends on it.
func (o *Orchestrator) scheduleSuggestion(ctx context.Context, rs *runState) {
	if o.suggester == nil {
		return
	}
	claimID := rs.facts.ClaimID
	err := o.runner.Go(rs.context(ctx), "suggestion", func(taskCtx context.Context) error {
		sg, err := o.suggester.Synthesize(taskCtx, claimID)
		if err != nil {
			return err
		}
		o.notify(taskCtx, rs, "suggestion", func(ctx context.Context) error {
			return o.notifier.NotifySuggestion(ctx, notifications.SuggestionNotice{
				ClaimID:        claimID,
				Recommendation: string(sg.Recommendation),
				Rationale:      sg.Rationale,
			})
		})
		return nil
	})
	if err != nil {
		logging.WarnWithContext(rs.logger, "suggestion not scheduled", "suggestion_skipped",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "runner is closed; the daemon is shutting down"),
			logging.String(logging.FieldImpact, "claim has no advisory recommendation"),
		)
	}
}

func (o *Orchestrator) notify(ctx context.Context, rs *runState, label string, send func(context.Context) error) {
	if err := send(context.WithoutCancel(ctx)); err != nil {
		if errors.Is(err, context.Canceled) {
			rs.logger.Debug("shutting down, could not send notification", logging.String("notification", label))
			return
		}
		logging.WarnWithContext(rs.logger, "notification failed", "notification_failed",
			logging.String("notification", label),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications and events configuration"),
			logging.String(logging.FieldImpact, "run outcome is unaffected"),
		)
	}
}
