package pipeline

import (
	"context"
	"log/slog"
	"time"

	"claimcheck/internal/capture"
	"claimcheck/internal/contentanalysis"
	"claimcheck/internal/docanalysis"
	"claimcheck/internal/logging"
	"claimcheck/internal/recency"
	"claimcheck/internal/services"
	"claimcheck/internal/stage"
	"claimcheck/internal/textutil"
)

// runState holds everything one run produces. It is created per run and
// passed through each step; nothing outlives the run.
type runState struct {
	id      string
	started time.Time
	state   stage.State
	last    stage.State

	document File
	facts    docanalysis.Facts
	docURL   string
	photos   []*photoState

	base   *slog.Logger
	logger *slog.Logger
}

// photoState is written by exactly one goroutine per step.
type photoState struct {
	file       File
	captured   capture.Date
	validation recency.Outcome
	result     contentanalysis.Result
	err        error
	url        string
}

func (p *photoState) dropped() bool { return p.err != nil }

func newRunState(id string, sub Submission, base *slog.Logger, now time.Time) *runState {
	names := make([]string, len(sub.Photos))
	for i, photo := range sub.Photos {
		names[i] = textutil.SanitizeFileName(photo.Name, "photo.jpg")
	}
	names = textutil.UniqueNames(names)

	photos := make([]*photoState, len(sub.Photos))
	for i, photo := range sub.Photos {
		photos[i] = &photoState{file: File{Name: names[i], Data: photo.Data}}
	}
	rs := &runState{
		id:      id,
		started: now,
		state:   stage.Received,
		last:    stage.Received,
		document: File{
			Name: textutil.SanitizeFileName(sub.Document.Name, "claim.pdf"),
			Data: sub.Document.Data,
		},
		photos: photos,
		base:   base,
	}
	rs.logger = base.With(logging.String(logging.FieldRunID, id))
	return rs
}

// context attaches the run's identifiers so downstream loggers pick them up.
func (rs *runState) context(ctx context.Context) context.Context {
	ctx = services.WithRunID(ctx, rs.id)
	if rs.facts.ClaimID != "" {
		ctx = services.WithClaimID(ctx, rs.facts.ClaimID)
	}
	return services.WithState(ctx, string(rs.state))
}

func (rs *runState) setClaim(facts docanalysis.Facts) {
	rs.facts = facts
	rs.logger = rs.base.With(
		logging.String(logging.FieldRunID, rs.id),
		logging.String(logging.FieldClaimID, facts.ClaimID),
	)
}

// advance moves the run to next. Illegal transitions are programming errors
// and are reported as such rather than silently applied.
func (rs *runState) advance(next stage.State) error {
	if !rs.state.CanTransition(next) {
		return services.Wrap(services.ErrValidation, "pipeline", "advance",
			"illegal transition "+string(rs.state)+" -> "+string(next), nil)
	}
	if next != stage.Failed {
		rs.last = next
	}
	rs.state = next
	return nil
}

func (rs *runState) stateLogger() *slog.Logger {
	return rs.logger.With(logging.String(logging.FieldState, string(rs.state)))
}

func (rs *runState) survivors() []*photoState {
	out := make([]*photoState, 0, len(rs.photos))
	for _, p := range rs.photos {
		if !p.dropped() {
			out = append(out, p)
		}
	}
	return out
}

func (rs *runState) siblings() []contentanalysis.Sibling {
	out := make([]contentanalysis.Sibling, len(rs.photos))
	for i, p := range rs.photos {
		out[i] = contentanalysis.Sibling{
			FileName:    p.file.Name,
			CaptureDate: p.captured.String(),
			Validation:  string(p.validation),
		}
	}
	return out
}

func (rs *runState) result(err error, now time.Time) Result {
	res := Result{
		RunID:       rs.id,
		ClaimID:     rs.facts.ClaimID,
		State:       rs.state,
		LastState:   rs.last,
		Facts:       rs.facts,
		DocumentURL: rs.docURL,
		Photos:      make([]PhotoOutcome, 0, len(rs.photos)),
		Duration:    now.Sub(rs.started),
		Err:         err,
	}
	for _, p := range rs.photos {
		outcome := PhotoOutcome{
			FileName:    p.file.Name,
			URL:         p.url,
			CaptureDate: p.captured.String(),
			Validation:  string(p.validation),
		}
		if p.dropped() {
			outcome.Dropped = true
			outcome.Error = p.err.Error()
		} else if p.result.Classification != "" {
			outcome.Classification = string(p.result.Classification)
			outcome.Score = p.result.Score
			outcome.Description = p.result.Description
			outcome.Reason = p.result.Reason
		}
		res.Photos = append(res.Photos, outcome)
	}
	return res
}
